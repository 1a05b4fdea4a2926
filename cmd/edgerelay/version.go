/*
Package main 读取配置文件, 然后在一个 http 端口上提供 vless over websocket 的隧道服务.

命令行参数请使用 --help / -h 查看详情，配置文件示例请参考 ../../examples/ .
*/
package main

import (
	"fmt"
	"io"
	"runtime"
)

const (
	desc      = "A vless over websocket relay endpoint, with socks5, relay-host and nat64 fallbacks\n"
	delimiter = "===============================\n"
)

var Version string = "[version_undefined]" //版本号可由 -ldflags "-X 'main.Version=v1.x.x'" 指定

func versionStr() string {
	return fmt.Sprintf("edgerelay %s, %s %s %s\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func printVersion(w io.StringWriter) {
	w.WriteString(delimiter)
	w.WriteString(versionStr())
	w.WriteString(delimiter)
	w.WriteString(desc)
	w.WriteString(delimiter)
}
