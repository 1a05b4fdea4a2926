// Package socks5 提供一个最小的 socks5 客户端, 用于经过上游 socks5 服务器 连接目标.
//
// 只支持 CONNECT 命令, 目标地址始终以域名类型发送.
package socks5

// https://www.ietf.org/rfc/rfc1928.txt
// https://www.ietf.org/rfc/rfc1929.txt

const Name = "socks5"

// Version is socks5 version number.
const Version5 = 0x05

// SOCKS auth type
const (
	AuthNone     = 0x00
	AuthPassword = 0x02

	// 用户名密码 子协商 的版本号, 见 rfc1929
	AuthPasswordVersion = 0x01
)

// SOCKS request commands as defined in RFC 1928 section 4
const (
	CmdConnect = 0x01
)

// SOCKS address types as defined in RFC 1928 section 4
//
//	Note: vless用的是123，而这里用的是134，所以是不一样的。
const (
	ATypIP4    = 0x1
	ATypDomain = 0x3
	ATypIP6    = 0x4
)

// 上游地址未写端口时使用的端口
const DefaultPort = 443
