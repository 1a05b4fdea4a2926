/*
Package configAdapter 生成 客户端可导入的 vless 分享链接 与 订阅内容.

分享链接格式参考 https://github.com/XTLS/Xray-core/discussions/716

本包依然秉持KISS原则，用最笨的代码、最少的依赖.
*/
package configAdapter

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/biter777/countries"
)

// 客户端 websocket 路径, 告诉客户端 用 earlydata, 最多 2048 字节
const DefaultWsPath = "/?ed=2048"

// VlessShareConf 是一条 vless+ws+tls 分享链接的全部内容
type VlessShareConf struct {
	UUID string

	Server string // 客户端实际连接的 host:port, 一般为优选域名或ip
	Host   string // tls sni 与 ws Host 头, 即 本服务的域名

	Path string // 空时为 DefaultWsPath
	Name string
}

// ToVlessShareLink 生成 vless://uuid@server?params#name 形式的链接.
func ToVlessShareLink(c VlessShareConf) string {
	path := c.Path
	if path == "" {
		path = DefaultWsPath
	}

	q := url.Values{}
	q.Set("encryption", "none")
	q.Set("security", "tls")
	q.Set("sni", c.Host)
	q.Set("fp", "chrome")
	q.Set("type", "ws")
	q.Set("host", c.Host)
	q.Set("path", path)

	var sb strings.Builder
	sb.WriteString("vless://")
	sb.WriteString(c.UUID)
	sb.WriteByte('@')
	sb.WriteString(c.Server)
	sb.WriteByte('?')
	sb.WriteString(q.Encode())
	if c.Name != "" {
		sb.WriteByte('#')
		sb.WriteString(url.PathEscape(c.Name))
	}
	return sb.String()
}

// RelayCandidate 是一个可用作 proxyip 的中转主机
type RelayCandidate struct {
	Domain string `toml:"domain"`
	Region string `toml:"region"`
	Port   int    `toml:"port"`
}

func (r RelayCandidate) Addr() string {
	port := r.Port
	if port <= 0 {
		port = 443
	}
	return net.JoinHostPort(r.Domain, strconv.Itoa(port))
}

// RegionName 把 region 转成可读的名称. 能识别为国家代码或国家名时 返回国家的英文名, 否则原样返回.
//
// 如 "US" -> "United States", "Oracle" -> "Oracle"
func RegionName(region string) string {
	c := countries.ByName(region)
	if c == countries.Unknown {
		return region
	}
	return c.String()
}
