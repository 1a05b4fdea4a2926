package netLayer

import (
	"errors"
	"net"
	"strconv"
	"strings"
)

// Atyp, for vless; 注意与 socks5的区别，socks5的相同含义的值是1，3，4
const (
	AtypIP4    byte = 1
	AtypDomain byte = 2
	AtypIP6    byte = 3
)

var ErrEmptyHost = errors.New("empty host")

// Addr represents a address that you want to access. Either Name or IP is used exclusively.
type Addr struct {
	Name string // domain name
	IP   net.IP
	Port int
}

func (a *Addr) IsDomain() bool {
	return a.IP == nil
}

func (a *Addr) IsIPv4() bool {
	return a.IP != nil && a.IP.To4() != nil
}

func (a *Addr) IsIPv6() bool {
	return a.IP != nil && a.IP.To4() == nil
}

// AddrType 返回 vless 标准的 Atyp
func (a *Addr) AddrType() byte {
	switch {
	case a.IsDomain():
		return AtypDomain
	case a.IsIPv4():
		return AtypIP4
	default:
		return AtypIP6
	}
}

// Host 返回域名, 或ip的字符串形式 (ipv6 不带方括号)
func (a *Addr) Host() string {
	if a.IP != nil {
		return a.IP.String()
	}
	return a.Name
}

// String 返回 host:port, ipv6 带方括号
func (a *Addr) String() string {
	return net.JoinHostPort(a.Host(), strconv.Itoa(a.Port))
}

// ParseHostPort 解析 host[:port] 形式的字符串, 比如 "example.com:443", "1.2.3.4", "[::1]:8443".
//
// 端口缺失, 非数字 或 不在 1-65535 时 使用 defaultPort. host 外层的方括号会被去掉.
func ParseHostPort(s string, defaultPort int) (host string, port int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, ErrEmptyHost
	}
	port = defaultPort

	if strings.HasPrefix(s, "[") {
		end := strings.Index(s, "]")
		if end < 0 {
			return "", 0, &net.AddrError{Err: "missing ']' in address", Addr: s}
		}
		host = s[1:end]
		rest := s[end+1:]
		if strings.HasPrefix(rest, ":") {
			port = parsePortOr(rest[1:], defaultPort)
		}
	} else if strings.Count(s, ":") > 1 {
		// 裸 ipv6, 没有端口
		host = s
	} else if i := strings.LastIndexByte(s, ':'); i >= 0 {
		host = s[:i]
		port = parsePortOr(s[i+1:], defaultPort)
	} else {
		host = s
	}

	if host == "" {
		return "", 0, ErrEmptyHost
	}
	return
}

func parsePortOr(s string, def int) int {
	p, err := strconv.Atoi(s)
	if err != nil || p <= 0 || p > 65535 {
		return def
	}
	return p
}

// StripBrackets 去掉 "[2001:db8::1]" 外层的方括号
func StripBrackets(host string) string {
	if len(host) > 1 && host[0] == '[' && host[len(host)-1] == ']' {
		return host[1 : len(host)-1]
	}
	return host
}
