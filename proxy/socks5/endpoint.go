package socks5

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/e1732a364fed/edgerelay/netLayer"
	"github.com/e1732a364fed/edgerelay/utils"
)

var ErrInvalidEndpoint = errors.New("invalid socks5 endpoint")

// Endpoint 是一个上游socks5服务器
type Endpoint struct {
	Host string
	Port int

	User string
	Pass string
}

func (ep *Endpoint) HasAuth() bool {
	return ep.User != ""
}

func (ep *Endpoint) Addr() string {
	return net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port))
}

// ParseEndpoint 解析 [user:pass@]host[:port] 形式的字符串.
//
// 若有 @, 其前面必须正好是 user:pass 两段. ipv6 主机需要用方括号括起来.
// 没有端口时使用 DefaultPort.
func ParseEndpoint(s string) (*Endpoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, utils.ErrInErr{ErrDesc: "empty socks5 address", ErrDetail: ErrInvalidEndpoint}
	}

	ep := &Endpoint{}

	if i := strings.LastIndex(s, "@"); i >= 0 {
		cred := s[:i]
		s = s[i+1:]

		user, pass, ok := strings.Cut(cred, ":")
		if !ok || strings.Contains(pass, ":") {
			return nil, utils.ErrInErr{ErrDesc: "socks5 credentials must be user:pass", ErrDetail: ErrInvalidEndpoint}
		}
		ep.User = user
		ep.Pass = pass
	}

	host, port, err := netLayer.ParseHostPort(s, DefaultPort)
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: "socks5 host", ErrDetail: ErrInvalidEndpoint, Data: err.Error()}
	}
	if !govalidator.IsHost(host) {
		return nil, utils.ErrInErr{ErrDesc: "socks5 host", ErrDetail: ErrInvalidEndpoint, Data: host}
	}
	ep.Host = host
	ep.Port = port
	return ep, nil
}
