package proxy

import (
	"net/url"
	"strings"

	"github.com/e1732a364fed/edgerelay/httpLayer"
	"github.com/e1732a364fed/edgerelay/proxy/socks5"
	"github.com/e1732a364fed/edgerelay/utils"
	"go.uber.org/zap"
)

// RequestOptions 是从 升级请求的 url 中得到的 出站选项. 每个连接一份, 只读.
type RequestOptions struct {
	Mode Mode

	// 原始查询字符串中的键, 保持出现顺序
	Keys []string

	// 为nil 表示 没有配置socks5, 此时 SOCKS5 方式会被跳过
	Socks5 *socks5.Endpoint

	RelayHost string

	Strategies []Strategy
}

// ParseRequestOptions 从 u 中解析 mode, s5, proxyip 参数.
//
// 没有 s5 参数时, 若路径 (去掉开头的 /) 含有 @, 则把路径当作 socks5 地址.
// 没有 proxyip 参数时 使用 defaultRelay. u 会先经过 httpLayer.FixEncodedQuery 修正.
func ParseRequestOptions(u *url.URL, defaultMode Mode, defaultRelay string) *RequestOptions {
	httpLayer.FixEncodedQuery(u)
	q := u.Query()

	ro := &RequestOptions{
		Mode:      Mode(q.Get("mode")),
		Keys:      httpLayer.QueryKeys(u.RawQuery),
		RelayHost: defaultRelay,
	}
	if ro.Mode == "" {
		ro.Mode = defaultMode
		if ro.Mode == "" {
			ro.Mode = DefaultMode
		}
	}

	if p := q.Get("proxyip"); p != "" {
		ro.RelayHost = p
	}

	s5str := q.Get("s5")
	if s5str == "" {
		if p := strings.TrimPrefix(u.Path, "/"); strings.Contains(p, "@") {
			s5str = p
		}
	}
	if s5str != "" {
		ep, err := socks5.ParseEndpoint(s5str)
		if err != nil {
			if ce := utils.CanLogDebug("ignore bad socks5 param"); ce != nil {
				ce.Write(zap.Error(err))
			}
		} else {
			ro.Socks5 = ep
		}
	}

	ro.Strategies = ResolveStrategies(ro.Mode, ro.Keys)
	return ro
}
