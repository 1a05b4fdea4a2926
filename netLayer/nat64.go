package netLayer

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/e1732a364fed/edgerelay/utils"
	"golang.org/x/net/idna"
)

const DefaultNat64Prefix = "2602:fc59:b0:64::"

var ErrInvalidIPv4 = errors.New("invalid IPv4 address")

// Nat64 把ipv4地址嵌入到一个ipv6前缀里, 让只有ipv6出口的网络也能访问ipv4目标.
//
// 例如 前缀 2602:fc59:b0:64:: 下, 192.168.1.1 -> [2602:fc59:b0:64::c0a8:0101]
type Nat64 struct {
	Prefix string
	Doh    *DohClient
}

func NewNat64(prefix string, doh *DohClient) *Nat64 {
	if prefix == "" {
		prefix = DefaultNat64Prefix
	}
	return &Nat64{Prefix: prefix, Doh: doh}
}

const hexDigits = "0123456789abcdef"

// TranslateLiteral 把 点分十进制 ipv4 转成 带方括号的 nat64 ipv6 字符串.
// 每段必须是纯数字且在 0-255 之间, 必须正好四段.
func (n *Nat64) TranslateLiteral(ipv4 string) (string, error) {
	parts := strings.Split(strings.TrimSpace(ipv4), ".")
	if len(parts) != 4 {
		return "", utils.ErrInErr{ErrDesc: "nat64 translate", ErrDetail: ErrInvalidIPv4, Data: ipv4}
	}

	var octets [4]byte
	for i, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return "", utils.ErrInErr{ErrDesc: "nat64 invalid segment", ErrDetail: ErrInvalidIPv4, Data: p}
		}
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return "", utils.ErrInErr{ErrDesc: "nat64 invalid segment", ErrDetail: ErrInvalidIPv4, Data: p}
		}
		octets[i] = byte(v)
	}

	var sb strings.Builder
	sb.Grow(len(n.Prefix) + 11)
	sb.WriteByte('[')
	sb.WriteString(n.Prefix)
	for i, o := range octets {
		if i == 2 {
			sb.WriteByte(':')
		}
		sb.WriteByte(hexDigits[o>>4])
		sb.WriteByte(hexDigits[o&0x0f])
	}
	sb.WriteByte(']')
	return sb.String(), nil
}

// ResolveDomain 通过 doh 查询 domain 的A记录, 再 TranslateLiteral.
func (n *Nat64) ResolveDomain(ctx context.Context, domain string) (string, error) {
	if n.Doh == nil {
		return "", utils.ErrInErr{ErrDesc: "nat64 resolve without doh client", ErrDetail: utils.ErrNilParameter}
	}

	asciiDomain, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		// 不合规的 idn 直接按原样去查, 交给 doh 服务器判断
		asciiDomain = domain
	}

	ip, err := n.Doh.LookupA(ctx, asciiDomain)
	if err != nil {
		return "", utils.ErrInErr{ErrDesc: "domain resolution failed", ErrDetail: err, Data: domain}
	}
	return n.TranslateLiteral(ip)
}
