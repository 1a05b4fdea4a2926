package proxy

import (
	"golang.org/x/exp/slices"
)

// Strategy 是到达目标的一种出站方式
type Strategy byte

const (
	DIRECT Strategy = iota
	SOCKS5
	RELAY
	NAT64
)

func (s Strategy) String() string {
	switch s {
	case DIRECT:
		return "direct"
	case SOCKS5:
		return "s5"
	case RELAY:
		return "proxy"
	case NAT64:
		return "nat64"
	}
	return "unknown"
}

// Mode 是请求中 mode 参数的取值
type Mode string

const (
	ModeDirect Mode = "direct"
	ModeS5     Mode = "s5"
	ModeProxy  Mode = "proxy"
	ModeNat64  Mode = "nat64"
	ModeAuto   Mode = "auto"

	DefaultMode = ModeProxy
)

var modeStrategies = map[Mode][]Strategy{
	ModeDirect: {DIRECT},
	ModeS5:     {SOCKS5},
	ModeProxy:  {DIRECT, RELAY},
	ModeNat64:  {NAT64},
}

// auto 模式下认识的查询参数键
var queryKeyStrategies = map[string]Strategy{
	"direct":  DIRECT,
	"s5":      SOCKS5,
	"proxyip": RELAY,
	"nat64":   NAT64,
}

func (m Mode) IsValid() bool {
	if m == ModeAuto {
		return true
	}
	_, ok := modeStrategies[m]
	return ok
}

// ResolveStrategies 给出按顺序要尝试的出站方式.
//
// auto 模式下, 按 queryKeys 的顺序, 每出现一次认识的键 就追加一次对应的方式;
// 一个认识的键都没有时为 [DIRECT]. 无法识别的 mode 返回空列表.
func ResolveStrategies(mode Mode, queryKeys []string) []Strategy {
	if mode != ModeAuto {
		return slices.Clone(modeStrategies[mode])
	}

	var order []Strategy
	for _, k := range queryKeys {
		if s, ok := queryKeyStrategies[k]; ok {
			order = append(order, s)
		}
	}
	if len(order) == 0 {
		return []Strategy{DIRECT}
	}
	return order
}
