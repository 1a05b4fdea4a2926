package proxy

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/e1732a364fed/edgerelay/netLayer"
	"github.com/e1732a364fed/edgerelay/proxy/socks5"
	"github.com/e1732a364fed/edgerelay/utils"
	"go.uber.org/zap"
)

var (
	ErrNoStrategySucceeded = errors.New("all dial strategies failed")
	ErrStrategySkipped     = errors.New("strategy not configured")
	ErrNoRelayHost         = errors.New("no relay host")
)

// Orchestrator 按顺序尝试各出站方式.
// 一个 Orchestrator 可以被所有连接共享, 它本身没有可变状态.
type Orchestrator struct {
	Dialer netLayer.ContextDialer
	Socks5 *socks5.Client
	Nat64  *netLayer.Nat64
}

// Dial 依次尝试 strategies 连接 target, 返回第一个成功的连接以及所用的方式.
//
// 每种方式的错误都只会被记录, 然后尝试下一种. 全部失败时返回 ErrNoStrategySucceeded.
func (o *Orchestrator) Dial(ctx context.Context, strategies []Strategy, target netLayer.Addr, opts *RequestOptions) (net.Conn, Strategy, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, s, err
		}

		conn, err := o.dialOne(ctx, s, target, opts)
		if err == nil {
			if ce := utils.CanLogInfo("dial ok"); ce != nil {
				ce.Write(zap.String("strategy", s.String()), zap.String("target", target.String()))
			}
			return conn, s, nil
		}

		if errors.Is(err, ErrStrategySkipped) {
			if ce := utils.CanLogDebug("strategy skipped"); ce != nil {
				ce.Write(zap.String("strategy", s.String()))
			}
			continue
		}
		if ce := utils.CanLogWarn("dial failed, try next"); ce != nil {
			ce.Write(zap.String("strategy", s.String()), zap.String("target", target.String()), zap.Error(err))
		}
	}

	return nil, 0, utils.ErrInErr{ErrDesc: "dial " + target.String(), ErrDetail: ErrNoStrategySucceeded, Data: len(strategies)}
}

func (o *Orchestrator) dialOne(ctx context.Context, s Strategy, target netLayer.Addr, opts *RequestOptions) (net.Conn, error) {
	switch s {
	case DIRECT:
		return o.dialHostPort(ctx, target.Host(), target.Port)

	case SOCKS5:
		if opts.Socks5 == nil {
			return nil, ErrStrategySkipped
		}
		c := o.Socks5
		if c == nil {
			c = &socks5.Client{}
		}
		return c.ConnectVia(ctx, o.dialer(), opts.Socks5, target.Host(), target.Port)

	case RELAY:
		if opts.RelayHost == "" {
			return nil, ErrNoRelayHost
		}
		host, port, err := netLayer.ParseHostPort(opts.RelayHost, target.Port)
		if err != nil {
			return nil, err
		}
		return o.dialHostPort(ctx, host, port)

	case NAT64:
		if o.Nat64 == nil {
			return nil, ErrStrategySkipped
		}
		var host string
		var err error
		switch {
		case target.IsDomain():
			host, err = o.Nat64.ResolveDomain(ctx, target.Name)
		case target.IsIPv4():
			host, err = o.Nat64.TranslateLiteral(target.IP.String())
		default:
			host = target.IP.String()
		}
		if err != nil {
			return nil, err
		}
		return o.dialHostPort(ctx, host, target.Port)
	}
	return nil, utils.ErrInErr{ErrDesc: "unknown strategy", ErrDetail: utils.ErrWrongParameter, Data: byte(s)}
}

func (o *Orchestrator) dialer() netLayer.ContextDialer {
	if o.Dialer == nil {
		return &netLayer.Dialer{}
	}
	return o.Dialer
}

func (o *Orchestrator) dialHostPort(ctx context.Context, host string, port int) (net.Conn, error) {
	return o.dialer().DialContext(ctx, "tcp", net.JoinHostPort(netLayer.StripBrackets(host), strconv.Itoa(port)))
}
