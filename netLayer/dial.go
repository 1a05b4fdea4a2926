package netLayer

import (
	"context"
	"net"
	"time"

	"github.com/e1732a364fed/edgerelay/utils"
	"go.uber.org/zap"
)

// Dialer 负责所有出站 tcp 拨号.
//
// Timeout 为单次拨号的期限, 0 表示不设期限 (此时一个卡住的拨号会一直阻塞, 直到系统层面超时).
type Dialer struct {
	Timeout time.Duration

	Underlay ContextDialer //为nil时使用 net.Dialer
}

func (d *Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	var underlay ContextDialer = d.Underlay
	if underlay == nil {
		underlay = &net.Dialer{}
	}

	conn, err := underlay.DialContext(ctx, network, address)
	if err != nil {
		if ce := utils.CanLogDebug("dial failed"); ce != nil {
			ce.Write(zap.String("network", network), zap.String("addr", address), zap.Error(err))
		}
		return nil, err
	}
	return conn, nil
}
