package netLayer

import (
	"net"
	"time"

	"github.com/e1732a364fed/edgerelay/utils"
	"github.com/pires/go-proxyproto"
	"go.uber.org/zap"
)

// 前置负载均衡器发 PROXY 头的等待时间
const proxyProtocolHeaderTimeout = 5 * time.Second

// ListenTCP 监听tcp地址. 若 acceptProxyProtocol 为true, 则接受 PROXY protocol v1/v2 头,
// 之后 RemoteAddr 返回的是 头中给出的 真实客户端地址.
//
// 没发 PROXY 头的连接 也会被正常接受.
// Reference： http://www.haproxy.org/download/1.8/doc/proxy-protocol.txt
func ListenTCP(addr string, acceptProxyProtocol bool) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if !acceptProxyProtocol {
		return l, nil
	}

	if ce := utils.CanLogInfo("listener accepts PROXY protocol"); ce != nil {
		ce.Write(zap.String("addr", l.Addr().String()))
	}

	return &proxyproto.Listener{
		Listener: l,
		Policy: func(upstream net.Addr) (proxyproto.Policy, error) {
			return proxyproto.USE, nil
		},
		ReadHeaderTimeout: proxyProtocolHeaderTimeout,
	}, nil
}
