/*
Package netLayer contains definitions in network layer AND transport layer.

本包有 addr, dial, relay, listen, doh, nat64 等相关功能。

edgerelay 的所有出站拨号 (直连, socks5 上游, 中转, nat64) 最终都走本包的 Dialer;
所有 DNS over HTTPS 请求都走本包的 DohClient.
*/
package netLayer

import (
	"context"
	"net"
)

// ContextDialer 是 *net.Dialer 的子集, 方便测试时替换.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// MsgStream 是一个以 "消息" 为单位读写的双向流, 比如一个已经升级的 websocket 连接.
// 每次 ReadMessage 返回一条完整的入站消息; 每次 WriteMessage 写出一条完整的出站消息.
type MsgStream interface {
	ReadMessage() ([]byte, error)
	WriteMessage([]byte) error
	Close() error
}
