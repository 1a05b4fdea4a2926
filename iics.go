package edgerelay

import (
	"sync"

	"github.com/e1732a364fed/edgerelay/netLayer"
	"github.com/e1732a364fed/edgerelay/proxy"
	"github.com/e1732a364fed/edgerelay/proxy/vless"
	"go.uber.org/atomic"
)

// 一个贯穿转发流程的关键结构,简称iics
type incomingConnState struct {
	stream netLayer.MsgStream // 入站的原始流, 读取都从这里
	out    *ackStream         // 包装了 stream, 所有回给客户端的数据都写到这里

	req  *vless.Request
	opts *proxy.RequestOptions
}

// ackStream 在第一条成功写出的消息前面 加上 vless 回应头, 之后的消息原样写出.
//
// tcp的下行 和 udp的dns回应 都经过它, 所以整个连接中 回应头 只会出现一次.
type ackStream struct {
	netLayer.MsgStream

	header []byte

	mu   sync.Mutex
	sent atomic.Bool
}

func newAckStream(s netLayer.MsgStream, header []byte) *ackStream {
	return &ackStream{MsgStream: s, header: header}
}

func (a *ackStream) WriteMessage(p []byte) error {
	if a.sent.Load() {
		return a.MsgStream.WriteMessage(p)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sent.Load() {
		return a.MsgStream.WriteMessage(p)
	}

	msg := make([]byte, 0, len(a.header)+len(p))
	msg = append(msg, a.header...)
	msg = append(msg, p...)

	if err := a.MsgStream.WriteMessage(msg); err != nil {
		return err
	}
	a.sent.Store(true)
	return nil
}
