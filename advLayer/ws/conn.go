package ws

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/e1732a364fed/edgerelay/utils"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/atomic"
)

var ErrMessageTooLarge = errors.New("ws message too large")

// Close 时写 close 帧的最长等待时间
const closeFrameTimeout = 500 * time.Millisecond

// Conn 是服务端的 websocket 连接, 实现 netLayer.MsgStream.
//
// 因为 gobwas/ws 不包装conn，在写入和读取二进制时需要使用 较为底层的函数才行.
// 这里以一条完整消息为单位读写; 读只能在一个goroutine中进行, 写是并发安全的.
type Conn struct {
	net.Conn

	r *wsutil.Reader

	earlyData []byte
	maxSize   int64

	wmu    sync.Mutex
	closed atomic.Bool
}

// ReadMessage 返回下一条 二进制或文本 消息的完整内容. 若握手时有 earlydata, 第一次返回它.
//
// 控制帧 (ping, pong, close) 在内部处理. 对方发来 close 时 返回 io.EOF.
func (c *Conn) ReadMessage() ([]byte, error) {
	if len(c.earlyData) > 0 {
		ed := c.earlyData
		c.earlyData = nil
		return ed, nil
	}

	for {
		h, err := c.r.NextFrame()
		if err != nil {
			return nil, c.mapErr(err)
		}

		if h.OpCode.IsControl() {
			// wsutil.Reader 只会在分片消息中间 自动调用 OnIntermediate, 所以单独的控制帧要我们自己处理
			if err = wsutil.ControlFrameHandler(lockedWriter{c}, ws.StateServerSide)(h, c.r); err != nil {
				return nil, c.mapErr(err)
			}
			continue
		}

		if h.OpCode != ws.OpBinary && h.OpCode != ws.OpText {
			return nil, utils.ErrInErr{ErrDesc: "ws unexpected OpCode", ErrDetail: utils.ErrInvalidData, Data: h.OpCode}
		}
		if h.Length > c.maxSize {
			return nil, utils.ErrInErr{ErrDesc: "ws read", ErrDetail: ErrMessageTooLarge, Data: h.Length}
		}

		//分片消息由 wsutil.Reader 负责拼接, 读到消息结尾时返回 EOF
		msg, err := io.ReadAll(io.LimitReader(c.r, c.maxSize+1))
		if err != nil {
			return nil, c.mapErr(err)
		}
		if int64(len(msg)) > c.maxSize {
			return nil, utils.ErrInErr{ErrDesc: "ws read fragmented", ErrDetail: ErrMessageTooLarge, Data: len(msg)}
		}
		return msg, nil
	}
}

func (c *Conn) mapErr(err error) error {
	var ce wsutil.ClosedError
	if errors.As(err, &ce) {
		return io.EOF
	}
	if c.closed.Load() && !errors.Is(err, io.EOF) {
		return net.ErrClosed
	}
	return err
}

// WriteMessage 把 p 作为一条二进制消息写出.
func (c *Conn) WriteMessage(p []byte) error {
	if c.closed.Load() {
		return net.ErrClosed
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return wsutil.WriteServerBinary(c.Conn, p)
}

// Close 发送 close 帧 并关闭底层连接. 可以多次调用, 只有第一次生效.
func (c *Conn) Close() error {
	if !c.closed.CAS(false, true) {
		return nil
	}
	// 有写操作卡住时 不等它, 直接关闭底层连接; close 帧只是尽力而为
	if c.wmu.TryLock() {
		c.Conn.SetWriteDeadline(time.Now().Add(closeFrameTimeout))
		ws.WriteFrame(c.Conn, ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "")))
		c.wmu.Unlock()
	}
	return c.Conn.Close()
}

func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// 控制帧的回应 与 WriteMessage 共用写锁
type lockedWriter struct {
	c *Conn
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.c.wmu.Lock()
	defer w.c.wmu.Unlock()
	return w.c.Conn.Write(p)
}
