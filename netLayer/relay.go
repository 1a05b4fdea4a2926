package netLayer

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/e1732a364fed/edgerelay/utils"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OnceCloseConn 保证底层连接只被 Close 一次, 之后的 Close 直接返回 nil.
type OnceCloseConn struct {
	net.Conn
	closed atomic.Bool
}

func NewOnceCloseConn(c net.Conn) *OnceCloseConn {
	if oc, ok := c.(*OnceCloseConn); ok {
		return oc
	}
	return &OnceCloseConn{Conn: c}
}

func (c *OnceCloseConn) Close() error {
	if !c.closed.CAS(false, true) {
		return nil
	}
	return c.Conn.Close()
}

func (c *OnceCloseConn) IsClosed() bool {
	return c.closed.Load()
}

// Relay 在 local 与 remote 之间双向转发, 阻塞直到两个方向都结束.
//
// 任意一个方向 读/写 出错或遇到 EOF, 两端都会被关闭, 另一个方向随之结束.
// 每个方向关闭都只发生一次. 返回 上行(local->remote) 与 下行(remote->local) 的字节数;
// 正常的 EOF 不视为错误.
func Relay(ctx context.Context, local MsgStream, remote net.Conn) (up, down int64, err error) {
	g, gctx := errgroup.WithContext(ctx)

	var closeOnce sync.Once
	closeAll := func() {
		closeOnce.Do(func() {
			remote.Close()
			local.Close()
		})
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-gctx.Done():
			closeAll()
		case <-stop:
		}
	}()

	g.Go(func() error {
		n, e := pumpUplink(local, remote)
		up = n
		if e == nil {
			e = io.EOF
		}
		return e
	})

	g.Go(func() error {
		n, e := pumpDownlink(remote, local)
		down = n
		if e == nil {
			e = io.EOF
		}
		return e
	})

	err = g.Wait()
	closeAll()

	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		err = nil
	}

	if ce := utils.CanLogDebug("relay end"); ce != nil {
		ce.Write(zap.Int64("up", up), zap.Int64("down", down), zap.Error(err))
	}
	return
}

// 入站消息原样写给 remote
func pumpUplink(local MsgStream, remote io.Writer) (n int64, err error) {
	for {
		msg, e := local.ReadMessage()
		if e != nil {
			return n, e
		}
		if len(msg) == 0 {
			continue
		}
		wn, e := remote.Write(msg)
		n += int64(wn)
		if e != nil {
			return n, e
		}
	}
}

// remote 读到的每一块数据作为一条消息写回 local
func pumpDownlink(remote io.Reader, local MsgStream) (n int64, err error) {
	buf := utils.GetPacket()
	defer utils.PutPacket(buf)

	for {
		rn, e := remote.Read(buf)
		if rn > 0 {
			if we := local.WriteMessage(buf[:rn]); we != nil {
				return n, we
			}
			n += int64(rn)
		}
		if e != nil {
			return n, e
		}
	}
}
