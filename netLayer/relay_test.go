package netLayer_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/e1732a364fed/edgerelay/netLayer"
)

// chanStream 是一个用 channel 模拟的 MsgStream
type chanStream struct {
	in  chan []byte
	out chan []byte

	closeOnce sync.Once
	closed    chan struct{}
	closeN    int
	mu        sync.Mutex
}

func newChanStream() *chanStream {
	return &chanStream{
		in:     make(chan []byte, 8),
		out:    make(chan []byte, 8),
		closed: make(chan struct{}),
	}
}

func (s *chanStream) ReadMessage() ([]byte, error) {
	select {
	case m, ok := <-s.in:
		if !ok {
			return nil, io.EOF
		}
		return m, nil
	case <-s.closed:
		return nil, net.ErrClosed
	}
}

func (s *chanStream) WriteMessage(p []byte) error {
	select {
	case <-s.closed:
		return net.ErrClosed
	default:
	}
	s.out <- append([]byte(nil), p...)
	return nil
}

func (s *chanStream) Close() error {
	s.mu.Lock()
	s.closeN++
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

type countCloseConn struct {
	net.Conn
	mu     sync.Mutex
	closeN int
}

func (c *countCloseConn) Close() error {
	c.mu.Lock()
	c.closeN++
	c.mu.Unlock()
	return c.Conn.Close()
}

func TestRelayBothDirections(t *testing.T) {
	local := newChanStream()
	a, b := net.Pipe()
	remote := &countCloseConn{Conn: a}

	done := make(chan struct{})
	var up, down int64
	go func() {
		up, down, _ = netLayer.Relay(context.Background(), local, remote)
		close(done)
	}()

	local.in <- []byte("hello")
	buf := make([]byte, 16)
	n, err := b.Read(buf)
	if err != nil || string(buf[:n]) != "hello" {
		t.Log("remote got", string(buf[:n]), err)
		t.FailNow()
	}

	if _, err := b.Write([]byte("world")); err != nil {
		t.Log(err)
		t.FailNow()
	}
	select {
	case m := <-local.out:
		if !bytes.Equal(m, []byte("world")) {
			t.Log("local got", string(m))
			t.FailNow()
		}
	case <-time.After(time.Second):
		t.Log("timeout waiting downlink")
		t.FailNow()
	}

	// 远端关闭, 两个方向都应结束, 且本地流被关闭
	b.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Log("relay did not end")
		t.FailNow()
	}

	select {
	case <-local.closed:
	default:
		t.Log("local stream not closed")
		t.FailNow()
	}
	if up != 5 || down != 5 {
		t.Log("wrong byte counts", up, down)
		t.FailNow()
	}
	if local.closeN != 1 || remote.closeN != 1 {
		t.Log("each side should be closed exactly once by relay", local.closeN, remote.closeN)
		t.FailNow()
	}
}

func TestRelayLocalClose(t *testing.T) {
	local := newChanStream()
	a, b := net.Pipe()
	defer b.Close()

	remote := netLayer.NewOnceCloseConn(a)

	done := make(chan struct{})
	go func() {
		netLayer.Relay(context.Background(), local, remote)
		close(done)
	}()

	close(local.in)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Log("relay did not end after local EOF")
		t.FailNow()
	}

	if !remote.IsClosed() {
		t.Log("remote should be closed")
		t.FailNow()
	}
	if err := remote.Close(); err != nil {
		t.Log("second close should be a no-op", err)
		t.FailNow()
	}
}
