package edgerelay_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/e1732a364fed/edgerelay"
	"github.com/e1732a364fed/edgerelay/netLayer"
	"github.com/e1732a364fed/edgerelay/proxy"
	"github.com/e1732a364fed/edgerelay/proxy/vless"
	"github.com/e1732a364fed/edgerelay/utils"
)

const testUUID = "a684455c-b14f-11ea-bf0d-42010aaa0003"

// mockStream 用 channel 模拟一条 websocket 入站流
type mockStream struct {
	in  chan []byte
	out chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newMockStream(first ...[]byte) *mockStream {
	s := &mockStream{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 16),
		closed: make(chan struct{}),
	}
	for _, m := range first {
		s.in <- m
	}
	return s
}

func (s *mockStream) ReadMessage() ([]byte, error) {
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

func (s *mockStream) WriteMessage(p []byte) error {
	select {
	case <-s.closed:
		return net.ErrClosed
	default:
	}
	s.out <- append([]byte(nil), p...)
	return nil
}

func (s *mockStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *mockStream) expectMsg(t *testing.T) []byte {
	select {
	case m := <-s.out:
		return m
	case <-time.After(3 * time.Second):
		t.Log("timeout waiting message")
		t.FailNow()
	}
	return nil
}

func testConfig(t *testing.T) edgerelay.Config {
	id, err := utils.StrToUUID(testUUID)
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	return edgerelay.NewConfig(id)
}

func vlessHeader(id [16]byte, cmd byte, addr netLayer.Addr, payload []byte) []byte {
	buf := []byte{0}
	buf = append(buf, id[:]...)
	buf = append(buf, 0, cmd)
	var pb [2]byte
	binary.BigEndian.PutUint16(pb[:], uint16(addr.Port))
	buf = append(buf, pb[:]...)
	buf = append(buf, addr.AddrType())
	switch addr.AddrType() {
	case netLayer.AtypIP4:
		buf = append(buf, addr.IP.To4()...)
	case netLayer.AtypDomain:
		buf = append(buf, byte(len(addr.Name)))
		buf = append(buf, addr.Name...)
	default:
		buf = append(buf, addr.IP.To16()...)
	}
	return append(buf, payload...)
}

func serve(h *edgerelay.Handler, s *mockStream, opts *proxy.RequestOptions) chan struct{} {
	done := make(chan struct{})
	go func() {
		h.ServeConn(context.Background(), s, opts)
		close(done)
	}()
	return done
}

func waitDone(t *testing.T, done chan struct{}) {
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Log("ServeConn did not return")
		t.FailNow()
	}
}

func TestTcpRelayAckOnce(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	defer l.Close()

	// 目标服务器: 读到 hello 后 分两次回写, 然后关闭
	go func() {
		c, err := l.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 5)
		if _, err := io.ReadFull(c, buf); err != nil {
			return
		}
		c.Write([]byte("resp1"))
		time.Sleep(50 * time.Millisecond)
		c.Write([]byte("resp2"))
	}()

	conf := testConfig(t)
	h := edgerelay.NewHandler(conf)

	ta := l.Addr().(*net.TCPAddr)
	target := netLayer.Addr{IP: ta.IP, Port: ta.Port}

	s := newMockStream(vlessHeader(conf.UUID, vless.CmdTCP, target, []byte("hello")))
	opts := &proxy.RequestOptions{Strategies: []proxy.Strategy{proxy.DIRECT}}
	done := serve(h, s, opts)

	m1 := s.expectMsg(t)
	if !bytes.Equal(m1, []byte("\x00\x00resp1")) {
		t.Log("first message should carry ack header, got", m1)
		t.FailNow()
	}
	m2 := s.expectMsg(t)
	if !bytes.Equal(m2, []byte("resp2")) {
		t.Log("second message should be raw, got", m2)
		t.FailNow()
	}

	waitDone(t, done)

	if h.AllUploadBytesSinceStart.Load() != 5 || h.AllDownloadBytesSinceStart.Load() != 10 {
		t.Log("wrong stats", h.AllUploadBytesSinceStart.Load(), h.AllDownloadBytesSinceStart.Load())
		t.FailNow()
	}
	if h.ActiveConnectionCount.Load() != 0 {
		t.Log("active count not back to 0")
		t.FailNow()
	}
}

func TestDialFailureSilentDrop(t *testing.T) {
	// 拿到一个没人监听的端口
	l, _ := net.Listen("tcp", "127.0.0.1:0")
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	conf := testConfig(t)
	h := edgerelay.NewHandler(conf)

	target := netLayer.Addr{IP: net.IPv4(127, 0, 0, 1), Port: port}
	s := newMockStream(vlessHeader(conf.UUID, vless.CmdTCP, target, []byte("hello")))

	done := serve(h, s, &proxy.RequestOptions{Strategies: []proxy.Strategy{proxy.DIRECT}})
	waitDone(t, done)

	if len(s.out) != 0 {
		t.Log("no bytes should be sent back")
		t.FailNow()
	}
	select {
	case <-s.closed:
	default:
		t.Log("stream should be closed")
		t.FailNow()
	}
}

func TestInvalidHandshakeSilentDrop(t *testing.T) {
	conf := testConfig(t)
	h := edgerelay.NewHandler(conf)

	var wrong [16]byte
	target := netLayer.Addr{Name: "example.com", Port: 443}

	for _, first := range [][]byte{
		[]byte("too short"),
		vlessHeader(wrong, vless.CmdTCP, target, nil),
		vlessHeader(conf.UUID, 3, target, nil),
		vlessHeader(conf.UUID, vless.CmdUDP, netLayer.Addr{Name: "example.com", Port: 443}, nil),
	} {
		s := newMockStream(first)
		waitDone(t, serve(h, s, nil))
		if len(s.out) != 0 {
			t.Log("no bytes should be sent back")
			t.FailNow()
		}
	}
}

func dnsFrame(q []byte) []byte {
	f, _ := vless.AppendFrame(nil, q)
	return f
}

func TestDnsTunnel(t *testing.T) {
	var mu sync.Mutex
	var got [][]byte

	doh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != netLayer.MimeDnsMessage {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, body)
		mu.Unlock()
		w.Write(append([]byte("ans-"), body...))
	}))
	defer doh.Close()

	conf := testConfig(t)
	conf.DohURL = doh.URL
	h := edgerelay.NewHandler(conf)

	q1 := []byte("query-one")
	q2 := []byte("query-two")
	f1 := dnsFrame(q1)
	f2 := dnsFrame(q2)

	target := netLayer.Addr{IP: net.IPv4(8, 8, 8, 8), Port: 53}

	// 第一帧被拆在 握手消息 和 第二条消息 中间
	s := newMockStream(
		vlessHeader(conf.UUID, vless.CmdUDP, target, f1[:4]),
		append(append([]byte(nil), f1[4:]...), f2[:1]...),
	)
	done := serve(h, s, nil)

	m1 := s.expectMsg(t)
	want1 := append([]byte{0, 0}, dnsFrame([]byte("ans-query-one"))...)
	if !bytes.Equal(m1, want1) {
		t.Log("first dns reply should carry ack header, got", m1)
		t.FailNow()
	}

	s.in <- f2[1:]
	m2 := s.expectMsg(t)
	if !bytes.Equal(m2, dnsFrame([]byte("ans-query-two"))) {
		t.Log("second dns reply wrong", m2)
		t.FailNow()
	}

	close(s.in)
	waitDone(t, done)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || !bytes.Equal(got[0], q1) || !bytes.Equal(got[1], q2) {
		t.Log("doh got wrong queries", len(got))
		t.FailNow()
	}

	wantUp := uint64(len(f1) + len(f2))
	wantDown := uint64(len(dnsFrame([]byte("ans-query-one"))) + len(dnsFrame([]byte("ans-query-two"))))
	if h.AllUploadBytesSinceStart.Load() != wantUp || h.AllDownloadBytesSinceStart.Load() != wantDown {
		t.Log("dns traffic not counted", h.AllUploadBytesSinceStart.Load(), h.AllDownloadBytesSinceStart.Load())
		t.FailNow()
	}
}
