/*
Package machine 定义一个 可以直接运行的机器；这个机器可以直接被可执行文件所使用.

machine把 监听, http路由, websocket升级 以及 每条隧道的生命周期 包装起来，对外像一个黑盒子。

关键点是不使用任何静态变量，所有变量都放在machine中。
*/
package machine

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/e1732a364fed/edgerelay"
	"github.com/e1732a364fed/edgerelay/advLayer/ws"
	"github.com/e1732a364fed/edgerelay/netLayer"
	"github.com/e1732a364fed/edgerelay/utils"
	"go.uber.org/zap"
)

// 关闭时 等待 http 服务器 结束的最长时间
const shutdownTimeout = 5 * time.Second

type M struct {
	conf Conf

	Handler  *edgerelay.Handler
	wsServer *ws.Server

	uuidStr string

	sync.RWMutex

	httpServer *http.Server
	listener   net.Listener

	// 所有隧道的父 context, Stop 时取消
	ctx    context.Context
	cancel context.CancelFunc

	tunnels sync.WaitGroup
	running bool
}

// New 检查配置 并创建一个还未开始监听的机器
func New(conf Conf) (*M, error) {
	rc, err := conf.ToRelayConfig()
	if err != nil {
		return nil, err
	}

	m := &M{
		conf:     conf,
		Handler:  edgerelay.NewHandler(rc),
		wsServer: ws.NewServer(true),
		uuidStr:  utils.UUIDToStr(rc.UUID[:]),
	}
	return m, nil
}

func (m *M) IsRunning() bool {
	m.RLock()
	defer m.RUnlock()
	return m.running
}

// Start 开始监听并在后台提供服务. 监听失败时返回错误.
func (m *M) Start() error {
	m.Lock()
	defer m.Unlock()

	if m.running {
		return nil
	}

	l, err := netLayer.ListenTCP(m.conf.ListenAddr(), m.conf.Server.ProxyProtocol)
	if err != nil {
		return err
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.listener = l
	m.httpServer = &http.Server{
		Handler:           m,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(utils.ZapLogger),
	}
	m.running = true

	if ce := utils.CanLogInfo("Starting..."); ce != nil {
		ce.Write(zap.String("listen", l.Addr().String()), zap.Bool("proxy_protocol", m.conf.Server.ProxyProtocol))
	}

	go func(s *http.Server) {
		if err := s.Serve(l); err != nil && err != http.ErrServerClosed {
			if ce := utils.CanLogErr("http serve failed"); ce != nil {
				ce.Write(zap.Error(err))
			}
		}
	}(m.httpServer)

	return nil
}

// Stop 停止接受新连接, 关闭所有进行中的隧道, 并等待它们结束.
func (m *M) Stop() {
	m.Lock()
	if !m.running {
		m.Unlock()
		return
	}
	m.running = false

	if ce := utils.CanLogInfo("Stopping..."); ce != nil {
		ce.Write()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := m.httpServer.Shutdown(ctx); err != nil {
		if ce := utils.CanLogWarn("http shutdown"); ce != nil {
			ce.Write(zap.Error(err))
		}
	}

	// 已升级的连接 不受 http.Server 管理, 通过取消 context 关闭
	m.cancel()
	m.Unlock()

	m.tunnels.Wait()
}

// Addr 返回实际监听的地址, 未运行时为 nil
func (m *M) Addr() net.Addr {
	m.RLock()
	defer m.RUnlock()
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

func (m *M) PrintAllState(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	h := m.Handler
	fmt.Fprintln(w, "activeConnectionCount", h.ActiveConnectionCount.Load())
	fmt.Fprintln(w, "allDownloadBytesSinceStart", h.AllDownloadBytesSinceStart.Load())
	fmt.Fprintln(w, "allUploadBytesSinceStart", h.AllUploadBytesSinceStart.Load())
}
