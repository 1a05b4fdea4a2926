package machine

import (
	"net"
	"net/http"
	"strings"

	"github.com/e1732a364fed/edgerelay/configAdapter"
	"github.com/e1732a364fed/edgerelay/httpLayer"
	"github.com/e1732a364fed/edgerelay/proxy"
	"github.com/e1732a364fed/edgerelay/utils"
	"go.uber.org/zap"
)

// ServeHTTP 是所有请求的入口.
//
// websocket 升级请求 成为隧道; GET / 返回成功页面; GET /healthz 健康检查;
// 路径含有 /{uuid} 的 GET 返回订阅; 其它一律 404.
func (m *M) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if httpLayer.IsWebsocketUpgrade(r) {
		m.serveTunnel(w, r)
		return
	}

	if r.Method == http.MethodGet {
		switch {
		case r.URL.Path == "/":
			httpLayer.WriteSuccess(w)
			return
		case r.URL.Path == httpLayer.HealthzPath:
			httpLayer.WriteHealthz(w)
			return
		case m.conf.Server.Subscription && strings.Contains(strings.ToLower(r.URL.Path), "/"+m.uuidStr):
			m.serveSubscription(w, r)
			return
		}
	}

	httpLayer.WriteNotFound(w)
}

func (m *M) serveTunnel(w http.ResponseWriter, r *http.Request) {
	rc := m.Handler.Config()

	u := *r.URL
	opts := proxy.ParseRequestOptions(&u, rc.DefaultMode, rc.RelayHost)

	conn, err := m.wsServer.Upgrade(w, r)
	if err != nil {
		return
	}

	m.RLock()
	if !m.running {
		m.RUnlock()
		conn.Close()
		return
	}
	ctx := m.ctx
	m.tunnels.Add(1)
	m.RUnlock()
	defer m.tunnels.Done()

	if ce := utils.CanLogDebug("new tunnel"); ce != nil {
		ce.Write(
			zap.String("from", conn.RemoteAddr().String()),
			zap.String("mode", string(opts.Mode)),
			zap.Int("strategies", len(opts.Strategies)),
		)
	}

	m.Handler.ServeConn(ctx, conn, opts)
}

func (m *M) serveSubscription(w http.ResponseWriter, r *http.Request) {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	links := configAdapter.Subscription(m.uuidStr, host, m.conf.BestHosts(), m.conf.RelayCandidates())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(configAdapter.EncodeSubscription(links)))
}
