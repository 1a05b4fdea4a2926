package edgerelay

import (
	"context"
	"runtime/debug"

	"github.com/e1732a364fed/edgerelay/netLayer"
	"github.com/e1732a364fed/edgerelay/proxy"
	"github.com/e1732a364fed/edgerelay/proxy/socks5"
	"github.com/e1732a364fed/edgerelay/proxy/vless"
	"github.com/e1732a364fed/edgerelay/utils"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Handler 处理每一条已经升级的入站连接. 可以被并发使用.
type Handler struct {
	conf Config

	doh          *netLayer.DohClient
	orchestrator *proxy.Orchestrator

	//统计数据
	ActiveConnectionCount      atomic.Int32
	AllDownloadBytesSinceStart atomic.Uint64
	AllUploadBytesSinceStart   atomic.Uint64
}

func NewHandler(conf Config) *Handler {
	doh := netLayer.NewDohClient(conf.DohURL, conf.DnsTimeout)

	return &Handler{
		conf: conf,
		doh:  doh,
		orchestrator: &proxy.Orchestrator{
			Dialer: &netLayer.Dialer{Timeout: conf.DialTimeout},
			Socks5: &socks5.Client{Strict: conf.Socks5Strict},
			Nat64:  netLayer.NewNat64(conf.Nat64Prefix, doh),
		},
	}
}

func (h *Handler) Config() Config { return h.conf }

// DefaultRequestOptions 是没有任何查询参数时的出站选项
func (h *Handler) DefaultRequestOptions() *proxy.RequestOptions {
	mode := h.conf.DefaultMode
	if mode == "" {
		mode = proxy.DefaultMode
	}
	return &proxy.RequestOptions{
		Mode:       mode,
		RelayHost:  h.conf.RelayHost,
		Strategies: proxy.ResolveStrategies(mode, nil),
	}
}

// ServeConn 处理一条入站连接, 阻塞直到连接结束. stream 在返回时一定已被关闭.
//
// opts 为 nil 时使用 DefaultRequestOptions. 任何错误都只记录日志, 不会回应客户端.
func (h *Handler) ServeConn(ctx context.Context, stream netLayer.MsgStream, opts *proxy.RequestOptions) {
	h.ActiveConnectionCount.Inc()
	defer h.ActiveConnectionCount.Dec()

	defer stream.Close()

	// ctx 结束时关闭 stream, 让阻塞中的读取返回
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			stream.Close()
		case <-done:
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			if ce := utils.CanLogErr("Captured panic in ServeConn"); ce != nil {
				ce.Write(
					zap.Any("err:", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}
	}()

	if opts == nil {
		opts = h.DefaultRequestOptions()
	}

	first, err := stream.ReadMessage()
	if err != nil {
		if ce := utils.CanLogDebug("read first message failed"); ce != nil {
			ce.Write(zap.Error(err))
		}
		return
	}

	req, err := vless.ParseRequest(first, h.conf.UUID)
	if err != nil {
		if ce := utils.CanLogWarn("vless handshake failed"); ce != nil {
			ce.Write(zap.Int("len", len(first)), zap.Error(err))
		}
		return
	}

	iics := incomingConnState{
		stream: stream,
		out:    newAckStream(stream, req.ResponseHeader()),
		req:    req,
		opts:   opts,
	}

	if req.IsUDP() {
		if req.Addr.Port != DnsPort {
			if ce := utils.CanLogInfo("udp to non-dns port refused"); ce != nil {
				ce.Write(zap.String("target", req.Addr.String()))
			}
			return
		}
		h.serveDNS(ctx, iics)
		return
	}

	h.dialAndRelay(ctx, iics)
}

func (h *Handler) dialAndRelay(ctx context.Context, iics incomingConnState) {
	target := iics.req.Addr

	remote, strategy, err := h.orchestrator.Dial(ctx, iics.opts.Strategies, target, iics.opts)
	if err != nil {
		if ce := utils.CanLogWarn("dial failed, drop connection"); ce != nil {
			ce.Write(zap.String("target", target.String()), zap.Error(err))
		}
		return
	}
	remote = netLayer.NewOnceCloseConn(remote)
	defer remote.Close()

	if len(iics.req.Payload) > 0 {
		if _, err = remote.Write(iics.req.Payload); err != nil {
			if ce := utils.CanLogDebug("write first payload failed"); ce != nil {
				ce.Write(zap.String("target", target.String()), zap.Error(err))
			}
			return
		}
	}

	up, down, err := netLayer.Relay(ctx, iics.out, remote)
	up += int64(len(iics.req.Payload))

	h.AllUploadBytesSinceStart.Add(uint64(up))
	h.AllDownloadBytesSinceStart.Add(uint64(down))

	if ce := utils.CanLogInfo("relay end"); ce != nil {
		ce.Write(
			zap.String("target", target.String()),
			zap.String("strategy", strategy.String()),
			zap.Int64("up", up),
			zap.Int64("down", down),
			zap.Error(err),
		)
	}
}

func (h *Handler) newDnsLimiter() *rate.Limiter {
	if h.conf.DnsQPS <= 0 {
		return nil
	}
	burst := int(h.conf.DnsQPS)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(h.conf.DnsQPS), burst)
}
