package edgerelay

import (
	"context"

	"github.com/e1732a364fed/edgerelay/netLayer"
	"github.com/e1732a364fed/edgerelay/proxy/vless"
	"github.com/e1732a364fed/edgerelay/utils"
	"github.com/miekg/dns"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// 等待发出的 dns 查询 的最大数量, 满了之后 读取入站数据 会阻塞
const dnsQueueLen = 16

// dnsTunnel 把 vless udp 流中的 dns 查询 转成 doh 请求, 并把回应按同样的格式写回.
type dnsTunnel struct {
	out     *ackStream
	doh     *netLayer.DohClient
	limiter *rate.Limiter //为nil 不限速

	splitter vless.FrameSplitter
	queries  chan []byte

	// 上行为 收到的 udp 数据, 下行为 写回的 dns 帧, 都不含 vless 头
	up, down atomic.Int64
}

// serveDNS 阻塞直到入站流结束. 查询按收到的顺序一个一个发出;
// 入站流结束时 还没完成的查询 会被丢弃.
func (h *Handler) serveDNS(ctx context.Context, iics incomingConnState) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := &dnsTunnel{
		out:     iics.out,
		doh:     h.doh,
		limiter: h.newDnsLimiter(),
		queries: make(chan []byte, dnsQueueLen),
	}

	workerDone := make(chan struct{})
	go func() {
		t.work(ctx)
		close(workerDone)
	}()

	defer func() {
		cancel()
		iics.stream.Close()
		<-workerDone

		h.AllUploadBytesSinceStart.Add(uint64(t.up.Load()))
		h.AllDownloadBytesSinceStart.Add(uint64(t.down.Load()))
	}()

	if !t.feed(ctx, iics.req.Payload) {
		return
	}

	for {
		msg, err := iics.stream.ReadMessage()
		if err != nil {
			if ce := utils.CanLogDebug("dns tunnel end"); ce != nil {
				ce.Write(zap.Int("unfinished", t.splitter.Buffered()), zap.Error(err))
			}
			return
		}
		if !t.feed(ctx, msg) {
			return
		}
	}
}

// feed 把一块数据交给 splitter, 完整的查询放入队列. ctx 结束时返回 false
func (t *dnsTunnel) feed(ctx context.Context, chunk []byte) bool {
	t.up.Add(int64(len(chunk)))
	for _, q := range t.splitter.Feed(chunk) {
		select {
		case t.queries <- q:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (t *dnsTunnel) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case q := <-t.queries:
			t.handleQuery(ctx, q)
		}
	}
}

func (t *dnsTunnel) handleQuery(ctx context.Context, q []byte) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return
		}
	}

	if ce := utils.CanLogDebug("dns query"); ce != nil {
		var m dns.Msg
		if err := m.Unpack(q); err == nil && len(m.Question) > 0 {
			ce.Write(zap.String("name", m.Question[0].Name), zap.String("type", dns.TypeToString[m.Question[0].Qtype]))
		} else {
			ce.Write(zap.Int("len", len(q)), zap.Error(err))
		}
	}

	resp, err := t.doh.Exchange(ctx, q)
	if err != nil {
		if ce := utils.CanLogWarn("doh exchange failed"); ce != nil {
			ce.Write(zap.Error(err))
		}
		return
	}

	// 客户端已经走了, 丢弃回应
	if ctx.Err() != nil {
		return
	}

	frame, err := vless.AppendFrame(nil, resp)
	if err != nil {
		return
	}
	if err = t.out.WriteMessage(frame); err != nil {
		if ce := utils.CanLogDebug("write dns response failed"); ce != nil {
			ce.Write(zap.Error(err))
		}
		return
	}
	t.down.Add(int64(len(frame)))
}
