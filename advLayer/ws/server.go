package ws

import (
	"net/http"
	"time"

	"github.com/e1732a364fed/edgerelay/utils"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"
)

type Server struct {
	UseEarlyData bool

	// 单条消息的最大长度, 0 表示 utils.MaxBufLen
	MaxMessageSize int64

	// 握手的期限, 0 表示不设期限
	Timeout time.Duration
}

func NewServer(useEarlyData bool) *Server {
	return &Server{UseEarlyData: useEarlyData}
}

// Upgrade 把一个 http 请求升级为 websocket, 用到了 gobwas/ws.HTTPUpgrader.
//
// 返回可直接以消息为单位读写二进制数据的 *Conn. 若 UseEarlyData,
// Sec-WebSocket-Protocol 头中的 earlydata 会作为第一条消息被读出.
// 我们不回显 Sec-WebSocket-Protocol.
func (s *Server) Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	var earlyData []byte
	if s.UseEarlyData {
		earlyData = DecodeEarlyData(r.Header.Get(EarlyDataHeader))
	}

	upgrader := ws.HTTPUpgrader{Timeout: s.Timeout}

	underlay, rw, _, err := upgrader.Upgrade(r, w)
	if err != nil {
		if ce := utils.CanLogDebug("ws upgrade failed"); ce != nil {
			ce.Write(zap.String("path", r.URL.Path), zap.Error(err))
		}
		return nil, err
	}

	if ce := utils.CanLogDebug("ws upgraded"); ce != nil {
		ce.Write(zap.String("from", underlay.RemoteAddr().String()), zap.Int("earlydata", len(earlyData)))
	}

	maxSize := s.MaxMessageSize
	if maxSize <= 0 {
		maxSize = utils.MaxBufLen
	}

	c := &Conn{
		Conn:      underlay,
		earlyData: earlyData,
		maxSize:   maxSize,
	}
	//握手时 bufio 中可能已经读到了客户端的第一帧
	c.r = wsutil.NewServerSideReader(rw.Reader)
	c.r.OnIntermediate = wsutil.ControlFrameHandler(lockedWriter{c}, ws.StateServerSide)
	return c, nil
}
