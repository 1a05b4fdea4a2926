package socks5

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/e1732a364fed/edgerelay/netLayer"
	"github.com/e1732a364fed/edgerelay/utils"
	"go.uber.org/zap"
)

var (
	ErrDomainTooLong = errors.New("socks5 target host longer than 255 bytes")
	ErrNeedAuth      = errors.New("socks5 server requires auth but no credentials given")
	ErrReply         = errors.New("socks5 server replied failure")
)

// Client 通过一个上游socks5服务器 CONNECT 目标.
//
// 默认情况下, 服务器对 用户名密码 和 CONNECT 的回应 只读取而不检查,
// 只要读取本身没有出错 就认为连接可用. Strict 为 true 时会检查版本和状态字节.
type Client struct {
	Strict bool
}

// ConnectVia 拨号 ep, 完成握手并请求连接 host:port, 返回可以直接转发数据的连接.
//
// ctx 的截止时间 会同样作用于握手阶段的读写. 握手出错时 连接会被关闭.
func (c *Client) ConnectVia(ctx context.Context, dialer netLayer.ContextDialer, ep *Endpoint, host string, port int) (result net.Conn, err error) {
	if ep == nil || dialer == nil {
		return nil, utils.ErrNilParameter
	}
	host = netLayer.StripBrackets(host)
	if len(host) > 255 {
		return nil, utils.ErrInErr{ErrDesc: "socks5 connect", ErrDetail: ErrDomainTooLong, Data: len(host)}
	}

	conn, err := dialer.DialContext(ctx, "tcp", ep.Addr())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			conn.Close()
		}
	}()

	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
		defer conn.SetDeadline(time.Time{})
	}

	if err = c.negotiate(conn, ep); err != nil {
		return
	}

	if err = c.connect(conn, host, port); err != nil {
		return
	}

	if ce := utils.CanLogDebug("socks5 connected"); ce != nil {
		ce.Write(zap.String("via", ep.Addr()), zap.String("target", host), zap.Int("port", port))
	}
	return conn, nil
}

func (c *Client) negotiate(conn net.Conn, ep *Endpoint) error {
	// 同时声明 无认证 与 用户名密码 两种方式
	if _, err := conn.Write([]byte{Version5, 2, AuthNone, AuthPassword}); err != nil {
		return err
	}

	var ba [2]byte
	if _, err := io.ReadFull(conn, ba[:]); err != nil {
		return utils.ErrInErr{ErrDesc: "socks5 read method", ErrDetail: err}
	}
	if c.Strict && ba[0] != Version5 {
		return utils.NumErr{Prefix: "socks5 client handshake,protocol err", N: 1}
	}

	if ba[1] != AuthPassword {
		return nil
	}
	if !ep.HasAuth() {
		if c.Strict {
			return ErrNeedAuth
		}
		return nil
	}

	if len(ep.User) > 255 || len(ep.Pass) > 255 {
		return utils.ErrInErr{ErrDesc: "socks5 credentials too long", ErrDetail: utils.ErrWrongParameter}
	}

	buf := utils.GetBuf()
	defer utils.PutBuf(buf)

	buf.WriteByte(AuthPasswordVersion)
	buf.WriteByte(byte(len(ep.User)))
	buf.WriteString(ep.User)
	buf.WriteByte(byte(len(ep.Pass)))
	buf.WriteString(ep.Pass)

	if _, err := conn.Write(buf.Bytes()); err != nil {
		return err
	}

	if _, err := io.ReadFull(conn, ba[:]); err != nil {
		return utils.ErrInErr{ErrDesc: "socks5 read auth result", ErrDetail: err}
	}
	if c.Strict && ba[1] != 0 {
		return utils.ErrInErr{ErrDesc: "socks5 auth rejected", ErrDetail: ErrReply, Data: ba[1]}
	}
	return nil
}

func (c *Client) connect(conn net.Conn, host string, port int) error {
	buf := utils.GetBuf()
	defer utils.PutBuf(buf)

	buf.WriteByte(Version5)
	buf.WriteByte(CmdConnect)
	buf.WriteByte(0)
	buf.WriteByte(ATypDomain)
	buf.WriteByte(byte(len(host)))
	buf.WriteString(host)
	buf.WriteByte(byte(port >> 8))
	buf.WriteByte(byte(port))

	if _, err := conn.Write(buf.Bytes()); err != nil {
		return err
	}

	if !c.Strict {
		// 只读一次, 不管内容
		var ba [64]byte
		if _, err := conn.Read(ba[:]); err != nil {
			return utils.ErrInErr{ErrDesc: "socks5 read connect reply", ErrDetail: err}
		}
		return nil
	}

	return readReplyStrict(conn)
}

// 按 rfc1928 完整读取回应, 包括 绑定地址
func readReplyStrict(conn net.Conn) error {
	var head [4]byte
	if _, err := io.ReadFull(conn, head[:]); err != nil {
		return utils.ErrInErr{ErrDesc: "socks5 read connect reply", ErrDetail: err}
	}
	if head[0] != Version5 || head[1] != 0 {
		return utils.ErrInErr{ErrDesc: "socks5 connect failed", ErrDetail: ErrReply, Data: head[1]}
	}

	var addrLen int
	switch head[3] {
	case ATypIP4:
		addrLen = net.IPv4len
	case ATypIP6:
		addrLen = net.IPv6len
	case ATypDomain:
		var lb [1]byte
		if _, err := io.ReadFull(conn, lb[:]); err != nil {
			return err
		}
		addrLen = int(lb[0])
	default:
		return utils.NumErr{Prefix: "socks5 connect reply, bad atyp", N: int(head[3])}
	}

	rest := make([]byte, addrLen+2)
	_, err := io.ReadFull(conn, rest)
	return err
}
