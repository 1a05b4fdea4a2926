// Package vless 解析 vless 入站请求头, 以及 vless udp 方式下的 2字节长度帧.
package vless

import (
	"encoding/binary"
	"errors"
	"net"

	"github.com/e1732a364fed/edgerelay/netLayer"
	"github.com/e1732a364fed/edgerelay/utils"
)

const Name = "vless"

// CMD types
const (
	_ byte = iota
	CmdTCP
	CmdUDP
)

// 最短的合法请求头: version(1) + uuid(16) + optLen(1) + cmd(1) + port(2) + atyp(1) + 至少2字节的地址
const MinHeaderLen = 24

var (
	ErrShortHeader        = errors.New("vless header too short")
	ErrInvalidUser        = errors.New("vless invalid user")
	ErrInvalidCommand     = errors.New("vless unsupported command")
	ErrInvalidAddrType    = errors.New("vless invalid address type")
	ErrAddressOutOfBounds = errors.New("vless address exceeds header")
)

// Request 是解析后的 vless 请求.
type Request struct {
	Version byte
	UUID    [utils.UUID_BytesLen]byte
	Options []byte //vless 的 addons, 我们不解释, 只保留

	Command byte
	Addr    netLayer.Addr

	Payload []byte //请求头之后紧跟的数据, 可以为空
}

func (r *Request) IsUDP() bool { return r.Command == CmdUDP }

// ResponseHeader 是回给客户端的第一条消息需要加上的两字节头
func (r *Request) ResponseHeader() []byte {
	return []byte{r.Version, 0}
}

// ParseRequest 解析 data 中的 vless 请求头, id 为服务端唯一允许的 uuid.
//
// 检查顺序: 长度, uuid, 命令, 地址类型. 返回的 Request 的 Options 与 Payload 引用 data 的底层数组.
func ParseRequest(data []byte, id [utils.UUID_BytesLen]byte) (*Request, error) {
	if len(data) < MinHeaderLen {
		return nil, utils.ErrInErr{ErrDesc: "parse vless", ErrDetail: ErrShortHeader, Data: len(data)}
	}

	r := &Request{Version: data[0]}
	copy(r.UUID[:], data[1:17])
	if r.UUID != id {
		return nil, ErrInvalidUser
	}

	optLen := int(data[17])
	cursor := 18 + optLen

	//cmd + port + atyp
	if len(data) < cursor+4 {
		return nil, utils.ErrInErr{ErrDesc: "parse vless options", ErrDetail: ErrShortHeader, Data: optLen}
	}
	r.Options = data[18:cursor]

	r.Command = data[cursor]
	switch r.Command {
	case CmdTCP, CmdUDP:
	default:
		return nil, utils.ErrInErr{ErrDesc: "parse vless", ErrDetail: ErrInvalidCommand, Data: r.Command}
	}
	cursor++

	r.Addr.Port = int(binary.BigEndian.Uint16(data[cursor:]))
	cursor += 2

	atyp := data[cursor]
	cursor++

	switch atyp {
	case netLayer.AtypIP4:
		if len(data) < cursor+net.IPv4len {
			return nil, ErrAddressOutOfBounds
		}
		r.Addr.IP = net.IP(append([]byte(nil), data[cursor:cursor+net.IPv4len]...))
		cursor += net.IPv4len

	case netLayer.AtypDomain:
		if len(data) < cursor+1 {
			return nil, ErrAddressOutOfBounds
		}
		nameLen := int(data[cursor])
		cursor++
		if nameLen == 0 || len(data) < cursor+nameLen {
			return nil, ErrAddressOutOfBounds
		}
		r.Addr.Name = string(data[cursor : cursor+nameLen])
		cursor += nameLen

	case netLayer.AtypIP6:
		if len(data) < cursor+net.IPv6len {
			return nil, ErrAddressOutOfBounds
		}
		r.Addr.IP = net.IP(append([]byte(nil), data[cursor:cursor+net.IPv6len]...))
		cursor += net.IPv6len

	default:
		return nil, utils.ErrInErr{ErrDesc: "parse vless", ErrDetail: ErrInvalidAddrType, Data: atyp}
	}

	r.Payload = data[cursor:]
	return r, nil
}
