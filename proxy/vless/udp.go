package vless

import (
	"encoding/binary"
	"errors"
)

// vless 的 udp 在流上传输时, 每个数据报前面加 2字节大端长度.
const FrameLenBytes = 2

var ErrFrameTooLarge = errors.New("vless udp frame exceeds 65535 bytes")

// AppendFrame 把 payload 加上长度头后追加到 dst.
func AppendFrame(dst, payload []byte) ([]byte, error) {
	if len(payload) > 0xffff {
		return dst, ErrFrameTooLarge
	}
	var lb [FrameLenBytes]byte
	binary.BigEndian.PutUint16(lb[:], uint16(len(payload)))
	dst = append(dst, lb[:]...)
	return append(dst, payload...), nil
}

// FrameSplitter 从一系列消息块中重组出完整的 udp 帧.
// 一个帧可以被拆在多个块里, 一个块里也可以有多个帧; 不完整的部分会缓存到下一次 Feed.
//
// 非并发安全.
type FrameSplitter struct {
	buf []byte
}

// Feed 追加一块数据, 返回此时所有已完整的帧的 payload. 返回的切片都是拷贝, 调用者可以保留.
// 长度为0的帧会被跳过.
func (s *FrameSplitter) Feed(chunk []byte) (frames [][]byte) {
	s.buf = append(s.buf, chunk...)

	cursor := 0
	for len(s.buf)-cursor >= FrameLenBytes {
		l := int(binary.BigEndian.Uint16(s.buf[cursor:]))
		if len(s.buf)-cursor-FrameLenBytes < l {
			break
		}
		start := cursor + FrameLenBytes
		if l > 0 {
			frames = append(frames, append([]byte(nil), s.buf[start:start+l]...))
		}
		cursor = start + l
	}

	if cursor > 0 {
		rest := copy(s.buf, s.buf[cursor:])
		s.buf = s.buf[:rest]
	}
	return
}

// Buffered 返回当前缓存的不完整数据的长度
func (s *FrameSplitter) Buffered() int {
	return len(s.buf)
}
