package utils

import (
	"bytes"
	"sync"
)

var (
	// 作为参考对比，tcp默认是 16384, 16k，实际上范围是1k～128k之间
	// io.Copy 内部默认buffer大小为 32k
	// websocket 单帧一般也不会超过这个量级, 总之 我们64k已经够了
	standardPacketPool sync.Pool // 专门储存 长度为 MaxBufLen 的 []byte

	bufPool sync.Pool //储存 *bytes.Buffer
)

// 本作设定的最大buf大小，64k
const MaxBufLen = 64 * 1024

func init() {
	standardPacketPool = sync.Pool{
		New: func() any {
			return make([]byte, MaxBufLen)
		},
	}

	bufPool = sync.Pool{
		New: func() any {
			return &bytes.Buffer{}
		},
	}
}

// 从Pool中获取一个 *bytes.Buffer
func GetBuf() *bytes.Buffer {
	return bufPool.Get().(*bytes.Buffer)
}

// 将 buf 放回 Pool
func PutBuf(buf *bytes.Buffer) {
	buf.Reset()
	bufPool.Put(buf)
}

// 建议在 Read net.Conn 时, 使用 GetPacket函数 获取到足够大的 []byte（MaxBufLen）
func GetPacket() []byte {
	return standardPacketPool.Get().([]byte)
}

// 放回用 GetPacket 获取的 []byte; cap 不够的直接丢弃
func PutPacket(bs []byte) {
	if cap(bs) < MaxBufLen {
		return
	}
	standardPacketPool.Put(bs[:MaxBufLen])
}
