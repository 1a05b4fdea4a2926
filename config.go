package edgerelay

import (
	"time"

	"github.com/e1732a364fed/edgerelay/netLayer"
	"github.com/e1732a364fed/edgerelay/proxy"
	"github.com/e1732a364fed/edgerelay/utils"
)

const DefaultRelayHost = "bestproxy.030101.xyz:443"

// 只有这个目标端口的 udp 请求 会被当作 dns 查询处理
const DnsPort = 53

// Config 在启动时构造一次, 之后被所有连接只读共享.
type Config struct {
	UUID [utils.UUID_BytesLen]byte

	RelayHost   string //中转主机 host[:port], 请求中的 proxyip 参数会覆盖它
	Nat64Prefix string
	DohURL      string

	DefaultMode proxy.Mode

	DialTimeout time.Duration //单次出站拨号的期限, 0 不设期限
	DnsTimeout  time.Duration //单次 doh 请求的期限, 0 不设期限

	Socks5Strict bool

	DnsQPS float64 //每个udp连接 每秒最多发出的 dns 查询数, 0 不限
}

// NewConfig 返回一个 用给定uuid 且其它项都为默认值 的 Config
func NewConfig(uuid [utils.UUID_BytesLen]byte) Config {
	return Config{
		UUID:        uuid,
		RelayHost:   DefaultRelayHost,
		Nat64Prefix: netLayer.DefaultNat64Prefix,
		DohURL:      netLayer.DefaultDohEndpoint,
		DefaultMode: proxy.DefaultMode,
	}
}
