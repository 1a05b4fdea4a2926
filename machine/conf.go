package machine

import (
	"errors"
	"net"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"
	"github.com/e1732a364fed/edgerelay"
	"github.com/e1732a364fed/edgerelay/configAdapter"
	"github.com/e1732a364fed/edgerelay/netLayer"
	"github.com/e1732a364fed/edgerelay/proxy"
	"github.com/e1732a364fed/edgerelay/utils"
)

const (
	DefaultListen = "0.0.0.0:8080"

	// 设置了这个环境变量时, 它会覆盖配置文件中的 uuid
	UUIDEnvName = "EDGE_UUID"
)

var ErrNoUUID = errors.New("no uuid given")

// Conf 是 toml 配置文件的格式, 由 app, server, outbound, subscription 4部分组成
type Conf struct {
	App          *AppConf         `toml:"app"`
	Server       ServerConf       `toml:"server"`
	Outbound     OutboundConf     `toml:"outbound"`
	Subscription SubscriptionConf `toml:"subscription"`
}

// AppConf 配置App级别的配置
type AppConf struct {
	LogLevel *int    `toml:"loglevel"` //需要为指针, 否则无法判断0到底是未给出的默认值还是 显式声明的0
	LogFile  *string `toml:"logfile"`
}

type ServerConf struct {
	Listen        string `toml:"listen"`
	UUID          string `toml:"uuid"`
	ProxyProtocol bool   `toml:"proxy_protocol"`
	Subscription  bool   `toml:"subscription"` // 是否在 /{uuid} 提供订阅
}

type OutboundConf struct {
	DefaultMode string `toml:"default_mode"`
	Relay       string `toml:"relay"`
	Nat64Prefix string `toml:"nat64_prefix"`
	Doh         string `toml:"doh"`

	DialTimeoutSeconds int `toml:"dial_timeout"`
	DnsTimeoutSeconds  int `toml:"dns_timeout"`

	Socks5Strict bool    `toml:"socks5_strict"`
	DnsQPS       float64 `toml:"dns_qps"`
}

type SubscriptionConf struct {
	Host  []HostConf                     `toml:"host"`
	Relay []configAdapter.RelayCandidate `toml:"relay"`
}

type HostConf struct {
	Addr string `toml:"addr"`
}

func LoadConfStr(s string) (conf Conf, err error) {
	_, err = toml.Decode(s, &conf)
	return
}

func LoadConfFile(fn string) (conf Conf, err error) {
	if utils.GetFilePath(fn) == "" {
		return conf, utils.ErrInErr{ErrDesc: "config file not found", ErrDetail: os.ErrNotExist, Data: fn}
	}
	_, err = toml.DecodeFile(fn, &conf)
	return
}

// Setup 设置日志. 命令行参数 -ll, -lf 给出时 优先于配置文件.
func (ac *AppConf) Setup() {
	if ac == nil {
		return
	}

	if ac.LogFile != nil && !utils.IsFlagGiven("lf") {
		utils.LogOutFileName = *ac.LogFile
	}

	if ac.LogLevel != nil && !utils.IsFlagGiven("ll") {
		utils.LogLevel = *ac.LogLevel
	}
}

// ApplyEnv 用环境变量覆盖配置
func (c *Conf) ApplyEnv() {
	if id := strings.TrimSpace(os.Getenv(UUIDEnvName)); id != "" {
		c.Server.UUID = id
	}
}

// ToRelayConfig 检查配置, 并转换为 edgerelay.Config. 没有给出的项使用默认值.
func (c *Conf) ToRelayConfig() (rc edgerelay.Config, err error) {
	if c.Server.UUID == "" {
		return rc, ErrNoUUID
	}
	id, err := utils.StrToUUID(strings.TrimSpace(c.Server.UUID))
	if err != nil {
		return rc, err
	}
	rc = edgerelay.NewConfig(id)

	o := c.Outbound

	if o.DefaultMode != "" {
		m := proxy.Mode(strings.ToLower(o.DefaultMode))
		if !m.IsValid() {
			return rc, utils.ErrInErr{ErrDesc: "invalid default_mode", ErrDetail: utils.ErrInvalidData, Data: o.DefaultMode}
		}
		rc.DefaultMode = m
	}

	if o.Relay != "" {
		host, _, e := netLayer.ParseHostPort(o.Relay, 443)
		if e != nil || !govalidator.IsHost(host) {
			return rc, utils.ErrInErr{ErrDesc: "invalid relay", ErrDetail: utils.ErrInvalidData, Data: o.Relay}
		}
		rc.RelayHost = o.Relay
	}

	if o.Nat64Prefix != "" {
		if ip := net.ParseIP(o.Nat64Prefix + "0:0"); ip == nil || ip.To4() != nil {
			return rc, utils.ErrInErr{ErrDesc: "invalid nat64_prefix", ErrDetail: utils.ErrInvalidData, Data: o.Nat64Prefix}
		}
		rc.Nat64Prefix = o.Nat64Prefix
	}

	if o.Doh != "" {
		if !govalidator.IsRequestURL(o.Doh) || !(strings.HasPrefix(o.Doh, "https://") || strings.HasPrefix(o.Doh, "http://")) {
			return rc, utils.ErrInErr{ErrDesc: "invalid doh", ErrDetail: utils.ErrInvalidData, Data: o.Doh}
		}
		rc.DohURL = o.Doh
	}

	if o.DialTimeoutSeconds > 0 {
		rc.DialTimeout = time.Duration(o.DialTimeoutSeconds) * time.Second
	}
	if o.DnsTimeoutSeconds > 0 {
		rc.DnsTimeout = time.Duration(o.DnsTimeoutSeconds) * time.Second
	}
	rc.Socks5Strict = o.Socks5Strict
	if o.DnsQPS > 0 {
		rc.DnsQPS = o.DnsQPS
	}
	return rc, nil
}

func (c *Conf) ListenAddr() string {
	if c.Server.Listen == "" {
		return DefaultListen
	}
	return c.Server.Listen
}

// BestHosts 返回订阅中使用的 优选地址, 没有配置时使用 DefaultBestHosts
func (c *Conf) BestHosts() []string {
	if len(c.Subscription.Host) == 0 {
		return DefaultBestHosts
	}
	hosts := make([]string, 0, len(c.Subscription.Host))
	for _, h := range c.Subscription.Host {
		if h.Addr != "" {
			hosts = append(hosts, h.Addr)
		}
	}
	return hosts
}

func (c *Conf) RelayCandidates() []configAdapter.RelayCandidate {
	if len(c.Subscription.Relay) == 0 {
		return DefaultRelayCandidates
	}
	return c.Subscription.Relay
}
