package configAdapter

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// Subscription 为 本服务域名 host 生成所有分享链接.
//
// bestHosts 中每一个 host:port 生成一条, 名为 snippet_N (N从1开始);
// relays 中每一个 生成一条 走 bestHosts[0] 且 path 带 proxyip 参数的链接, 以地区命名.
func Subscription(uuid, host string, bestHosts []string, relays []RelayCandidate) []string {
	links := make([]string, 0, len(bestHosts)+len(relays))

	for i, server := range bestHosts {
		links = append(links, ToVlessShareLink(VlessShareConf{
			UUID:   uuid,
			Server: server,
			Host:   host,
			Name:   "snippet_" + strconv.Itoa(i+1),
		}))
	}

	if len(relays) == 0 {
		return links
	}

	server := host + ":443"
	if len(bestHosts) > 0 {
		server = bestHosts[0]
	}

	for _, r := range relays {
		links = append(links, ToVlessShareLink(VlessShareConf{
			UUID:   uuid,
			Server: server,
			Host:   host,
			Path:   DefaultWsPath + "&proxyip=" + r.Addr(),
			Name:   "proxyip_" + RegionName(r.Region),
		}))
	}
	return links
}

// EncodeSubscription 按订阅的通用格式, 把链接用换行连接后 做标准base64编码
func EncodeSubscription(links []string) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Join(links, "\n")))
}
