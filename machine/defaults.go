package machine

import "github.com/e1732a364fed/edgerelay/configAdapter"

// 订阅中默认的优选地址
var DefaultBestHosts = []string{
	"bestcf.030101.xyz:443",
	"japan.com:443",
	"www.visa.com.sg:443",
	"www.visa.com.hk:443",
	"icook.hk:443",
	"icook.tw:443",
}

// 订阅中默认的 proxyip 候选
var DefaultRelayCandidates = []configAdapter.RelayCandidate{
	{Domain: "ProxyIP.US.CMLiussss.net", Region: "US", Port: 443},
	{Domain: "ProxyIP.SG.CMLiussss.net", Region: "SG", Port: 443},
	{Domain: "ProxyIP.JP.CMLiussss.net", Region: "JP", Port: 443},
	{Domain: "ProxyIP.HK.CMLiussss.net", Region: "HK", Port: 443},
	{Domain: "ProxyIP.KR.CMLiussss.net", Region: "KR", Port: 443},
	{Domain: "ProxyIP.DE.CMLiussss.net", Region: "DE", Port: 443},
	{Domain: "ProxyIP.SE.CMLiussss.net", Region: "SE", Port: 443},
	{Domain: "ProxyIP.NL.CMLiussss.net", Region: "NL", Port: 443},
	{Domain: "ProxyIP.FI.CMLiussss.net", Region: "FI", Port: 443},
	{Domain: "ProxyIP.GB.CMLiussss.net", Region: "GB", Port: 443},
	{Domain: "ProxyIP.Oracle.cmliussss.net", Region: "Oracle", Port: 443},
	{Domain: "ProxyIP.DigitalOcean.CMLiussss.net", Region: "DigitalOcean", Port: 443},
	{Domain: "ProxyIP.Vultr.CMLiussss.net", Region: "Vultr", Port: 443},
	{Domain: "ProxyIP.Multacom.CMLiussss.net", Region: "Multacom", Port: 443},
}
