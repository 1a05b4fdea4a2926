package netLayer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/e1732a364fed/edgerelay/utils"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

const (
	DefaultDohEndpoint = "https://1.1.1.1"

	dohPath = "/dns-query"

	MimeDnsJson    = "application/dns-json"
	MimeDnsMessage = "application/dns-message"

	// dns 报文 over tcp/udp 最大也就 64k
	maxDohResponseLen = 64 * 1024
)

var (
	ErrDohStatus  = errors.New("doh bad status")
	ErrNoARecord  = errors.New("no valid A record found")
	ErrEmptyQuery = errors.New("empty dns query")
)

// DohClient 实现 DNS over HTTPS 的两种用法:
// json格式查询A记录 (LookupA), 以及 原始dns报文的转发 (Exchange).
type DohClient struct {
	Endpoint string // 如 https://1.1.1.1 , 不含 /dns-query

	Timeout time.Duration // 单次请求期限, 0 表示不设期限

	HTTPClient *http.Client //为nil时使用 http.DefaultClient
}

func NewDohClient(endpoint string, timeout time.Duration) *DohClient {
	if endpoint == "" {
		endpoint = DefaultDohEndpoint
	}
	return &DohClient{
		Endpoint: strings.TrimSuffix(endpoint, "/"),
		Timeout:  timeout,
	}
}

func (c *DohClient) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *DohClient) url() string {
	return strings.TrimSuffix(c.Endpoint, dohPath) + dohPath
}

func (c *DohClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return context.WithCancel(ctx)
}

type dohJsonAnswer struct {
	Name string `json:"name"`
	Type uint16 `json:"type"`
	TTL  uint32 `json:"TTL"`
	Data string `json:"data"`
}

type dohJsonResponse struct {
	Status int             `json:"Status"`
	Answer []dohJsonAnswer `json:"Answer"`
}

// LookupA 用 GET <endpoint>/dns-query?name=domain&type=A 查询A记录,
// 返回第一条 type 为 A 且 data 不为空的记录的 data.
func (c *DohClient) LookupA(ctx context.Context, domain string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	q := url.Values{}
	q.Set("name", domain)
	q.Set("type", "A")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url()+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", MimeDnsJson)

	resp, err := c.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", utils.ErrInErr{ErrDesc: "doh json query failed", ErrDetail: ErrDohStatus, Data: resp.StatusCode}
	}

	var result dohJsonResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDohResponseLen)).Decode(&result); err != nil {
		return "", utils.ErrInErr{ErrDesc: "doh json decode failed", ErrDetail: err}
	}

	for _, a := range result.Answer {
		if a.Type == dns.TypeA && a.Data != "" {
			if ce := utils.CanLogDebug("doh got A record"); ce != nil {
				ce.Write(zap.String("domain", domain), zap.String("ip", a.Data), zap.Uint32("ttl", a.TTL))
			}
			return a.Data, nil
		}
	}
	return "", utils.ErrInErr{ErrDesc: "doh lookup", ErrDetail: ErrNoARecord, Data: domain}
}

// Exchange 把一条原始 dns 报文 POST 到 <endpoint>/dns-query, 返回响应报文.
func (c *DohClient) Exchange(ctx context.Context, msg []byte) ([]byte, error) {
	if len(msg) == 0 {
		return nil, ErrEmptyQuery
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewReader(msg))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", MimeDnsMessage)
	req.Header.Set("Accept", MimeDnsMessage)

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, utils.ErrInErr{ErrDesc: "doh message exchange failed", ErrDetail: ErrDohStatus, Data: resp.StatusCode}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxDohResponseLen))
}
