/*
Package ws implements the websocket inbound of edgerelay.

# Reference

websocket rfc: https://datatracker.ietf.org/doc/html/rfc6455/

Below is a real websocket handshake progress:

Request

	GET /?ed=2048 HTTP/1.1
	    Host: server.example.com
	    Upgrade: websocket
	    Connection: Upgrade
	    Sec-WebSocket-Key: x3JJHMbDL1EzLkh9GBhXDw==
	    Sec-WebSocket-Protocol: AAECAwQF...
	    Sec-WebSocket-Version: 13

Response

	HTTP/1.1 101 Switching Protocols
	    Upgrade: websocket
	    Connection: Upgrade
	    Sec-WebSocket-Accept: HSmrc0sMlYUkAGmm5OPpG2HaGWk=

xray/v2ray 客户端 用 Sec-WebSocket-Protocol 头 携带 earlydata (url-safe base64), 我们同样从这个头里读取.

All in all gobwas/ws is the best package. We use gobwas/ws.

gobwas包只支持http1.1, 所以如果使用nginx前置，确保 proxy_http_version 1.1;
*/
package ws

import (
	"encoding/base64"
	"strings"
)

// 2048 /3 = 682.6666...  (682 又 三分之二),
// 683 * 4 = 2732, 你若不信，运行 ws_test.go中的 TestBase64Len
const MaxEarlyDataLen_Base64 = 2732
const MaxEarlyDataLen = 2048

const EarlyDataHeader = "Sec-WebSocket-Protocol"

// DecodeEarlyData 解码 Sec-WebSocket-Protocol 头中的 earlydata.
//
// 接受 url-safe base64, 也接受标准 base64, 有无填充均可. 超长或解码失败时 返回nil, 不视为错误.
func DecodeEarlyData(s string) []byte {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > MaxEarlyDataLen_Base64 {
		return nil
	}
	s = strings.TrimRight(s, "=")
	bs, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		bs, err = base64.RawStdEncoding.DecodeString(s)
	}
	if err != nil || len(bs) == 0 {
		return nil
	}
	return bs
}
