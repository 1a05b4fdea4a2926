package machine_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/e1732a364fed/edgerelay/advLayer/ws"
	"github.com/e1732a364fed/edgerelay/machine"
	"github.com/e1732a364fed/edgerelay/proxy"
	"github.com/e1732a364fed/edgerelay/utils"
	gobwas "github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

const testUUID = "a684455c-b14f-11ea-bf0d-42010aaa0003"

const testConf = `
[app]
loglevel = 0

[server]
listen = "127.0.0.1:0"
uuid = "a684455c-b14f-11ea-bf0d-42010aaa0003"
subscription = true

[outbound]
default_mode = "direct"
relay = "relay.example.net:8443"
dial_timeout = 3
dns_qps = 5

[[subscription.host]]
addr = "best.example.net:443"

[[subscription.relay]]
domain = "ProxyIP.JP.example.net"
region = "JP"
port = 443
`

func TestLoadConf(t *testing.T) {
	conf, err := machine.LoadConfStr(testConf)
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	rc, err := conf.ToRelayConfig()
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	if rc.DefaultMode != proxy.ModeDirect || rc.RelayHost != "relay.example.net:8443" || rc.DialTimeout != 3*time.Second || rc.DnsQPS != 5 {
		t.Log("wrong relay config", rc)
		t.FailNow()
	}
	if rc.DnsTimeout != 0 || rc.Socks5Strict {
		t.Log("defaults should be off")
		t.FailNow()
	}
	if conf.App == nil || conf.App.LogLevel == nil || *conf.App.LogLevel != 0 {
		t.Log("app conf not loaded")
		t.FailNow()
	}

	bad := conf
	bad.Outbound.DefaultMode = "teleport"
	if _, err := bad.ToRelayConfig(); err == nil {
		t.Log("invalid mode should fail")
		t.FailNow()
	}

	bad = conf
	bad.Server.UUID = ""
	if _, err := bad.ToRelayConfig(); err != machine.ErrNoUUID {
		t.Log("want ErrNoUUID, got", err)
		t.FailNow()
	}

	bad = conf
	bad.Outbound.Nat64Prefix = "1.2.3."
	if _, err := bad.ToRelayConfig(); err == nil {
		t.Log("invalid nat64 prefix should fail")
		t.FailNow()
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(machine.UUIDEnvName, "b831381d-6324-4d53-ad4f-8cda48b30811")
	conf, _ := machine.LoadConfStr(testConf)
	conf.ApplyEnv()
	if conf.Server.UUID != "b831381d-6324-4d53-ad4f-8cda48b30811" {
		t.Log("env not applied", conf.Server.UUID)
		t.FailNow()
	}
}

func startMachine(t *testing.T) (*machine.M, string) {
	conf, err := machine.LoadConfStr(testConf)
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	m, err := machine.New(conf)
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	if err = m.Start(); err != nil {
		t.Log(err)
		t.FailNow()
	}
	return m, m.Addr().String()
}

func get(t *testing.T, url string) (int, string) {
	resp, err := http.Get(url)
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHttpRoutes(t *testing.T) {
	m, addr := startMachine(t)
	defer m.Stop()

	base := "http://" + addr

	if code, body := get(t, base+"/"); code != 200 || body != "<h1>success</h1>" {
		t.Log("root", code, body)
		t.FailNow()
	}
	if code, body := get(t, base+"/healthz"); code != 200 || body != "OK" {
		t.Log("healthz", code, body)
		t.FailNow()
	}
	if code, body := get(t, base+"/nothing"); code != 404 || body != "error" {
		t.Log("404", code, body)
		t.FailNow()
	}

	code, body := get(t, base+"/"+strings.ToUpper(testUUID))
	if code != 200 {
		t.Log("sub", code)
		t.FailNow()
	}
	decoded, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	links := strings.Split(string(decoded), "\n")
	if len(links) != 2 || !strings.HasPrefix(links[0], "vless://"+testUUID+"@best.example.net:443?") {
		t.Log("wrong links", links)
		t.FailNow()
	}
}

// 通过 websocket + earlydata 建立一条 direct 隧道 到本地回显服务器
func TestTunnelEndToEnd(t *testing.T) {
	echo, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	defer echo.Close()
	go func() {
		for {
			c, err := echo.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				io.Copy(c, c)
			}()
		}
	}()

	m, addr := startMachine(t)
	defer m.Stop()

	id, _ := utils.StrToUUID(testUUID)
	ea := echo.Addr().(*net.TCPAddr)

	header := []byte{0}
	header = append(header, id[:]...)
	header = append(header, 0, 1)
	var pb [2]byte
	binary.BigEndian.PutUint16(pb[:], uint16(ea.Port))
	header = append(header, pb[:]...)
	header = append(header, 1)
	header = append(header, ea.IP.To4()...)
	header = append(header, "ping"...)

	h := http.Header{}
	h.Set(ws.EarlyDataHeader, base64.RawURLEncoding.EncodeToString(header))

	d := gobwas.Dialer{Timeout: 3 * time.Second, Header: gobwas.HandshakeHeaderHTTP(h)}
	conn, br, _, err := d.Dial(context.Background(), "ws://"+addr+"/?ed=2048&mode=direct")
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	defer conn.Close()

	var r io.Reader = conn
	if br != nil {
		r = br
	}
	rw := struct {
		io.Reader
		io.Writer
	}{r, conn}

	msg, err := wsutil.ReadServerBinary(rw)
	if err != nil || !bytes.Equal(msg, []byte("\x00\x00ping")) {
		t.Log("first reply", msg, err)
		t.FailNow()
	}

	wsutil.WriteClientBinary(conn, []byte("again"))
	msg, err = wsutil.ReadServerBinary(rw)
	if err != nil || string(msg) != "again" {
		t.Log("second reply", string(msg), err)
		t.FailNow()
	}

	if m.Handler.ActiveConnectionCount.Load() != 1 {
		t.Log("want 1 active connection, got", m.Handler.ActiveConnectionCount.Load())
		t.FailNow()
	}
}
