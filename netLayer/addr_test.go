package netLayer_test

import (
	"net"
	"testing"

	"github.com/e1732a364fed/edgerelay/netLayer"
)

func TestParseHostPort(t *testing.T) {
	cases := []struct {
		in   string
		host string
		port int
	}{
		{"example.com:8443", "example.com", 8443},
		{"example.com", "example.com", 443},
		{"example.com:", "example.com", 443},
		{"example.com:abc", "example.com", 443},
		{"example.com:0", "example.com", 443},
		{"1.2.3.4:80", "1.2.3.4", 80},
		{"[2001:db8::1]:8080", "2001:db8::1", 8080},
		{"[2001:db8::1]", "2001:db8::1", 443},
		{"2001:db8::1", "2001:db8::1", 443},
		{"  bestproxy.030101.xyz:443 ", "bestproxy.030101.xyz", 443},
	}

	for _, c := range cases {
		h, p, err := netLayer.ParseHostPort(c.in, 443)
		if err != nil {
			t.Log(c.in, err)
			t.FailNow()
		}
		if h != c.host || p != c.port {
			t.Log("for", c.in, "got", h, p, "want", c.host, c.port)
			t.FailNow()
		}
	}

	for _, bad := range []string{"", ":443", "[::1"} {
		if _, _, err := netLayer.ParseHostPort(bad, 443); err == nil {
			t.Log("should fail", bad)
			t.FailNow()
		}
	}
}

func TestAddr(t *testing.T) {
	a := netLayer.Addr{Name: "example.com", Port: 443}
	if !a.IsDomain() || a.AddrType() != netLayer.AtypDomain || a.String() != "example.com:443" {
		t.Log("domain addr wrong", a.String())
		t.FailNow()
	}

	a = netLayer.Addr{IP: net.IPv4(1, 2, 3, 4), Port: 80}
	if !a.IsIPv4() || a.AddrType() != netLayer.AtypIP4 || a.String() != "1.2.3.4:80" {
		t.Log("ipv4 addr wrong", a.String())
		t.FailNow()
	}

	a = netLayer.Addr{IP: net.ParseIP("2001:db8::1"), Port: 80}
	if !a.IsIPv6() || a.AddrType() != netLayer.AtypIP6 || a.String() != "[2001:db8::1]:80" {
		t.Log("ipv6 addr wrong", a.String())
		t.FailNow()
	}

	if netLayer.StripBrackets("[::1]") != "::1" || netLayer.StripBrackets("::1") != "::1" {
		t.FailNow()
	}
}
