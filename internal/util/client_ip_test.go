package util

import (
	"net/http/httptest"
	"testing"
)

func TestClientIPIgnoresHeadersFromUntrustedPeer(t *testing.T) {
	trust := PrivateProxyTrust()
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "198.51.100.10:44321"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	req.Header.Set("X-Real-IP", "203.0.113.6")

	if got := trust.ClientIP(req); got != "198.51.100.10" {
		t.Fatalf("client ip = %q, want the direct peer", got)
	}
}

func TestClientIPWalksForwardedChain(t *testing.T) {
	trust := PrivateProxyTrust()

	cases := []struct {
		name string
		xff  string
		want string
	}{
		{"single hop", "203.0.113.5", "203.0.113.5"},
		{"proxy appended its own hop", "203.0.113.5, 10.0.0.10", "203.0.113.5"},
		{"spoofed prefix is skipped", "1.2.3.4, 203.0.113.5, 10.0.0.10", "203.0.113.5"},
		{"all hops private reports origin", "10.0.0.5, 10.0.0.10", "10.0.0.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = "192.168.1.10:55000"
			req.Header.Set("X-Forwarded-For", tc.xff)
			if got := trust.ClientIP(req); got != tc.want {
				t.Fatalf("client ip = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClientIPFallsBackToRealIP(t *testing.T) {
	trust := PrivateProxyTrust()
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "not-an-address")
	req.Header.Set("X-Real-IP", "203.0.113.7")

	if got := trust.ClientIP(req); got != "203.0.113.7" {
		t.Fatalf("client ip = %q, want X-Real-IP value", got)
	}
}

func TestClientIPNilTrustUsesPeerOnly(t *testing.T) {
	var trust *ProxyTrust
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")

	if got := trust.ClientIP(req); got != "127.0.0.1" {
		t.Fatalf("client ip = %q, want the peer when nothing is trusted", got)
	}
}

func TestParseProxyTrust(t *testing.T) {
	trust, err := ParseProxyTrust([]string{"10.0.0.0/8", "", "192.168.1.10"})
	if err != nil || trust == nil {
		t.Fatalf("parse = %v, %v", trust, err)
	}
	if trust, err := ParseProxyTrust(nil); err != nil || trust != nil {
		t.Fatalf("empty input should yield a nil trust list, got %v, %v", trust, err)
	}
	if _, err := ParseProxyTrust([]string{"not-a-cidr"}); err == nil {
		t.Fatalf("expected parse error for garbage entry")
	}
}
