package util

import (
	"net/http"
	"net/netip"
	"strings"
)

// ProxyTrust decides which direct peers are allowed to speak for the
// real client through X-Forwarded-For and X-Real-IP. Everything else
// is treated as the client itself, whatever headers it sends.
type ProxyTrust struct {
	ranges []netip.Prefix
}

var privateRanges = []string{
	"127.0.0.0/8",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"fc00::/7",
}

// PrivateProxyTrust trusts loopback and private ranges. This matches
// the usual deployment where nginx terminates TLS on the same host or
// inside the same VPC.
func PrivateProxyTrust() *ProxyTrust {
	trust, err := ParseProxyTrust(privateRanges)
	if err != nil {
		panic(err)
	}
	return trust
}

// ParseProxyTrust parses CIDR or bare-address entries into a trust
// list. A nil result means no peer is trusted and forwarding headers
// are ignored.
func ParseProxyTrust(entries []string) (*ProxyTrust, error) {
	ranges := make([]netip.Prefix, 0, len(entries))
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, err
			}
			ranges = append(ranges, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		ranges = append(ranges, netip.PrefixFrom(addr, addr.BitLen()))
	}
	if len(ranges) == 0 {
		return nil, nil
	}
	return &ProxyTrust{ranges: ranges}, nil
}

func (p *ProxyTrust) trusts(addr netip.Addr) bool {
	if p == nil || !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range p.ranges {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP resolves the caller address used for rate limit keys and
// audit logs. Forwarded headers count only when the direct peer is
// trusted; walking the X-Forwarded-For chain from the right, the
// first untrusted hop is the client.
func (p *ProxyTrust) ClientIP(r *http.Request) string {
	peer, ok := parsePeerAddr(r.RemoteAddr)
	if !ok {
		return strings.TrimSpace(r.RemoteAddr)
	}
	if !p.trusts(peer) {
		return peer.String()
	}

	if chain := forwardedChain(r.Header.Get("X-Forwarded-For"), peer); len(chain) > 0 {
		for i := len(chain) - 1; i >= 0; i-- {
			if !p.trusts(chain[i]) {
				return chain[i].String()
			}
		}
		// Every hop is a trusted proxy: report the origin of the chain.
		return chain[0].String()
	}

	if realIP, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return realIP.Unmap().String()
	}
	return peer.String()
}

func forwardedChain(header string, peer netip.Addr) []netip.Addr {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	chain := make([]netip.Addr, 0, len(parts)+1)
	for _, part := range parts {
		addr, err := netip.ParseAddr(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		chain = append(chain, addr.Unmap())
	}
	if len(chain) == 0 {
		return nil
	}
	return append(chain, peer)
}

func parsePeerAddr(remoteAddr string) (netip.Addr, bool) {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if ap, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return ap.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(remoteAddr); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}
