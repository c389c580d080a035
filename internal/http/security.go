package http

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// DefaultTrustedProxies are the networks allowed to set forwarding headers
// when none are configured: loopback and the private ranges.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// proxyList resolves client addresses behind a set of trusted proxies.
type proxyList []*net.IPNet

func parseProxyList(cidrs []string) (proxyList, error) {
	list := make(proxyList, 0, len(cidrs))
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
		list = append(list, network)
	}
	return list, nil
}

func mustParseProxyList(cidrs []string) proxyList {
	list, err := parseProxyList(cidrs)
	if err != nil {
		panic(err)
	}
	return list
}

func (p proxyList) trusts(ip net.IP) bool {
	for _, network := range p {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP returns the address of the client behind r. X-Forwarded-For and
// X-Real-IP are honored only when the direct peer is trusted.
func (p proxyList) clientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	peerIP := net.ParseIP(peer)
	if peerIP == nil || !p.trusts(peerIP) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}
