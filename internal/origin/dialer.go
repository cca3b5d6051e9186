package origin

import (
	"context"
	"fmt"
	"net"
	"time"
)

// blockedRanges is parsed once at init time
var blockedRanges []*net.IPNet

func init() {
	for _, cidr := range []string{
		"0.0.0.0/8", "10.0.0.0/8", "100.64.0.0/10", "127.0.0.0/8",
		"169.254.0.0/16", "172.16.0.0/12", "192.0.0.0/24", "192.0.2.0/24",
		"192.168.0.0/16", "198.18.0.0/15", "198.51.100.0/24", "203.0.113.0/24",
		"224.0.0.0/4", "240.0.0.0/4",
		"::/128", "::1/128", "fc00::/7", "fe80::/10", "ff00::/8",
	} {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid CIDR: " + cidr)
		}
		blockedRanges = append(blockedRanges, n)
	}
}

// IsPrivateIP reports whether ip is loopback, private, link-local, multicast
// or otherwise reserved
func IsPrivateIP(ip net.IP) bool {
	for _, n := range blockedRanges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// safeDialer resolves the host itself and connects only to a public address,
// so a DNS answer cannot be swapped between check and connect.
type safeDialer struct {
	dialer   *net.Dialer
	resolver *net.Resolver
}

func newSafeDialer(timeout time.Duration) *safeDialer {
	return &safeDialer{
		dialer:   &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second},
		resolver: net.DefaultResolver,
	}
}

func (d *safeDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}

	ips, err := d.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed for %s: %w", host, err)
	}

	for _, ip := range ips {
		if IsPrivateIP(ip.IP) {
			continue
		}
		return d.dialer.DialContext(ctx, network, net.JoinHostPort(ip.IP.String(), port))
	}
	return nil, fmt.Errorf("%w: %s", ErrPrivateAddress, host)
}
