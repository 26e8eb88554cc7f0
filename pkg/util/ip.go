package util

import (
	"fmt"
	"net/netip"
	"strings"
)

// ParseAddr parses a single IP address. IPv4-mapped IPv6 addresses are
// unmapped so "::ffff:10.0.0.1" and "10.0.0.1" compare equal.
func ParseAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid IP address: %q", s)
	}
	return addr.Unmap(), nil
}

// ParseAddrOrPrefix parses either a bare IP address or a CIDR prefix.
// A bare address is returned as a full-length prefix (/32 or /128).
// Prefixes are masked: "10.0.0.7/24" becomes "10.0.0.0/24".
func ParseAddrOrPrefix(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid CIDR notation: %q", s)
		}
		addr := p.Addr().Unmap()
		bits := p.Bits()
		if p.Addr().Is4In6() {
			bits -= 96
			if bits < 0 {
				return netip.Prefix{}, fmt.Errorf("invalid CIDR notation: %q", s)
			}
		}
		return netip.PrefixFrom(addr, bits).Masked(), nil
	}
	addr, err := ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// FormatAddrs renders addresses the way alert bodies list them: "[a b c]".
func FormatAddrs(addrs []netip.Addr) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
