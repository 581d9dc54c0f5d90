// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package precinct

import (
	"encoding/binary"
	"net"
	"net/netip"
	"path"
	"strings"

	"github.com/danielhkuo/campus-vote/models"
)

const (
	loopback     = "127.0.0.1"
	mappedPrefix = "::ffff:"
)

// Normalize canonicalizes a client address for matching: brackets, ports and
// zones are removed, IPv4-mapped IPv6 becomes plain IPv4, and every loopback
// spelling becomes 127.0.0.1.
func Normalize(addr string) string {
	a := strings.ToLower(strings.TrimSpace(addr))
	if a == "" {
		return ""
	}

	if host, _, err := net.SplitHostPort(a); err == nil {
		a = host
	}
	a = strings.TrimSuffix(strings.TrimPrefix(a, "["), "]")
	if i := strings.IndexByte(a, '%'); i >= 0 {
		a = a[:i]
	}

	if strings.HasPrefix(a, mappedPrefix) {
		rest := a[len(mappedPrefix):]
		if ip, err := netip.ParseAddr(rest); err == nil && ip.Is4() {
			a = rest
		}
	}

	if a == "localhost" {
		return loopback
	}
	if ip, err := netip.ParseAddr(a); err == nil {
		ip = ip.Unmap()
		if ip.IsLoopback() {
			return loopback
		}
		return ip.String()
	}
	return a
}

// spellings is every form a single-address record may have been stored in
func spellings(raw string) []string {
	raw = strings.TrimSpace(raw)
	norm := Normalize(raw)
	out := []string{norm, raw}
	for _, s := range []string{norm, raw} {
		if strings.HasPrefix(s, mappedPrefix) {
			out = append(out, strings.TrimPrefix(s, mappedPrefix))
		} else {
			out = append(out, mappedPrefix+s)
		}
	}
	return out
}

// Matches reports whether an active address record admits the client address
func Matches(rec models.LabAddress, clientAddr string) bool {
	if !rec.IsActive {
		return false
	}

	switch rec.IPType {
	case models.IPTypeSingle:
		if rec.IPAddress == nil {
			return false
		}
		return matchSingle(*rec.IPAddress, clientAddr)
	case models.IPTypeRange:
		if rec.RangeStart == nil || rec.RangeEnd == nil {
			return false
		}
		return matchRange(*rec.RangeStart, *rec.RangeEnd, clientAddr)
	case models.IPTypeSubnet:
		return matchSubnet(rec.IPAddress, rec.SubnetMask, clientAddr)
	}
	return false
}

func matchSingle(stored, clientAddr string) bool {
	want := Normalize(stored)
	for _, s := range spellings(clientAddr) {
		if s == stored || s == want {
			return true
		}
	}
	return false
}

// matchRange compares numerically, never as strings: 10.0.0.9 lies inside
// 10.0.0.1-10.0.0.10.
func matchRange(start, end, clientAddr string) bool {
	lo, err := netip.ParseAddr(Normalize(start))
	if err != nil {
		return false
	}
	hi, err := netip.ParseAddr(Normalize(end))
	if err != nil {
		return false
	}
	ip, err := netip.ParseAddr(Normalize(clientAddr))
	if err != nil {
		return false
	}

	if lo.Is4() && hi.Is4() && ip.Is4() {
		n := ipv4ToUint32(ip)
		return ipv4ToUint32(lo) <= n && n <= ipv4ToUint32(hi)
	}
	if lo.BitLen() != ip.BitLen() || hi.BitLen() != ip.BitLen() {
		return false
	}
	return lo.Compare(ip) <= 0 && ip.Compare(hi) <= 0
}

func ipv4ToUint32(ip netip.Addr) uint32 {
	b := ip.As4()
	return binary.BigEndian.Uint32(b[:])
}

// matchSubnet accepts three stored shapes:
//   - wildcard pattern in subnet_mask, e.g. 192.168.1.*
//   - CIDR in subnet_mask or ip_address, e.g. 192.168.1.0/24
//   - network address in ip_address with a dotted mask, e.g. 255.255.255.0
func matchSubnet(network, mask *string, clientAddr string) bool {
	addr := Normalize(clientAddr)
	ip, ipErr := netip.ParseAddr(addr)

	if mask != nil {
		m := strings.TrimSpace(*mask)
		if prefix, err := netip.ParsePrefix(m); err == nil {
			return ipErr == nil && prefix.Masked().Contains(ip)
		}
		if network != nil && ipErr == nil {
			if prefix, ok := dottedPrefix(*network, m); ok {
				return prefix.Contains(ip)
			}
		}
		if strings.ContainsAny(m, "*?[") {
			ok, err := path.Match(m, addr)
			return err == nil && ok
		}
	}

	if network != nil && ipErr == nil {
		if prefix, err := netip.ParsePrefix(strings.TrimSpace(*network)); err == nil {
			return prefix.Masked().Contains(ip)
		}
	}
	return false
}

func dottedPrefix(network, mask string) (netip.Prefix, bool) {
	base, err := netip.ParseAddr(Normalize(network))
	if err != nil || !base.Is4() {
		return netip.Prefix{}, false
	}
	m, err := netip.ParseAddr(mask)
	if err != nil || !m.Is4() {
		return netip.Prefix{}, false
	}
	b := m.As4()
	ones, bits := net.IPv4Mask(b[0], b[1], b[2], b[3]).Size()
	if bits == 0 {
		// not a contiguous mask
		return netip.Prefix{}, false
	}
	return netip.PrefixFrom(base, ones).Masked(), true
}
