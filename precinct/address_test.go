// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package precinct

import (
	"testing"

	"github.com/danielhkuo/campus-vote/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"192.168.1.50", "192.168.1.50"},
		{" 192.168.1.50 ", "192.168.1.50"},
		{"::ffff:192.168.1.50", "192.168.1.50"},
		{"::FFFF:10.0.0.1", "10.0.0.1"},
		{"192.168.1.50:54321", "192.168.1.50"},
		{"[::1]:8080", "127.0.0.1"},
		{"::1", "127.0.0.1"},
		{"0:0:0:0:0:0:0:1", "127.0.0.1"},
		{"localhost", "127.0.0.1"},
		{"127.4.5.6", "127.0.0.1"},
		{"2001:DB8::1", "2001:db8::1"},
		{"fe80::1%eth0", "fe80::1"},
		{"not-an-ip", "not-an-ip"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func str(s string) *string { return &s }

func TestMatches(t *testing.T) {
	single := models.LabAddress{IPType: models.IPTypeSingle, IPAddress: str("192.168.1.50"), IsActive: true}
	mappedSingle := models.LabAddress{IPType: models.IPTypeSingle, IPAddress: str("::ffff:192.168.1.51"), IsActive: true}
	loop := models.LabAddress{IPType: models.IPTypeSingle, IPAddress: str("127.0.0.1"), IsActive: true}
	rng := models.LabAddress{IPType: models.IPTypeRange, RangeStart: str("10.0.0.1"), RangeEnd: str("10.0.0.10"), IsActive: true}
	rng6 := models.LabAddress{IPType: models.IPTypeRange, RangeStart: str("2001:db8::1"), RangeEnd: str("2001:db8::ff"), IsActive: true}
	wildcard := models.LabAddress{IPType: models.IPTypeSubnet, SubnetMask: str("192.168.2.*"), IsActive: true}
	cidr := models.LabAddress{IPType: models.IPTypeSubnet, SubnetMask: str("172.16.0.0/16"), IsActive: true}
	dotted := models.LabAddress{IPType: models.IPTypeSubnet, IPAddress: str("192.168.3.0"), SubnetMask: str("255.255.255.0"), IsActive: true}
	inactive := models.LabAddress{IPType: models.IPTypeSingle, IPAddress: str("192.168.1.50"), IsActive: false}

	tests := []struct {
		name string
		rec  models.LabAddress
		addr string
		want bool
	}{
		{"single exact", single, "192.168.1.50", true},
		{"single mapped client", single, "::ffff:192.168.1.50", true},
		{"single with port", single, "192.168.1.50:443", true},
		{"single other", single, "10.0.0.1", false},
		{"single stored mapped", mappedSingle, "192.168.1.51", true},
		{"loopback ipv6", loop, "::1", true},
		{"loopback name", loop, "localhost", true},

		// 10.0.0.9 sorts after 10.0.0.10 as a string
		{"range numeric middle", rng, "10.0.0.9", true},
		{"range lower bound", rng, "10.0.0.1", true},
		{"range upper bound", rng, "10.0.0.10", true},
		{"range below", rng, "10.0.0.0", false},
		{"range above", rng, "10.0.0.11", false},
		{"range lexicographic trap", rng, "10.0.0.100", false},
		{"range mapped client", rng, "::ffff:10.0.0.5", true},
		{"range garbage", rng, "ten", false},
		{"range ipv6 inside", rng6, "2001:db8::10", true},
		{"range ipv6 outside", rng6, "2001:db8::1:0", false},
		{"range family mismatch", rng6, "10.0.0.5", false},

		{"wildcard match", wildcard, "192.168.2.77", true},
		{"wildcard miss", wildcard, "192.168.20.77", false},
		{"cidr match", cidr, "172.16.200.1", true},
		{"cidr miss", cidr, "172.17.0.1", false},
		{"dotted mask match", dotted, "192.168.3.9", true},
		{"dotted mask miss", dotted, "192.168.4.9", false},

		{"inactive ignored", inactive, "192.168.1.50", false},
		{"unknown type", models.LabAddress{IPType: "bogus", IPAddress: str("1.1.1.1"), IsActive: true}, "1.1.1.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.rec, tt.addr); got != tt.want {
				t.Errorf("Matches(%s, %q) = %v, want %v", tt.rec.IPType, tt.addr, got, tt.want)
			}
		})
	}
}
