// Package resolver converts a hostname or IP literal into a Target
// (address + family), covering IPv4, IPv6, and an Auto preference.
package resolver

import (
	"context"
	"fmt"
	"net"

	"github.com/richkmeli/portscanner/internal/scanconfig"
)

// Target is a resolved scan destination: an address literal plus the
// socket family it should be dialed with.
type Target struct {
	Address string
	Family  scanconfig.IPVersion
}

// LookupIPFunc is injectable for tests.
var LookupIPFunc = net.LookupIP

// Resolve prefers the literal interpretation when net.ParseIP succeeds
// for either family; otherwise it performs name resolution and takes the
// first result matching the requested family (Auto prefers IPv4).
// Resolution failure is fatal.
func Resolve(ctx context.Context, host string, pref scanconfig.IPVersion) (Target, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			if pref == scanconfig.IPv6 {
				return Target{}, fmt.Errorf("resolver: %s is an IPv4 literal but IPv6 was requested", host)
			}
			return Target{Address: ip4.String(), Family: scanconfig.IPv4}, nil
		}
		if pref == scanconfig.IPv4 {
			return Target{}, fmt.Errorf("resolver: %s is an IPv6 literal but IPv4 was requested", host)
		}
		return Target{Address: ip.String(), Family: scanconfig.IPv6}, nil
	}

	ips, err := LookupIPFunc(host)
	if err != nil {
		return Target{}, fmt.Errorf("resolver: lookup %q: %w", host, err)
	}
	if len(ips) == 0 {
		return Target{}, fmt.Errorf("resolver: no addresses found for %q", host)
	}

	var firstV4, firstV6 net.IP
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			if firstV4 == nil {
				firstV4 = v4
			}
		} else if firstV6 == nil {
			firstV6 = ip
		}
	}

	switch pref {
	case scanconfig.IPv6:
		if firstV6 != nil {
			return Target{Address: firstV6.String(), Family: scanconfig.IPv6}, nil
		}
		return Target{}, fmt.Errorf("resolver: %q has no IPv6 address", host)
	case scanconfig.IPv4:
		if firstV4 != nil {
			return Target{Address: firstV4.String(), Family: scanconfig.IPv4}, nil
		}
		return Target{}, fmt.Errorf("resolver: %q has no IPv4 address", host)
	default: // Auto: IPv4 preferred
		if firstV4 != nil {
			return Target{Address: firstV4.String(), Family: scanconfig.IPv4}, nil
		}
		if firstV6 != nil {
			return Target{Address: firstV6.String(), Family: scanconfig.IPv6}, nil
		}
		return Target{}, fmt.Errorf("resolver: %q resolved to no usable address", host)
	}
}
