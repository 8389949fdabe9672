package reputation

import (
	"net"
	"strings"
)

var privateNetworks = mustParseNetworks(
	"127.0.0.0/8",
	"10.0.0.0/8",
	"192.168.0.0/16",
	"172.16.0.0/12",
	"169.254.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
	"::ffff:127.0.0.0/104",
)

// IsPrivateAddress reports whether the address falls into a private, loopback
// or link-local range and must never be sent to the external provider.
// Malformed input matches no range and is treated as public.
func IsPrivateAddress(address string) bool {
	ip := net.ParseIP(strings.TrimSpace(address))
	if ip == nil {
		return false
	}

	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}

	return false
}

func mustParseNetworks(cidrs ...string) []*net.IPNet {
	networks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("reputation: invalid built-in CIDR " + cidr)
		}
		networks = append(networks, network)
	}
	return networks
}
