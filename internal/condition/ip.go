package condition

import (
	"encoding/binary"
	"net"
	"strconv"
	"strings"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// evaluateIP checks the client address against the IP condition. Denied
// exact IPs and CIDR blocks fail first; the allow lists, when present,
// require membership. Country and region checks follow with the same
// precedence.
func (e *Evaluator) evaluateIP(ic *types.IPCondition, req *types.EvaluationRequest) bool {
	ip := req.ClientIP

	for _, d := range ic.DeniedIPs {
		if d == ip {
			return false
		}
	}
	for _, cidr := range ic.DeniedCIDRs {
		if isIPInCIDR(ip, cidr) {
			return false
		}
	}

	if len(ic.AllowedIPs) > 0 || len(ic.AllowedCIDRs) > 0 {
		member := false
		for _, a := range ic.AllowedIPs {
			if a == ip {
				member = true
				break
			}
		}
		if !member {
			for _, cidr := range ic.AllowedCIDRs {
				if isIPInCIDR(ip, cidr) {
					member = true
					break
				}
			}
		}
		if !member {
			return false
		}
	}

	country := strings.ToUpper(req.ContextString(ContextKeyCountry))
	if !listAllowed(country, upperAll(ic.AllowedCountries), upperAll(ic.DeniedCountries)) {
		return false
	}

	region := req.ContextString(ContextKeyRegion)
	return listAllowed(region, ic.AllowedRegions, ic.DeniedRegions)
}

// isIPInCIDR reports whether an IPv4 address falls inside a CIDR block
// using mask arithmetic over big-endian 32-bit addresses. Network and
// broadcast addresses are not special-cased. Malformed input never
// matches; IPv6 is out of scope.
func isIPInCIDR(ipStr, cidr string) bool {
	parts := strings.SplitN(cidr, "/", 2)
	if len(parts) != 2 {
		return false
	}

	network, ok := ipv4ToUint32(parts[0])
	if !ok {
		return false
	}
	prefixLen, err := strconv.Atoi(parts[1])
	if err != nil || prefixLen < 0 || prefixLen > 32 {
		return false
	}
	ip, ok := ipv4ToUint32(ipStr)
	if !ok {
		return false
	}

	// shift by 32 yields zero, which is the correct /0 mask
	mask := uint32(0xFFFFFFFF) << (32 - uint(prefixLen))
	return ip&mask == network&mask
}

// ipv4ToUint32 encodes a dotted-quad IPv4 address as a big-endian integer
func ipv4ToUint32(s string) (uint32, bool) {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return 0, false
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(v4), true
}

func upperAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
