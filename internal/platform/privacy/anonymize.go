// Package privacy provides utilities for handling personally identifiable
// information. Audit detail payloads never store raw client IPs; they go
// through AnonymizeIP first.
package privacy

import (
	"fmt"
	"net"
)

// AnonymizeIP truncates an IP address to remove the host-identifying portion.
//
// IPv4 addresses have the last octet zeroed ("192.168.1.47" -> "192.168.1.0",
// a /24 network). IPv6 addresses keep only the /48 prefix. The result cannot
// identify a specific individual.
//
// Returns "invalid" for unparseable addresses and "unknown" for empty input.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}

	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}

	// IPv6 is 16 bytes; the /48 prefix is the first 6.
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1],
		parsed[2], parsed[3],
		parsed[4], parsed[5])
}
