package httputil

import (
	"fmt"
	"net"
)

var blockedClasses = []struct {
	name    string
	matches func(net.IP) bool
}{
	{"private", net.IP.IsPrivate},
	{"loopback", net.IP.IsLoopback},
	{"link-local", net.IP.IsLinkLocalUnicast},
	{"link-local multicast", net.IP.IsLinkLocalMulticast},
	{"multicast", net.IP.IsMulticast},
	{"unspecified", net.IP.IsUnspecified},
}

// ValidateIP reports an error if ip is not a public unicast address. host
// names the address in the error.
func ValidateIP(ip net.IP, host string) error {
	for _, class := range blockedClasses {
		if class.matches(ip) {
			return fmt.Errorf("refusing redirect to %s address: %s (%s)", class.name, host, ip)
		}
	}
	return nil
}
