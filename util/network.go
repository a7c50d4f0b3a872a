package util

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// hostnameRe accepts RFC 1123 style labels separated by dots.
var hostnameRe = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,62})?(\.[A-Za-z0-9]([A-Za-z0-9-]{0,62})?)*\.?$`)

// ValidateHost checks that host is usable as a knock target before any
// connection is attempted.  With noDNS only numeric IPs are accepted.
func ValidateHost(host string, noDNS bool) error {
	if host == "" {
		return fmt.Errorf("host is required")
	}
	if strings.TrimSpace(host) != host || strings.ContainsAny(host, " \t\r\n") {
		return fmt.Errorf("host %q contains whitespace", host)
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if noDNS {
		return fmt.Errorf("cannot parse %q as an IP address (DNS disabled with -n)", host)
	}
	if len(host) > 253 || !hostnameRe.MatchString(host) {
		return fmt.Errorf("%q is not a valid hostname or IP address", host)
	}
	return nil
}

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
