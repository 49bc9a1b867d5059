package ip

import (
	"net"
	"strings"

	"github.com/pkg/errors"
)

// ValidateIP checks that the input is a literal IPv4 or IPv6 address.
func ValidateIP(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return errors.New("IP address is empty")
	}
	if net.ParseIP(trimmed) == nil {
		return errors.Errorf("invalid IP address %q", input)
	}
	return nil
}

// ValidateCIDR checks that the input is valid CIDR notation, e.g. "10.244.0.0/16".
// The address part must be the network address itself: "10.244.0.1/16" is
// rejected because pod and service ranges handed to bootstrap tools must be
// network-aligned.
func ValidateCIDR(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return errors.New("CIDR is empty")
	}
	ip, ipNet, err := net.ParseCIDR(trimmed)
	if err != nil {
		return errors.Wrapf(err, "invalid CIDR %q", input)
	}
	if !ip.Equal(ipNet.IP) {
		return errors.Errorf("CIDR %q is not network-aligned (expected %s)", input, ipNet.String())
	}
	return nil
}

// ValidateAddressWithPrefix checks a host address in CIDR notation, e.g.
// "192.168.10.50/24". Unlike ValidateCIDR it accepts any host address inside
// the prefix, which is what interface addressing needs.
func ValidateAddressWithPrefix(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return errors.New("address is empty")
	}
	if !strings.Contains(trimmed, "/") {
		return errors.Errorf("address %q must include a prefix length, e.g. 192.168.10.50/24", input)
	}
	if _, _, err := net.ParseCIDR(trimmed); err != nil {
		return errors.Wrapf(err, "invalid address %q", input)
	}
	return nil
}

// ValidateHostAddress accepts either a literal IP or a resolvable-looking
// hostname (syntax check only; no DNS lookup is performed here).
func ValidateHostAddress(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return errors.New("host address is empty")
	}
	if net.ParseIP(trimmed) != nil {
		return nil
	}
	for _, label := range strings.Split(trimmed, ".") {
		if label == "" {
			return errors.Errorf("invalid host address %q", input)
		}
		for _, r := range label {
			valid := r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			if !valid {
				return errors.Errorf("invalid host address %q", input)
			}
		}
	}
	return nil
}

// ValidateEndpoint checks a "host:port" or bare "host" endpoint such as the
// control-plane address workers join against.
func ValidateEndpoint(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return errors.New("endpoint is empty")
	}
	host := trimmed
	if strings.Contains(trimmed, ":") {
		h, port, err := net.SplitHostPort(trimmed)
		if err != nil {
			return errors.Wrapf(err, "invalid endpoint %q", input)
		}
		if port == "" {
			return errors.Errorf("invalid endpoint %q: missing port", input)
		}
		host = h
	}
	return ValidateHostAddress(host)
}
