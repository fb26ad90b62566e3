package network

import (
	"net"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

const (
	// maxIfNameLen is IFNAMSIZ minus the trailing NUL.
	maxIfNameLen = 15

	hostVethSuffix = "-host"
	nsVethSuffix   = "-ns"

	// maxNamespaceNameLen leaves room for the longest veth suffix.
	maxNamespaceNameLen = maxIfNameLen - len(hostVethSuffix)

	loopbackIfName = "lo"
)

// ParseCIDRAddress parses an IPv4 a.b.c.d/prefix address. Unlike net.ParseCIDR the returned
// IPNet keeps the host address.
func ParseCIDRAddress(s string) (*net.IPNet, error) {
	ip, ipNet, err := net.ParseCIDR(s)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidArgument, "address %q is not in CIDR notation", s)
	}
	if ip.To4() == nil {
		return nil, errors.Wrapf(ErrInvalidArgument, "address %q is not IPv4", s)
	}
	return &net.IPNet{IP: ip.To4(), Mask: ipNet.Mask}, nil
}

// GatewayFromCIDR strips the prefix length, so 10.10.10.40/24 yields 10.10.10.40.
func GatewayFromCIDR(s string) (net.IP, error) {
	addr, err := ParseCIDRAddress(s)
	if err != nil {
		return nil, err
	}
	return addr.IP, nil
}

// SubnetOf returns the network containing addr.
func SubnetOf(addr *net.IPNet) *net.IPNet {
	return &net.IPNet{IP: addr.IP.Mask(addr.Mask), Mask: addr.Mask}
}

// ValidateInterfaceName applies the kernel rules for link names.
func ValidateInterfaceName(name string) error {
	return validateName("interface", name, maxIfNameLen)
}

// ValidateNamespaceName also bounds the length so the derived veth names stay valid link names.
func ValidateNamespaceName(name string) error {
	return validateName("namespace", name, maxNamespaceNameLen)
}

func validateName(kind, name string, maxLen int) error {
	if name == "" {
		return errors.Wrapf(ErrInvalidArgument, "%s name is empty", kind)
	}
	if len(name) > maxLen {
		return errors.Wrapf(ErrInvalidArgument, "%s name %q is longer than %d bytes", kind, name, maxLen)
	}
	if name == "." || name == ".." {
		return errors.Wrapf(ErrInvalidArgument, "%s name %q is reserved", kind, name)
	}
	if strings.ContainsAny(name, "/:") || strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return errors.Wrapf(ErrInvalidArgument, "%s name %q contains '/', ':' or whitespace", kind, name)
	}
	return nil
}

// VethNames returns the host and namespace side link names for a namespace.
func VethNames(namespace string) (hostIfName, nsIfName string) {
	return namespace + hostVethSuffix, namespace + nsVethSuffix
}
