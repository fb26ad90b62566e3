// Package firewall programs the forwarding and NAT policy of a bridge as a versioned ruleset
// that is tagged per bridge, so several bridges can share a host.
package firewall

import (
	"fmt"
	"net"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

//go:generate mockgen -destination=mocks/mock_installer.go -package=mocks github.com/cort-runtime/cortnet/firewall Installer

const tagPrefix = "cortnet:"

// ErrInvalidRuleset is returned when a ruleset is missing a required field.
var ErrInvalidRuleset = errors.New("invalid firewall ruleset")

// Ruleset is the forwarding and NAT policy for one (external interface, bridge) pair.
type Ruleset struct {
	Version           int
	Bridge            string
	BridgeAddress     *net.IPNet
	ExternalInterface string
}

// Tag identifies every rule belonging to the bridge regardless of version.
func (r Ruleset) Tag() string {
	return tagPrefix + r.Bridge
}

// VersionTag identifies the rules of one version of the ruleset.
func (r Ruleset) VersionTag() string {
	return fmt.Sprintf("%s:v%d", r.Tag(), r.Version)
}

// Subnet returns the network portion of the bridge address.
func (r Ruleset) Subnet() *net.IPNet {
	if r.BridgeAddress == nil {
		return nil
	}
	return &net.IPNet{IP: r.BridgeAddress.IP.Mask(r.BridgeAddress.Mask), Mask: r.BridgeAddress.Mask}
}

func (r Ruleset) Validate() error {
	if r.Bridge == "" {
		return errors.Wrap(ErrInvalidRuleset, "bridge is empty")
	}
	if r.ExternalInterface == "" {
		return errors.Wrap(ErrInvalidRuleset, "external interface is empty")
	}
	if r.BridgeAddress == nil || r.BridgeAddress.IP.To4() == nil {
		return errors.Wrap(ErrInvalidRuleset, "bridge address must be IPv4")
	}
	if r.Version < 1 {
		return errors.Wrapf(ErrInvalidRuleset, "version %d", r.Version)
	}
	return nil
}

// Installer applies and removes bridge rulesets.
// Apply replaces whatever version is installed for the bridge and is idempotent.
type Installer interface {
	Apply(rs Ruleset) error
	Remove(rs Ruleset) error
	// InstalledVersion returns 0 when no ruleset for bridge is installed.
	InstalledVersion(bridge string) (int, error)
}

var versionPattern = regexp.MustCompile(`cortnet:([^:"\s]+):v(\d+)`)

// parseVersion extracts the ruleset version for bridge from a rule listing or comment.
func parseVersion(bridge, s string) (int, bool) {
	for _, m := range versionPattern.FindAllStringSubmatch(s, -1) {
		if m[1] != bridge {
			continue
		}
		v, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}
