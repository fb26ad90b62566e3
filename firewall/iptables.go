package firewall

import (
	"github.com/cort-runtime/cortnet/iptables"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	forwardChainPrefix = "CORT-FWD-"
	natChainPrefix     = "CORT-NAT-"
)

// IptablesInstaller keeps each bridge's rules in its own filter and nat chains and hooks them
// into FORWARD and POSTROUTING with a tagged jump.
type IptablesInstaller struct {
	client iptables.Client
	logger *zap.Logger
}

func NewIptablesInstaller(client iptables.Client, logger *zap.Logger) *IptablesInstaller {
	return &IptablesInstaller{
		client: client,
		logger: logger.With(zap.String("component", "firewall-iptables")),
	}
}

func forwardChain(bridge string) string { return forwardChainPrefix + bridge }

func natChain(bridge string) string { return natChainPrefix + bridge }

func comment(tag string) []string {
	return []string{"-m", "comment", "--comment", tag}
}

func rule(match []string, tag, target string) []string {
	spec := append([]string{}, match...)
	spec = append(spec, comment(tag)...)
	return append(spec, "-j", target)
}

func forwardRules(rs Ruleset) [][]string {
	br, ext, tag := rs.Bridge, rs.ExternalInterface, rs.VersionTag()
	return [][]string{
		rule([]string{"-i", br, "-o", br}, tag, iptables.Accept),
		rule([]string{"-i", ext, "-o", br}, tag, iptables.Accept),
		rule([]string{"-i", br, "-o", ext}, tag, iptables.Accept),
	}
}

func natRules(rs Ruleset) [][]string {
	return [][]string{
		rule([]string{"-s", rs.Subnet().String(), "-o", rs.ExternalInterface}, rs.VersionTag(), iptables.Masquerade),
	}
}

func forwardJump(bridge string) []string {
	return rule(nil, tagPrefix+bridge, forwardChain(bridge))
}

func natJump(bridge string) []string {
	return rule(nil, tagPrefix+bridge, natChain(bridge))
}

// Apply sets the FORWARD policy to DROP, rebuilds the bridge chains and makes sure the jumps exist.
func (i *IptablesInstaller) Apply(rs Ruleset) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	i.logger.Info("Applying ruleset", zap.String("bridge", rs.Bridge), zap.String("tag", rs.VersionTag()))

	if err := i.client.ChangePolicy(iptables.Filter, iptables.Forward, iptables.Drop); err != nil {
		return errors.Wrap(err, "failed to set FORWARD policy")
	}

	if err := i.fillChain(iptables.Filter, forwardChain(rs.Bridge), forwardRules(rs)); err != nil {
		return err
	}
	if err := i.fillChain(iptables.Nat, natChain(rs.Bridge), natRules(rs)); err != nil {
		return err
	}

	if err := i.ensureJump(iptables.Filter, iptables.Forward, forwardJump(rs.Bridge)); err != nil {
		return err
	}
	return i.ensureJump(iptables.Nat, iptables.Postrouting, natJump(rs.Bridge))
}

func (i *IptablesInstaller) fillChain(table, chain string, rules [][]string) error {
	if err := i.client.ClearChain(table, chain); err != nil {
		return errors.Wrapf(err, "failed to clear chain %s/%s", table, chain)
	}
	for _, r := range rules {
		if err := i.client.Append(table, chain, r...); err != nil {
			return errors.Wrapf(err, "failed to append %v to %s/%s", r, table, chain)
		}
	}
	return nil
}

func (i *IptablesInstaller) ensureJump(table, chain string, spec []string) error {
	exists, err := i.client.Exists(table, chain, spec...)
	if err != nil {
		return errors.Wrapf(err, "failed to check jump in %s/%s", table, chain)
	}
	if exists {
		return nil
	}
	return errors.Wrapf(i.client.Insert(table, chain, 1, spec...), "failed to insert jump in %s/%s", table, chain)
}

// Remove deletes the jumps and chains of the bridge. The FORWARD policy is left as is.
func (i *IptablesInstaller) Remove(rs Ruleset) error {
	i.logger.Info("Removing ruleset", zap.String("bridge", rs.Bridge))

	if err := i.client.DeleteIfExists(iptables.Filter, iptables.Forward, forwardJump(rs.Bridge)...); err != nil {
		return errors.Wrap(err, "failed to delete FORWARD jump")
	}
	if err := i.client.DeleteIfExists(iptables.Nat, iptables.Postrouting, natJump(rs.Bridge)...); err != nil {
		return errors.Wrap(err, "failed to delete POSTROUTING jump")
	}
	if err := i.client.ClearAndDeleteChain(iptables.Filter, forwardChain(rs.Bridge)); err != nil {
		return errors.Wrapf(err, "failed to delete chain %s", forwardChain(rs.Bridge))
	}
	return errors.Wrapf(i.client.ClearAndDeleteChain(iptables.Nat, natChain(rs.Bridge)), "failed to delete chain %s", natChain(rs.Bridge))
}

func (i *IptablesInstaller) InstalledVersion(bridge string) (int, error) {
	exists, err := i.client.ChainExists(iptables.Filter, forwardChain(bridge))
	if err != nil || !exists {
		return 0, errors.Wrapf(err, "failed to look up chain %s", forwardChain(bridge))
	}
	rules, err := i.client.List(iptables.Filter, forwardChain(bridge))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to list chain %s", forwardChain(bridge))
	}
	for _, r := range rules {
		if v, ok := parseVersion(bridge, r); ok {
			return v, nil
		}
	}
	return 0, nil
}
