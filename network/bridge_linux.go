// Copyright 2017 Microsoft. All rights reserved.
// MIT License

package network

import (
	"net"

	"github.com/cort-runtime/cortnet/firewall"
	"github.com/cort-runtime/cortnet/netlink"
	"github.com/cort-runtime/cortnet/network/networkutils"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// BridgeManager creates the host bridge and owns its firewall ruleset.
type BridgeManager struct {
	netlink  netlink.NetlinkInterface
	netUtils networkutils.NetworkUtils
	firewall firewall.Installer
	logger   *zap.Logger
}

func NewBridgeManager(nl netlink.NetlinkInterface, nu networkutils.NetworkUtils, fw firewall.Installer, logger *zap.Logger) *BridgeManager {
	return &BridgeManager{
		netlink:  nl,
		netUtils: nu,
		firewall: fw,
		logger:   logger.With(zap.String("component", "bridge")),
	}
}

// Create adds the bridge, brings it up, assigns its address, enables forwarding and installs rs.
// Each completed step registers its inverse on rb.
func (bm *BridgeManager) Create(rs firewall.Ruleset, rb *rollback) error {
	name := rs.Bridge
	bm.logger.Info("Creating bridge", zap.String("bridge", name), zap.String("address", rs.BridgeAddress.String()),
		zap.String("externalInterface", rs.ExternalInterface))

	if err := bm.netUtils.CreateBridge(name); err != nil {
		return newOperationError("add bridge link "+name, err)
	}
	rb.Push("delete bridge link "+name, func() error {
		return bm.netlink.DeleteLink(name)
	})

	if err := bm.netlink.SetLinkState(name, true); err != nil {
		return newOperationError("set bridge "+name+" up", err)
	}

	if err := bm.netUtils.AssignIPToInterface(name, []net.IPNet{*rs.BridgeAddress}); err != nil {
		return newOperationError("assign bridge address", err)
	}

	if err := bm.netUtils.EnableIPForwarding(); err != nil {
		return newOperationError("enable ip forwarding", err)
	}

	// a failed Apply can leave some of the bridge's rules behind
	rb.Push("remove firewall ruleset "+rs.Tag(), func() error {
		return bm.firewall.Remove(rs)
	})
	if err := bm.firewall.Apply(rs); err != nil {
		return newOperationError("apply firewall ruleset", err)
	}

	bm.logger.Info("Created bridge", zap.String("bridge", name), zap.Int("firewallVersion", rs.Version))
	return nil
}

// Exists reports whether a bridge called name is present. A non bridge link with that name
// is a conflict.
func (bm *BridgeManager) Exists(name string) (bool, error) {
	ok, err := bm.netlink.LinkExists(name)
	if err != nil {
		return false, newOperationError("look up link "+name, err)
	}
	if !ok {
		return false, nil
	}
	linkType, err := bm.netlink.GetLinkType(name)
	if err != nil {
		return false, newOperationError("look up link "+name, err)
	}
	if linkType != netlink.LINK_TYPE_BRIDGE {
		return false, withKind("look up link "+name, ErrResourceExists, errors.Errorf("link %s is a %s, not a bridge", name, linkType))
	}
	return true, nil
}

// ApplyFirewall reinstalls rs on its own. Repeating it yields the same rules.
func (bm *BridgeManager) ApplyFirewall(rs firewall.Ruleset) error {
	bm.logger.Info("Applying firewall ruleset", zap.String("tag", rs.VersionTag()))
	return newOperationError("apply firewall ruleset", bm.firewall.Apply(rs))
}

// InstalledVersion returns the version of the ruleset currently installed for bridge, or 0.
func (bm *BridgeManager) InstalledVersion(bridge string) (int, error) {
	v, err := bm.firewall.InstalledVersion(bridge)
	return v, newOperationError("read firewall ruleset", err)
}

// Ports lists the links enslaved to the bridge in the host namespace.
func (bm *BridgeManager) Ports(name string) ([]string, error) {
	ports, err := bm.netlink.GetLinkMasterPorts(name)
	if err != nil {
		return nil, newOperationError("list bridge ports "+name, err)
	}
	return ports, nil
}

// Delete removes the ruleset and then the bridge link.
func (bm *BridgeManager) Delete(rs firewall.Ruleset) error {
	bm.logger.Info("Deleting bridge", zap.String("bridge", rs.Bridge))
	if err := bm.firewall.Remove(rs); err != nil {
		return newOperationError("remove firewall ruleset", err)
	}
	if err := bm.netlink.DeleteLink(rs.Bridge); err != nil {
		return newOperationError("delete bridge link "+rs.Bridge, err)
	}
	return nil
}
