//go:build linux
// +build linux

package networkutils

import (
	"fmt"
	"net"
	"strings"

	"github.com/cort-runtime/cortnet/netlink"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	ipForwardFile  = "/proc/sys/net/ipv4/ip_forward"
	acceptRAV6File = "/proc/sys/net/ipv6/conf/%s/accept_ra"
)

var errorNetworkUtils = errors.New("NetworkUtils Error")

func newErrorNetworkUtils(errStr string) error {
	return fmt.Errorf("%w : %s", errorNetworkUtils, errStr)
}

// NetworkUtils groups the link level primitives shared by the bridge and veth workflows.
type NetworkUtils struct {
	netlink netlink.NetlinkInterface
	fs      afero.Fs
	logger  *zap.Logger
}

func NewNetworkUtils(nl netlink.NetlinkInterface, fs afero.Fs, logger *zap.Logger) NetworkUtils {
	return NetworkUtils{
		netlink: nl,
		fs:      fs,
		logger:  logger.With(zap.String("component", "net-utils")),
	}
}

// CreateBridge adds a bridge device. It fails if a link with that name exists.
func (nu NetworkUtils) CreateBridge(bridgeName string) error {
	nu.logger.Info("Creating bridge", zap.String("bridgeName", bridgeName))

	link := netlink.BridgeLink{
		LinkInfo: netlink.LinkInfo{
			Type: netlink.LINK_TYPE_BRIDGE,
			Name: bridgeName,
		},
	}
	if err := nu.netlink.AddLink(&link); err != nil {
		nu.logger.Error("Failed to create bridge", zap.String("bridgeName", bridgeName), zap.Error(err))
		return errors.Wrapf(err, "failed to create bridge %s", bridgeName)
	}
	return nil
}

// CreateEndpoint adds a veth pair. Both ends are left down.
func (nu NetworkUtils) CreateEndpoint(hostVethName, containerVethName string) error {
	nu.logger.Info("Creating veth pair", zap.String("hostVethName", hostVethName), zap.String("containerVethName", containerVethName))

	link := netlink.VEthLink{
		LinkInfo: netlink.LinkInfo{
			Type: netlink.LINK_TYPE_VETH,
			Name: hostVethName,
		},
		PeerName: containerVethName,
	}

	if err := nu.netlink.AddLink(&link); err != nil {
		nu.logger.Error("Failed to create veth pair with", zap.Error(err))
		return errors.Wrapf(err, "failed to create veth pair %s/%s", hostVethName, containerVethName)
	}

	if err := nu.DisableRAForInterface(hostVethName); err != nil {
		return newErrorNetworkUtils(err.Error())
	}
	return nil
}

func (nu NetworkUtils) AssignIPToInterface(interfaceName string, ipAddresses []net.IPNet) error {
	for i, ipAddr := range ipAddresses {
		nu.logger.Info("Adding IP", zap.String("address", ipAddr.String()), zap.String("interfaceName", interfaceName))
		if err := nu.netlink.AddIPAddress(interfaceName, ipAddr.IP, &ipAddresses[i]); err != nil {
			return errors.Wrapf(err, "failed to assign %s to %s", ipAddr.String(), interfaceName)
		}
	}
	return nil
}

// AddDefaultRoute installs 0.0.0.0/0 via gw on the link with index linkIndex.
func (nu NetworkUtils) AddDefaultRoute(gw net.IP, linkIndex int) error {
	_, defaultDst, _ := net.ParseCIDR("0.0.0.0/0")
	nu.logger.Info("Adding default route", zap.String("gateway", gw.String()), zap.Int("linkIndex", linkIndex))
	route := &netlink.Route{
		Dst:       defaultDst,
		Gw:        gw,
		LinkIndex: linkIndex,
	}
	return errors.Wrapf(nu.netlink.AddIPRoute(route), "failed to add default route via %s", gw)
}

// IsIPForwardingEnabled reports whether net.ipv4.ip_forward is set.
func (nu NetworkUtils) IsIPForwardingEnabled() (bool, error) {
	b, err := afero.ReadFile(nu.fs, ipForwardFile)
	if err != nil {
		return false, errors.Wrapf(err, "failed to read %s", ipForwardFile)
	}
	return strings.TrimSpace(string(b)) == "1", nil
}

// EnableIPForwarding sets net.ipv4.ip_forward. The setting is host wide.
func (nu NetworkUtils) EnableIPForwarding() error {
	if enabled, err := nu.IsIPForwardingEnabled(); err == nil && enabled {
		return nil
	}

	nu.logger.Info("Enabling ip forwarding")
	if err := afero.WriteFile(nu.fs, ipForwardFile, []byte("1\n"), 0o644); err != nil { //nolint:gomnd // procfs mode
		nu.logger.Error("Enable ipforwarding failed with", zap.Error(err))
		return errors.Wrapf(err, "failed to write %s", ipForwardFile)
	}
	return nil
}

// DisableRAForInterface stops the interface from accepting IPv6 router advertisements when IPv6 is present.
func (nu NetworkUtils) DisableRAForInterface(ifName string) error {
	raFilePath := fmt.Sprintf(acceptRAV6File, ifName)
	exist, err := afero.Exists(nu.fs, raFilePath)
	if err != nil || !exist {
		nu.logger.Debug("accept_ra file doesn't exist", zap.String("path", raFilePath))
		return nil
	}

	if err := afero.WriteFile(nu.fs, raFilePath, []byte("0\n"), 0o644); err != nil { //nolint:gomnd // procfs mode
		nu.logger.Error("Disabling ra failed with", zap.Error(err))
		return errors.Wrapf(err, "failed to write %s", raFilePath)
	}
	return nil
}
