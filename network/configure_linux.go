package network

import (
	"net"

	"github.com/cort-runtime/cortnet/netio"
	"github.com/cort-runtime/cortnet/netlink"
	"github.com/cort-runtime/cortnet/network/networkutils"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Configurator sets up addressing inside a namespace once its veth end has been moved there.
type Configurator struct {
	netlink    netlink.NetlinkInterface
	netUtils   networkutils.NetworkUtils
	netio      netio.NetIOInterface
	nsClient   NamespaceClientInterface
	namespaces *NamespaceManager
	logger     *zap.Logger
}

func NewConfigurator(nl netlink.NetlinkInterface, nu networkutils.NetworkUtils, nio netio.NetIOInterface,
	nsc NamespaceClientInterface, nm *NamespaceManager, logger *zap.Logger,
) *Configurator {
	return &Configurator{
		netlink:    nl,
		netUtils:   nu,
		netio:      nio,
		nsClient:   nsc,
		namespaces: nm,
		logger:     logger.With(zap.String("component", "configure")),
	}
}

// Configure assigns addr to ifName inside ns, brings ifName and loopback up and installs a
// default route via gw.
func (c *Configurator) Configure(ns, ifName string, addr *net.IPNet, gw net.IP) error {
	c.logger.Info("Configuring namespace", zap.String("namespace", ns), zap.String("ifName", ifName),
		zap.String("address", addr.String()), zap.String("gateway", gw.String()))

	return ExecuteInNS(c.nsClient, c.namespaces.Path(ns), func() error {
		if err := c.netUtils.AssignIPToInterface(ifName, []net.IPNet{*addr}); err != nil {
			return newOperationError("assign address to "+ifName, err)
		}
		if err := c.netlink.SetLinkState(ifName, true); err != nil {
			return newOperationError("set "+ifName+" up", err)
		}
		if err := c.netlink.SetLinkState(loopbackIfName, true); err != nil {
			return newOperationError("set loopback up", err)
		}

		iface, err := c.netio.GetNetworkInterfaceByName(ifName)
		if err != nil {
			return withKind("look up "+ifName, ErrDependencyOrder, errors.Wrapf(err, "%s is not in namespace %s", ifName, ns))
		}
		if err := c.netUtils.AddDefaultRoute(gw, iface.Index); err != nil {
			return newOperationError("add default route", err)
		}
		return nil
	}, c.logger)
}

// DefaultGateway returns the gateway of the default route through ifName inside ns,
// or nil when the namespace has none.
func (c *Configurator) DefaultGateway(ns, ifName string) (net.IP, error) {
	var gw net.IP
	err := ExecuteInNS(c.nsClient, c.namespaces.Path(ns), func() error {
		iface, err := c.netio.GetNetworkInterfaceByName(ifName)
		if err != nil {
			return withKind("look up "+ifName, ErrResourceNotFound, err)
		}
		routes, err := c.netlink.GetIPRoute(&netlink.Route{LinkIndex: iface.Index})
		if err != nil {
			return newOperationError("list routes on "+ifName, err)
		}
		for _, r := range routes {
			if r.LinkIndex == iface.Index && r.Gw != nil && isDefaultDst(r.Dst) {
				gw = r.Gw
				return nil
			}
		}
		return nil
	}, c.logger)
	return gw, err
}

func isDefaultDst(dst *net.IPNet) bool {
	if dst == nil {
		return true
	}
	ones, _ := dst.Mask.Size()
	return ones == 0
}
