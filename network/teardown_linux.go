package network

import (
	"github.com/cort-runtime/cortnet/firewall"
	"github.com/cort-runtime/cortnet/netlink"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Teardown removes what the bridge, veth and namespace workflows created.
type Teardown struct {
	netlink    netlink.NetlinkInterface
	namespaces *NamespaceManager
	bridges    *BridgeManager
	logger     *zap.Logger
}

func NewTeardown(nl netlink.NetlinkInterface, nm *NamespaceManager, bm *BridgeManager, logger *zap.Logger) *Teardown {
	return &Teardown{
		netlink:    nl,
		namespaces: nm,
		bridges:    bm,
		logger:     logger.With(zap.String("component", "teardown")),
	}
}

// deleteHostLink removes the host end of the pair for ns. The pair may already be gone.
func (t *Teardown) deleteHostLink(hostIf string) error {
	err := t.netlink.DeleteLink(hostIf)
	if IsNotFound(err) {
		t.logger.Info("Host link already absent", zap.String("hostIfName", hostIf))
		return nil
	}
	return newOperationError("delete host link "+hostIf, err)
}

func (t *Teardown) destroyNamespace(ns string, named bool) error {
	if named {
		return t.namespaces.DestroyNamed(ns)
	}
	return t.namespaces.Destroy(ns)
}

// DestroyNamespaceAndLink deletes the host veth end of ns and then the namespace itself.
// A missing namespace is reported.
func (t *Teardown) DestroyNamespaceAndLink(ns string, named bool) error {
	hostIf, _ := VethNames(ns)
	t.logger.Info("Destroying namespace and link", zap.String("namespace", ns), zap.String("hostIfName", hostIf))

	if err := t.deleteHostLink(hostIf); err != nil {
		return err
	}
	return t.destroyNamespace(ns, named)
}

// DestroyBridgeAndHostLink tears down the last namespace on the bridge and then the bridge.
// hostIf must be the only port left on the bridge.
func (t *Teardown) DestroyBridgeAndHostLink(rs firewall.Ruleset, hostIf, ns string, named bool) error {
	ports, err := t.bridges.Ports(rs.Bridge)
	if err != nil {
		return err
	}
	for _, p := range ports {
		if p != hostIf {
			return withKind("destroy bridge "+rs.Bridge, ErrDependencyOrder,
				errors.Errorf("bridge %s still has port %s", rs.Bridge, p))
		}
	}

	master, err := t.netlink.GetLinkMaster(hostIf)
	if err != nil && !IsNotFound(err) {
		return newOperationError("look up master of "+hostIf, err)
	}
	if err == nil && master != "" && master != rs.Bridge {
		return withKind("destroy bridge "+rs.Bridge, ErrDependencyOrder,
			errors.Errorf("%s is attached to %s, not %s", hostIf, master, rs.Bridge))
	}

	if err := t.deleteHostLink(hostIf); err != nil {
		return err
	}
	if err := t.destroyNamespace(ns, named); err != nil && !IsNotFound(err) {
		return err
	}
	return t.bridges.Delete(rs)
}

// DestroyBridge removes the ruleset and the bridge. The bridge must have no ports.
func (t *Teardown) DestroyBridge(rs firewall.Ruleset) error {
	ports, err := t.bridges.Ports(rs.Bridge)
	if err != nil {
		return err
	}
	if len(ports) > 0 {
		return withKind("destroy bridge "+rs.Bridge, ErrDependencyOrder,
			errors.Errorf("bridge %s still has ports %v", rs.Bridge, ports))
	}
	return t.bridges.Delete(rs)
}
