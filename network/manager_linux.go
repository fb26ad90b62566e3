// Copyright 2017 Microsoft. All rights reserved.
// MIT License

package network

import (
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/cort-runtime/cortnet/firewall"
	"github.com/cort-runtime/cortnet/netio"
	"github.com/cort-runtime/cortnet/netlink"
	"github.com/cort-runtime/cortnet/network/networkutils"
	"github.com/cort-runtime/cortnet/platform"
	"github.com/cort-runtime/cortnet/store"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// Network store key.
	storeKey = "Network"

	defaultProbeAddress = "8.8.8.8"
)

// ManagerOptions tunes the Manager. Zero values select defaults.
type ManagerOptions struct {
	LockTimeout         time.Duration
	ProbeAddress        string
	MoveConfirmAttempts uint
	MoveConfirmDelay    time.Duration
}

// Manager runs the provisioning and teardown workflows. Every workflow holds the store lock,
// so operations are serialized across processes on the host.
type Manager struct {
	store      store.KeyValueStore
	netlink    netlink.NetlinkInterface
	netio      netio.NetIOInterface
	plClient   platform.ExecClient
	namespaces *NamespaceManager
	bridges    *BridgeManager
	veths      *VethProvisioner
	configurer *Configurator
	teardown   *Teardown
	opts       ManagerOptions
	logger     *zap.Logger
}

// NewManager wires the workflow components together.
func NewManager(kvs store.KeyValueStore, nl netlink.NetlinkInterface, netnsClient NetnsClient, nsc NamespaceClientInterface,
	nio netio.NetIOInterface, plc platform.ExecClient, fw firewall.Installer, fsys afero.Fs, opts ManagerOptions, logger *zap.Logger,
) *Manager {
	if opts.LockTimeout == 0 {
		opts.LockTimeout = store.DefaultLockTimeout
	}
	if opts.ProbeAddress == "" {
		opts.ProbeAddress = defaultProbeAddress
	}

	nu := networkutils.NewNetworkUtils(nl, fsys, logger)
	nm := NewNamespaceManager(netnsClient, logger)
	bm := NewBridgeManager(nl, nu, fw, logger)
	return &Manager{
		store:      kvs,
		netlink:    nl,
		netio:      nio,
		plClient:   plc,
		namespaces: nm,
		bridges:    bm,
		veths:      NewVethProvisioner(nl, nu, nsc, nm, opts.MoveConfirmAttempts, opts.MoveConfirmDelay, logger),
		configurer: NewConfigurator(nl, nu, nio, nsc, nm, logger),
		teardown:   NewTeardown(nl, nm, bm, logger),
		opts:       opts,
		logger:     logger,
	}
}

// restore reads the persisted state. State written before the last reboot describes resources
// that no longer exist and is discarded.
func (m *Manager) restore() (*State, error) {
	if !m.store.Exists() {
		m.logger.Debug("network store not found")
		return newState(), nil
	}

	s := newState()
	err := m.store.Read(storeKey, s)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) || errors.Is(err, store.ErrStoreEmpty) {
			m.logger.Debug("network store empty")
			return newState(), nil
		}
		m.logger.Error("Failed to restore state", zap.Error(err))
		return nil, errors.Wrap(err, "failed to restore state")
	}
	s.ensureMaps()

	modTime, err := m.store.GetModificationTime()
	if err != nil {
		return s, nil
	}
	rebootTime, err := m.plClient.GetLastRebootTime()
	if err == nil && rebootTime.After(modTime) {
		m.logger.Info("Detected reboot, discarding state", zap.Time("rebootTime", rebootTime), zap.Time("modTime", modTime))
		m.store.Remove()
		return newState(), nil
	}
	return s, nil
}

// withState runs fn under the store lock and persists the state if fn succeeds.
func (m *Manager) withState(op string, fn func(s *State) error) error {
	return m.locked(op, true, fn)
}

func (m *Manager) readState(op string, fn func(s *State) error) error {
	return m.locked(op, false, fn)
}

func (m *Manager) locked(op string, persist bool, fn func(s *State) error) error {
	if err := m.store.Lock(m.opts.LockTimeout); err != nil {
		return newOperationError(op, err)
	}
	defer func() {
		if err := m.store.Unlock(); err != nil {
			m.logger.Error("Failed to unlock store", zap.Error(err))
		}
	}()

	s, err := m.restore()
	if err != nil {
		return newOperationError(op, err)
	}

	if err := fn(s); err != nil {
		m.logger.Error("Operation failed", zap.String("op", op), zap.Error(err))
		return newOperationError(op, err)
	}
	if !persist {
		return nil
	}
	if err := m.store.Write(storeKey, s); err != nil {
		return newOperationError(op, errors.Wrap(err, "failed to save state"))
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// bridgeArgs validates the arguments shared by the bridge workflows.
func (m *Manager) bridgeArgs(extIf, bridgeAddr, bridgeName string) (firewall.Ruleset, error) {
	if err := ValidateInterfaceName(extIf); err != nil {
		return firewall.Ruleset{}, err
	}
	if err := ValidateInterfaceName(bridgeName); err != nil {
		return firewall.Ruleset{}, err
	}
	addr, err := ParseCIDRAddress(bridgeAddr)
	if err != nil {
		return firewall.Ruleset{}, err
	}
	return firewall.Ruleset{Bridge: bridgeName, BridgeAddress: addr, ExternalInterface: extIf}, nil
}

func rulesetOf(rec *BridgeRecord) (firewall.Ruleset, error) {
	addr, err := ParseCIDRAddress(rec.Address)
	if err != nil {
		return firewall.Ruleset{}, err
	}
	return firewall.Ruleset{
		Version:           rec.FirewallVersion,
		Bridge:            rec.Name,
		BridgeAddress:     addr,
		ExternalInterface: rec.ExternalInterface,
	}, nil
}

// CreateBridge creates bridgeName with bridgeAddr and routes its subnet out of extIf.
// It fails with ErrResourceExists if the bridge already exists; the installed rules are left as they are.
func (m *Manager) CreateBridge(extIf, bridgeAddr, bridgeName string) error {
	rs, err := m.bridgeArgs(extIf, bridgeAddr, bridgeName)
	if err != nil {
		return newOperationError("create bridge", err)
	}
	return m.withState("create bridge "+bridgeName, func(s *State) error {
		return m.createBridge(s, rs)
	})
}

func (m *Manager) createBridge(s *State, rs firewall.Ruleset) (err error) {
	if err := s.requireBridge(rs.Bridge, ErrResourceExists, BridgeAbsent); err != nil {
		return err
	}
	if _, err := m.netio.GetNetworkInterfaceByName(rs.ExternalInterface); err != nil {
		return withKind("look up external interface", ErrResourceNotFound, err)
	}
	if err := m.checkSubnetFree(rs); err != nil {
		return err
	}

	installed, err := m.bridges.InstalledVersion(rs.Bridge)
	if err != nil {
		return err
	}
	rs.Version = installed + 1

	rb := newRollback(m.logger)
	defer rb.onError(&err)

	if err := m.bridges.Create(rs, rb); err != nil {
		return err
	}

	rec := &BridgeRecord{
		Name:              rs.Bridge,
		Address:           rs.BridgeAddress.String(),
		ExternalInterface: rs.ExternalInterface,
		FirewallVersion:   rs.Version,
		State:             BridgeAbsent,
	}
	if err := rec.transition(BridgeCreated); err != nil {
		return err
	}
	s.Bridges[rec.Name] = rec
	return nil
}

// checkSubnetFree fails when the bridge subnet overlaps an IPv4 network already assigned on the host.
func (m *Manager) checkSubnetFree(rs firewall.Ruleset) error {
	ifaces, err := m.netio.GetNetworkInterfaces()
	if err != nil {
		return newOperationError("list interfaces", err)
	}
	subnet := rs.Subnet()
	for i := range ifaces {
		if ifaces[i].Name == rs.Bridge {
			continue
		}
		addrs, err := netio.IPv4Addrs(m.netio, &ifaces[i])
		if err != nil {
			return newOperationError("list addresses of "+ifaces[i].Name, err)
		}
		for _, a := range addrs {
			if subnet.Contains(a.IP) || a.Contains(subnet.IP) {
				return invalid("bridge subnet %s overlaps %s on %s", subnet, a, ifaces[i].Name)
			}
		}
	}
	return nil
}

// EnsureBridge creates the bridge unless a bridge with that name already exists, in which
// case it is adopted as is.
func (m *Manager) EnsureBridge(extIf, bridgeAddr, bridgeName string) error {
	rs, err := m.bridgeArgs(extIf, bridgeAddr, bridgeName)
	if err != nil {
		return newOperationError("ensure bridge", err)
	}
	return m.withState("ensure bridge "+bridgeName, func(s *State) error {
		exists, err := m.bridges.Exists(bridgeName)
		if err != nil {
			return err
		}
		if !exists {
			delete(s.Bridges, bridgeName)
			return m.createBridge(s, rs)
		}
		if _, ok := s.Bridges[bridgeName]; ok {
			m.logger.Info("Bridge already exists", zap.String("bridge", bridgeName))
			return nil
		}

		version, err := m.bridges.InstalledVersion(bridgeName)
		if err != nil {
			return err
		}
		m.logger.Info("Adopting existing bridge", zap.String("bridge", bridgeName), zap.Int("firewallVersion", version))
		s.Bridges[bridgeName] = &BridgeRecord{
			Name:              bridgeName,
			Address:           rs.BridgeAddress.String(),
			ExternalInterface: extIf,
			FirewallVersion:   version,
			State:             BridgeCreated,
		}
		return nil
	})
}

// ApplyBridgeFirewall reinstalls the ruleset of an existing bridge. The version only moves
// when the interface or address changes, so repeated calls converge on the same rules.
func (m *Manager) ApplyBridgeFirewall(extIf, bridgeAddr, bridgeName string) error {
	rs, err := m.bridgeArgs(extIf, bridgeAddr, bridgeName)
	if err != nil {
		return newOperationError("apply firewall", err)
	}
	return m.withState("apply firewall "+bridgeName, func(s *State) error {
		if err := s.requireBridge(bridgeName, ErrDependencyOrder, BridgeCreated); err != nil {
			return err
		}
		rec := s.Bridges[bridgeName]
		rs.Version = rec.FirewallVersion
		if rs.Version == 0 || rec.ExternalInterface != extIf || rec.Address != rs.BridgeAddress.String() {
			rs.Version++
		}
		if err := m.bridges.ApplyFirewall(rs); err != nil {
			return err
		}
		rec.ExternalInterface = extIf
		rec.Address = rs.BridgeAddress.String()
		rec.FirewallVersion = rs.Version
		return nil
	})
}

type attachArgs struct {
	bridge     string
	bridgeAddr *net.IPNet
	gateway    net.IP
	namespace  string
	nsAddr     *net.IPNet
}

func parseAttachArgs(bridge, bridgeAddr, ns, nsAddr string) (*attachArgs, error) {
	if err := ValidateInterfaceName(bridge); err != nil {
		return nil, err
	}
	if err := ValidateNamespaceName(ns); err != nil {
		return nil, err
	}
	brNet, err := ParseCIDRAddress(bridgeAddr)
	if err != nil {
		return nil, err
	}
	gw, err := GatewayFromCIDR(bridgeAddr)
	if err != nil {
		return nil, err
	}
	nsNet, err := ParseCIDRAddress(nsAddr)
	if err != nil {
		return nil, err
	}
	if !SubnetOf(brNet).Contains(nsNet.IP) {
		return nil, invalid("%s is outside the bridge subnet %s", nsAddr, SubnetOf(brNet))
	}
	if nsNet.IP.Equal(brNet.IP) {
		return nil, invalid("%s is the bridge address", nsAddr)
	}
	return &attachArgs{bridge: bridge, bridgeAddr: brNet, gateway: gw, namespace: ns, nsAddr: nsNet}, nil
}

// CreateNetworkNamespace creates ns and connects it to bridge with address nsAddr.
// Everything created is removed again if a later step fails.
func (m *Manager) CreateNetworkNamespace(bridge, bridgeAddr, ns, nsAddr string) error {
	args, err := parseAttachArgs(bridge, bridgeAddr, ns, nsAddr)
	if err != nil {
		return newOperationError("create network namespace", err)
	}
	return m.withState("create network namespace "+ns, func(s *State) (err error) {
		if err := m.checkAttach(s, args); err != nil {
			return err
		}
		if err := s.requireNamespace(ns, ErrResourceExists, NamespaceAbsent); err != nil {
			return err
		}

		rb := newRollback(m.logger)
		defer rb.onError(&err)

		if err := m.namespaces.Create(ns); err != nil {
			return err
		}
		rb.Push("delete namespace "+ns, func() error {
			return m.namespaces.Destroy(ns)
		})

		nsRec := &NamespaceRecord{Name: ns, State: NamespaceAbsent}
		if err := nsRec.transition(NamespaceCreated); err != nil {
			return err
		}
		return m.attachAndConfigure(s, nsRec, args, rb)
	})
}

// SetupNetworkNamespace connects an existing namespace, either bound with CreateNamedNamespace
// or created by other tooling under the namespace directory, to bridge.
func (m *Manager) SetupNetworkNamespace(bridge, bridgeAddr, ns, nsAddr string) error {
	args, err := parseAttachArgs(bridge, bridgeAddr, ns, nsAddr)
	if err != nil {
		return newOperationError("setup network namespace", err)
	}
	return m.withState("setup network namespace "+ns, func(s *State) (err error) {
		if err := m.checkAttach(s, args); err != nil {
			return err
		}

		nsRec, ok := s.Namespaces[ns]
		if !ok {
			exists, err := m.namespaces.Exists(ns)
			if err != nil {
				return err
			}
			if !exists {
				return &PreconditionError{Resource: "namespace", Name: ns, State: string(NamespaceAbsent),
					Want: []string{string(NamespaceCreated)}, Kind: ErrResourceNotFound}
			}
			m.logger.Info("Adopting existing namespace", zap.String("namespace", ns))
			nsRec = &NamespaceRecord{Name: ns, Named: true, State: NamespaceCreated}
		}
		if err := s.requireNamespace(ns, ErrDependencyOrder, NamespaceCreated, NamespaceAbsent); err != nil {
			return err
		}

		rb := newRollback(m.logger)
		defer rb.onError(&err)
		return m.attachAndConfigure(s, nsRec, args, rb)
	})
}

// checkAttach verifies the bridge is ready and the veth names are free.
func (m *Manager) checkAttach(s *State, args *attachArgs) error {
	if err := s.requireBridge(args.bridge, ErrDependencyOrder, BridgeCreated); err != nil {
		return err
	}
	if rec := s.Bridges[args.bridge]; rec.Address != args.bridgeAddr.String() {
		return invalid("bridge %s has address %s, not %s", args.bridge, rec.Address, args.bridgeAddr)
	}
	if err := s.requireVeth(args.namespace, ErrResourceExists, VethAbsent); err != nil {
		return err
	}
	return nil
}

func (m *Manager) attachAndConfigure(s *State, nsRec *NamespaceRecord, args *attachArgs, rb *rollback) error {
	host, peer := VethNames(args.namespace)
	veth := &VethRecord{
		Name:       args.namespace,
		HostIfName: host,
		NsIfName:   peer,
		Bridge:     args.bridge,
		Namespace:  args.namespace,
		State:      VethAbsent,
	}
	if err := m.veths.Attach(veth, rb); err != nil {
		return err
	}

	if err := requireVethState(veth, VethMoved); err != nil {
		return err
	}
	if err := m.configurer.Configure(args.namespace, peer, args.nsAddr, args.gateway); err != nil {
		return err
	}
	if err := nsRec.transition(NamespaceConfigured); err != nil {
		return err
	}
	nsRec.Address = args.nsAddr.String()
	nsRec.Bridge = args.bridge

	s.Namespaces[nsRec.Name] = nsRec
	s.Veths[veth.Name] = veth
	return nil
}

// DestroyNetworkNamespace deletes the host veth end of ns and the namespace.
func (m *Manager) DestroyNetworkNamespace(ns string) error {
	if err := ValidateNamespaceName(ns); err != nil {
		return newOperationError("destroy network namespace", err)
	}
	return m.withState("destroy network namespace "+ns, func(s *State) error {
		named := false
		if rec, ok := s.Namespaces[ns]; ok {
			named = rec.Named
		}
		if err := m.teardown.DestroyNamespaceAndLink(ns, named); err != nil {
			return err
		}
		s.forgetNamespace(ns)
		return nil
	})
}

// CreateNamedNamespace binds the network namespace of pid under ns.
func (m *Manager) CreateNamedNamespace(pid int, ns string) error {
	if pid <= 0 {
		return newOperationError("create named namespace", invalid("pid %d", pid))
	}
	if err := ValidateNamespaceName(ns); err != nil {
		return newOperationError("create named namespace", err)
	}
	return m.withState("create named namespace "+ns, func(s *State) error {
		if err := s.requireNamespace(ns, ErrResourceExists, NamespaceAbsent); err != nil {
			return err
		}
		if err := m.namespaces.CreateNamed(pid, ns); err != nil {
			return err
		}
		rec := &NamespaceRecord{Name: ns, Named: true, PID: pid, State: NamespaceAbsent}
		if err := rec.transition(NamespaceCreated); err != nil {
			return err
		}
		s.Namespaces[ns] = rec
		return nil
	})
}

// DestroyNamedNamespace removes the handle of ns along with the host veth end, if any.
// The namespace itself lives on as long as its process does.
func (m *Manager) DestroyNamedNamespace(ns string) error {
	if err := ValidateNamespaceName(ns); err != nil {
		return newOperationError("destroy named namespace", err)
	}
	return m.withState("destroy named namespace "+ns, func(s *State) error {
		if err := m.teardown.DestroyNamespaceAndLink(ns, true); err != nil {
			return err
		}
		s.forgetNamespace(ns)
		return nil
	})
}

// DestroyBridge removes the bridge and its ruleset. Every namespace attached to it must be
// torn down first.
func (m *Manager) DestroyBridge(bridge string) error {
	if err := ValidateInterfaceName(bridge); err != nil {
		return newOperationError("destroy bridge", err)
	}
	return m.withState("destroy bridge "+bridge, func(s *State) error {
		if err := s.requireBridge(bridge, ErrResourceNotFound, BridgeCreated); err != nil {
			return err
		}
		if err := m.pruneVeths(s, bridge); err != nil {
			return err
		}
		if attached := s.vethsOnBridge(bridge); len(attached) > 0 {
			return &PreconditionError{Resource: "bridge", Name: bridge, State: strconv.Itoa(len(attached)) + " namespaces attached",
				Want: []string{"no namespaces attached"}, Kind: ErrDependencyOrder}
		}

		rec := s.Bridges[bridge]
		rs, err := rulesetOf(rec)
		if err != nil {
			return err
		}
		if err := m.teardown.DestroyBridge(rs); err != nil {
			return err
		}
		return s.forgetBridge(rec)
	})
}

// DestroyBridgeAndHostLink tears down the last namespace attached to bridge and then the bridge.
func (m *Manager) DestroyBridgeAndHostLink(bridge, hostIf, ns string) error {
	if err := ValidateInterfaceName(bridge); err != nil {
		return newOperationError("destroy bridge and host link", err)
	}
	if err := ValidateInterfaceName(hostIf); err != nil {
		return newOperationError("destroy bridge and host link", err)
	}
	if err := ValidateNamespaceName(ns); err != nil {
		return newOperationError("destroy bridge and host link", err)
	}
	if want, _ := VethNames(ns); hostIf != want {
		return newOperationError("destroy bridge and host link",
			invalid("host link %s does not belong to namespace %s, want %s", hostIf, ns, want))
	}
	return m.withState("destroy bridge and host link "+bridge, func(s *State) error {
		if err := s.requireBridge(bridge, ErrResourceNotFound, BridgeCreated); err != nil {
			return err
		}
		if err := m.pruneVeths(s, bridge); err != nil {
			return err
		}
		for _, v := range s.vethsOnBridge(bridge) {
			if v.HostIfName != hostIf {
				return &PreconditionError{Resource: "bridge", Name: bridge, State: "attached to " + v.Namespace,
					Want: []string{"attached to " + ns + " only"}, Kind: ErrDependencyOrder}
			}
		}

		named := false
		if rec, ok := s.Namespaces[ns]; ok {
			named = rec.Named
		}
		rec := s.Bridges[bridge]
		rs, err := rulesetOf(rec)
		if err != nil {
			return err
		}
		if err := m.teardown.DestroyBridgeAndHostLink(rs, hostIf, ns, named); err != nil {
			return err
		}
		s.forgetNamespace(ns)
		return s.forgetBridge(rec)
	})
}

// pruneVeths drops records of pairs on bridge whose host end has disappeared, for example
// because the namespace holding the other end was deleted by other tooling.
func (m *Manager) pruneVeths(s *State, bridge string) error {
	for _, v := range s.vethsOnBridge(bridge) {
		ok, err := m.netlink.LinkExists(v.HostIfName)
		if err != nil {
			return newOperationError("look up link "+v.HostIfName, err)
		}
		if ok {
			continue
		}
		m.logger.Info("Dropping stale veth record", zap.String("hostIfName", v.HostIfName))
		delete(s.Veths, v.Name)
		if nsRec, ok := s.Namespaces[v.Namespace]; ok {
			nsRec.State = NamespaceCreated
			nsRec.Bridge = ""
			nsRec.Address = ""
		}
	}
	return nil
}

// BridgeStatus compares the recorded bridge with what the host reports.
type BridgeStatus struct {
	BridgeRecord
	Present          bool     `json:"present"`
	Ports            []string `json:"ports,omitempty"`
	InstalledVersion int      `json:"installedVersion"`
}

// NamespaceStatus compares the recorded namespace and its veth pair with what the host reports.
type NamespaceStatus struct {
	NamespaceRecord
	HandlePresent   bool        `json:"handlePresent"`
	Veth            *VethRecord `json:"veth,omitempty"`
	HostLinkPresent bool        `json:"hostLinkPresent"`
	DefaultGateway  string      `json:"defaultGateway,omitempty"`
}

type Status struct {
	Bridges    []BridgeStatus    `json:"bridges"`
	Namespaces []NamespaceStatus `json:"namespaces"`
}

// Status reports every recorded resource and whether it is still present on the host.
func (m *Manager) Status() (*Status, error) {
	st := &Status{}
	err := m.readState("status", func(s *State) error {
		for _, rec := range s.Bridges {
			bs := BridgeStatus{BridgeRecord: *rec}
			exists, err := m.bridges.Exists(rec.Name)
			if err != nil {
				return err
			}
			bs.Present = exists
			if exists {
				if bs.Ports, err = m.bridges.Ports(rec.Name); err != nil {
					return err
				}
			}
			if bs.InstalledVersion, err = m.bridges.InstalledVersion(rec.Name); err != nil {
				return err
			}
			st.Bridges = append(st.Bridges, bs)
		}

		for _, rec := range s.Namespaces {
			ns := NamespaceStatus{NamespaceRecord: *rec}
			ok, err := m.namespaces.Exists(rec.Name)
			if err != nil {
				return err
			}
			ns.HandlePresent = ok
			if v, ok := s.Veths[rec.Name]; ok {
				veth := *v
				ns.Veth = &veth
				if ns.HostLinkPresent, err = m.netlink.LinkExists(v.HostIfName); err != nil {
					return newOperationError("look up link "+v.HostIfName, err)
				}
				if ns.HandlePresent && v.State == VethMoved {
					gw, err := m.configurer.DefaultGateway(rec.Name, v.NsIfName)
					switch {
					case err != nil:
						m.logger.Warn("Failed to read default route", zap.String("namespace", rec.Name), zap.Error(err))
					case gw != nil:
						ns.DefaultGateway = gw.String()
					}
				}
			}
			st.Namespaces = append(st.Namespaces, ns)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(st.Bridges, func(i, j int) bool { return st.Bridges[i].Name < st.Bridges[j].Name })
	sort.Slice(st.Namespaces, func(i, j int) bool { return st.Namespaces[i].Name < st.Namespaces[j].Name })
	return st, nil
}

// DetectExternalInterface returns the link the host uses to reach the probe address.
func (m *Manager) DetectExternalInterface() (string, error) {
	probe := net.ParseIP(m.opts.ProbeAddress)
	if probe == nil || probe.To4() == nil {
		return "", newOperationError("detect external interface", invalid("probe address %q", m.opts.ProbeAddress))
	}
	ifName, err := m.netlink.GetRouteInterface(probe)
	if err != nil {
		return "", newOperationError("detect external interface", err)
	}
	m.logger.Info("Detected external interface", zap.String("ifName", ifName), zap.String("probe", probe.String()))
	return ifName, nil
}
