package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/cort-runtime/cortnet/configuration"
	"github.com/cort-runtime/cortnet/network"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeManager struct {
	calls  []string
	err    error
	status *network.Status
	extIf  string
}

func (f *fakeManager) record(call string, args ...string) error {
	f.calls = append(f.calls, call+"("+strings.Join(args, ",")+")")
	return f.err
}

func (f *fakeManager) CreateBridge(extIf, bridgeAddr, bridgeName string) error {
	return f.record("CreateBridge", extIf, bridgeAddr, bridgeName)
}

func (f *fakeManager) EnsureBridge(extIf, bridgeAddr, bridgeName string) error {
	return f.record("EnsureBridge", extIf, bridgeAddr, bridgeName)
}

func (f *fakeManager) ApplyBridgeFirewall(extIf, bridgeAddr, bridgeName string) error {
	return f.record("ApplyBridgeFirewall", extIf, bridgeAddr, bridgeName)
}

func (f *fakeManager) CreateNetworkNamespace(bridge, bridgeAddr, ns, nsAddr string) error {
	return f.record("CreateNetworkNamespace", bridge, bridgeAddr, ns, nsAddr)
}

func (f *fakeManager) SetupNetworkNamespace(bridge, bridgeAddr, ns, nsAddr string) error {
	return f.record("SetupNetworkNamespace", bridge, bridgeAddr, ns, nsAddr)
}

func (f *fakeManager) DestroyNetworkNamespace(ns string) error {
	return f.record("DestroyNetworkNamespace", ns)
}

func (f *fakeManager) CreateNamedNamespace(pid int, ns string) error {
	return f.record("CreateNamedNamespace", strconv.Itoa(pid), ns)
}

func (f *fakeManager) DestroyNamedNamespace(ns string) error {
	return f.record("DestroyNamedNamespace", ns)
}

func (f *fakeManager) DestroyBridge(bridge string) error {
	return f.record("DestroyBridge", bridge)
}

func (f *fakeManager) DestroyBridgeAndHostLink(bridge, hostIf, ns string) error {
	return f.record("DestroyBridgeAndHostLink", bridge, hostIf, ns)
}

func (f *fakeManager) Status() (*network.Status, error) {
	return f.status, f.record("Status")
}

func (f *fakeManager) DetectExternalInterface() (string, error) {
	return f.extIf, f.record("DetectExternalInterface")
}

type fakeExporter struct {
	image, dest string
}

func (f *fakeExporter) Export(_ context.Context, image, destDir string) (string, error) {
	f.image, f.dest = image, destDir
	return destDir + "/rootfs", nil
}

type harness struct {
	manager  *fakeManager
	exporter *fakeExporter
	built    int
	cfg      *configuration.Config
	stderr   *bytes.Buffer
}

func (h *harness) run(args ...string) (string, error) {
	cmd := newRootCmd(func(_ context.Context, cfg *configuration.Config) (*deps, error) {
		h.built++
		h.cfg = cfg
		return &deps{manager: h.manager, exporter: h.exporter, logger: zap.NewNop()}, nil
	})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	h.stderr = &bytes.Buffer{}
	cmd.SetErr(h.stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func newHarness() *harness {
	return &harness{manager: &fakeManager{}, exporter: &fakeExporter{}}
}

func TestCommandsDispatch(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"create bridge", []string{"create-bridge", "enp3s0", "10.10.10.40/24", "cort0"}, "CreateBridge(enp3s0,10.10.10.40/24,cort0)"},
		{"create bridge alias", []string{"create_bridge", "enp3s0", "10.10.10.40/24", "cort0"}, "CreateBridge(enp3s0,10.10.10.40/24,cort0)"},
		{"ensure bridge", []string{"create-bridge", "--if-not-exists", "enp3s0", "10.10.10.40/24", "cort0"}, "EnsureBridge(enp3s0,10.10.10.40/24,cort0)"},
		{"apply firewall", []string{"apply-firewall", "enp3s0", "10.10.10.40/24", "cort0"}, "ApplyBridgeFirewall(enp3s0,10.10.10.40/24,cort0)"},
		{"create namespace", []string{"create-network-namespace", "cort0", "10.10.10.40/24", "ns1", "10.10.10.10/24"}, "CreateNetworkNamespace(cort0,10.10.10.40/24,ns1,10.10.10.10/24)"},
		{"setup namespace", []string{"setup_network_namespace", "cort0", "10.10.10.40/24", "ns1", "10.10.10.10/24"}, "SetupNetworkNamespace(cort0,10.10.10.40/24,ns1,10.10.10.10/24)"},
		{"destroy namespace", []string{"destroy-network-namespace", "ns1"}, "DestroyNetworkNamespace(ns1)"},
		{"create named namespace", []string{"create-named-namespace", "4242", "ns1"}, "CreateNamedNamespace(4242,ns1)"},
		{"destroy named namespace", []string{"destroy-named-namespace", "ns1"}, "DestroyNamedNamespace(ns1)"},
		{"destroy bridge", []string{"destroy-bridge", "cort0"}, "DestroyBridge(cort0)"},
		{"destroy bridge and host link", []string{"destroy-bridge-and-host-link", "cort0", "ns1-host", "ns1"}, "DestroyBridgeAndHostLink(cort0,ns1-host,ns1)"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			_, err := h.run(tt.args...)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, h.manager.calls)
		})
	}
}

func TestCommandsRejectWrongArgumentCount(t *testing.T) {
	for _, args := range [][]string{
		{"create-bridge", "enp3s0", "10.10.10.40/24"},
		{"create-network-namespace", "cort0", "10.10.10.40/24", "ns1"},
		{"destroy-network-namespace"},
		{"destroy-bridge-and-host-link", "cort0", "ns1-host"},
		{"detect-interface", "extra"},
		{"export-image", "alpine"},
	} {
		h := newHarness()
		_, err := h.run(args...)
		require.Error(t, err, args)
		assert.Zero(t, h.built, "dependencies built for %v", args)
		assert.Empty(t, h.manager.calls)
	}
}

func TestCreateNamedNamespaceRejectsBadPID(t *testing.T) {
	for _, pid := range []string{"abc", "0", "-3"} {
		h := newHarness()
		_, err := h.run("create-named-namespace", pid, "ns1")
		require.ErrorIs(t, err, network.ErrInvalidArgument)
		assert.Zero(t, h.built)
	}
}

func TestCommandReturnsManagerError(t *testing.T) {
	h := newHarness()
	h.manager.err = errors.Wrap(network.ErrDependencyOrder, "namespaces still attached")
	_, err := h.run("destroy-bridge", "cort0")
	require.ErrorIs(t, err, network.ErrDependencyOrder)
}

func TestErrorIsLeftToCaller(t *testing.T) {
	h := newHarness()
	h.manager.err = errors.Wrap(network.ErrResourceNotFound, "bridge cort0")
	_, err := h.run("destroy-bridge", "cort0")
	require.Error(t, err)
	assert.NotContains(t, h.stderr.String(), "Error:")

	_, err = h.run("destroy-bridge")
	require.Error(t, err)
	assert.Empty(t, h.stderr.String())
}

func TestDetectInterfacePrintsName(t *testing.T) {
	h := newHarness()
	h.manager.extIf = "enp3s0"
	out, err := h.run("detect-interface")
	require.NoError(t, err)
	assert.Equal(t, "enp3s0\n", out)
}

func TestStatusPrintsJSON(t *testing.T) {
	h := newHarness()
	h.manager.status = &network.Status{
		Bridges: []network.BridgeStatus{{
			BridgeRecord: network.BridgeRecord{Name: "cort0", Address: "10.10.10.40/24"},
			Present:      true,
		}},
	}
	out, err := h.run("status")
	require.NoError(t, err)

	var got network.Status
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Bridges, 1)
	assert.Equal(t, "cort0", got.Bridges[0].Name)
	assert.True(t, got.Bridges[0].Present)
}

func TestExportImage(t *testing.T) {
	h := newHarness()
	out, err := h.run("export-image", "alpine:3.19", "/tmp/ctr")
	require.NoError(t, err)
	assert.Equal(t, "alpine:3.19", h.exporter.image)
	assert.Equal(t, "/tmp/ctr", h.exporter.dest)
	assert.Equal(t, "/tmp/ctr/rootfs\n", out)
}

func TestFlagsReachConfiguration(t *testing.T) {
	h := newHarness()
	_, err := h.run("--firewall-backend", "nftables", "--state-path", "/tmp/state.json", "destroy-bridge", "cort0")
	require.NoError(t, err)
	require.NotNil(t, h.cfg)
	assert.Equal(t, configuration.FirewallNftables, h.cfg.FirewallBackend)
	assert.Equal(t, "/tmp/state.json", h.cfg.StatePath)
}
