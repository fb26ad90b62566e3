package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVethTransitions(t *testing.T) {
	v := &VethRecord{Name: "ns1", State: VethAbsent}

	require.NoError(t, v.transition(VethCreated))
	// moving before attaching to the bridge is rejected
	var preErr *PreconditionError
	require.ErrorAs(t, v.transition(VethMoved), &preErr)
	assert.ErrorIs(t, preErr, ErrDependencyOrder)
	assert.Equal(t, "created", preErr.State)

	require.NoError(t, v.transition(VethAttached))
	require.NoError(t, v.transition(VethMoved))
	require.Error(t, v.transition(VethCreated))
	require.NoError(t, v.transition(VethAbsent))
}

func TestNamespaceTransitions(t *testing.T) {
	n := &NamespaceRecord{Name: "ns1", State: NamespaceAbsent}
	require.Error(t, n.transition(NamespaceConfigured))
	require.NoError(t, n.transition(NamespaceCreated))
	require.NoError(t, n.transition(NamespaceConfigured))
	require.NoError(t, n.transition(NamespaceAbsent))
}

func TestBridgeTransitions(t *testing.T) {
	b := &BridgeRecord{Name: "cort0", State: BridgeAbsent}
	require.NoError(t, b.transition(BridgeCreated))
	require.Error(t, b.transition(BridgeCreated))
	require.NoError(t, b.transition(BridgeAbsent))
}

func TestStateGuards(t *testing.T) {
	s := newState()
	s.Bridges["cort0"] = &BridgeRecord{Name: "cort0", State: BridgeCreated}
	s.Namespaces["ns1"] = &NamespaceRecord{Name: "ns1", State: NamespaceCreated}

	require.NoError(t, s.requireBridge("cort0", ErrDependencyOrder, BridgeCreated))
	require.ErrorIs(t, s.requireBridge("cort1", ErrDependencyOrder, BridgeCreated), ErrDependencyOrder)
	require.ErrorIs(t, s.requireBridge("cort0", ErrResourceExists, BridgeAbsent), ErrResourceExists)

	require.NoError(t, s.requireNamespace("ns1", ErrDependencyOrder, NamespaceCreated, NamespaceConfigured))
	require.ErrorIs(t, s.requireVeth("ns1", ErrDependencyOrder, VethMoved), ErrDependencyOrder)
}

func TestVethsOnBridge(t *testing.T) {
	s := newState()
	s.Veths["b"] = &VethRecord{Name: "b", Bridge: "cort0"}
	s.Veths["a"] = &VethRecord{Name: "a", Bridge: "cort0"}
	s.Veths["c"] = &VethRecord{Name: "c", Bridge: "cort1"}

	got := s.vethsOnBridge("cort0")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "b", got[1].Name)
}
