package netlink

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockVethPairLifecycle(t *testing.T) {
	nl := NewMockNetlink(false, "")
	require.NoError(t, nl.AddLink(&BridgeLink{LinkInfo: LinkInfo{Type: LINK_TYPE_BRIDGE, Name: "br0"}}))
	require.NoError(t, nl.AddLink(&VEthLink{LinkInfo: LinkInfo{Type: LINK_TYPE_VETH, Name: "ns1-host"}, PeerName: "ns1"}))

	require.NoError(t, nl.SetLinkMaster("ns1-host", "br0"))
	ports, err := nl.GetLinkMasterPorts("br0")
	require.NoError(t, err)
	assert.Equal(t, []string{"ns1-host"}, ports)

	// deleting one end removes the peer and frees the bridge
	require.NoError(t, nl.DeleteLink("ns1-host"))
	exists, err := nl.LinkExists("ns1")
	require.NoError(t, err)
	assert.False(t, exists)

	ports, err = nl.GetLinkMasterPorts("br0")
	require.NoError(t, err)
	assert.Empty(t, ports)
}

func TestMockSetLinkNetNsClearsMaster(t *testing.T) {
	nl := NewMockNetlink(false, "")
	nl.SeedLink("br0", LINK_TYPE_BRIDGE, "")
	nl.SeedLink("ns1", LINK_TYPE_VETH, "br0")

	require.NoError(t, nl.SetLinkNetNs("ns1", 7))
	master, up, fd, ok := nl.LinkState("ns1")
	require.True(t, ok)
	assert.Empty(t, master)
	assert.False(t, up)
	assert.Equal(t, uintptr(7), fd)
}

func TestMockFailOn(t *testing.T) {
	nl := NewMockNetlink(false, "boom")
	nl.SeedLink("eth0", "device", "")
	nl.FailOn("SetLinkState")

	require.ErrorIs(t, nl.SetLinkState("eth0", true), ErrorMockNetlink)
	require.NoError(t, nl.AddIPAddress("eth0", net.ParseIP("10.0.0.2"), &net.IPNet{Mask: net.CIDRMask(24, 32)}))
	assert.Equal(t, []string{"SetLinkState:eth0", "AddIPAddress:eth0"}, nl.Calls())
}

func TestMockUnknownLink(t *testing.T) {
	nl := NewMockNetlink(false, "")
	require.ErrorIs(t, nl.DeleteLink("nope"), ErrLinkNotFound)
}
