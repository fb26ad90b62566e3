//go:build linux
// +build linux

package networkutils

import (
	"net"
	"testing"

	"github.com/cort-runtime/cortnet/netlink"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestUtils(t *testing.T) (NetworkUtils, *netlink.MockNetlink, afero.Fs) {
	t.Helper()
	nl := netlink.NewMockNetlink(false, "")
	fs := afero.NewMemMapFs()
	return NewNetworkUtils(nl, fs, zap.NewNop()), nl, fs
}

func TestEnableIPForwarding(t *testing.T) {
	nu, _, fs := newTestUtils(t)
	require.NoError(t, afero.WriteFile(fs, ipForwardFile, []byte("0\n"), 0o644))

	enabled, err := nu.IsIPForwardingEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, nu.EnableIPForwarding())
	enabled, err = nu.IsIPForwardingEnabled()
	require.NoError(t, err)
	assert.True(t, enabled)

	// second call is a no-op
	require.NoError(t, nu.EnableIPForwarding())
}

func TestCreateEndpointDisablesRA(t *testing.T) {
	nu, nl, fs := newTestUtils(t)
	raFile := "/proc/sys/net/ipv6/conf/ns1-host/accept_ra"
	require.NoError(t, afero.WriteFile(fs, raFile, []byte("1\n"), 0o644))

	require.NoError(t, nu.CreateEndpoint("ns1-host", "ns1-ns"))

	b, err := afero.ReadFile(fs, raFile)
	require.NoError(t, err)
	assert.Equal(t, "0\n", string(b))
	assert.Equal(t, []string{"AddLink:ns1-host"}, nl.Calls())

	exists, err := nl.LinkExists("ns1-ns")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateBridgeTwiceFails(t *testing.T) {
	nu, _, _ := newTestUtils(t)
	require.NoError(t, nu.CreateBridge("cort0"))
	require.ErrorIs(t, nu.CreateBridge("cort0"), netlink.ErrorMockNetlink)
}

func TestAssignIPAndDefaultRoute(t *testing.T) {
	nu, nl, _ := newTestUtils(t)
	nl.SeedLink("ns1-ns", netlink.LINK_TYPE_VETH, "")

	ip, ipNet, err := net.ParseCIDR("10.10.10.10/24")
	require.NoError(t, err)
	require.NoError(t, nu.AssignIPToInterface("ns1-ns", []net.IPNet{{IP: ip, Mask: ipNet.Mask}}))

	addrs, err := nl.GetIPAddresses("ns1-ns")
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, "10.10.10.10/24", addrs[0].String())

	require.NoError(t, nu.AddDefaultRoute(net.ParseIP("10.10.10.40"), 5))
	routes := nl.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, "0.0.0.0/0", routes[0].Dst.String())
	assert.Equal(t, "10.10.10.40", routes[0].Gw.String())
	assert.Equal(t, 5, routes[0].LinkIndex)
}
