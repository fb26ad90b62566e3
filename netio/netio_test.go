package netio

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPv4AddrsFiltersFamilies(t *testing.T) {
	nio := NewMockNetIO(false, 0)
	nio.SetAddrs("br0", "10.0.0.1/24", "fe80::1/64")

	iface, err := nio.GetNetworkInterfaceByName("br0")
	require.NoError(t, err)

	addrs, err := IPv4Addrs(nio, iface)
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, "10.0.0.1/24", addrs[0].String())
}

func TestIPv4AddrsNilInterface(t *testing.T) {
	_, err := IPv4Addrs(NewMockNetIO(false, 0), nil)
	require.ErrorIs(t, err, ErrInterfaceNil)
}

func TestMockFailAttempt(t *testing.T) {
	nio := NewMockNetIO(true, 2)
	_, err := nio.GetNetworkInterfaceByName("eth0")
	require.NoError(t, err)
	_, err = nio.GetNetworkInterfaceByName("eth0")
	require.ErrorIs(t, err, ErrMockNetIOFail)
}

func TestNetIOLoopback(t *testing.T) {
	nio := &NetIO{}
	ifaces, err := nio.GetNetworkInterfaces()
	require.NoError(t, err)
	for i := range ifaces {
		if ifaces[i].Flags&net.FlagLoopback == 0 {
			continue
		}
		_, err := nio.GetNetworkInterfaceByName(ifaces[i].Name)
		require.NoError(t, err)
	}
}
