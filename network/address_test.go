package network

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCIDRAddress(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "host address kept", in: "10.10.10.40/24", want: "10.10.10.40/24"},
		{name: "network address", in: "192.168.0.0/16", want: "192.168.0.0/16"},
		{name: "missing prefix", in: "10.10.10.40", wantErr: true},
		{name: "ipv6", in: "fd00::1/64", wantErr: true},
		{name: "garbage", in: "bridge", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCIDRAddress(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestGatewayFromCIDR(t *testing.T) {
	gw, err := GatewayFromCIDR("10.10.10.40/24")
	require.NoError(t, err)
	assert.Equal(t, "10.10.10.40", gw.String())

	_, err = GatewayFromCIDR("10.10.10.40")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSubnetOf(t *testing.T) {
	addr, err := ParseCIDRAddress("10.10.10.40/24")
	require.NoError(t, err)
	assert.Equal(t, "10.10.10.0/24", SubnetOf(addr).String())
}

func TestValidateNames(t *testing.T) {
	require.NoError(t, ValidateInterfaceName("enp3s0"))
	require.NoError(t, ValidateInterfaceName(strings.Repeat("a", 15)))
	require.ErrorIs(t, ValidateInterfaceName(strings.Repeat("a", 16)), ErrInvalidArgument)
	require.ErrorIs(t, ValidateInterfaceName(""), ErrInvalidArgument)
	require.ErrorIs(t, ValidateInterfaceName("a/b"), ErrInvalidArgument)
	require.ErrorIs(t, ValidateInterfaceName("a b"), ErrInvalidArgument)
	for _, ws := range []string{"\r", "\v", "\f", "\u00a0"} {
		require.ErrorIs(t, ValidateInterfaceName("a"+ws+"b"), ErrInvalidArgument, "%q", ws)
	}
	require.ErrorIs(t, ValidateInterfaceName(".."), ErrInvalidArgument)

	require.NoError(t, ValidateNamespaceName("cort0"))
	require.NoError(t, ValidateNamespaceName(strings.Repeat("n", 10)))
	require.ErrorIs(t, ValidateNamespaceName(strings.Repeat("n", 11)), ErrInvalidArgument)
}

func TestVethNames(t *testing.T) {
	host, ns := VethNames("cort0")
	assert.Equal(t, "cort0-host", host)
	assert.Equal(t, "cort0-ns", ns)
	assert.NoError(t, ValidateInterfaceName(host))
}
