package firewall

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCIDR(t *testing.T, s string) *net.IPNet {
	t.Helper()
	ip, ipNet, err := net.ParseCIDR(s)
	require.NoError(t, err)
	return &net.IPNet{IP: ip, Mask: ipNet.Mask}
}

func testRuleset(t *testing.T, bridge, addr string, version int) Ruleset {
	return Ruleset{
		Version:           version,
		Bridge:            bridge,
		BridgeAddress:     mustCIDR(t, addr),
		ExternalInterface: "enp3s0",
	}
}

func TestRulesetTags(t *testing.T) {
	rs := testRuleset(t, "cort0", "10.10.10.40/24", 3)
	assert.Equal(t, "cortnet:cort0", rs.Tag())
	assert.Equal(t, "cortnet:cort0:v3", rs.VersionTag())
	assert.Equal(t, "10.10.10.0/24", rs.Subnet().String())
}

func TestRulesetValidate(t *testing.T) {
	valid := testRuleset(t, "cort0", "10.10.10.40/24", 1)
	require.NoError(t, valid.Validate())

	noBridge := valid
	noBridge.Bridge = ""
	require.ErrorIs(t, noBridge.Validate(), ErrInvalidRuleset)

	noExt := valid
	noExt.ExternalInterface = ""
	require.ErrorIs(t, noExt.Validate(), ErrInvalidRuleset)

	v6 := valid
	v6.BridgeAddress = mustCIDR(t, "fd00::1/64")
	require.ErrorIs(t, v6.Validate(), ErrInvalidRuleset)

	v0 := valid
	v0.Version = 0
	require.ErrorIs(t, v0.Validate(), ErrInvalidRuleset)
}

func TestParseVersion(t *testing.T) {
	line := `-A CORT-FWD-br1 -i br1 -o br1 -m comment --comment "cortnet:br1:v12" -j ACCEPT`
	v, ok := parseVersion("br1", line)
	require.True(t, ok)
	assert.Equal(t, 12, v)

	_, ok = parseVersion("br0", line)
	assert.False(t, ok)
}
