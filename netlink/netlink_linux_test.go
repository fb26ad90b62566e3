// Copyright 2017 Microsoft. All rights reserved.
// MIT License

package netlink

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteConversion(t *testing.T) {
	_, dst, _ := net.ParseCIDR("0.0.0.0/0")
	r := &Route{Dst: dst, Gw: net.ParseIP("10.0.0.1"), LinkIndex: 4, Scope: RT_SCOPE_UNIVERSE, Table: 254}
	back := fromNetlinkRoute(toNetlinkRoute(r))
	assert.Equal(t, r.Gw.String(), back.Gw.String())
	assert.Equal(t, r.LinkIndex, back.LinkIndex)
	assert.Equal(t, r.Table, back.Table)
}
