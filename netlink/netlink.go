// Copyright 2017 Microsoft. All rights reserved.
// MIT License

package netlink

import (
	"net"

	"github.com/pkg/errors"
)

// Link types.
const (
	LINK_TYPE_BRIDGE = "bridge" //nolint:revive,stylecheck // kernel naming
	LINK_TYPE_VETH   = "veth"   //nolint:revive,stylecheck // kernel naming
)

// Route scopes.
const (
	RT_SCOPE_UNIVERSE = 0   //nolint:revive,stylecheck // kernel naming
	RT_SCOPE_LINK     = 253 //nolint:revive,stylecheck // kernel naming
)

// ErrLinkNotFound is returned when a named link is not visible in the current namespace.
var ErrLinkNotFound = errors.New("link not found")

// Link represents a network interface to be created.
type Link interface {
	Info() *LinkInfo
}

// LinkInfo carries the attributes shared by all link types.
type LinkInfo struct {
	Type       string
	Name       string
	MTU        uint
	MacAddress net.HardwareAddr
	ParentName string
}

func (linkInfo *LinkInfo) Info() *LinkInfo {
	return linkInfo
}

// BridgeLink is a layer 2 software switch.
type BridgeLink struct {
	LinkInfo
}

// VEthLink is a pair of connected virtual interfaces.
type VEthLink struct {
	LinkInfo
	PeerName string
}

// Route is an IP routing table entry.
type Route struct {
	Family     int
	Dst        *net.IPNet
	Src        net.IP
	Gw         net.IP
	LinkIndex  int
	ILinkIndex int
	Scope      int
	Priority   int
	Table      int
}

// NetlinkInterface is the set of link, address and route operations used against the
// namespace of the calling thread.
//
//nolint:revive // keeping NetlinkInterface makes sense
type NetlinkInterface interface {
	AddLink(link Link) error
	DeleteLink(name string) error
	LinkExists(name string) (bool, error)
	GetLinkType(name string) (string, error)
	SetLinkState(name string, up bool) error
	SetLinkMaster(name string, master string) error
	GetLinkMaster(name string) (string, error)
	GetLinkMasterPorts(master string) ([]string, error)
	SetLinkNetNs(name string, fd uintptr) error
	AddIPAddress(ifName string, ipAddress net.IP, ipNet *net.IPNet) error
	GetIPAddresses(ifName string) ([]*net.IPNet, error)
	GetIPRoute(filter *Route) ([]*Route, error)
	AddIPRoute(route *Route) error
	GetRouteInterface(dst net.IP) (string, error)
}
