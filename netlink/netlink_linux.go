// Copyright 2017 Microsoft. All rights reserved.
// MIT License

package netlink

import (
	"net"

	"github.com/pkg/errors"
	vnl "github.com/vishvananda/netlink"
)

// Netlink issues requests on sockets opened in the calling thread's network namespace.
type Netlink struct{}

func NewNetlink() Netlink {
	return Netlink{}
}

func (Netlink) linkByName(name string) (vnl.Link, error) {
	link, err := vnl.LinkByName(name)
	if err != nil {
		var notFound vnl.LinkNotFoundError
		if errors.As(err, &notFound) {
			return nil, errors.Wrapf(ErrLinkNotFound, "%s", name)
		}
		return nil, errors.Wrapf(err, "failed to look up link %s", name)
	}
	return link, nil
}

// AddLink creates a bridge or veth pair.
func (n Netlink) AddLink(link Link) error {
	info := link.Info()
	attrs := vnl.NewLinkAttrs()
	attrs.Name = info.Name
	attrs.MTU = int(info.MTU)
	attrs.HardwareAddr = info.MacAddress

	var l vnl.Link
	switch v := link.(type) {
	case *BridgeLink:
		l = &vnl.Bridge{LinkAttrs: attrs}
	case *VEthLink:
		l = &vnl.Veth{LinkAttrs: attrs, PeerName: v.PeerName}
	default:
		return errors.Errorf("unsupported link type %q for %s", info.Type, info.Name)
	}

	return errors.Wrapf(vnl.LinkAdd(l), "failed to add %s link %s", info.Type, info.Name)
}

// DeleteLink removes a link. Deleting either end of a veth pair removes both.
func (n Netlink) DeleteLink(name string) error {
	link, err := n.linkByName(name)
	if err != nil {
		return err
	}
	return errors.Wrapf(vnl.LinkDel(link), "failed to delete link %s", name)
}

func (n Netlink) LinkExists(name string) (bool, error) {
	_, err := n.linkByName(name)
	if errors.Is(err, ErrLinkNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (n Netlink) GetLinkType(name string) (string, error) {
	link, err := n.linkByName(name)
	if err != nil {
		return "", err
	}
	return link.Type(), nil
}

func (n Netlink) SetLinkState(name string, up bool) error {
	link, err := n.linkByName(name)
	if err != nil {
		return err
	}
	if up {
		return errors.Wrapf(vnl.LinkSetUp(link), "failed to set %s up", name)
	}
	return errors.Wrapf(vnl.LinkSetDown(link), "failed to set %s down", name)
}

// SetLinkMaster enslaves name to master. An empty master releases the link.
func (n Netlink) SetLinkMaster(name, master string) error {
	link, err := n.linkByName(name)
	if err != nil {
		return err
	}
	if master == "" {
		return errors.Wrapf(vnl.LinkSetNoMaster(link), "failed to release %s from its master", name)
	}
	masterLink, err := n.linkByName(master)
	if err != nil {
		return err
	}
	return errors.Wrapf(vnl.LinkSetMasterByIndex(link, masterLink.Attrs().Index), "failed to set master of %s to %s", name, master)
}

func (n Netlink) GetLinkMaster(name string) (string, error) {
	link, err := n.linkByName(name)
	if err != nil {
		return "", err
	}
	if link.Attrs().MasterIndex == 0 {
		return "", nil
	}
	master, err := vnl.LinkByIndex(link.Attrs().MasterIndex)
	if err != nil {
		return "", errors.Wrapf(err, "failed to look up master of %s", name)
	}
	return master.Attrs().Name, nil
}

// GetLinkMasterPorts lists the links enslaved to master.
func (n Netlink) GetLinkMasterPorts(master string) ([]string, error) {
	masterLink, err := n.linkByName(master)
	if err != nil {
		return nil, err
	}
	links, err := vnl.LinkList()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list links")
	}

	var ports []string
	for _, l := range links {
		if l.Attrs().MasterIndex == masterLink.Attrs().Index {
			ports = append(ports, l.Attrs().Name)
		}
	}
	return ports, nil
}

// SetLinkNetNs moves a link into the namespace referenced by fd.
func (n Netlink) SetLinkNetNs(name string, fd uintptr) error {
	link, err := n.linkByName(name)
	if err != nil {
		return err
	}
	return errors.Wrapf(vnl.LinkSetNsFd(link, int(fd)), "failed to move %s to netns fd %d", name, fd)
}

func (n Netlink) AddIPAddress(ifName string, ipAddress net.IP, ipNet *net.IPNet) error {
	link, err := n.linkByName(ifName)
	if err != nil {
		return err
	}
	addr := &vnl.Addr{IPNet: &net.IPNet{IP: ipAddress, Mask: ipNet.Mask}}
	return errors.Wrapf(vnl.AddrAdd(link, addr), "failed to add %s to %s", addr.IPNet, ifName)
}

func (n Netlink) GetIPAddresses(ifName string) ([]*net.IPNet, error) {
	link, err := n.linkByName(ifName)
	if err != nil {
		return nil, err
	}
	addrs, err := vnl.AddrList(link, vnl.FAMILY_ALL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list addresses of %s", ifName)
	}
	out := make([]*net.IPNet, 0, len(addrs))
	for i := range addrs {
		out = append(out, addrs[i].IPNet)
	}
	return out, nil
}

func (n Netlink) GetIPRoute(filter *Route) ([]*Route, error) {
	var mask uint64
	r := toNetlinkRoute(filter)
	if filter.LinkIndex != 0 {
		mask |= vnl.RT_FILTER_OIF
	}
	if filter.Dst != nil {
		mask |= vnl.RT_FILTER_DST
	}
	if filter.Table != 0 {
		mask |= vnl.RT_FILTER_TABLE
	}
	routes, err := vnl.RouteListFiltered(familyOrV4(filter.Family), r, mask)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list routes")
	}
	out := make([]*Route, 0, len(routes))
	for i := range routes {
		out = append(out, fromNetlinkRoute(&routes[i]))
	}
	return out, nil
}

func (n Netlink) AddIPRoute(route *Route) error {
	return errors.Wrapf(vnl.RouteAdd(toNetlinkRoute(route)), "failed to add route %+v", *route)
}

// GetRouteInterface returns the name of the interface the kernel would use to reach dst.
func (n Netlink) GetRouteInterface(dst net.IP) (string, error) {
	routes, err := vnl.RouteGet(dst)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve route to %s", dst)
	}
	if len(routes) == 0 {
		return "", errors.Errorf("no route to %s", dst)
	}
	link, err := vnl.LinkByIndex(routes[0].LinkIndex)
	if err != nil {
		return "", errors.Wrapf(err, "failed to look up link index %d", routes[0].LinkIndex)
	}
	return link.Attrs().Name, nil
}

func familyOrV4(family int) int {
	if family == 0 {
		return vnl.FAMILY_V4
	}
	return family
}

func toNetlinkRoute(r *Route) *vnl.Route {
	return &vnl.Route{
		Dst:        r.Dst,
		Src:        r.Src,
		Gw:         r.Gw,
		LinkIndex:  r.LinkIndex,
		ILinkIndex: r.ILinkIndex,
		Scope:      vnl.Scope(r.Scope),
		Priority:   r.Priority,
		Table:      r.Table,
	}
}

func fromNetlinkRoute(r *vnl.Route) *Route {
	return &Route{
		Family:     r.Family,
		Dst:        r.Dst,
		Src:        r.Src,
		Gw:         r.Gw,
		LinkIndex:  r.LinkIndex,
		ILinkIndex: r.ILinkIndex,
		Scope:      int(r.Scope),
		Priority:   r.Priority,
		Table:      r.Table,
	}
}
