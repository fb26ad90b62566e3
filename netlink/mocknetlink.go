package netlink

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrorMockNetlink - netlink mock error
var ErrorMockNetlink = errors.New("Mock Netlink Error")

func newErrorMockNetlink(errStr string) error {
	return fmt.Errorf("%w : %s", ErrorMockNetlink, errStr)
}

type routeValidateFn func(route *Route) error

type mockLink struct {
	linkType string
	peer     string
	master   string
	up       bool
	netnsFd  uintptr
	addrs    []*net.IPNet
}

// MockNetlink keeps an in-memory link table and records every call in order.
// When returnError is set every call fails. FailOn fails only the named method.
type MockNetlink struct {
	sync.Mutex
	returnError bool
	errorString string
	failOn      map[string]bool
	addRouteFn  routeValidateFn

	links  map[string]*mockLink
	routes []*Route
	calls  []string

	RouteInterface string
}

func NewMockNetlink(returnError bool, errorString string) *MockNetlink {
	return &MockNetlink{
		returnError:    returnError,
		errorString:    errorString,
		failOn:         map[string]bool{},
		links:          map[string]*mockLink{},
		RouteInterface: "eth0",
	}
}

func (f *MockNetlink) SetAddRouteValidationFn(fn routeValidateFn) {
	f.addRouteFn = fn
}

// FailOn makes the named method, e.g. "SetLinkNetNs", return an error.
func (f *MockNetlink) FailOn(method string) {
	f.Lock()
	defer f.Unlock()
	f.failOn[method] = true
}

// Calls returns the recorded calls as "Method:arg" strings.
func (f *MockNetlink) Calls() []string {
	f.Lock()
	defer f.Unlock()
	return append([]string(nil), f.calls...)
}

// SeedLink adds a link to the table without recording a call.
func (f *MockNetlink) SeedLink(name, linkType, master string) {
	f.Lock()
	defer f.Unlock()
	f.links[name] = &mockLink{linkType: linkType, master: master}
}

// LinkState reports the recorded master, state and netns fd of a link.
func (f *MockNetlink) LinkState(name string) (master string, up bool, netnsFd uintptr, ok bool) {
	f.Lock()
	defer f.Unlock()
	l, ok := f.links[name]
	if !ok {
		return "", false, 0, false
	}
	return l.master, l.up, l.netnsFd, true
}

func (f *MockNetlink) Routes() []*Route {
	f.Lock()
	defer f.Unlock()
	return append([]*Route(nil), f.routes...)
}

func (f *MockNetlink) record(method, arg string) error {
	f.calls = append(f.calls, method+":"+arg)
	if f.returnError || f.failOn[method] {
		return newErrorMockNetlink(f.errorString + " " + method + " " + arg)
	}
	return nil
}

func (f *MockNetlink) lookup(name string) (*mockLink, error) {
	l, ok := f.links[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLinkNotFound, name)
	}
	return l, nil
}

func (f *MockNetlink) AddLink(l Link) error {
	f.Lock()
	defer f.Unlock()
	info := l.Info()
	if err := f.record("AddLink", info.Name); err != nil {
		return err
	}
	if _, ok := f.links[info.Name]; ok {
		return fmt.Errorf("%w : %s: %w", ErrorMockNetlink, info.Name, unix.EEXIST)
	}
	switch v := l.(type) {
	case *VEthLink:
		if _, ok := f.links[v.PeerName]; ok {
			return fmt.Errorf("%w : %s: %w", ErrorMockNetlink, v.PeerName, unix.EEXIST)
		}
		f.links[info.Name] = &mockLink{linkType: LINK_TYPE_VETH, peer: v.PeerName}
		f.links[v.PeerName] = &mockLink{linkType: LINK_TYPE_VETH, peer: info.Name}
	default:
		f.links[info.Name] = &mockLink{linkType: info.Type}
	}
	return nil
}

func (f *MockNetlink) DeleteLink(name string) error {
	f.Lock()
	defer f.Unlock()
	if err := f.record("DeleteLink", name); err != nil {
		return err
	}
	l, err := f.lookup(name)
	if err != nil {
		return err
	}
	if l.peer != "" {
		delete(f.links, l.peer)
	}
	delete(f.links, name)
	for _, other := range f.links {
		if other.master == name {
			other.master = ""
		}
	}
	return nil
}

func (f *MockNetlink) LinkExists(name string) (bool, error) {
	f.Lock()
	defer f.Unlock()
	if err := f.record("LinkExists", name); err != nil {
		return false, err
	}
	_, ok := f.links[name]
	return ok, nil
}

func (f *MockNetlink) GetLinkType(name string) (string, error) {
	f.Lock()
	defer f.Unlock()
	if err := f.record("GetLinkType", name); err != nil {
		return "", err
	}
	l, err := f.lookup(name)
	if err != nil {
		return "", err
	}
	return l.linkType, nil
}

func (f *MockNetlink) SetLinkState(name string, up bool) error {
	f.Lock()
	defer f.Unlock()
	if err := f.record("SetLinkState", name); err != nil {
		return err
	}
	l, err := f.lookup(name)
	if err != nil {
		return err
	}
	l.up = up
	return nil
}

func (f *MockNetlink) SetLinkMaster(name, master string) error {
	f.Lock()
	defer f.Unlock()
	if err := f.record("SetLinkMaster", name); err != nil {
		return err
	}
	l, err := f.lookup(name)
	if err != nil {
		return err
	}
	if master != "" {
		if _, err := f.lookup(master); err != nil {
			return err
		}
	}
	l.master = master
	return nil
}

func (f *MockNetlink) GetLinkMaster(name string) (string, error) {
	f.Lock()
	defer f.Unlock()
	if err := f.record("GetLinkMaster", name); err != nil {
		return "", err
	}
	l, err := f.lookup(name)
	if err != nil {
		return "", err
	}
	return l.master, nil
}

func (f *MockNetlink) GetLinkMasterPorts(master string) ([]string, error) {
	f.Lock()
	defer f.Unlock()
	if err := f.record("GetLinkMasterPorts", master); err != nil {
		return nil, err
	}
	if _, err := f.lookup(master); err != nil {
		return nil, err
	}
	var ports []string
	for name, l := range f.links {
		if l.master == master && l.netnsFd == 0 {
			ports = append(ports, name)
		}
	}
	sort.Strings(ports)
	return ports, nil
}

func (f *MockNetlink) SetLinkNetNs(name string, fd uintptr) error {
	f.Lock()
	defer f.Unlock()
	if err := f.record("SetLinkNetNs", name); err != nil {
		return err
	}
	l, err := f.lookup(name)
	if err != nil {
		return err
	}
	// a moved link loses its master and state like it does in the kernel
	l.netnsFd = fd
	l.master = ""
	l.up = false
	return nil
}

func (f *MockNetlink) AddIPAddress(ifName string, ipAddress net.IP, ipNet *net.IPNet) error {
	f.Lock()
	defer f.Unlock()
	if err := f.record("AddIPAddress", ifName); err != nil {
		return err
	}
	l, err := f.lookup(ifName)
	if err != nil {
		return err
	}
	l.addrs = append(l.addrs, &net.IPNet{IP: ipAddress, Mask: ipNet.Mask})
	return nil
}

func (f *MockNetlink) GetIPAddresses(ifName string) ([]*net.IPNet, error) {
	f.Lock()
	defer f.Unlock()
	if err := f.record("GetIPAddresses", ifName); err != nil {
		return nil, err
	}
	l, err := f.lookup(ifName)
	if err != nil {
		return nil, err
	}
	return append([]*net.IPNet(nil), l.addrs...), nil
}

func (f *MockNetlink) GetIPRoute(*Route) ([]*Route, error) {
	f.Lock()
	defer f.Unlock()
	if err := f.record("GetIPRoute", ""); err != nil {
		return nil, err
	}
	return append([]*Route(nil), f.routes...), nil
}

func (f *MockNetlink) AddIPRoute(r *Route) error {
	f.Lock()
	defer f.Unlock()
	if err := f.record("AddIPRoute", ""); err != nil {
		return err
	}
	if f.addRouteFn != nil {
		if err := f.addRouteFn(r); err != nil {
			return err
		}
	}
	f.routes = append(f.routes, r)
	return nil
}

func (f *MockNetlink) GetRouteInterface(dst net.IP) (string, error) {
	f.Lock()
	defer f.Unlock()
	if err := f.record("GetRouteInterface", dst.String()); err != nil {
		return "", err
	}
	return f.RouteInterface, nil
}
