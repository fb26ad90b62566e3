package netio

import (
	"errors"
	"fmt"
	"net"
)

type getInterfaceValidationFn func(name string) (*net.Interface, error)

type MockNetIO struct {
	fail           bool
	failAttempt    int
	numTimesCalled int
	getInterfaceFn getInterfaceValidationFn
	addrs          map[string][]net.Addr
}

// ErrMockNetIOFail - mock netio error
var (
	ErrMockNetIOFail = errors.New("netio fail")
	HwAddr, _        = net.ParseMAC("ab:cd:ef:12:34:56")
)

func NewMockNetIO(fail bool, failAttempt int) *MockNetIO {
	return &MockNetIO{
		fail:        fail,
		failAttempt: failAttempt,
		addrs:       map[string][]net.Addr{},
	}
}

func (netshim *MockNetIO) SetGetInterfaceValidatonFn(fn getInterfaceValidationFn) {
	netshim.getInterfaceFn = fn
}

// SetAddrs sets the addresses reported for the named interface.
func (netshim *MockNetIO) SetAddrs(name string, cidrs ...string) {
	for _, c := range cidrs {
		ip, ipNet, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		netshim.addrs[name] = append(netshim.addrs[name], &net.IPNet{IP: ip, Mask: ipNet.Mask})
	}
}

func (netshim *MockNetIO) GetNetworkInterfaceByName(name string) (*net.Interface, error) {
	netshim.numTimesCalled++

	if netshim.fail && netshim.failAttempt == netshim.numTimesCalled {
		return nil, fmt.Errorf("%w:%s", ErrMockNetIOFail, name)
	}

	if netshim.getInterfaceFn != nil {
		return netshim.getInterfaceFn(name)
	}

	return &net.Interface{
		//nolint:gomnd // Dummy MTU
		MTU:          1500,
		Name:         name,
		HardwareAddr: HwAddr,
		//nolint:gomnd // Dummy interface index
		Index: 2,
	}, nil
}

func (netshim *MockNetIO) GetNetworkInterfaceAddrs(iface *net.Interface) ([]net.Addr, error) {
	if iface == nil {
		return []net.Addr{}, ErrInterfaceNil
	}
	return netshim.addrs[iface.Name], nil
}

func (netshim *MockNetIO) GetNetworkInterfaces() ([]net.Interface, error) {
	out := make([]net.Interface, 0, len(netshim.addrs))
	for name := range netshim.addrs {
		out = append(out, net.Interface{Name: name, HardwareAddr: HwAddr})
	}
	return out, nil
}
