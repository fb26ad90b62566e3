package netio

import (
	"net"

	"github.com/pkg/errors"
)

//nolint:revive // keeping NetIOInterface makes sense
type NetIOInterface interface {
	GetNetworkInterfaceByName(name string) (*net.Interface, error)
	GetNetworkInterfaceAddrs(iface *net.Interface) ([]net.Addr, error)
	GetNetworkInterfaces() ([]net.Interface, error)
}

// ErrInterfaceNil - errors out when interface is nil
var ErrInterfaceNil = errors.New("Interface is nil")

type NetIO struct{}

func (ns *NetIO) GetNetworkInterfaceByName(name string) (*net.Interface, error) {
	iface, err := net.InterfaceByName(name)
	return iface, errors.Wrapf(err, "GetNetworkInterfaceByName %s failed", name)
}

func (ns *NetIO) GetNetworkInterfaceAddrs(iface *net.Interface) ([]net.Addr, error) {
	if iface == nil {
		return []net.Addr{}, ErrInterfaceNil
	}

	addrs, err := iface.Addrs()
	return addrs, errors.Wrap(err, "GetNetworkInterfaceAddrs failed")
}

func (ns *NetIO) GetNetworkInterfaces() ([]net.Interface, error) {
	ifaces, err := net.Interfaces()
	return ifaces, errors.Wrap(err, "GetNetworkInterfaces failed")
}

// IPv4Addrs returns the IPv4 networks assigned to iface.
func IPv4Addrs(nio NetIOInterface, iface *net.Interface) ([]*net.IPNet, error) {
	addrs, err := nio.GetNetworkInterfaceAddrs(iface)
	if err != nil {
		return nil, err
	}
	var out []*net.IPNet
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.To4() == nil {
			continue
		}
		out = append(out, ipNet)
	}
	return out, nil
}
