// Package netmon answers one question: does the uplink interface currently
// have a usable network connection. The orchestrator gates caster reconnect
// attempts on it so a down link never burns retry cycles.
package netmon

import (
	"net"
)

// Monitor watches a single named interface (typically wlan0).
type Monitor struct {
	iface string

	// Injection point for tests.
	lookup func(name string) (*net.Interface, []net.Addr, error)
}

func New(iface string) *Monitor {
	return &Monitor{
		iface: iface,
		lookup: func(name string) (*net.Interface, []net.Addr, error) {
			ifi, err := net.InterfaceByName(name)
			if err != nil {
				return nil, nil, err
			}
			addrs, err := ifi.Addrs()
			if err != nil {
				return nil, nil, err
			}
			return ifi, addrs, nil
		},
	}
}

// Up reports whether the interface exists, is up and running, and carries at
// least one non-loopback IPv4 address. Any lookup failure reads as down.
func (m *Monitor) Up() bool {
	ifi, addrs, err := m.lookup(m.iface)
	if err != nil {
		return false
	}
	if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagRunning == 0 {
		return false
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 != nil && !ip4.IsLoopback() {
			return true
		}
	}
	return false
}
