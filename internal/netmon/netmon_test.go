package netmon

import (
	"errors"
	"net"
	"testing"
)

func stubbed(ifi *net.Interface, addrs []net.Addr, err error) *Monitor {
	m := New("wlan0")
	m.lookup = func(string) (*net.Interface, []net.Addr, error) {
		return ifi, addrs, err
	}
	return m
}

func addr(cidr string) net.Addr {
	ip, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(err)
	}
	ipNet.IP = ip
	return ipNet
}

func TestUp_RequiresRunningInterfaceWithIPv4(t *testing.T) {
	running := &net.Interface{Name: "wlan0", Flags: net.FlagUp | net.FlagRunning}

	m := stubbed(running, []net.Addr{addr("192.168.10.7/24")}, nil)
	if !m.Up() {
		t.Fatalf("running interface with IPv4 must read as up")
	}
}

func TestUp_DownWithoutAddress(t *testing.T) {
	running := &net.Interface{Name: "wlan0", Flags: net.FlagUp | net.FlagRunning}

	if m := stubbed(running, nil, nil); m.Up() {
		t.Fatalf("no address must read as down")
	}
	if m := stubbed(running, []net.Addr{addr("fe80::1/64")}, nil); m.Up() {
		t.Fatalf("IPv6-only must read as down")
	}
	if m := stubbed(running, []net.Addr{addr("127.0.0.1/8")}, nil); m.Up() {
		t.Fatalf("loopback address must read as down")
	}
}

func TestUp_DownWithoutRunningFlag(t *testing.T) {
	upOnly := &net.Interface{Name: "wlan0", Flags: net.FlagUp}
	m := stubbed(upOnly, []net.Addr{addr("192.168.10.7/24")}, nil)
	if m.Up() {
		t.Fatalf("up-but-not-running must read as down")
	}
}

func TestUp_LookupFailureReadsAsDown(t *testing.T) {
	m := stubbed(nil, nil, errors.New("no such interface"))
	if m.Up() {
		t.Fatalf("lookup failure must read as down")
	}
}
