// File: transport/tcp/addr.go
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"net"

	"golang.org/x/sys/unix"
)

// AddrPair holds the two endpoints of a connection. It is fixed at
// construction.
type AddrPair struct {
	local net.Addr
	peer  net.Addr
}

func NewAddrPair(local, peer net.Addr) AddrPair {
	return AddrPair{local: local, peer: peer}
}

func (a AddrPair) Local() net.Addr { return a.local }
func (a AddrPair) Peer() net.Addr  { return a.peer }

func (a AddrPair) String() string {
	return addrString(a.local) + "->" + addrString(a.peer)
}

func addrString(a net.Addr) string {
	if a == nil {
		return "?"
	}
	return a.String()
}

func sockaddrToTCP(sa unix.Sockaddr) *net.TCPAddr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), v.Addr[:]...)), Port: v.Port}
	case *unix.SockaddrInet6:
		addr := &net.TCPAddr{IP: net.IP(append([]byte(nil), v.Addr[:]...)), Port: v.Port}
		if v.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(v.ZoneId)); err == nil {
				addr.Zone = ifi.Name
			}
		}
		return addr
	}
	return nil
}

func tcpToSockaddr(a *net.TCPAddr) (unix.Sockaddr, int) {
	if ip4 := a.IP.To4(); ip4 != nil || a.IP == nil {
		sa := &unix.SockaddrInet4{Port: a.Port}
		if ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		return sa, unix.AF_INET
	}
	sa := &unix.SockaddrInet6{Port: a.Port}
	copy(sa.Addr[:], a.IP.To16())
	if a.Zone != "" {
		if ifi, err := net.InterfaceByName(a.Zone); err == nil {
			sa.ZoneId = uint32(ifi.Index)
		}
	}
	return sa, unix.AF_INET6
}
