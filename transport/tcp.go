package transport

import (
	"net"

	"golang.org/x/sys/unix"
)

// ListenTCP creates the bind-side listening socket (caller still drives
// Listen/setsockopt/bind/listen through usock.Usock.Listen).
func ListenTCP(a Addr) (int, unix.Sockaddr, error) {
	sa, family, err := tcpSockaddr(a.Host, a.Port)
	if err != nil {
		return -1, nil, err
	}
	fd, err := NewNonblockingSocket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, nil, err
	}
	return fd, sa, nil
}

// DialTCPResolved builds a non-blocking TCP socket for an already-resolved
// IP (the connect-side FSM's RESOLVING state hands this the resolve
// package's answer instead of letting tcpSockaddr block the worker
// goroutine on net.LookupIP itself).
func DialTCPResolved(ip net.IP, port int) (int, unix.Sockaddr, error) {
	sa, family := ipSockaddr(ip, port)
	fd, err := NewNonblockingSocket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		unix.Close(fd)
		return -1, nil, err
	}
	return fd, sa, nil
}

func ipSockaddr(ip net.IP, port int) (unix.Sockaddr, int) {
	if v4 := ip.To4(); v4 != nil {
		var sa unix.SockaddrInet4
		sa.Port = port
		copy(sa.Addr[:], v4)
		return &sa, unix.AF_INET
	}
	var sa unix.SockaddrInet6
	sa.Port = port
	copy(sa.Addr[:], ip.To16())
	return &sa, unix.AF_INET6
}

func tcpSockaddr(host string, port int) (unix.Sockaddr, int, error) {
	if host == "" || host == "*" {
		return &unix.SockaddrInet4{Port: port}, unix.AF_INET, nil
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, 0, err
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			var sa unix.SockaddrInet4
			sa.Port = port
			copy(sa.Addr[:], v4)
			return &sa, unix.AF_INET, nil
		}
	}
	ip := ips[0].To16()
	var sa unix.SockaddrInet6
	sa.Port = port
	copy(sa.Addr[:], ip)
	return &sa, unix.AF_INET6, nil
}
