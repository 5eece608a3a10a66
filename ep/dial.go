package ep

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/bizzaro-jhunt/gridmq-sub000/session"
	"github.com/bizzaro-jhunt/gridmq-sub000/transport"
	"github.com/bizzaro-jhunt/gridmq-sub000/usock"
)

// dialFD builds the non-blocking fd + destination sockaddr for a's scheme,
// using the resolve package's answer for tcp/tcpmux/ws rather than letting
// transport.tcpSockaddr block the worker goroutine on its own net.LookupIP.
func dialFD(a transport.Addr, ips []net.IP) (int, unix.Sockaddr, error) {
	switch a.Kind {
	case transport.KindTCP:
		return transport.DialTCPResolved(ips[0], a.Port)
	case transport.KindTCPMux:
		return transport.DialTCPResolved(ips[0], a.Port)
	case transport.KindWS:
		return transport.DialTCPResolved(ips[0], a.Port)
	case transport.KindIPC:
		return transport.DialIPC(a)
	default:
		return -1, nil, fmt.Errorf("gridmq: %v transport has no fd-based connect path", a.Kind)
	}
}

// newStreamSession builds the length-prefixed frame codec for tcp/tcpmux/
// ipc; the ws scheme instead builds a session.WSSession once its HTTP
// upgrade has completed (see ep/ws.go), bypassing this constructor.
func newStreamSession(u *usock.Usock, protoNum uint16, kind session.Kind, rcvmax int64, ev session.Events) sessionLike {
	return session.New(u, protoNum, kind, rcvmax, ev)
}
