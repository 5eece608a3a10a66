package ep

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/bizzaro-jhunt/gridmq-sub000/transport"
	"github.com/bizzaro-jhunt/gridmq-sub000/usock"
)

// startListen builds the bind-side listening usock for tcp/tcpmux/ws (all
// three listen on a plain TCP socket; the tcpmux/ws-specific handshake
// happens per accepted connection, dispatched by OnEstablished) or ipc.
func (e *Endpoint) startListen() error {
	if e.addr.Kind == transport.KindInproc {
		return e.startListenInproc()
	}
	fd, sa, err := listenFD(e.addr)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.listener = usock.New(fd, e.w, e)
	l := e.listener
	e.mu.Unlock()
	if err := l.Listen(sa); err != nil {
		return err
	}
	e.setState(Listening)
	l.Accept()
	return nil
}

func listenFD(a transport.Addr) (int, unix.Sockaddr, error) {
	switch a.Kind {
	case transport.KindTCP, transport.KindTCPMux, transport.KindWS:
		return transport.ListenTCP(a)
	case transport.KindIPC:
		return transport.ListenIPC(a)
	default:
		return -1, nil, fmt.Errorf("gridmq: %v transport has no listen path", a.Kind)
	}
}
