package ep

import (
	"bytes"
	"encoding/binary"

	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/transport"
	"github.com/bizzaro-jhunt/gridmq-sub000/usock"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
)

// tcpmuxUpgrade drives the connect-side service-selection exchange (send
// `<u16 len><service>`, await the bind side's "+\r\n" greeting) or the bind-side
// acceptance of one (read the service name, reply with the fixed "+\r\n"
// greeting), before SP framing begins (spec §4.5's tcpmux scheme).
type tcpmuxUpgrade struct {
	u        *usock.Usock
	isClient bool
	service  string
	buf      bytes.Buffer
	scratch  [256]byte
	onDone   func()
	onErr    func(error)
}

func startTCPMuxUpgrade(u *usock.Usock, a transport.Addr, isClient bool, protoNum uint16, onDone func(), onErr func(error)) *tcpmuxUpgrade {
	t := &tcpmuxUpgrade{u: u, isClient: isClient, service: a.Service, onDone: onDone, onErr: onErr}
	if t.service == "" {
		t.service = wire.ProtoName(protoNum) + ".sp.nanomsg.org"
	}
	if isClient {
		if err := u.Send(transport.EncodeTCPMuxService(t.service)); err != nil {
			onErr(err)
			return t
		}
	}
	t.pump()
	return t
}

func (t *tcpmuxUpgrade) pump() {
	if t.isClient {
		t.pumpClient()
		return
	}
	t.pumpServer()
}

func (t *tcpmuxUpgrade) pumpClient() {
	greeting := transport.BindTCPMuxGreeting()
	for t.buf.Len() < len(greeting) {
		n, err := t.u.Recv(t.scratch[:len(greeting)-t.buf.Len()])
		if err != nil {
			if grideerr.IsErrWouldBlock(err) {
				return
			}
			t.onErr(err)
			return
		}
		if n == 0 {
			return
		}
		t.buf.Write(t.scratch[:n])
	}
	if !bytes.Equal(t.buf.Bytes(), greeting) {
		t.onErr(grideerr.ErrProtoNotSupp)
		return
	}
	t.onDone()
}

func (t *tcpmuxUpgrade) pumpServer() {
	for {
		if t.buf.Len() >= 2 {
			want := 2 + int(binary.BigEndian.Uint16(t.buf.Bytes()[:2]))
			if t.buf.Len() >= want {
				name := string(t.buf.Bytes()[2:want])
				if name != t.service {
					t.onErr(grideerr.ErrProtoNotSupp)
					return
				}
				if err := t.u.Send(transport.BindTCPMuxGreeting()); err != nil {
					t.onErr(err)
					return
				}
				t.onDone()
				return
			}
		}
		n, err := t.u.Recv(t.scratch[:])
		if err != nil {
			if grideerr.IsErrWouldBlock(err) {
				return
			}
			t.onErr(err)
			return
		}
		if n == 0 {
			return
		}
		t.buf.Write(t.scratch[:n])
	}
}

