package ep

import (
	"bufio"
	"bytes"

	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/session"
	"github.com/bizzaro-jhunt/gridmq-sub000/transport"
	"github.com/bizzaro-jhunt/gridmq-sub000/usock"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
)

// wsUpgrade accumulates the HTTP/1.1 upgrade request/response over
// non-blocking reads until the header terminator is seen, then hands the
// buffered bytes to net/http for parsing. Spec §4.8 only requires that the
// upgrade complete before SP framing begins, not byte-at-a-time incremental
// header parsing, so buffering the (bounded, sub-4KB) header block before
// parsing is a deliberate simplification over a true incremental HTTP
// tokenizer — see DESIGN.md.
type wsUpgrade struct {
	u        *usock.Usock
	isClient bool
	protoNum uint16
	clientKey string
	buf      bytes.Buffer
	scratch  [512]byte
	onDone   func()
	onErr    func(error)
}

func startWSUpgrade(u *usock.Usock, a transport.Addr, isClient bool, protoNum uint16, onDone func(), onErr func(error)) *wsUpgrade {
	w := &wsUpgrade{u: u, isClient: isClient, protoNum: protoNum, onDone: onDone, onErr: onErr}
	if isClient {
		req, key := transport.BuildWSRequest(a, wire.ProtoName(protoNum))
		w.clientKey = key
		if err := u.Send(req); err != nil {
			onErr(err)
			return w
		}
	}
	w.pump()
	return w
}

// pump is called again each time OnReceived pokes: keep reading until the
// blank-line terminator appears or the peer would block.
func (w *wsUpgrade) pump() {
	for {
		if idx := bytes.Index(w.buf.Bytes(), []byte("\r\n\r\n")); idx >= 0 {
			w.complete()
			return
		}
		n, err := w.u.Recv(w.scratch[:])
		if err != nil {
			if grideerr.IsErrWouldBlock(err) {
				return
			}
			w.onErr(err)
			return
		}
		if n == 0 {
			return
		}
		w.buf.Write(w.scratch[:n])
	}
}

func (w *wsUpgrade) complete() {
	r := bufio.NewReader(bytes.NewReader(w.buf.Bytes()))
	if w.isClient {
		if _, err := transport.ParseWSResponse(r, w.clientKey); err != nil {
			w.onErr(err)
			return
		}
	} else {
		req, err := transport.ParseWSRequest(r)
		if err != nil {
			w.onErr(err)
			return
		}
		resp := transport.BuildWSResponse(req, wire.ProtoName(w.protoNum))
		if err := w.u.Send(resp); err != nil {
			w.onErr(err)
			return
		}
	}
	w.onDone()
}

// newWSSession builds the WebSocket framing session once the HTTP upgrade
// above has completed.
func newWSSession(u *usock.Usock, isClient bool, ev session.Events) sessionLike {
	return session.NewWS(u, isClient, wire.WSBinary, ev)
}
