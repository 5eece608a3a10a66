// Package streamhdr is the L7 SP protocol-version handshake of spec §4.6:
// on every stream transport the two peers exchange an 8-byte preamble
// before the session codec starts framing messages. Grounded on
// transport/tinit.go's fixed-size preamble exchange before a stream starts
// carrying application frames, generalized from a single-field init record
// to the SP magic+protocol-id+reserved layout wire.Preamble encodes.
package streamhdr

import (
	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/usock"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
)

type State int

const (
	Idle State = iota
	Sending
	Done
	Failed
)

// Events is implemented by the owning session to learn the handshake's
// outcome.
type Events interface {
	OnHandshakeOK()
	OnHandshakeError(err error)
}

// Handshake drives one simultaneous send+receive of the 8-byte preamble
// over u, validating the peer's protocol id against localProto via
// wire.PeerProtocol.
type Handshake struct {
	u           *usock.Usock
	ev          Events
	localProto  uint16
	state       State
	sendBuf     [8]byte
	recvBuf     [8]byte
	recvHave    int
	sendDone    bool
}

func New(u *usock.Usock, localProto uint16, ev Events) *Handshake {
	return &Handshake{u: u, localProto: localProto, ev: ev}
}

// Start issues the outbound preamble and begins accumulating the inbound
// one; both directions proceed independently, matching spec §4.6's
// "simultaneously send and receive".
func (h *Handshake) Start() {
	h.state = Sending
	pre := wire.Preamble(h.localProto)
	copy(h.sendBuf[:], pre[:])
	if err := h.u.Send(h.sendBuf[:]); err != nil {
		h.fail(err)
		return
	}
	h.pumpRecv()
}

// OnSent implements the send half of usock.Events for callers that route
// the session's usock callbacks through the handshake first.
func (h *Handshake) OnSent(int) { h.sendDone = true; h.maybeDone() }

func (h *Handshake) pumpRecv() {
	for h.recvHave < 8 {
		n, err := h.u.Recv(h.recvBuf[h.recvHave:])
		if err != nil {
			if grideerr.IsErrWouldBlock(err) {
				return // wait for the next OnFD-driven Feed call
			}
			h.fail(err)
			return
		}
		if n == 0 {
			return
		}
		h.recvHave += n
	}
	h.onPreambleComplete()
}

// Feed is called by the session whenever more bytes are available on u
// while the handshake has not yet completed its inbound half.
func (h *Handshake) Feed() {
	if h.state == Sending {
		h.pumpRecv()
	}
}

func (h *Handshake) onPreambleComplete() {
	peerProto, ok := wire.ParsePreamble(h.recvBuf[:])
	if !ok {
		h.fail(errBadPreamble{})
		return
	}
	want, known := wire.PeerProtocol(h.localProto)
	if !known || peerProto != want {
		h.fail(errProtoMismatch{local: h.localProto, peer: peerProto})
		return
	}
	h.maybeDone()
}

func (h *Handshake) maybeDone() {
	if h.sendDone && h.recvHave == 8 {
		h.state = Done
		h.ev.OnHandshakeOK()
	}
}

func (h *Handshake) fail(err error) {
	h.state = Failed
	h.ev.OnHandshakeError(err)
}

type errBadPreamble struct{}

func (errBadPreamble) Error() string { return "gridmq: bad SP preamble" }

type errProtoMismatch struct{ local, peer uint16 }

func (e errProtoMismatch) Error() string { return "gridmq: peer protocol mismatch" }
