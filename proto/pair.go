// Package proto implements the L11 scalability protocols of spec §4.11:
// PAIR, PUB/SUB, REQ/REP, SURVEYOR/RESPONDENT, built on sock.Pipe and the
// proto/lb load-balancer/fair-queue primitives. Grounded on
// xact/xreg/xreg.go's single-owner registry entries (PAIR's exclusive
// pipe), xact/xs's multi-target fan-out xactions (PUB), and core.Xact's
// Run/Abort state shape generalized to REQ/REP's resend/timeout lifecycle.
package proto

import (
	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/sock"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
)

// Pair holds at most one pipe at a time (spec §4.11 PAIR).
type Pair struct {
	p *sock.Pipe
}

func NewPair() *Pair { return &Pair{} }

func (x *Pair) Add(p *sock.Pipe) error {
	if x.p != nil {
		return grideerr.ErrAlreadyConnected
	}
	x.p = p
	return nil
}

func (x *Pair) Rm(p *sock.Pipe) {
	if x.p == p {
		x.p = nil
	}
}

func (x *Pair) In(*sock.Pipe)  {}
func (x *Pair) Out(*sock.Pipe) {}

func (x *Pair) Events() sock.EventBits {
	var e sock.EventBits
	if x.p != nil && x.p.HasOut() {
		e |= sock.EventOut
	}
	if x.p != nil && x.p.HasIn() {
		e |= sock.EventIn
	}
	return e
}

func (x *Pair) Send(m chunk.Message) error {
	if x.p == nil || !x.p.CanSend() {
		return grideerr.ErrAgain
	}
	return x.p.Send(m)
}

func (x *Pair) Recv() (chunk.Message, error) {
	if x.p == nil {
		return chunk.Message{}, grideerr.ErrAgain
	}
	m, _, ok := x.p.Recv()
	if !ok {
		return chunk.Message{}, grideerr.ErrAgain
	}
	return m, nil
}

func (x *Pair) SetOpt(level, name int, val []byte) error  { return grideerr.ErrNoProtoOpt }
func (x *Pair) GetOpt(level, name int) ([]byte, error)    { return nil, grideerr.ErrNoProtoOpt }
func (x *Pair) ProtocolNumber() uint16                    { return wire.ProtoPair }
