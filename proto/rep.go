package proto

import (
	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/proto/lb"
	"github.com/bizzaro-jhunt/gridmq-sub000/sock"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
)

// Rep is the server half of spec §4.11's REQ/REP: captures the inbound
// backtrace, flags INPROGRESS, and requires a reply before the next recv.
type Rep struct {
	fq *lb.FairQueue

	inProgress bool
	backtrace  chunk.Chunk
	replyTo    *sock.Pipe
}

func NewRep() *Rep { return &Rep{fq: lb.NewFairQueue()} }

func (x *Rep) Add(p *sock.Pipe) error {
	x.fq.Add(p)
	return nil
}

func (x *Rep) Rm(p *sock.Pipe) {
	x.fq.Remove(p)
	if x.replyTo == p {
		x.replyTo = nil
		x.inProgress = false
	}
}

func (x *Rep) In(*sock.Pipe)  {}
func (x *Rep) Out(*sock.Pipe) {}

func (x *Rep) Events() sock.EventBits {
	var e sock.EventBits
	if !x.inProgress && !x.fq.Empty() {
		e |= sock.EventIn
	}
	if x.inProgress && x.replyTo != nil && x.replyTo.CanSend() {
		e |= sock.EventOut
	}
	return e
}

func (x *Rep) Send(m chunk.Message) error {
	if !x.inProgress {
		return grideerr.ErrFSM
	}
	m.Sphdr = x.backtrace
	err := x.replyTo.Send(m)
	x.inProgress = false
	x.replyTo = nil
	return err
}

func (x *Rep) Recv() (chunk.Message, error) {
	p := x.fq.Current()
	if p == nil {
		return chunk.Message{}, grideerr.ErrAgain
	}
	m, _, ok := p.Recv()
	if !ok {
		return chunk.Message{}, grideerr.ErrAgain
	}
	x.backtrace = m.Sphdr
	x.replyTo = p
	x.inProgress = true
	m.Sphdr = chunk.Chunk{}
	return m, nil
}

func (x *Rep) SetOpt(level, name int, val []byte) error { return grideerr.ErrNoProtoOpt }
func (x *Rep) GetOpt(level, name int) ([]byte, error)   { return nil, grideerr.ErrNoProtoOpt }
func (x *Rep) ProtocolNumber() uint16                   { return wire.ProtoRep }
