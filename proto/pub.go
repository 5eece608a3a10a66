package proto

import (
	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/sock"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
)

// Pub fans a send out to every subscribed pipe; per-pipe send failures are
// dropped silently for that pipe (spec §4.11's "no backpressure" policy).
type Pub struct {
	pipes map[*sock.Pipe]struct{}
}

func NewPub() *Pub { return &Pub{pipes: make(map[*sock.Pipe]struct{})} }

func (x *Pub) Add(p *sock.Pipe) error {
	x.pipes[p] = struct{}{}
	return nil
}

func (x *Pub) Rm(p *sock.Pipe) { delete(x.pipes, p) }

func (x *Pub) In(*sock.Pipe)  {}
func (x *Pub) Out(*sock.Pipe) {}

func (x *Pub) Events() sock.EventBits {
	for p := range x.pipes {
		if p.CanSend() {
			return sock.EventOut
		}
	}
	return 0
}

func (x *Pub) Send(m chunk.Message) error {
	for p := range x.pipes {
		if p.CanSend() {
			copyM := m.Copy()
			_ = p.Send(copyM) // best-effort: failures drop for this pipe only
		}
	}
	return nil
}

func (x *Pub) Recv() (chunk.Message, error) { return chunk.Message{}, grideerr.ErrNoProtoOpt }

func (x *Pub) SetOpt(level, name int, val []byte) error { return grideerr.ErrNoProtoOpt }
func (x *Pub) GetOpt(level, name int) ([]byte, error)   { return nil, grideerr.ErrNoProtoOpt }
func (x *Pub) ProtocolNumber() uint16                   { return wire.ProtoPub }
