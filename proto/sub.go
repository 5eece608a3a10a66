package proto

import (
	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/opt"
	"github.com/bizzaro-jhunt/gridmq-sub000/proto/lb"
	"github.com/bizzaro-jhunt/gridmq-sub000/sock"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
)

// Sub receives from a fair-queue of publishers, filtering by a subscription
// trie (spec §4.11).
type Sub struct {
	fq  *lb.FairQueue
	sub *trie
}

func NewSub() *Sub { return &Sub{fq: lb.NewFairQueue(), sub: newTrie()} }

func (x *Sub) Add(p *sock.Pipe) error {
	x.fq.Add(p)
	return nil
}

func (x *Sub) Rm(p *sock.Pipe) { x.fq.Remove(p) }

func (x *Sub) In(*sock.Pipe)  {}
func (x *Sub) Out(*sock.Pipe) {}

func (x *Sub) Events() sock.EventBits {
	if !x.fq.Empty() {
		return sock.EventIn
	}
	return 0
}

func (x *Sub) Send(chunk.Message) error { return grideerr.ErrNoProtoOpt }

// Recv drains the fair-queue, dropping any message whose body doesn't
// match a subscribed topic, per spec §4.11.
func (x *Sub) Recv() (chunk.Message, error) {
	for {
		p := x.fq.Current()
		if p == nil {
			return chunk.Message{}, grideerr.ErrAgain
		}
		m, _, ok := p.Recv()
		if !ok {
			return chunk.Message{}, grideerr.ErrAgain
		}
		if x.sub.MatchAny(m.Body.Bytes()) {
			return m, nil
		}
		// no match: drop and loop for the next pipe/message
	}
}

func (x *Sub) SetOpt(level, name int, val []byte) error {
	switch name {
	case opt.SubSubscribe:
		x.sub.Subscribe(val)
		return nil
	case opt.SubUnsubscribe:
		_, found := x.sub.Unsubscribe(val)
		if !found {
			return grideerr.ErrInvalid
		}
		return nil
	default:
		return grideerr.ErrNoProtoOpt
	}
}

func (x *Sub) GetOpt(level, name int) ([]byte, error) { return nil, grideerr.ErrNoProtoOpt }
func (x *Sub) ProtocolNumber() uint16                 { return wire.ProtoSub }
