package proto

import (
	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/proto/lb"
	"github.com/bizzaro-jhunt/gridmq-sub000/sock"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
)

// Respondent is the server half of SURVEYOR/RESPONDENT: same INPROGRESS
// discipline as Rep, but the backtrace may be multiple sphdr frames deep
// (spec §4.11c) since a survey can cross more than one respondent hop.
type Respondent struct {
	fq *lb.FairQueue

	inProgress bool
	backtrace  chunk.Chunk
	replyTo    *sock.Pipe
}

func NewRespondent() *Respondent { return &Respondent{fq: lb.NewFairQueue()} }

func (x *Respondent) Add(p *sock.Pipe) error {
	x.fq.Add(p)
	return nil
}

func (x *Respondent) Rm(p *sock.Pipe) {
	x.fq.Remove(p)
	if x.replyTo == p {
		x.replyTo = nil
		x.inProgress = false
	}
}

func (x *Respondent) In(*sock.Pipe)  {}
func (x *Respondent) Out(*sock.Pipe) {}

func (x *Respondent) Events() sock.EventBits {
	var e sock.EventBits
	if !x.inProgress && !x.fq.Empty() {
		e |= sock.EventIn
	}
	if x.inProgress && x.replyTo != nil && x.replyTo.CanSend() {
		e |= sock.EventOut
	}
	return e
}

func (x *Respondent) Send(m chunk.Message) error {
	if !x.inProgress {
		return grideerr.ErrFSM
	}
	m.Sphdr = x.backtrace
	err := x.replyTo.Send(m)
	x.inProgress = false
	x.replyTo = nil
	return err
}

// Recv scans the sphdr stack in the incoming frame until the top-bit
// "bottom of stack" marker, bounded by the received length; a frame that
// runs out of bytes before finding the marker is malformed and dropped.
func (x *Respondent) Recv() (chunk.Message, error) {
	for {
		p := x.fq.Current()
		if p == nil {
			return chunk.Message{}, grideerr.ErrAgain
		}
		m, _, ok := p.Recv()
		if !ok {
			return chunk.Message{}, grideerr.ErrAgain
		}
		bt := m.Sphdr.Bytes()
		if !hasStackBottom(bt) {
			continue // malformed survey frame: dropped, per spec
		}
		x.backtrace = m.Sphdr
		x.replyTo = p
		x.inProgress = true
		m.Sphdr = chunk.Chunk{}
		return m, nil
	}
}

func hasStackBottom(bt []byte) bool {
	for i := 0; i+4 <= len(bt); i += 4 {
		_, top := wire.ParseReqSphdr(bt[i : i+4])
		if top {
			return true
		}
	}
	return false
}

func (x *Respondent) SetOpt(level, name int, val []byte) error { return grideerr.ErrNoProtoOpt }
func (x *Respondent) GetOpt(level, name int) ([]byte, error)   { return nil, grideerr.ErrNoProtoOpt }
func (x *Respondent) ProtocolNumber() uint16                   { return wire.ProtoRespondent }
