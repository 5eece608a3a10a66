package proto

import (
	"encoding/binary"
	"time"

	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/opt"
	"github.com/bizzaro-jhunt/gridmq-sub000/sock"
	"github.com/bizzaro-jhunt/gridmq-sub000/timerset"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
	"github.com/bizzaro-jhunt/gridmq-sub000/worker"
)

const defaultSurveyDeadlineMS = 1000

// Surveyor fans a survey out to every pipe (as PUB does) and collects
// replies until a deadline timer fires, filtering by survey id (spec
// §4.11).
type Surveyor struct {
	pipes map[*sock.Pipe]struct{}

	surveyID  uint32
	active    bool
	deadlineMS int64
	replies   []chunk.Message

	w     *worker.Worker
	timer *timerset.Timer
}

func NewSurveyor(w *worker.Worker) *Surveyor {
	return &Surveyor{pipes: make(map[*sock.Pipe]struct{}), w: w, deadlineMS: defaultSurveyDeadlineMS}
}

func (x *Surveyor) Add(p *sock.Pipe) error {
	x.pipes[p] = struct{}{}
	return nil
}

func (x *Surveyor) Rm(p *sock.Pipe) { delete(x.pipes, p) }

func (x *Surveyor) In(p *sock.Pipe) {
	if !x.active {
		return
	}
	m, _, ok := p.Recv()
	if !ok {
		return
	}
	id, top := wire.ParseReqSphdr(m.Sphdr.Bytes())
	if !top || id != x.surveyID {
		return
	}
	x.replies = append(x.replies, m)
}

func (x *Surveyor) Out(*sock.Pipe) {}

func (x *Surveyor) Events() sock.EventBits {
	var e sock.EventBits
	if len(x.replies) > 0 {
		e |= sock.EventIn
	}
	for p := range x.pipes {
		if p.CanSend() {
			e |= sock.EventOut
			break
		}
	}
	return e
}

// Send starts a new survey, superseding any in-flight one (its late
// replies will be filtered out by surveyID once the new one starts).
func (x *Surveyor) Send(m chunk.Message) error {
	x.surveyID++
	x.replies = nil
	x.active = true
	sphdr := wire.ReqSphdr(x.surveyID)
	for p := range x.pipes {
		if !p.CanSend() {
			continue
		}
		cp := m.Copy()
		cp.Sphdr = chunk.Wrap(sphdr[:])
		_ = p.Send(cp)
	}
	if x.w != nil {
		if x.timer != nil {
			x.w.CancelTimer(x.timer)
		}
		x.timer = x.w.AddTimer(time.Duration(x.deadlineMS)*time.Millisecond, nil, surveyTimerAdapter{x})
	}
	return nil
}

type surveyTimerAdapter struct{ x *Surveyor }

func (a surveyTimerAdapter) OnTimer(any) { a.x.active = false }

func (x *Surveyor) Recv() (chunk.Message, error) {
	if len(x.replies) == 0 {
		return chunk.Message{}, grideerr.ErrAgain
	}
	m := x.replies[0]
	x.replies = x.replies[1:]
	return m, nil
}

func (x *Surveyor) SetOpt(level, name int, val []byte) error {
	if name == opt.SurveyorDeadline && len(val) == 8 {
		x.deadlineMS = int64(binary.BigEndian.Uint64(val))
		return nil
	}
	return grideerr.ErrNoProtoOpt
}

func (x *Surveyor) GetOpt(level, name int) ([]byte, error) { return nil, grideerr.ErrNoProtoOpt }
func (x *Surveyor) ProtocolNumber() uint16                 { return wire.ProtoSurveyor }
