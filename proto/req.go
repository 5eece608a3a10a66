package proto

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/opt"
	"github.com/bizzaro-jhunt/gridmq-sub000/proto/lb"
	"github.com/bizzaro-jhunt/gridmq-sub000/sock"
	"github.com/bizzaro-jhunt/gridmq-sub000/timerset"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
	"github.com/bizzaro-jhunt/gridmq-sub000/worker"
)

type reqState int

const (
	reqIdle reqState = iota
	reqPassive
	reqDelayed
	reqActive
	reqDone
)

const defaultResendIvl = 60_000 // ms, spec.md's REQ_RESEND_IVL default

// Req is the client half of spec §4.11's REQ/REP: one outstanding request
// at a time, resent on a timer until a matching reply arrives.
type Req struct {
	lb *lb.LoadBalancer

	state      reqState
	reqID      uint32
	storedReq  chunk.Message
	storedRep  chunk.Message
	dispatched *sock.Pipe
	resendMS   int64

	w     *worker.Worker
	timer *timerset.Timer
}

// NewReq seeds the request-id counter with a cryptographically random
// 31-bit draw, per spec §4.11, so replies from a previous process
// incarnation never collide with this one's ids.
func NewReq(w *worker.Worker) *Req {
	var b [4]byte
	rand.Read(b[:])
	seed := binary.BigEndian.Uint32(b[:]) & 0x7fffffff
	return &Req{lb: lb.NewLoadBalancer(), w: w, reqID: seed, resendMS: defaultResendIvl}
}

func (x *Req) Add(p *sock.Pipe) error {
	x.lb.Add(p)
	if x.state == reqDelayed {
		x.tryDispatch()
	}
	return nil
}

func (x *Req) Rm(p *sock.Pipe) {
	x.lb.Remove(p)
	if x.dispatched == p {
		x.dispatched = nil
		x.fireResend() // spec §4.11 rule 5: pipe disappearing acts like an immediate timer fire
	}
}

func (x *Req) In(p *sock.Pipe) {
	if x.state != reqActive || p != x.dispatched {
		return
	}
	m, _, ok := p.Recv()
	if !ok {
		return
	}
	id, top := wire.ParseReqSphdr(m.Sphdr.Bytes())
	if !top || id != x.reqID {
		return // not our current request: drop, per spec
	}
	x.cancelResend()
	x.storedRep = m
	x.state = reqDone
}

func (x *Req) Out(p *sock.Pipe) {
	if x.state == reqDelayed {
		x.tryDispatch()
	}
}

func (x *Req) Events() sock.EventBits {
	var e sock.EventBits
	if x.state == reqDelayed && x.lb.Current() != nil {
		e |= sock.EventOut
	}
	if x.state == reqDone {
		e |= sock.EventIn
	}
	return e
}

func (x *Req) Send(m chunk.Message) error {
	if x.state == reqActive || x.state == reqDone {
		// a fresh send abandons any in-flight/unclaimed reply
		x.cancelResend()
	}
	x.reqID++
	m.Sphdr = chunk.Wrap(sphdrBytes(x.reqID))
	x.storedReq = m
	x.state = reqDelayed
	x.tryDispatch()
	return nil
}

func sphdrBytes(id uint32) []byte {
	b := wire.ReqSphdr(id)
	return b[:]
}

func (x *Req) tryDispatch() {
	p := x.lb.Current()
	if p == nil {
		x.state = reqDelayed
		return
	}
	if err := p.Send(x.storedReq.Copy()); err != nil {
		return
	}
	x.dispatched = p
	x.state = reqActive
	x.armResend()
}

func (x *Req) armResend() {
	if x.w == nil {
		return
	}
	x.timer = x.w.AddTimer(msToDuration(x.resendMS), nil, reqTimerAdapter{x})
}

func (x *Req) cancelResend() {
	if x.w != nil && x.timer != nil {
		x.w.CancelTimer(x.timer)
	}
	x.timer = nil
}

func (x *Req) fireResend() {
	if x.state != reqActive {
		return
	}
	x.dispatched = nil
	x.tryDispatch()
}

type reqTimerAdapter struct{ x *Req }

func (a reqTimerAdapter) OnTimer(any) { a.x.fireResend() }

func (x *Req) Recv() (chunk.Message, error) {
	if x.state != reqDone {
		return chunk.Message{}, grideerr.ErrAgain
	}
	m := x.storedRep
	x.storedRep = chunk.Message{}
	x.state = reqPassive
	return m, nil
}

func (x *Req) SetOpt(level, name int, val []byte) error {
	if name == opt.ReqResendIvl && len(val) == 8 {
		x.resendMS = int64(binary.BigEndian.Uint64(val))
		return nil
	}
	return grideerr.ErrNoProtoOpt
}

func (x *Req) GetOpt(level, name int) ([]byte, error) { return nil, grideerr.ErrNoProtoOpt }
func (x *Req) ProtocolNumber() uint16                 { return wire.ProtoReq }

func msToDuration(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }
