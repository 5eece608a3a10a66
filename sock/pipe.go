// Package sock is the L10 socket FSM and pipe-base of spec §4.9/§4.10: the
// protocol-facing view of one peer connection, and the socket object that
// multiplexes a set of pipes behind a single protocol plugin. Grounded on
// xact/xreg/xreg.go's registry-held, refcounted member lifecycle, adapted
// from xaction bookkeeping to per-pipe in/out availability tracking.
package sock

import "github.com/bizzaro-jhunt/gridmq-sub000/chunk"

// Avail is the half-duplex availability state of one direction of a pipe,
// per spec §4.9.
type Avail int

const (
	Deactivated Avail = iota
	Async
	Idle
	Receiving
)

// RecvResult flags returned by Pipe.Recv: Release signals the
// load-balancer/fair-queue to rotate away from this pipe; Parsed signals the
// protocol already split a header out of the message.
type RecvResult struct {
	Release bool
	Parsed  bool
}

// Sender is implemented by a pipe's underlying session/transport so the
// protocol layer can push a message without knowing the wire format.
type Sender interface {
	Send(m chunk.Message) error
}

// Pipe is the session's interface to its protocol (spec §4.9): half-duplex
// in each direction with explicit availability to avoid re-entrant FSM
// calls.
type Pipe struct {
	Sender   Sender
	Priority int // SNDPRIO/RCVPRIO, 1..16

	inAvail  Avail
	outAvail Avail

	pendingQ []chunk.Message

	// pull, when set (inproc pipes only), backs Recv with a lazy fetch from
	// the peer's admission-limited inproc.Queue instead of pendingQ, so a
	// message stays counted against that queue's byte limit until the
	// protocol actually calls Recv rather than being copied into pendingQ's
	// unbounded slice the moment it arrives.
	pull func() (chunk.Message, bool)

	id uint64
}

func NewPipe(s Sender, id uint64) *Pipe {
	return &Pipe{Sender: s, Priority: 8, id: id, inAvail: Deactivated, outAvail: Deactivated}
}

func (p *Pipe) ID() uint64 { return p.id }

// SetPull installs a lazy message source for Recv, replacing pendingQ as
// the in-direction's backing store.
func (p *Pipe) SetPull(f func() (chunk.Message, bool)) { p.pull = f }

// Start transitions both directions from DEACTIVATED to ASYNC, the
// "waiting for first message" state, once the session is active.
func (p *Pipe) Start() {
	p.inAvail = Async
	p.outAvail = Async
}

// OnReceived is called by the session when a full message arrives. It
// queues the message and parks the pipe in IDLE until the protocol drains
// it via Recv; queuing rather than keeping a single slot means a sender
// that outruns the protocol's Recv calls still has every admitted message
// delivered in order, not silently clobbered by the next arrival.
func (p *Pipe) OnReceived(m chunk.Message) {
	p.pendingQ = append(p.pendingQ, m)
	p.inAvail = Idle
}

// MarkReadable is the pull-backed equivalent of OnReceived: it parks the
// pipe in IDLE without copying a message anywhere, since Recv will fetch
// it from pull when the protocol is ready.
func (p *Pipe) MarkReadable() {
	p.inAvail = Idle
}

// Recv takes the oldest pending message, if any, transitioning to ASYNC
// once the queue drains (spec §4.9's RECEIVING -> IDLE|ASYNC).
func (p *Pipe) Recv() (chunk.Message, RecvResult, bool) {
	if p.inAvail != Idle {
		return chunk.Message{}, RecvResult{}, false
	}
	if p.pull != nil {
		p.inAvail = Receiving
		m, ok := p.pull()
		if !ok {
			p.inAvail = Async
			return chunk.Message{}, RecvResult{}, false
		}
		p.inAvail = Idle
		return m, RecvResult{}, true
	}
	if len(p.pendingQ) == 0 {
		return chunk.Message{}, RecvResult{}, false
	}
	p.inAvail = Receiving
	m := p.pendingQ[0]
	p.pendingQ = p.pendingQ[1:]
	if len(p.pendingQ) == 0 {
		p.inAvail = Async
	} else {
		p.inAvail = Idle
	}
	return m, RecvResult{}, true
}

// CanSend reports whether the out direction currently has a slot (ASYNC).
func (p *Pipe) CanSend() bool { return p.outAvail == Async }

// Send hands m to the underlying session; RELEASE is reported once "sent"
// comes back via OnSent, not synchronously, since the wire write is async.
// A synchronous failure (inproc's admission-limit EAGAIN, or an outright
// transport error) means nothing is actually in flight, so the out
// direction reverts to ASYNC immediately instead of being stuck waiting
// for an OnSent that will never come.
func (p *Pipe) Send(m chunk.Message) error {
	p.outAvail = Idle
	if err := p.Sender.Send(m); err != nil {
		p.outAvail = Async
		return err
	}
	return nil
}

// OnSent marks the out direction ready for another message.
func (p *Pipe) OnSent() { p.outAvail = Async }

func (p *Pipe) HasIn() bool  { return p.inAvail == Idle }
func (p *Pipe) HasOut() bool { return p.outAvail == Async }
