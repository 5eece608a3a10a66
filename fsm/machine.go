package fsm

import "github.com/bizzaro-jhunt/gridmq-sub000/grideerr"

// Handler is a state-machine step function: the normal handler_fn or the
// shutdown_fn of spec §4.1.
type Handler func(m *Machine, srcTag int, srcPtr any, evtType int)

// Lifecycle states every Machine passes through regardless of its
// component-specific state numbering, which handlers track themselves in
// State.
const (
	LifeIdle = iota
	LifeActive
	LifeStopping
)

// Machine is one FSM: a handler, a shutdown handler, an integer state owned
// by the caller, and the src tag/ptr identifying it to its own raised
// events (spec §3 FSM).
type Machine struct {
	ctx      *Context
	handler  Handler
	shutdown Handler

	State  int // component-specific state (e.g. usock's 14-state enum)
	life   int // LifeIdle / LifeActive / LifeStopping
	SrcTag int
	SrcPtr any
	Owner  *Machine

	stoppedEvent   Event
	stoppedPending bool
	name           string // for diagnostics only
}

func NewMachine(ctx *Context, name string, handler, shutdown Handler) *Machine {
	return &Machine{ctx: ctx, name: name, handler: handler, shutdown: shutdown}
}

func (m *Machine) Ctx() *Context { return m.ctx }

// Start transitions Idle -> Active and invokes the handler with the given
// action type (by convention, a START action).
func (m *Machine) Start(startAction int) {
	if m.life != LifeIdle {
		grideerr.Invariant("fsm(%s): Start from non-idle life state %d", m.name, m.life)
	}
	m.life = LifeActive
	m.feedEvent(m.SrcTag, m.SrcPtr, startAction)
}

// Stop transitions Active -> Stopping; subsequent Feed calls route to the
// shutdown handler until it raises the terminal event.
func (m *Machine) Stop(stopAction int) {
	if m.life == LifeIdle {
		return
	}
	m.life = LifeStopping
	m.stoppedPending = true
	m.feedEvent(m.SrcTag, m.SrcPtr, stopAction)
}

// Finished is called by a shutdown handler once it has reached its terminal
// state, completing Stopping -> Idle.
func (m *Machine) Finished() {
	m.life = LifeIdle
	m.stoppedPending = false
}

// Term asserts the §8 invariant 1: at term, state is Idle and no pending
// stopped event exists.
func (m *Machine) Term() {
	if m.life != LifeIdle || m.stoppedPending {
		grideerr.Invariant("fsm(%s): Term while not idle (life=%d pending=%v)", m.name, m.life, m.stoppedPending)
	}
}

func (m *Machine) IsStopping() bool { return m.life == LifeStopping }
func (m *Machine) IsIdle() bool     { return m.life == LifeIdle }

// feedEvent routes to shutdown while STOPPING, to handler otherwise (spec
// §4.1). Unknown (state, src, type) triples are the handler's problem to
// reject via grideerr.Invariant — a programmer error, not runtime input.
func (m *Machine) feedEvent(srcTag int, srcPtr any, evtType int) {
	if m.life == LifeStopping {
		m.shutdown(m, srcTag, srcPtr, evtType)
	} else {
		m.handler(m, srcTag, srcPtr, evtType)
	}
}

// Raise enqueues an event addressed to this same machine's context, to be
// drained (FIFO, before the current Leave unlocks) per spec §4.1/§5.
func (m *Machine) Raise(ev *Event, evtType int) {
	ev.owner = m
	ev.dst = nil
	ev.srcTag = m.SrcTag
	ev.srcPtr = m.SrcPtr
	ev.typ = evtType
	m.ctx.raiseIntra(ev)
}

// RaiseTo enqueues an event addressed to dst's context, delivered after this
// context's Leave unlocks (spec §4.1: cross-context events never run with
// two mutexes held at once).
func (m *Machine) RaiseTo(dst *Machine, ev *Event, srcTag int, srcPtr any, evtType int) {
	if dst.ctx == m.ctx {
		// same context: no need to cross a lock boundary, just run intra.
		ev.owner = m
		ev.dst = dst
		ev.srcTag = srcTag
		ev.srcPtr = srcPtr
		ev.typ = evtType
		m.ctx.raiseIntra(ev)
		return
	}
	ev.owner = m
	ev.dst = dst
	ev.srcTag = srcTag
	ev.srcPtr = srcPtr
	ev.typ = evtType
	m.ctx.raiseCross(ev)
}
