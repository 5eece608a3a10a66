// Package fsm implements the hierarchical finite-state-machine runtime of
// spec §4.1 and §5: a Context is a mutex plus two event queues that lets
// user-thread calls and worker-raised events share FSM state safely; a
// Machine is one state machine bound to a Context. Grounded on the lifecycle
// shape of xact/xreg.Renewable (register, Start, WhenPrevIsRunning-style
// transition decisions) generalized into an explicit two-queue event bus.
package fsm

import (
	"sync"

	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/queue"
)

// Context serialises every FSM rooted in it: only the thread holding mu may
// raise events or step FSMs here (spec §3 Context invariant).
type Context struct {
	mu      sync.Mutex
	intra   queue.Queue
	cross   queue.Queue
	onLeave func()
	held    bool
}

func NewContext() *Context { return &Context{} }

// SetOnLeave installs a callback invoked once per Leave, after the intra
// queue has fully drained and before cross-context events are dispatched.
func (c *Context) SetOnLeave(fn func()) { c.onLeave = fn }

// Enter locks the context's mutex. Call Leave to release it and drain
// pending events.
func (c *Context) Enter() {
	c.mu.Lock()
	if c.held {
		grideerr.Invariant("fsm: context re-entered non-recursively")
	}
	c.held = true
}

// Leave drains the intra-queue under the lock, invokes the on-leave
// callback, then — having released the lock — delivers cross-context events
// in enqueue order per destination (spec §4.1, §5 ordering guarantees).
func (c *Context) Leave() {
	for {
		n := c.intra.Pop()
		if n == nil {
			break
		}
		eventOf(n).feedNow()
	}
	if c.onLeave != nil {
		c.onLeave()
	}
	var drained *queue.Node
	if !c.cross.Empty() {
		drained = c.cross.Drain()
	}
	c.held = false
	c.mu.Unlock()

	for n := drained; n != nil; n = queue.Next(n) {
		ev := eventOf(n)
		dst := ev.dst
		dst.ctx.Enter()
		ev.feedNow()
		dst.ctx.Leave()
	}
}

// raiseIntra enqueues ev onto self's intra-queue; must be called with self.ctx
// held (i.e. from inside a Machine handler, or between Enter/Leave).
func (c *Context) raiseIntra(ev *Event) {
	if ev.InQueue() {
		return
	}
	c.intra.Push(&ev.node)
	ev.node.Value = ev
}

func (c *Context) raiseCross(ev *Event) {
	if ev.InQueue() {
		return
	}
	c.cross.Push(&ev.node)
	ev.node.Value = ev
}
