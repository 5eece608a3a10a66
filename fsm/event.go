package fsm

import "github.com/bizzaro-jhunt/gridmq-sub000/queue"

// Event is spec §3's {owner_fsm, src_tag, src_ptr, type, queue_link}. At
// most one membership in one queue at a time (node.InQueue mirrors
// "active == in_queue", spec §8 invariant 2).
type Event struct {
	node   queue.Node
	owner  *Machine
	dst    *Machine // nil for an intra-context raise; set for raise-to
	srcTag int
	srcPtr any
	typ    int
}

func (e *Event) InQueue() bool { return e.node.InQueue() }

func eventOf(n *queue.Node) *Event { return n.Value.(*Event) }

func (e *Event) feedNow() {
	target := e.dst
	if target == nil {
		target = e.owner
	}
	target.feedEvent(e.srcTag, e.srcPtr, e.typ)
}
