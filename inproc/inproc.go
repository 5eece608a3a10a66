// Package inproc implements the L12 inproc transport of spec §4.12: a
// process-global directory pairing a bound and a connected Conn at the
// same address, wiring up a bidirectional message queue per pair. Built
// directly from spec.md's algorithm (see DESIGN.md; no pack file carries an
// equivalent rendezvous directory), with this package's own byte-limited
// Queue holding each direction's message list.
//
// The admission limit is byte-accounted, not message-counted, matching
// _examples/original_source/src/transports/inproc/msgqueue.c's
// grid_msgqueue_send: one message of arbitrary size is always let through
// so a single oversized message never deadlocks the pair, and every
// message after that is admitted only while the queue's outstanding bytes
// stay under the configured buffer size.
package inproc

import (
	"sync"

	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
)

const defaultQueueLimit = 128 * 1024

// Events is implemented by the socket-side pipe wrapper to learn about
// peer pairing, a message becoming available to pull, and peer teardown.
// OnReadable carries no payload: the message itself stays queued until the
// owner actually calls Queue.Pop, which is what makes the byte-size
// admission limit in Push meaningful instead of a check against a queue
// that's always drained back to empty before the next Push.
type Events interface {
	OnPaired(q *Queue)
	OnReadable()
	OnPeerGone()
}

// Queue is one direction's message list: a slice of messages guarded by
// its own mutex, with a byte-size admission limit that never blocks a
// single oversized message (spec §4.12).
type Queue struct {
	mu    sync.Mutex
	msgs  []chunk.Message
	mem   int64
	limit int64
}

func newQueue(limit int64) *Queue {
	if limit <= 0 {
		limit = defaultQueueLimit
	}
	return &Queue{limit: limit}
}

// Push admits m unless the queue already holds at least one message and
// adding this one's bytes would meet or exceed the configured limit.
func (q *Queue) Push(m chunk.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	msgsz := int64(m.Len())
	if len(q.msgs) > 0 && q.mem+msgsz >= q.limit {
		return grideerr.ErrAgain
	}
	q.msgs = append(q.msgs, m)
	q.mem += msgsz
	return nil
}

// Pop removes and returns the oldest message, freeing its bytes from the
// admission accounting so a Push blocked behind the limit can proceed.
func (q *Queue) Pop() (chunk.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.msgs) == 0 {
		return chunk.Message{}, false
	}
	m := q.msgs[0]
	q.msgs = q.msgs[1:]
	q.mem -= int64(m.Len())
	return m, true
}

// Conn is one side's registration at an address.
type Conn struct {
	addr   string
	proto  uint16
	bound  bool
	ev     Events
	sndbuf int64
	rcvbuf int64
	peer   *Conn
	out    *Queue // this Conn's send queue == its peer's recv queue
}

// Proto reports the protocol number this Conn was registered under, so
// ep/Bind/Connect callers can verify peer compatibility the way a real
// transport's SP handshake would.
func (e *Conn) Proto() uint16 { return e.proto }

// Directory is the process-global pairing table of spec §4.12.
type Directory struct {
	mu    sync.Mutex
	binds map[string]*Conn
	conns map[string][]*Conn
}

func NewDirectory() *Directory {
	return &Directory{binds: make(map[string]*Conn), conns: make(map[string][]*Conn)}
}

var global = NewDirectory()

func Global() *Directory { return global }

// Bind registers a bound Conn at addr, pairing it with every compatible
// already-connected Conn. Only one bind per address is allowed. sndbuf/
// rcvbuf are the owning socket's configured SNDBUF/RCVBUF (spec §4.12);
// non-positive values fall back to defaultQueueLimit.
func (d *Directory) Bind(addr string, proto uint16, sndbuf, rcvbuf int64, ev Events) (*Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.binds[addr]; exists {
		return nil, grideerr.ErrAddrInUse
	}
	e := &Conn{addr: addr, proto: proto, bound: true, sndbuf: sndbuf, rcvbuf: rcvbuf, ev: ev}
	d.binds[addr] = e
	for _, c := range d.conns[addr] {
		if c.peer == nil {
			d.pair(e, c)
		}
	}
	return e, nil
}

// Connect registers a connecting Conn at addr, pairing it with a
// compatible bound Conn if one already exists.
func (d *Directory) Connect(addr string, proto uint16, sndbuf, rcvbuf int64, ev Events) *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := &Conn{addr: addr, proto: proto, sndbuf: sndbuf, rcvbuf: rcvbuf, ev: ev}
	d.conns[addr] = append(d.conns[addr], e)
	if b, ok := d.binds[addr]; ok && b.peer == nil {
		d.pair(b, e)
	}
	return e
}

// pair wires a's outbound queue (drained by b) and b's outbound queue
// (drained by a), each capped at the lesser of the sender's SNDBUF and the
// receiver's RCVBUF, the same way a real socket buffer is bounded by
// whichever end configures the smaller capacity.
func (d *Directory) pair(a, b *Conn) {
	qab := newQueue(minBuf(a.sndbuf, b.rcvbuf))
	qba := newQueue(minBuf(b.sndbuf, a.rcvbuf))
	a.peer, b.peer = b, a
	a.out, b.out = qab, qba
	a.ev.OnPaired(qba)
	b.ev.OnPaired(qab)
}

func minBuf(a, b int64) int64 {
	if a <= 0 {
		a = defaultQueueLimit
	}
	if b <= 0 {
		b = defaultQueueLimit
	}
	if a < b {
		return a
	}
	return b
}

// Send enqueues m on this Conn's outbound queue, which the peer's owner
// drains via the paired Queue.Pop (spec §4.12). The message stays resident
// in the queue, counted against the admission limit, until that Pop
// happens — that's what makes a full queue actually push back on Send
// instead of being drained back to empty before the limit is ever checked.
// Only a readable notification, not the message itself, crosses to the
// peer synchronously, since inproc has no poller to wait on.
func (e *Conn) Send(m chunk.Message) error {
	if e.out == nil || e.peer == nil {
		return grideerr.ErrAgain
	}
	if err := e.out.Push(m); err != nil {
		return err
	}
	e.peer.ev.OnReadable()
	return nil
}

// Remove unbinds or disconnects e: it removes e from the directory and
// notifies its peer, if any, that it is now gone.
func (d *Directory) Remove(e *Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e.bound {
		delete(d.binds, e.addr)
	} else {
		list := d.conns[e.addr]
		for i, c := range list {
			if c == e {
				d.conns[e.addr] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	if e.peer != nil {
		e.peer.peer = nil
		e.peer.out = nil
		e.peer.ev.OnPeerGone()
		e.peer = nil
	}
}
