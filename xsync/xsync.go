// Package xsync provides the small concurrency primitives the async engine
// is built from: a monotonic clock, a counting semaphore, and an event-fd
// substitute (a closeable wakeup channel), mirroring the role of cmn/mono's
// monotonic clock in the teacher.
package xsync

import (
	"sync"
	"time"
)

// Now returns a monotonic-clock reading (nanoseconds since an arbitrary
// epoch). Only deltas between two readings are meaningful.
func Now() int64 { return time.Now().UnixNano() }

// Sem is a counting semaphore. Nothing else in the library uses it at
// present; the socket's hold-counter and close() do not go through it.
type Sem struct {
	mu   sync.Mutex
	cond *sync.Cond
	n    int
}

func NewSem(n int) *Sem {
	s := &Sem{n: n}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Sem) Acquire() {
	s.mu.Lock()
	for s.n == 0 {
		s.cond.Wait()
	}
	s.n--
	s.mu.Unlock()
}

func (s *Sem) Release() {
	s.mu.Lock()
	s.n++
	s.cond.Signal()
	s.mu.Unlock()
}

// WakeupEFD is a level-free, edge-triggered wakeup primitive standing in for
// the source's eventfd: Signal is idempotent between drains, Drain consumes
// any pending signal without blocking.
type WakeupEFD struct {
	ch chan struct{}
}

func NewWakeupEFD() *WakeupEFD {
	return &WakeupEFD{ch: make(chan struct{}, 1)}
}

func (w *WakeupEFD) Signal() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

func (w *WakeupEFD) C() <-chan struct{} { return w.ch }

func (w *WakeupEFD) Drain() {
	select {
	case <-w.ch:
	default:
	}
}
