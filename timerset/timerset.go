// Package timerset is the L2 primitive of spec §2: a sorted-by-deadline set
// of pending timeouts that yields the next deadline and the handle that
// fired, owned exclusively by one worker thread.
package timerset

import "container/heap"

// Timer is one pending deadline. Handle and Data are opaque to TimerSet;
// the owning worker uses them to raise the right FSM event on expiry.
type Timer struct {
	Deadline int64 // monotonic nanoseconds
	Handle   uintptr
	Data     any
	index    int
	live     bool
}

type timerHeap []*Timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].Deadline < h[j].Deadline }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *timerHeap) Push(x any)         { t := x.(*Timer); t.index = len(*h); *h = append(*h, t) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	t.index = -1
	return t
}

// TimerSet is not safe for concurrent use: spec §5 reserves it to the
// owning worker thread.
type TimerSet struct {
	h timerHeap
}

func New() *TimerSet { return &TimerSet{} }

// Add inserts a new timer, returning a handle the caller can pass to Cancel.
func (ts *TimerSet) Add(deadline int64, handle uintptr, data any) *Timer {
	t := &Timer{Deadline: deadline, Handle: handle, Data: data, live: true}
	heap.Push(&ts.h, t)
	return t
}

// Cancel removes a timer if it is still pending. A timer already popped by
// PopExpired (its event possibly already queued for delivery) cannot be
// un-fired — callers must tolerate the late event (spec §5's timeout note;
// REQ checks its own state before acting on a resend).
func (ts *TimerSet) Cancel(t *Timer) {
	if !t.live || t.index < 0 {
		return
	}
	heap.Remove(&ts.h, t.index)
	t.live = false
}

// NextDeadline returns the earliest pending deadline and whether any timer
// is pending at all (§4.2 worker loop step 1).
func (ts *TimerSet) NextDeadline() (int64, bool) {
	if len(ts.h) == 0 {
		return 0, false
	}
	return ts.h[0].Deadline, true
}

// PopExpired removes and returns every timer whose deadline is <= now.
func (ts *TimerSet) PopExpired(now int64) []*Timer {
	var fired []*Timer
	for len(ts.h) > 0 && ts.h[0].Deadline <= now {
		t := heap.Pop(&ts.h).(*Timer)
		t.live = false
		fired = append(fired, t)
	}
	return fired
}

func (ts *TimerSet) Len() int { return len(ts.h) }
