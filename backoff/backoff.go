// Package backoff is the L7 exponential retry timer of spec §4.5's endpoint
// WAITING state: doubling delay between a configurable min and max, armed on
// a worker.Worker. Grounded on reb/status.go's monotonic retry-throttle
// idiom (compare elapsed against a threshold before allowing the next
// attempt), generalized from a fixed keepalive interval to a doubling one.
package backoff

import (
	"time"

	"github.com/bizzaro-jhunt/gridmq-sub000/timerset"
	"github.com/bizzaro-jhunt/gridmq-sub000/worker"
)

const (
	DefaultMin = 100 * time.Millisecond
	DefaultMax = 20 * time.Second
)

// Backoff tracks one endpoint's current retry delay. Not safe for
// concurrent use; callers own it from their single owning worker goroutine.
type Backoff struct {
	min, max time.Duration
	cur      time.Duration
	fn       func()
	pending  *timerset.Timer
	w        *worker.Worker
}

// New builds a Backoff with min/max from socket options (spec.md's
// reconnect_ivl / reconnect_ivl_max); zero values fall back to defaults.
func New(min, max time.Duration) *Backoff {
	if min <= 0 {
		min = DefaultMin
	}
	if max <= 0 {
		max = DefaultMax
	}
	if max < min {
		max = min
	}
	return &Backoff{min: min, max: max}
}

// Reset returns the backoff to its initial delay; called on a successful
// connect so the next failure starts the series over.
func (b *Backoff) Reset() { b.cur = 0 }

// Next returns the delay to wait before the next attempt and advances the
// series (doubling, capped at max).
func (b *Backoff) Next() time.Duration {
	if b.cur == 0 {
		b.cur = b.min
	} else {
		b.cur *= 2
		if b.cur > b.max {
			b.cur = b.max
		}
	}
	return b.cur
}

// Arm schedules fn to fire on w's own timer-set after the next backoff
// delay (spec §4.5's WAITING state), keeping the retry on the same worker
// goroutine that owns the endpoint rather than a stray stdlib timer.
func (b *Backoff) Arm(w *worker.Worker, fn func()) {
	b.w = w
	b.fn = fn
	d := b.Next()
	b.pending = w.AddTimer(d, nil, b)
}

// OnTimer implements worker.TimerOwner.
func (b *Backoff) OnTimer(any) {
	b.pending = nil
	if b.fn != nil {
		b.fn()
	}
}

// Cancel aborts a pending Arm, if any (endpoint shutdown while WAITING).
func (b *Backoff) Cancel() {
	if b.pending != nil && b.w != nil {
		b.w.CancelTimer(b.pending)
		b.pending = nil
	}
}
