// Package worker implements the L3 component of spec §2/§4.2: a dedicated
// thread owning a poller, a timer-set, a cross-thread task queue, and a
// wakeup fd. Grounded on transport/bundle.streamBundle's per-destination
// goroutine-plus-channel fan-out and its CAS-guarded graceful shutdown,
// generalized from "one goroutine per destination" to "one goroutine
// multiplexing many fds and timers".
package worker

import (
	"sync"
	"time"

	"github.com/bizzaro-jhunt/gridmq-sub000/poller"
	"github.com/bizzaro-jhunt/gridmq-sub000/timerset"
)

// FDOwner receives readiness events for a handle registered via RegisterFD.
type FDOwner interface {
	OnFD(kind poller.Kind)
}

// TimerOwner receives the fired notification for a timer added via AddTimer.
type TimerOwner interface {
	OnTimer(data any)
}

// Task is a preallocated, reusable unit of cross-thread work: exactly the
// "cross-thread task" primitive of spec §4.2/§9 — a slot the requesting FSM
// owns, so Execute never allocates on the hot path.
type Task struct {
	fn     func()
	mu     sync.Mutex
	queued bool
}

func NewTask(fn func()) *Task { return &Task{fn: fn} }

// Worker owns exactly one poller + timer-set + task queue, runs its loop on
// a dedicated goroutine standing in for the source's dedicated OS thread,
// and is the sole mutator of its poller/timer-set (spec §5's per-worker
// shared-resource policy).
type Worker struct {
	p       poller.Poller
	timers  *timerset.TimerSet
	wakeup  Wakeup
	wakeupH uintptr

	fdOwners map[uintptr]FDOwner
	fdMu     sync.Mutex

	taskMu sync.Mutex
	tasks  []*Task

	stop chan struct{}
	done chan struct{}
}

func New() (*Worker, error) {
	p, err := poller.New(256)
	if err != nil {
		return nil, err
	}
	wk, err := newWakeup()
	if err != nil {
		p.Close()
		return nil, err
	}
	w := &Worker{
		p:        p,
		timers:   timerset.New(),
		wakeup:   wk,
		fdOwners: make(map[uintptr]FDOwner),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	// the wakeup fd is registered like any other handle, with a sentinel
	// handle value the loop recognizes before dispatching to fdOwners.
	w.wakeupH = 1
	if err := p.Add(wk.FD(), w.wakeupH); err != nil {
		p.Close()
		wk.Close()
		return nil, err
	}
	if err := p.SetIn(w.wakeupH); err != nil {
		p.Close()
		wk.Close()
		return nil, err
	}
	return w, nil
}

// RegisterFD arms fd for readiness notification under a fresh handle.
func (w *Worker) RegisterFD(fd int, owner FDOwner) (uintptr, error) {
	w.fdMu.Lock()
	handle := uintptr(fd) << 1 // even handles are real fds; handle 1 is the wakeup sentinel
	w.fdOwners[handle] = owner
	w.fdMu.Unlock()
	if err := w.p.Add(fd, handle); err != nil {
		w.fdMu.Lock()
		delete(w.fdOwners, handle)
		w.fdMu.Unlock()
		return 0, err
	}
	return handle, nil
}

func (w *Worker) UnregisterFD(handle uintptr) error {
	w.fdMu.Lock()
	delete(w.fdOwners, handle)
	w.fdMu.Unlock()
	return w.p.Remove(handle)
}

func (w *Worker) ArmIn(handle uintptr) error    { return w.p.SetIn(handle) }
func (w *Worker) DisarmIn(handle uintptr) error { return w.p.ResetIn(handle) }
func (w *Worker) ArmOut(handle uintptr) error   { return w.p.SetOut(handle) }
func (w *Worker) DisarmOut(handle uintptr) error { return w.p.ResetOut(handle) }

// AddTimer schedules owner.OnTimer(data) to run on this worker's goroutine
// after d.
func (w *Worker) AddTimer(d time.Duration, data any, owner TimerOwner) *timerset.Timer {
	deadline := time.Now().Add(d).UnixNano()
	return w.timers.Add(deadline, 0, timerEntry{owner, data})
}

func (w *Worker) CancelTimer(t *timerset.Timer) { w.timers.Cancel(t) }

type timerEntry struct {
	owner TimerOwner
	data  any
}

// Execute pushes fn onto the worker's queue and wakes it; delivered at most
// once, callable from any thread (spec §4.2).
func (w *Worker) Execute(t *Task) {
	t.mu.Lock()
	if t.queued {
		t.mu.Unlock()
		return
	}
	t.queued = true
	t.mu.Unlock()

	w.taskMu.Lock()
	w.tasks = append(w.tasks, t)
	w.taskMu.Unlock()
	w.wakeup.Signal()
}

// Cancel removes t from the queue if still pending; a no-op otherwise.
func (w *Worker) Cancel(t *Task) {
	w.taskMu.Lock()
	for i, x := range w.tasks {
		if x == t {
			w.tasks = append(w.tasks[:i], w.tasks[i+1:]...)
			break
		}
	}
	w.taskMu.Unlock()
	t.mu.Lock()
	t.queued = false
	t.mu.Unlock()
}

// Run is the worker loop of spec §4.2, steps 1-6. It blocks the calling
// goroutine; start it with `go w.Run()`.
func (w *Worker) Run() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		timeout := -1
		if deadline, has := w.timers.NextDeadline(); has {
			ms := (deadline - time.Now().UnixNano()) / int64(time.Millisecond)
			if ms < 0 {
				ms = 0
			}
			timeout = int(ms)
		}

		n, err := w.p.Wait(timeout)
		if err != nil {
			continue
		}
		for i := 0; i < n; i++ {
			kind, handle, ok := w.p.Event()
			if !ok {
				break
			}
			if handle == w.wakeupH {
				w.wakeup.Drain()
				continue
			}
			w.fdMu.Lock()
			owner := w.fdOwners[handle]
			w.fdMu.Unlock()
			if owner != nil {
				owner.OnFD(kind)
			}
		}

		now := time.Now().UnixNano()
		for _, t := range w.timers.PopExpired(now) {
			e := t.Data.(timerEntry)
			e.owner.OnTimer(e.data)
		}

		w.drainTasks()

		select {
		case <-w.stop:
			return
		default:
		}
	}
}

func (w *Worker) drainTasks() {
	for {
		w.taskMu.Lock()
		if len(w.tasks) == 0 {
			w.taskMu.Unlock()
			return
		}
		t := w.tasks[0]
		w.tasks = w.tasks[1:]
		w.taskMu.Unlock()

		t.mu.Lock()
		t.queued = false
		t.mu.Unlock()
		t.fn()
	}
}

// Stop signals the loop to terminate and waits for it to exit.
func (w *Worker) Stop() {
	close(w.stop)
	w.wakeup.Signal()
	<-w.done
	w.p.Close()
	w.wakeup.Close()
}
