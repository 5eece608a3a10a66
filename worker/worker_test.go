package worker

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bizzaro-jhunt/gridmq-sub000/poller"
)

type fdRecorder struct {
	events chan poller.Kind
}

func (f *fdRecorder) OnFD(kind poller.Kind) { f.events <- kind }

func TestRegisterFDDeliversReadReadiness(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	go w.Run()
	defer w.Stop()

	r, wr, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer wr.Close()

	rec := &fdRecorder{events: make(chan poller.Kind, 1)}
	h, err := w.RegisterFD(int(r.Fd()), rec)
	require.NoError(t, err)
	require.NoError(t, w.ArmIn(h))

	_, err = wr.Write([]byte("x"))
	require.NoError(t, err)

	select {
	case k := <-rec.events:
		require.Equal(t, poller.KindIn, k)
	case <-time.After(time.Second):
		t.Fatal("OnFD was never called")
	}
}

func TestExecuteRunsTaskOnWorkerGoroutine(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	go w.Run()
	defer w.Stop()

	done := make(chan struct{}, 1)
	task := NewTask(func() { done <- struct{}{} })
	w.Execute(task)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
}

func TestCancelPreventsQueuedTaskFromRunning(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	ran := make(chan struct{}, 1)
	task := NewTask(func() { ran <- struct{}{} })
	w.Execute(task)
	w.Cancel(task)

	go w.Run()
	defer w.Stop()

	select {
	case <-ran:
		t.Fatal("cancelled task still ran")
	case <-time.After(100 * time.Millisecond):
	}
}

type timerRecorder struct {
	fired chan any
}

func (t *timerRecorder) OnTimer(data any) { t.fired <- data }

func TestAddTimerFiresAfterDelay(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	go w.Run()
	defer w.Stop()

	rec := &timerRecorder{fired: make(chan any, 1)}
	w.AddTimer(10*time.Millisecond, "hello", rec)

	select {
	case data := <-rec.fired:
		require.Equal(t, "hello", data)
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestCancelTimerPreventsFiring(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	go w.Run()
	defer w.Stop()

	rec := &timerRecorder{fired: make(chan any, 1)}
	timer := w.AddTimer(50*time.Millisecond, "nope", rec)
	w.CancelTimer(timer)

	select {
	case <-rec.fired:
		t.Fatal("cancelled timer still fired")
	case <-time.After(150 * time.Millisecond):
	}
}
