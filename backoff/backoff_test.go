package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bizzaro-jhunt/gridmq-sub000/worker"
)

func TestNextDoublesUntilCappedAtMax(t *testing.T) {
	b := New(10*time.Millisecond, 35*time.Millisecond)

	require.Equal(t, 10*time.Millisecond, b.Next())
	require.Equal(t, 20*time.Millisecond, b.Next())
	require.Equal(t, 35*time.Millisecond, b.Next(), "doubling to 40ms should clamp to max")
	require.Equal(t, 35*time.Millisecond, b.Next())
}

func TestResetRestartsTheSeries(t *testing.T) {
	b := New(10*time.Millisecond, 0)
	b.Next()
	b.Next()
	b.Reset()
	require.Equal(t, 10*time.Millisecond, b.Next())
}

func TestNewClampsMaxBelowMinUpToMin(t *testing.T) {
	b := New(50*time.Millisecond, 10*time.Millisecond)
	require.Equal(t, 50*time.Millisecond, b.Next())
	require.Equal(t, 50*time.Millisecond, b.Next())
}

func TestArmFiresOnceOnOwningWorker(t *testing.T) {
	w, err := worker.New()
	require.NoError(t, err)
	go w.Run()
	defer w.Stop()

	b := New(5*time.Millisecond, 20*time.Millisecond)
	fired := make(chan struct{}, 1)
	b.Arm(w, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("backoff never fired")
	}
}

func TestCancelBeforeFirePreventsCallback(t *testing.T) {
	w, err := worker.New()
	require.NoError(t, err)
	go w.Run()
	defer w.Stop()

	b := New(50*time.Millisecond, 200*time.Millisecond)
	fired := make(chan struct{}, 1)
	b.Arm(w, func() { fired <- struct{}{} })
	b.Cancel()

	select {
	case <-fired:
		t.Fatal("cancelled backoff still fired")
	case <-time.After(100 * time.Millisecond):
	}
}
