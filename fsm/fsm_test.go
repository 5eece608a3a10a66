package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	evStart = iota
	evPing
	evStop
	evStopped
)

func TestRaiseIntraFIFO(t *testing.T) {
	ctx := NewContext()
	var order []int
	var m *Machine
	m = NewMachine(ctx, "t", func(m *Machine, _ int, _ any, evtType int) {
		order = append(order, evtType)
	}, func(m *Machine, _ int, _ any, evtType int) {
		if evtType == evStopped {
			m.Finished()
		}
	})

	ctx.Enter()
	ev1, ev2 := &Event{}, &Event{}
	m.Raise(ev1, evPing)
	m.Raise(ev2, evPing)
	ctx.Leave()

	require.Equal(t, []int{evPing, evPing}, order)
}

func TestCrossContextDelivery(t *testing.T) {
	ctxA := NewContext()
	ctxB := NewContext()

	var delivered int
	mA := NewMachine(ctxA, "a", func(*Machine, int, any, int) {}, nil)
	mB := NewMachine(ctxB, "b", func(m *Machine, _ int, _ any, evtType int) {
		delivered = evtType
	}, nil)

	ctxA.Enter()
	ev := &Event{}
	mA.RaiseTo(mB, ev, 1, nil, evPing)
	ctxA.Leave()

	require.Equal(t, evPing, delivered)
}

func TestLifecycleStartStopTerm(t *testing.T) {
	ctx := NewContext()
	m := NewMachine(ctx, "life", func(m *Machine, _ int, _ any, evtType int) {
		require.Equal(t, evStart, evtType)
	}, func(m *Machine, _ int, _ any, evtType int) {
		require.Equal(t, evStop, evtType)
		m.Finished()
	})

	m.Start(evStart)
	require.False(t, m.IsIdle())
	m.Stop(evStop)
	require.True(t, m.IsIdle())
	m.Term() // must not panic
}

func TestTermWhileNotIdlePanics(t *testing.T) {
	ctx := NewContext()
	m := NewMachine(ctx, "bad", func(*Machine, int, any, int) {}, func(*Machine, int, any, int) {})
	m.Start(evStart)
	require.Panics(t, func() { m.Term() })
}
