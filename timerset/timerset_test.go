package timerset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextDeadlineOrdersAcrossInserts(t *testing.T) {
	ts := New()
	_, ok := ts.NextDeadline()
	require.False(t, ok)

	ts.Add(300, 3, "third")
	ts.Add(100, 1, "first")
	ts.Add(200, 2, "second")

	d, ok := ts.NextDeadline()
	require.True(t, ok)
	require.Equal(t, int64(100), d)
	require.Equal(t, 3, ts.Len())
}

func TestPopExpiredReturnsOnlyDueTimers(t *testing.T) {
	ts := New()
	ts.Add(100, 1, "a")
	ts.Add(200, 2, "b")
	ts.Add(300, 3, "c")

	fired := ts.PopExpired(200)
	require.Len(t, fired, 2)
	require.Equal(t, "a", fired[0].Data)
	require.Equal(t, "b", fired[1].Data)
	require.Equal(t, 1, ts.Len())

	d, ok := ts.NextDeadline()
	require.True(t, ok)
	require.Equal(t, int64(300), d)
}

func TestCancelRemovesPendingTimer(t *testing.T) {
	ts := New()
	a := ts.Add(100, 1, "a")
	ts.Add(200, 2, "b")

	ts.Cancel(a)
	require.Equal(t, 1, ts.Len())

	fired := ts.PopExpired(1000)
	require.Len(t, fired, 1)
	require.Equal(t, "b", fired[0].Data)
}

func TestCancelAfterFireIsANoop(t *testing.T) {
	ts := New()
	a := ts.Add(100, 1, "a")

	fired := ts.PopExpired(1000)
	require.Len(t, fired, 1)

	require.NotPanics(t, func() { ts.Cancel(a) })
	require.Equal(t, 0, ts.Len())
}
