//go:build linux

package poller

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWaitReportsReadReadiness(t *testing.T) {
	p, err := New(8)
	require.NoError(t, err)
	defer p.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	const handle uintptr = 42
	require.NoError(t, p.Add(int(r.Fd()), handle))
	require.NoError(t, p.SetIn(handle))

	n, err := p.Wait(100)
	require.NoError(t, err)
	require.Equal(t, 0, n, "nothing written yet")

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	n, err = p.Wait(1000)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	kind, gotHandle, ok := p.Event()
	require.True(t, ok)
	require.Equal(t, KindIn, kind)
	require.Equal(t, handle, gotHandle)

	_, _, ok = p.Event()
	require.False(t, ok, "batch should be drained")
}

func TestResetInStopsFurtherNotifications(t *testing.T) {
	p, err := New(8)
	require.NoError(t, err)
	defer p.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	const handle uintptr = 7
	require.NoError(t, p.Add(int(r.Fd()), handle))
	require.NoError(t, p.SetIn(handle))
	require.NoError(t, p.ResetIn(handle))

	_, err = w.Write([]byte("y"))
	require.NoError(t, err)

	n, err := p.Wait(100)
	require.NoError(t, err)
	require.Equal(t, 0, n, "EPOLLIN was disarmed")
}

func TestRemoveStopsNotifications(t *testing.T) {
	p, err := New(8)
	require.NoError(t, err)
	defer p.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	const handle uintptr = 9
	require.NoError(t, p.Add(int(r.Fd()), handle))
	require.NoError(t, p.SetIn(handle))
	require.NoError(t, p.Remove(handle))

	_, err = w.Write([]byte("z"))
	require.NoError(t, err)

	n, err := p.Wait(100)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
