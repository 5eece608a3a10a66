package usock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/bizzaro-jhunt/gridmq-sub000/worker"
)

type recEvents struct {
	established chan struct{}
	sent        chan int
	received    chan struct{}
	errs        chan error
	done        chan struct{}
}

func newRecEvents() *recEvents {
	return &recEvents{
		established: make(chan struct{}, 1),
		sent:        make(chan int, 8),
		received:    make(chan struct{}, 8),
		errs:        make(chan error, 8),
		done:        make(chan struct{}, 1),
	}
}

func (r *recEvents) OnEstablished()                   { r.established <- struct{}{} }
func (r *recEvents) OnAccepted(u *Usock)               {}
func (r *recEvents) OnSent(n int)                      { r.sent <- n }
func (r *recEvents) OnReceived(buf []byte, oobFD int)  { r.received <- struct{}{} }
func (r *recEvents) OnError(err error)                 { r.errs <- err }
func (r *recEvents) OnAcceptError(err error)           { r.errs <- err }
func (r *recEvents) OnDone()                           { r.done <- struct{}{} }

func socketpair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)
	return fds[0], fds[1]
}

func TestActivateThenSendReceiveRoundTrip(t *testing.T) {
	w, err := worker.New()
	require.NoError(t, err)
	go w.Run()
	defer w.Stop()

	fdA, fdB := socketpair(t)

	evA := newRecEvents()
	evB := newRecEvents()
	uA := New(fdA, w, evA)
	uB := New(fdB, w, evB)

	require.NoError(t, uA.Activate())
	require.NoError(t, uB.Activate())

	select {
	case <-evA.established:
	case <-time.After(time.Second):
		t.Fatal("A never established")
	}
	select {
	case <-evB.established:
	case <-time.After(time.Second):
		t.Fatal("B never established")
	}

	require.NoError(t, uA.Send([]byte("ping")))

	select {
	case n := <-evA.sent:
		require.Equal(t, 4, n)
	case <-time.After(time.Second):
		t.Fatal("A never got OnSent")
	}

	select {
	case <-evB.received:
	case <-time.After(time.Second):
		t.Fatal("B never got OnReceived")
	}

	buf := make([]byte, 16)
	n, err := uB.Recv(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))

	uA.Stop()
	uB.Stop()
	select {
	case <-evA.done:
	case <-time.After(time.Second):
		t.Fatal("A never got OnDone")
	}
}

func TestRecvCoalescesWithinBatch(t *testing.T) {
	w, err := worker.New()
	require.NoError(t, err)
	go w.Run()
	defer w.Stop()

	fdA, fdB := socketpair(t)
	evA := newRecEvents()
	evB := newRecEvents()
	uA := New(fdA, w, evA)
	uB := New(fdB, w, evB)
	require.NoError(t, uA.Activate())
	require.NoError(t, uB.Activate())
	<-evA.established
	<-evB.established

	require.NoError(t, uA.Send([]byte("hello")))
	<-evB.received

	small := make([]byte, 2)
	n, err := uB.Recv(small)
	require.NoError(t, err)
	require.Equal(t, "he", string(small[:n]))

	rest := make([]byte, 16)
	n, err = uB.Recv(rest)
	require.NoError(t, err)
	require.Equal(t, "llo", string(rest[:n]))

	uA.Stop()
	uB.Stop()
}

// TestRecvDirectReadDrainsBatchLeftoverFirst reproduces the scenario where a
// small header read coalesces extra body bytes into the batch buffer, and
// the following >batchSize body read must drain those leftover bytes before
// reading the remainder, instead of silently skipping them.
func TestRecvDirectReadDrainsBatchLeftoverFirst(t *testing.T) {
	w, err := worker.New()
	require.NoError(t, err)
	go w.Run()
	defer w.Stop()

	fdA, fdB := socketpair(t)
	evA := newRecEvents()
	evB := newRecEvents()
	uA := New(fdA, w, evA)
	uB := New(fdB, w, evB)
	require.NoError(t, uA.Activate())
	require.NoError(t, uB.Activate())
	<-evA.established
	<-evB.established

	header := []byte("HEADER12")
	body := make([]byte, 3000)
	for i := range body {
		body[i] = byte('a' + i%26)
	}

	// both writes land in B's receive buffer before B ever calls Recv, so
	// the header read's batch fill picks up leading body bytes too.
	require.NoError(t, uA.Send(header))
	<-evA.sent
	require.NoError(t, uA.Send(body))
	<-evA.sent

	hdrBuf := make([]byte, len(header))
	n, err := uB.Recv(hdrBuf)
	require.NoError(t, err)
	require.Equal(t, len(header), n)
	require.Equal(t, header, hdrBuf)

	bodyBuf := make([]byte, len(body))
	got := 0
	deadline := time.Now().Add(2 * time.Second)
	for got < len(body) {
		n, err := uB.Recv(bodyBuf[got:])
		require.NoError(t, err)
		got += n
		if n == 0 {
			require.True(t, time.Now().Before(deadline), "timed out waiting for body bytes")
			time.Sleep(time.Millisecond)
		}
	}
	require.Equal(t, body, bodyBuf)

	uA.Stop()
	uB.Stop()
}

func TestOnFDErrTransitionsToOnError(t *testing.T) {
	w, err := worker.New()
	require.NoError(t, err)
	go w.Run()
	defer w.Stop()

	fdA, fdB := socketpair(t)
	evA := newRecEvents()
	evB := newRecEvents()
	uA := New(fdA, w, evA)
	uB := New(fdB, w, evB)
	require.NoError(t, uA.Activate())
	require.NoError(t, uB.Activate())
	<-evA.established
	<-evB.established

	uB.Stop()

	select {
	case <-evA.errs:
	case <-evA.received:
		// a read of EOF surfaces as a 0-byte ready-to-read poke too,
		// depending on kernel timing; either observation confirms the
		// peer close propagated to A.
	case <-time.After(2 * time.Second):
		t.Fatal("A was never notified of peer close")
	}

	uA.Stop()
}

