package inproc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
)

func msg(n int) chunk.Message { return chunk.NewMessage(n) }

func TestQueuePushAlwaysAdmitsFirstMessageRegardlessOfSize(t *testing.T) {
	q := newQueue(4)
	require.NoError(t, q.Push(msg(100)))
}

func TestQueuePushRejectsOnceLimitWouldBeMet(t *testing.T) {
	q := newQueue(4)
	require.NoError(t, q.Push(msg(2)))
	err := q.Push(msg(2))
	require.Error(t, err)
}

func TestQueuePopFreesBytesForTheNextPush(t *testing.T) {
	q := newQueue(4)
	require.NoError(t, q.Push(msg(2)))
	require.Error(t, q.Push(msg(2)))

	_, ok := q.Pop()
	require.True(t, ok)

	require.NoError(t, q.Push(msg(2)))
}

func TestQueuePopOnEmptyReturnsFalse(t *testing.T) {
	q := newQueue(4)
	_, ok := q.Pop()
	require.False(t, ok)
}

type recEvents struct {
	paired   chan *Queue
	readable chan struct{}
	gone     chan struct{}
}

func newRecEvents() *recEvents {
	return &recEvents{paired: make(chan *Queue, 1), readable: make(chan struct{}, 8), gone: make(chan struct{}, 1)}
}

func (r *recEvents) OnPaired(q *Queue) { r.paired <- q }
func (r *recEvents) OnReadable()       { r.readable <- struct{}{} }
func (r *recEvents) OnPeerGone()       { r.gone <- struct{}{} }

func TestDirectoryBindThenConnectPairs(t *testing.T) {
	d := NewDirectory()
	evA := newRecEvents()
	evB := newRecEvents()

	a, err := d.Bind("addr", 1, 0, 0, evA)
	require.NoError(t, err)
	b := d.Connect("addr", 1, 0, 0, evB)

	qa := <-evA.paired
	qb := <-evB.paired
	require.NotNil(t, qa)
	require.NotNil(t, qb)

	require.NoError(t, a.Send(msg(3)))
	<-evB.readable
	m, ok := qb.Pop()
	require.True(t, ok)
	require.Equal(t, 3, m.Len())

	d.Remove(b)
	<-evA.gone
}

func TestDirectoryBindTwiceAtSameAddrFails(t *testing.T) {
	d := NewDirectory()
	_, err := d.Bind("dup", 1, 0, 0, newRecEvents())
	require.NoError(t, err)
	_, err = d.Bind("dup", 1, 0, 0, newRecEvents())
	require.Error(t, err)
}

func TestDirectoryTinySndBufRejectsSecondSendUntilDrained(t *testing.T) {
	d := NewDirectory()
	evA := newRecEvents()
	evB := newRecEvents()

	a, err := d.Bind("tiny", 1, 1, 1, evA)
	require.NoError(t, err)
	d.Connect("tiny", 1, 1, 1, evB)

	qb := <-evB.paired
	<-evA.paired

	require.NoError(t, a.Send(msg(1)))

	err = a.Send(msg(1))
	require.Error(t, err, "second send must be rejected while the first sits undrained")

	_, ok := qb.Pop()
	require.True(t, ok)

	require.NoError(t, a.Send(msg(1)))
}
