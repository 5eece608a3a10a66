package lb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
)

func TestFairQueuePrefersHighestPriorityWithData(t *testing.T) {
	fq := NewFairQueue()
	low := newTestPipe(1, 10)
	high := newTestPipe(2, 1)
	fq.Add(low)
	fq.Add(high)

	low.OnReceived(chunk.InitChunk([]byte("low")))
	high.OnReceived(chunk.InitChunk([]byte("high")))

	require.Equal(t, high, fq.Current())
}

func TestFairQueueSkipsPipesWithoutData(t *testing.T) {
	fq := NewFairQueue()
	a := newTestPipe(1, 5)
	b := newTestPipe(2, 5)
	fq.Add(a)
	fq.Add(b)

	b.OnReceived(chunk.InitChunk([]byte("msg")))
	require.Equal(t, b, fq.Current())
}

func TestFairQueueRotatesAfterCurrent(t *testing.T) {
	fq := NewFairQueue()
	a := newTestPipe(1, 5)
	b := newTestPipe(2, 5)
	fq.Add(a)
	fq.Add(b)

	a.OnReceived(chunk.InitChunk([]byte("a1")))
	b.OnReceived(chunk.InitChunk([]byte("b1")))

	first := fq.Current()
	require.Equal(t, a, first)

	second := fq.Current()
	require.Equal(t, b, second)
}

func TestFairQueueEmpty(t *testing.T) {
	fq := NewFairQueue()
	require.True(t, fq.Empty())
	a := newTestPipe(1, 5)
	fq.Add(a)
	require.False(t, fq.Empty())
	fq.Remove(a)
	require.True(t, fq.Empty())
}
