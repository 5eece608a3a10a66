package lb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/sock"
)

type nopSender struct{ sent int }

func (s *nopSender) Send(m chunk.Message) error {
	s.sent++
	return nil
}

func newTestPipe(id uint64, priority int) *sock.Pipe {
	p := sock.NewPipe(&nopSender{}, id)
	p.Priority = priority
	p.Start()
	return p
}

func TestLoadBalancerPrefersHighestPriority(t *testing.T) {
	lb := NewLoadBalancer()
	low := newTestPipe(1, 10)
	high := newTestPipe(2, 1)
	lb.Add(low)
	lb.Add(high)

	require.Equal(t, high, lb.Current())
}

func TestLoadBalancerRotatesWithinSamePriority(t *testing.T) {
	lb := NewLoadBalancer()
	a := newTestPipe(1, 5)
	b := newTestPipe(2, 5)
	lb.Add(a)
	lb.Add(b)

	first := lb.Current()
	require.Equal(t, a, first)
	lb.Rotate(first)
	require.Equal(t, b, lb.Current())
}

func TestLoadBalancerSkipsPipesWithoutSendCapacity(t *testing.T) {
	lb := NewLoadBalancer()
	a := newTestPipe(1, 5)
	b := newTestPipe(2, 5)
	lb.Add(a)
	lb.Add(b)

	require.NoError(t, a.Send(chunk.InitChunk([]byte("x"))))
	require.False(t, a.CanSend())
	require.Equal(t, b, lb.Current())
}

func TestLoadBalancerEmptyAfterRemove(t *testing.T) {
	lb := NewLoadBalancer()
	a := newTestPipe(1, 5)
	lb.Add(a)
	require.False(t, lb.Empty())
	lb.Remove(a)
	require.True(t, lb.Empty())
	require.Nil(t, lb.Current())
}

func TestLoadBalancerAllReturnsEveryPipe(t *testing.T) {
	lb := NewLoadBalancer()
	a := newTestPipe(1, 3)
	b := newTestPipe(2, 9)
	lb.Add(a)
	lb.Add(b)
	require.ElementsMatch(t, []*sock.Pipe{a, b}, lb.All())
}
