package wpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToOneWorkerPerCPUWhenZero(t *testing.T) {
	p, err := New(0)
	require.NoError(t, err)
	defer p.Stop()
	require.Greater(t, p.Len(), 0)
}

func TestAssignRoundRobins(t *testing.T) {
	p, err := New(3)
	require.NoError(t, err)
	defer p.Stop()

	a := p.Assign()
	b := p.Assign()
	c := p.Assign()
	d := p.Assign()

	require.NotSame(t, a, b)
	require.NotSame(t, b, c)
	require.Same(t, a, d, "assignment should wrap back around after Len() calls")
}
