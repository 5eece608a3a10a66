package grideerr

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrNotFoundMessageAndPredicate(t *testing.T) {
	err := NewErrNotFound("endpoint %d", 7)
	require.Equal(t, "endpoint 7 does not exist", err.Error())
	require.True(t, IsErrNotFound(err))
	require.False(t, IsErrNotFound(ErrTerm))
}

func TestErrsDeduplicatesByMessageAndCaps(t *testing.T) {
	var e Errs
	e.Add(nil)
	require.Equal(t, 0, e.Cnt())

	e.Add(errors.New("boom"))
	e.Add(errors.New("boom"))
	require.Equal(t, 1, e.Cnt())

	for i := 0; i < maxErrs+5; i++ {
		e.Add(fmt.Errorf("err-%d", i))
	}
	require.Equal(t, maxErrs, e.Cnt())
	require.Error(t, e.JoinErr())
}

func TestErrsJoinErrNilWhenEmpty(t *testing.T) {
	var e Errs
	require.NoError(t, e.JoinErr())
}

func TestIsRetriableConnErrWrapsSyscallErrno(t *testing.T) {
	wrapped := fmt.Errorf("dial: %w", syscall.ECONNREFUSED)
	require.True(t, IsRetriableConnErr(wrapped))
	require.False(t, IsRetriableConnErr(errors.New("unrelated")))
}

func TestIsErrWouldBlockMatchesEAGAIN(t *testing.T) {
	require.True(t, IsErrWouldBlock(syscall.EAGAIN))
	require.False(t, IsErrWouldBlock(syscall.ECONNRESET))
}

func TestIsErrResourceExhaustionMatchesKnownErrnos(t *testing.T) {
	require.True(t, IsErrResourceExhaustion(syscall.EMFILE))
	require.True(t, IsErrResourceExhaustion(syscall.ENOBUFS))
	require.False(t, IsErrResourceExhaustion(syscall.ECONNRESET))
}

func TestIsUnreachableMatchesDNSErrors(t *testing.T) {
	dnsErr := &net.DNSError{Err: "no such host", Name: "example.invalid"}
	require.True(t, IsUnreachable(dnsErr))
	require.True(t, IsUnreachable(syscall.ECONNREFUSED))
	require.False(t, IsUnreachable(errors.New("something else")))
}

func TestInvariantPanics(t *testing.T) {
	require.PanicsWithValue(t, "gridmq: invariant violation: bad state foo", func() {
		Invariant("bad state %s", "foo")
	})
}
