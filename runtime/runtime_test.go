package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bizzaro-jhunt/gridmq-sub000/opt"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
)

func TestPairLoopbackInproc(t *testing.T) {
	rt, err := NewRuntime(2)
	require.NoError(t, err)
	defer rt.Term()

	a, err := rt.Socket(wire.ProtoPair)
	require.NoError(t, err)
	b, err := rt.Socket(wire.ProtoPair)
	require.NoError(t, err)

	_, err = a.Bind("inproc://pair-test")
	require.NoError(t, err)
	_, err = b.Connect("inproc://pair-test")
	require.NoError(t, err)

	require.NoError(t, a.SendBytes([]byte("ping"), false))
	got, err := b.RecvBytes(false)
	require.NoError(t, err)
	require.Equal(t, "ping", string(got))

	require.NoError(t, b.SendBytes([]byte("pong"), false))
	got, err = a.RecvBytes(false)
	require.NoError(t, err)
	require.Equal(t, "pong", string(got))
}

func TestPairRejectsSecondPipe(t *testing.T) {
	rt, err := NewRuntime(1)
	require.NoError(t, err)
	defer rt.Term()

	a, err := rt.Socket(wire.ProtoPair)
	require.NoError(t, err)
	_, err = a.Bind("inproc://pair-excl")
	require.NoError(t, err)

	b, err := rt.Socket(wire.ProtoPair)
	require.NoError(t, err)
	_, err = b.Connect("inproc://pair-excl")
	require.NoError(t, err)

	c, err := rt.Socket(wire.ProtoPair)
	require.NoError(t, err)
	_, err = c.Connect("inproc://pair-excl")
	require.NoError(t, err)

	require.NoError(t, a.SendBytes([]byte("hi"), false))
	_, err = b.RecvBytes(false)
	require.NoError(t, err)

	_, err = c.RecvBytes(true)
	require.Error(t, err)
}

func TestPubSubTopicFilter(t *testing.T) {
	rt, err := NewRuntime(2)
	require.NoError(t, err)
	defer rt.Term()

	pub, err := rt.Socket(wire.ProtoPub)
	require.NoError(t, err)
	sub, err := rt.Socket(wire.ProtoSub)
	require.NoError(t, err)

	_, err = pub.Bind("inproc://pubsub-test")
	require.NoError(t, err)
	_, err = sub.Connect("inproc://pubsub-test")
	require.NoError(t, err)

	require.NoError(t, sub.SetOpt(opt.LevelSub, opt.SubSubscribe, []byte("weather.")))

	require.NoError(t, pub.SendBytes([]byte("sports.score 3-1"), false))
	require.NoError(t, pub.SendBytes([]byte("weather.sfo 72F"), false))

	got, err := sub.RecvBytes(false)
	require.NoError(t, err)
	require.Equal(t, "weather.sfo 72F", string(got))

	_, err = sub.RecvBytes(true)
	require.Error(t, err, "the sports message was never delivered: no matching subscription")
}

func TestReqRepOverTCP(t *testing.T) {
	rt, err := NewRuntime(2)
	require.NoError(t, err)
	defer rt.Term()

	q, err := rt.Socket(wire.ProtoReq)
	require.NoError(t, err)
	r, err := rt.Socket(wire.ProtoRep)
	require.NoError(t, err)

	require.NoError(t, q.SetOpt(opt.LevelReq, opt.ReqResendIvl, encodeI64(100)))

	_, err = r.Bind("tcp://127.0.0.1:17001")
	require.NoError(t, err)
	_, err = q.Connect("tcp://127.0.0.1:17001")
	require.NoError(t, err)

	require.NoError(t, q.SendBytes([]byte("ping"), false))
	req, err := r.RecvBytes(false)
	require.NoError(t, err)
	require.Equal(t, "ping", string(req))

	require.NoError(t, r.SendBytes([]byte("pong"), false))
	rep, err := q.RecvBytes(false)
	require.NoError(t, err)
	require.Equal(t, "pong", string(rep))
}

func TestSocketOptionRoundTrip(t *testing.T) {
	rt, err := NewRuntime(1)
	require.NoError(t, err)
	defer rt.Term()

	s, err := rt.Socket(wire.ProtoPair)
	require.NoError(t, err)

	require.NoError(t, s.SetOpt(opt.LevelSocket, opt.RcvMaxSize, encodeI64(4096)))
	got, err := s.GetOpt(opt.LevelSocket, opt.RcvMaxSize)
	require.NoError(t, err)
	n, ok := decodeI64(got)
	require.True(t, ok)
	require.Equal(t, int64(4096), n)

	require.NoError(t, s.SetOpt(opt.LevelSocket, opt.SocketName, []byte("my-socket")))
	name, err := s.GetOpt(opt.LevelSocket, opt.SocketName)
	require.NoError(t, err)
	require.Equal(t, "my-socket", string(name))

	gotProto, err := s.GetOpt(opt.LevelSocket, opt.Protocol)
	require.NoError(t, err)
	require.Equal(t, encodeU16(wire.ProtoPair), gotProto)
}

func TestShutdownUnknownEndpointIsNotFound(t *testing.T) {
	rt, err := NewRuntime(1)
	require.NoError(t, err)
	defer rt.Term()

	s, err := rt.Socket(wire.ProtoPair)
	require.NoError(t, err)
	require.Error(t, s.Shutdown(999))
}

// TestInprocTinyBufferBackpressure exercises the e2e scenario of a PAIR
// socket configured with a byte-sized SNDBUF/RCVBUF: the first message
// always gets in, the second is rejected with EAGAIN until the reader
// drains the first, and a subsequent send then succeeds.
func TestInprocTinyBufferBackpressure(t *testing.T) {
	rt, err := NewRuntime(1)
	require.NoError(t, err)
	defer rt.Term()

	a, err := rt.Socket(wire.ProtoPair)
	require.NoError(t, err)
	b, err := rt.Socket(wire.ProtoPair)
	require.NoError(t, err)

	require.NoError(t, a.SetOpt(opt.LevelSocket, opt.SndBuf, encodeI64(1)))
	require.NoError(t, b.SetOpt(opt.LevelSocket, opt.RcvBuf, encodeI64(1)))

	_, err = a.Bind("inproc://tiny-buf")
	require.NoError(t, err)
	_, err = b.Connect("inproc://tiny-buf")
	require.NoError(t, err)

	require.NoError(t, a.SendBytes([]byte("x"), false))
	err = a.SendBytes([]byte("y"), true)
	require.Error(t, err, "second message should be rejected while the first is still undrained")

	got, err := b.RecvBytes(false)
	require.NoError(t, err)
	require.Equal(t, "x", string(got))

	require.NoError(t, a.SendBytes([]byte("y"), false))
	got, err = b.RecvBytes(false)
	require.NoError(t, err)
	require.Equal(t, "y", string(got))
}

func TestTermZombifiesBlockedSockets(t *testing.T) {
	rt, err := NewRuntime(1)
	require.NoError(t, err)

	s, err := rt.Socket(wire.ProtoPair)
	require.NoError(t, err)
	_, err = s.Bind("inproc://term-test")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.RecvBytes(false)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	rt.Term()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Recv never unblocked after Term")
	}
}
