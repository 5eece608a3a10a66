package chunk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInlineRoundTrip(t *testing.T) {
	c := Wrap([]byte("hello"))
	require.Equal(t, 5, c.Len())
	require.Equal(t, "hello", string(c.Bytes()))
	c.Term()
	require.Equal(t, 0, c.Len())
}

func TestHeapRoundTrip(t *testing.T) {
	payload := make([]byte, 1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	c := Wrap(payload)
	require.Equal(t, len(payload), c.Len())
	require.Equal(t, payload, c.Bytes())
	c.Term()
}

func TestMoveZeroesSource(t *testing.T) {
	src := Wrap([]byte("payload"))
	dst := Move(&src)
	require.Equal(t, 0, src.Len())
	require.Equal(t, "payload", string(dst.Bytes()))
	dst.Term()
}

func TestCopySharesRefcount(t *testing.T) {
	payload := make([]byte, 1024)
	a := Wrap(payload)
	b := a.Copy()
	// both views see the same bytes until either is released
	require.Equal(t, a.Bytes(), b.Bytes())
	a.Term()
	// b's view remains valid: the arena destructor only runs on the last unref
	require.Equal(t, len(payload), b.Len())
	b.Term()
}

func TestSliceSharesArena(t *testing.T) {
	payload := []byte("0123456789abcdef0123456789abcdef")
	c := Wrap(payload) // 32 bytes: heap-backed
	head := c.Slice(0, 4)
	tail := c.Slice(4, c.Len()-4)
	require.Equal(t, "0123", string(head.Bytes()))
	require.Equal(t, payload[4:], tail.Bytes())
	c.Term()
	head.Term()
	tail.Term()
}

func TestMessageMoveAndLen(t *testing.T) {
	m := NewMessage(10)
	m.Sphdr = Wrap([]byte{0, 0, 0, 1})
	require.Equal(t, 14, m.Len())
	moved := MoveMessage(&m)
	require.Equal(t, 0, m.Len())
	require.Equal(t, 14, moved.Len())
	moved.Term()
}
