package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPeerProtocolPairings(t *testing.T) {
	cases := []struct{ p, want uint16 }{
		{ProtoPair, ProtoPair},
		{ProtoPub, ProtoSub},
		{ProtoSub, ProtoPub},
		{ProtoReq, ProtoRep},
		{ProtoRep, ProtoReq},
		{ProtoSurveyor, ProtoRespondent},
		{ProtoRespondent, ProtoSurveyor},
		{ProtoBus, ProtoBus},
	}
	for _, c := range cases {
		got, ok := PeerProtocol(c.p)
		require.True(t, ok)
		require.Equal(t, c.want, got)
	}

	_, ok := PeerProtocol(0xffff)
	require.False(t, ok)
}

func TestProtoNameKnownAndUnknown(t *testing.T) {
	require.Equal(t, "req", ProtoName(ProtoReq))
	require.Equal(t, "surveyor", ProtoName(ProtoSurveyor))
	require.Equal(t, "unknown", ProtoName(0xffff))
}

func TestPreambleRoundTrip(t *testing.T) {
	b := Preamble(ProtoReq)
	peer, ok := ParsePreamble(b[:])
	require.True(t, ok)
	require.Equal(t, ProtoReq, peer)
}

func TestParsePreambleRejectsBadMagicAndLength(t *testing.T) {
	b := Preamble(ProtoPub)
	bad := b
	bad[1] = 'X'
	_, ok := ParsePreamble(bad[:])
	require.False(t, ok)

	_, ok = ParsePreamble(b[:4])
	require.False(t, ok)
}

func TestLengthPrefixRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	PutLength(buf, 123456789)
	require.Equal(t, uint64(123456789), GetLength(buf))
}

func TestReqSphdrForcesTopBit(t *testing.T) {
	b := ReqSphdr(42)
	id, top := ParseReqSphdr(b[:])
	require.Equal(t, uint32(42), id)
	require.True(t, top)
}
