package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrieMatchAnyOnExactAndPrefix(t *testing.T) {
	tr := newTrie()
	require.True(t, tr.Subscribe([]byte("weather.")))

	require.True(t, tr.MatchAny([]byte("weather.sfo 72F")))
	require.False(t, tr.MatchAny([]byte("sports.score 3-1")))
}

func TestTrieEmptyTopicMatchesEverything(t *testing.T) {
	tr := newTrie()
	require.True(t, tr.Subscribe([]byte("")))
	require.True(t, tr.MatchAny([]byte("anything at all")))
	require.True(t, tr.MatchAny([]byte("")))
}

func TestTrieResubscribeIncrementsRefcountNotFresh(t *testing.T) {
	tr := newTrie()
	require.True(t, tr.Subscribe([]byte("a.b")))
	require.False(t, tr.Subscribe([]byte("a.b")), "second subscribe to the same topic should not be fresh")
}

func TestTrieUnsubscribeUnknownTopicNotFound(t *testing.T) {
	tr := newTrie()
	tr.Subscribe([]byte("a.b"))
	removed, found := tr.Unsubscribe([]byte("z.z"))
	require.False(t, removed)
	require.False(t, found)
}

func TestTrieRefcountedUnsubscribeOnlyRemovesOnZero(t *testing.T) {
	tr := newTrie()
	tr.Subscribe([]byte("a.b"))
	tr.Subscribe([]byte("a.b"))

	removed, found := tr.Unsubscribe([]byte("a.b"))
	require.True(t, found)
	require.False(t, removed, "one reference still outstanding")
	require.True(t, tr.MatchAny([]byte("a.b.c")))

	removed, found = tr.Unsubscribe([]byte("a.b"))
	require.True(t, found)
	require.True(t, removed)
	require.False(t, tr.MatchAny([]byte("a.b.c")))
}

func TestTrieSplitsOnDivergingPrefix(t *testing.T) {
	tr := newTrie()
	require.True(t, tr.Subscribe([]byte("alpha")))
	require.True(t, tr.Subscribe([]byte("album")))

	require.True(t, tr.MatchAny([]byte("alphanumeric")))
	require.True(t, tr.MatchAny([]byte("album-cover")))
	require.False(t, tr.MatchAny([]byte("albatross")))
}

func TestTrieCompactsAfterUnsubscribe(t *testing.T) {
	tr := newTrie()
	tr.Subscribe([]byte("alpha"))
	tr.Subscribe([]byte("album"))

	removed, found := tr.Unsubscribe([]byte("album"))
	require.True(t, found)
	require.True(t, removed)

	require.True(t, tr.MatchAny([]byte("alphanumeric")))
	require.False(t, tr.MatchAny([]byte("album-cover")))
}

func TestTrieHandlesManyChildrenPastDenseThreshold(t *testing.T) {
	tr := newTrie()
	topics := []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9", "ta"}
	for _, top := range topics {
		require.True(t, tr.Subscribe([]byte(top)))
	}
	for _, top := range topics {
		require.True(t, tr.MatchAny([]byte(top+"-suffix")))
	}
	require.False(t, tr.MatchAny([]byte("zz")))
}
