package reccache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPutAndGetRoundTrip(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("k1", "s1", []byte("hello"))

	v, ok := c.Get("k1")
	require.True(t, ok)
	require.Equal(t, []byte("hello"), v)
}

func TestGetMissIncrementsMisses(t *testing.T) {
	c := New(10, time.Minute)
	_, ok := c.Get("missing")
	require.False(t, ok)
	require.Equal(t, int64(1), c.Stats().Misses)
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c := New(10, time.Millisecond)
	c.Put("k1", "s1", []byte("hello"))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k1")
	require.False(t, ok)
}

func TestEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := New(2, time.Minute)
	c.Put("a", "s1", []byte("a"))
	c.Put("b", "s1", []byte("b"))
	_, _ = c.Get("a") // touch a, making b the LRU victim
	c.Put("c", "s1", []byte("c"))

	_, ok := c.Get("b")
	require.False(t, ok, "b should have been evicted as least recently used")
	_, ok = c.Get("a")
	require.True(t, ok)
	_, ok = c.Get("c")
	require.True(t, ok)
}

func TestInvalidateSessionRemovesOnlyThatSession(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("a", "s1", []byte("a"))
	c.Put("b", "s1", []byte("b"))
	c.Put("c", "s2", []byte("c"))

	c.InvalidateSession("s1")

	_, ok := c.Get("a")
	require.False(t, ok)
	_, ok = c.Get("b")
	require.False(t, ok)
	_, ok = c.Get("c")
	require.True(t, ok)
}

func TestClearEmptiesCache(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("a", "s1", []byte("a"))
	c.Clear()

	require.Equal(t, 0, c.Stats().Size)
	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestKeyChangesWithHistoryLength(t *testing.T) {
	k1 := Key("s1", "cat=tops", 1, 0)
	k2 := Key("s1", "cat=tops", 1, 1)
	require.NotEqual(t, k1, k2, "cache soundness requires history_length in the key")
}

func TestKeyDeterministic(t *testing.T) {
	require.Equal(t, Key("s1", "cat=tops", 1, 3), Key("s1", "cat=tops", 1, 3))
}
