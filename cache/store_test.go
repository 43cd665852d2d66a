package cache

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(maxSize int) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(maxSize)
	s.now = clock.Now
	return s, clock
}

func TestNewStoreDefaultsCapacity(t *testing.T) {
	assert.Equal(t, DefaultMaxEntries, NewStore(0).GetStats().MaxSize)
	assert.Equal(t, DefaultMaxEntries, NewStore(-3).GetStats().MaxSize)
	assert.Equal(t, 7, NewStore(7).GetStats().MaxSize)
}

func TestSetUpToCapacityDoesNotEvict(t *testing.T) {
	s, _ := newTestStore(5)

	keys := []string{"a", "b", "c", "d", "e"}
	for i, k := range keys {
		s.Set(k, i, 0)
		assert.Equal(t, i+1, s.Size())
	}

	for i, k := range keys {
		v, ok := s.Get(k)
		require.True(t, ok, k)
		assert.Equal(t, i, v)
	}
}

func TestInsertBeyondCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	s, _ := newTestStore(3)

	s.Set("A", 1, 0)
	s.Set("B", 2, 0)
	s.Set("C", 3, 0)

	v, ok := s.Get("A")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	s.Set("D", 4, 0)

	assert.Equal(t, 3, s.Size())
	assert.False(t, s.Has("B"), "B was the least recently used")
	assert.True(t, s.Has("A"), "reading A should have promoted it")
	assert.True(t, s.Has("C"))
	assert.True(t, s.Has("D"))
	assert.Equal(t, []string{"C", "A", "D"}, s.keys())
}

func TestSetMovesKeyToMostRecent(t *testing.T) {
	s, _ := newTestStore(3)

	s.Set("A", 1, 0)
	s.Set("B", 2, 0)
	s.Set("C", 3, 0)
	s.Set("A", 10, 0)
	s.Set("D", 4, 0)

	assert.False(t, s.Has("B"))
	v, ok := s.Get("A")
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestOverwriteNeverEvicts(t *testing.T) {
	s, _ := newTestStore(3)

	s.Set("A", 1, 0)
	s.Set("B", 2, 0)
	s.Set("C", 3, 0)

	s.Set("B", 20, 0)
	s.Set("C", 30, time.Minute)

	assert.Equal(t, 3, s.Size())
	assert.True(t, s.Has("A"))
	assert.True(t, s.Has("B"))
	assert.True(t, s.Has("C"))
}

func TestTTLExpiry(t *testing.T) {
	s, clock := newTestStore(10)

	s.Set("k", "v", 100*time.Millisecond)
	s.Set("forever", "v", 0)

	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
	assert.True(t, s.Has("k"))

	clock.Advance(150 * time.Millisecond)

	// Not swept until observed
	assert.Equal(t, 2, s.Size())

	_, ok = s.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Size())
	assert.False(t, s.Has("k"))

	assert.True(t, s.Has("forever"))
}

func TestHasRemovesExpiredEntry(t *testing.T) {
	s, clock := newTestStore(10)

	s.Set("k", "v", 100*time.Millisecond)
	clock.Advance(150 * time.Millisecond)

	assert.False(t, s.Has("k"))
	assert.Equal(t, 0, s.Size())
}

func TestExpiryIsStrict(t *testing.T) {
	s, clock := newTestStore(10)

	s.Set("k", "v", 100*time.Millisecond)
	clock.Advance(100 * time.Millisecond)
	assert.True(t, s.Has("k"), "an entry is live at exactly its expiry time")

	clock.Advance(time.Millisecond)
	assert.False(t, s.Has("k"))
}

func TestSetAfterExpiryCreatesFreshEntry(t *testing.T) {
	s, clock := newTestStore(10)

	s.Set("k", "old", 100*time.Millisecond)
	clock.Advance(150 * time.Millisecond)
	s.Set("k", "new", 100*time.Millisecond)

	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestHasDoesNotPromote(t *testing.T) {
	s, _ := newTestStore(3)

	s.Set("A", 1, 0)
	s.Set("B", 2, 0)
	s.Set("C", 3, 0)

	assert.True(t, s.Has("A"))
	s.Set("D", 4, 0)

	assert.False(t, s.Has("A"), "Has must not change recency")
	assert.True(t, s.Has("B"))
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(3)

	s.Set("A", 1, 0)
	assert.True(t, s.Delete("A"))
	assert.False(t, s.Delete("A"))
	assert.Equal(t, 0, s.Size())
}

func TestDeleteMatching(t *testing.T) {
	s, _ := newTestStore(10)

	s.Set("article:list:page:1", 1, 0)
	s.Set("article:list:page:2", 2, 0)
	s.Set("category:list:all", 3, 0)
	s.Set("doc:tree:all", 4, 0)

	n := s.DeleteMatching(regexp.MustCompile(`^article:`))
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, s.Size())

	v, ok := s.Get("category:list:all")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = s.Get("doc:tree:all")
	require.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestDeletePatternIsLiteralSubstring(t *testing.T) {
	s, _ := newTestStore(10)

	s.Set("article:list:page:1", 1, 0)
	s.Set("doc:tree:category:article", 2, 0)
	s.Set("category:list:all", 3, 0)
	s.Set("a.b", 4, 0)
	s.Set("axb", 5, 0)

	// Matches anywhere in the key, not only as a prefix
	assert.Equal(t, 2, s.DeletePattern("article"))
	assert.True(t, s.Has("category:list:all"))

	// Metacharacters are literal
	assert.Equal(t, 1, s.DeletePattern("a.b"))
	assert.True(t, s.Has("axb"))

	assert.Equal(t, 0, s.DeletePattern("nothing"))
}

func TestClear(t *testing.T) {
	s, _ := newTestStore(5)

	s.Set("A", 1, 0)
	s.Set("B", 2, time.Minute)
	s.Clear()

	assert.Equal(t, 0, s.Size())
	_, ok := s.Get("A")
	assert.False(t, ok)
	_, ok = s.Get("B")
	assert.False(t, ok)
}

func TestGetStats(t *testing.T) {
	s, _ := newTestStore(5)

	s.Set("A", 1, 0)
	s.Set("B", 2, 0)

	assert.Equal(t, Stats{Size: 2, MaxSize: 5, Utilization: 40}, s.GetStats())
}

func TestGetStatsRoundsUtilization(t *testing.T) {
	s, _ := newTestStore(3)

	s.Set("A", 1, 0)
	assert.Equal(t, 33, s.GetStats().Utilization)

	s.Set("B", 2, 0)
	assert.Equal(t, 67, s.GetStats().Utilization)
}
