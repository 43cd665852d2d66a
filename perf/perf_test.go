package perf

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenblog/lumen/cache"
)

func TestCacheCounters(t *testing.T) {
	c := NewCounter()

	c.RecordCacheHit()
	c.RecordCacheHit()
	assert.Equal(t, int64(2), c.Stats().CacheHits)
	assert.Equal(t, int64(0), c.Stats().CacheMisses)

	c.RecordCacheMiss()
	c.RecordCacheMiss()
	c.RecordCacheMiss()
	assert.Equal(t, int64(3), c.Stats().CacheMisses)
}

func TestCacheHitRate(t *testing.T) {
	c := NewCounter()
	assert.Equal(t, float64(0), c.CacheHitRate())

	for i := 0; i < 4; i++ {
		c.RecordCacheHit()
	}
	c.RecordCacheMiss()

	assert.Equal(t, float64(80), c.Stats().CacheHitRate)
}

func TestSlowRequests(t *testing.T) {
	c := NewCounter()

	c.RecordRequest(600*time.Millisecond, "slow.query")
	c.RecordRequest(100*time.Millisecond, "fast.query")
	c.RecordRequest(499*time.Millisecond, "fast.query")
	c.RecordRequest(SlowThreshold, "boundary.query")

	s := c.Stats()
	assert.Equal(t, int64(4), s.TotalRequests)
	assert.Equal(t, int64(1), s.SlowQueries, "only durations strictly above the threshold are slow")
}

func TestReset(t *testing.T) {
	c := NewCounter()
	c.RecordCacheHit()
	c.RecordRequest(time.Second, "x")
	c.Reset()

	assert.Equal(t, Snapshot{}, c.Stats())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500μs", FormatDuration(500*time.Microsecond))
	assert.Equal(t, "45.23ms", FormatDuration(45230*time.Microsecond))
	assert.Equal(t, "500.00ms", FormatDuration(500*time.Millisecond))
	assert.Equal(t, "1.50s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "5.00s", FormatDuration(5*time.Second))
}

func TestRequestLine(t *testing.T) {
	assert.Equal(t,
		"[api ✓] articles.list [Guest] - 12.00ms",
		requestLine("articles.list", 12*time.Millisecond, true, 0),
	)
	assert.Equal(t,
		"[api ✗] articles.create [User: 7] - 1.00s",
		requestLine("articles.create", time.Second, false, 7),
	)
}

func TestLogRequestRecords(t *testing.T) {
	c := NewCounter()
	c.LogRequest("/api/v1/articles", time.Millisecond, true, 0)
	c.LogRequest("/api/v1/articles", time.Second, false, 3)

	s := c.Stats()
	assert.Equal(t, int64(2), s.TotalRequests)
	assert.Equal(t, int64(1), s.SlowQueries)
}

func TestCacheStatsLine(t *testing.T) {
	c := NewCounter()
	store := cache.Stats{Size: 2, MaxSize: 5, Utilization: 40}

	_, ok := c.CacheStatsLine(store)
	assert.False(t, ok, "nothing is logged before the first request")

	c.RecordRequest(time.Millisecond, "a")
	c.RecordRequest(time.Second, "b")
	c.RecordCacheHit()
	c.RecordCacheMiss()
	c.RecordCacheMiss()
	c.RecordCacheMiss()

	line, ok := c.CacheStatsLine(store)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(line, "[CACHE STATS]"))
	assert.Contains(t, line, "totalRequests=2")
	assert.Contains(t, line, "hitRate=25.00%")
	assert.Contains(t, line, "slowQueryRate=50.00%")
	assert.Contains(t, line, "cacheSize=2/5 (40%)")
}
