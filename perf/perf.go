// Package perf counts requests, slow requests and cache hits so they can be
// logged periodically and scraped by Prometheus.
package perf

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lumenblog/lumen/cache"
)

// SlowThreshold is the duration a request must exceed to be logged as slow
const SlowThreshold = 500 * time.Millisecond

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_requests_total",
		Help: "API requests handled, by outcome",
	}, []string{"outcome"})

	slowRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumen_slow_requests_total",
		Help: "API requests that took longer than the slow threshold",
	})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lumen_request_duration_seconds",
		Help:    "API request latency",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumen_cache_hits_total",
		Help: "Read-through cache lookups served from the cache",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumen_cache_misses_total",
		Help: "Read-through cache lookups that fell through to the database",
	})

	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lumen_cache_entries",
		Help: "Entries held by the in-process cache when stats were last logged",
	})
)

// Snapshot is a point in time copy of a Counter
type Snapshot struct {
	TotalRequests int64   `json:"totalRequests"`
	SlowQueries   int64   `json:"slowQueries"`
	CacheHits     int64   `json:"cacheHits"`
	CacheMisses   int64   `json:"cacheMisses"`
	CacheHitRate  float64 `json:"cacheHitRate"`
}

// Counter accumulates request and cache statistics for the process
type Counter struct {
	mu            sync.Mutex
	totalRequests int64
	slowQueries   int64
	cacheHits     int64
	cacheMisses   int64
}

// NewCounter returns a zeroed Counter
func NewCounter() *Counter {
	return &Counter{}
}

// RecordCacheHit counts a lookup served from the cache
func (c *Counter) RecordCacheHit() {
	c.mu.Lock()
	c.cacheHits++
	c.mu.Unlock()

	cacheHitsTotal.Inc()
}

// RecordCacheMiss counts a lookup that fell through to the loader
func (c *Counter) RecordCacheMiss() {
	c.mu.Lock()
	c.cacheMisses++
	c.mu.Unlock()

	cacheMissesTotal.Inc()
}

func (c *Counter) cacheHitRate() float64 {
	total := c.cacheHits + c.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(c.cacheHits) / float64(total) * 100
}

// CacheHitRate returns hits as a percentage of all cache lookups, or 0 when
// there have been none
func (c *Counter) CacheHitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cacheHitRate()
}

// RecordRequest counts a completed request, and logs it as a slow query if it
// took longer than SlowThreshold
func (c *Counter) RecordRequest(d time.Duration, path string) {
	slow := d > SlowThreshold

	c.mu.Lock()
	c.totalRequests++
	if slow {
		c.slowQueries++
	}
	c.mu.Unlock()

	requestDuration.Observe(d.Seconds())

	if slow {
		slowRequestsTotal.Inc()
		glog.Warningf("[SLOW QUERY] %s took %.2fms", path, milliseconds(d))
	}
}

// Stats returns a copy of the counters
func (c *Counter) Stats() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		TotalRequests: c.totalRequests,
		SlowQueries:   c.slowQueries,
		CacheHits:     c.cacheHits,
		CacheMisses:   c.cacheMisses,
		CacheHitRate:  c.cacheHitRate(),
	}
}

// Reset zeroes the counters. Prometheus collectors are monotonic and are not
// reset.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests = 0
	c.slowQueries = 0
	c.cacheHits = 0
	c.cacheMisses = 0
}

// LogRequest logs a completed API request and records it
func (c *Counter) LogRequest(
	path string,
	d time.Duration,
	success bool,
	userID int64,
) {
	if d > SlowThreshold {
		glog.Warning(requestLine(path, d, success, userID))
	} else if glog.V(1) {
		glog.Info(requestLine(path, d, success, userID))
	}

	outcome := "success"
	if !success {
		outcome = "error"
	}
	requestsTotal.WithLabelValues(outcome).Inc()

	c.RecordRequest(d, path)
}

func requestLine(path string, d time.Duration, success bool, userID int64) string {
	icon := "✓"
	if !success {
		icon = "✗"
	}

	user := " [Guest]"
	if userID > 0 {
		user = fmt.Sprintf(" [User: %d]", userID)
	}

	return fmt.Sprintf("[api %s] %s%s - %s", icon, path, user, FormatDuration(d))
}

// CacheStatsLine formats the periodic statistics line. It reports false when
// no requests have been recorded, in which case there is nothing to log.
func (c *Counter) CacheStatsLine(store cache.Stats) (string, bool) {
	s := c.Stats()
	if s.TotalRequests == 0 {
		return "", false
	}

	return fmt.Sprintf(
		"[CACHE STATS] totalRequests=%d cacheHits=%d cacheMisses=%d "+
			"hitRate=%.2f%% slowQueries=%d slowQueryRate=%.2f%% "+
			"cacheSize=%d/%d (%d%%)",
		s.TotalRequests,
		s.CacheHits,
		s.CacheMisses,
		s.CacheHitRate,
		s.SlowQueries,
		float64(s.SlowQueries)/float64(s.TotalRequests)*100,
		store.Size,
		store.MaxSize,
		store.Utilization,
	), true
}

// LogCacheStats logs the counters alongside the cache store's occupancy
func (c *Counter) LogCacheStats(store cache.Stats) {
	cacheEntries.Set(float64(store.Size))

	line, ok := c.CacheStatsLine(store)
	if !ok {
		return
	}

	glog.Info(line)
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// FormatDuration renders sub-millisecond durations in whole microseconds,
// sub-second durations in milliseconds and anything longer in seconds
func FormatDuration(d time.Duration) string {
	ms := milliseconds(d)

	switch {
	case ms < 1:
		return fmt.Sprintf("%.0fμs", ms*1000)
	case ms < 1000:
		return fmt.Sprintf("%.2fms", ms)
	default:
		return fmt.Sprintf("%.2fs", ms/1000)
	}
}
