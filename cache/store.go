package cache

import (
	"math"
	"regexp"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultMaxEntries is the capacity used when a Store is created without a
// positive size
const DefaultMaxEntries int = 100

// entry is a cached value and the moment it stops being served. A zero
// expiresAt never expires.
type entry struct {
	value     interface{}
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Stats describes how full a Store is
type Stats struct {
	Size        int `json:"size"`
	MaxSize     int `json:"maxSize"`
	Utilization int `json:"utilization"`
}

// Store is a bounded LRU cache with lazy per-entry expiry.
//
// The recency list is oldest first: every Get that returns a live value and
// every Set moves the key to the newest end, and when the store is full the
// oldest key is evicted to make room. Expired entries are only removed when
// Get or Has observes them.
type Store struct {
	mu      sync.Mutex
	lru     *simplelru.LRU[string, entry]
	maxSize int
	now     func() time.Time
}

// NewStore returns an empty Store that holds at most maxSize entries
func NewStore(maxSize int) *Store {
	if maxSize <= 0 {
		maxSize = DefaultMaxEntries
	}

	// Only errors for a non-positive size, which is ruled out above
	l, _ := simplelru.NewLRU[string, entry](maxSize, nil)

	return &Store{
		lru:     l,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns the value for key if it is present and has not expired. A hit
// makes the key the most recently used.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lru.Peek(key)
	if !ok {
		return nil, false
	}

	if e.expired(s.now()) {
		s.lru.Remove(key)
		return nil, false
	}

	// Promote
	s.lru.Get(key)

	return e.value, true
}

// Set stores value under key. A ttl of zero or less never expires.
//
// Any existing entry for key is replaced, so overwriting never evicts another
// key. Inserting a new key into a full store evicts the least recently used
// key first.
func (s *Store) Set(key string, value interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lru.Remove(key)

	if s.lru.Len() >= s.maxSize {
		s.lru.RemoveOldest()
	}

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.lru.Add(key, e)
}

// Delete removes key and reports whether it was present
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lru.Remove(key)
}

// DeletePattern removes every key containing pattern. The pattern is a
// literal, not a regular expression, and is not anchored.
func (s *Store) DeletePattern(pattern string) int {
	return s.DeleteMatching(regexp.MustCompile(regexp.QuoteMeta(pattern)))
}

// DeleteMatching removes every key matched by re and returns how many were
// removed
func (s *Store) DeleteMatching(re *regexp.Regexp) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []string
	for _, key := range s.lru.Keys() {
		if re.MatchString(key) {
			matched = append(matched, key)
		}
	}

	for _, key := range matched {
		s.lru.Remove(key)
	}

	return len(matched)
}

// Clear removes every entry
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lru.Purge()
}

// Size returns the number of entries held, including expired entries that
// have not been observed yet
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lru.Len()
}

// Has reports whether key is present and live. Unlike Get it does not change
// the recency order, but an expired entry is still removed.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lru.Peek(key)
	if !ok {
		return false
	}

	if e.expired(s.now()) {
		s.lru.Remove(key)
		return false
	}

	return true
}

// GetStats returns the size, capacity and percentage utilisation
func (s *Store) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.lru.Len()

	return Stats{
		Size:        size,
		MaxSize:     s.maxSize,
		Utilization: int(math.Round(float64(size) / float64(s.maxSize) * 100)),
	}
}

// keys returns the keys from least to most recently used
func (s *Store) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lru.Keys()
}
