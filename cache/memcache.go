package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/golang/glog"
)

// Shared is a memcache backed cache that is visible to every process using
// the same memcached. A nil *Shared is valid and behaves as a cache that
// never holds anything.
type Shared struct {
	mc *memcache.Client
}

// NewShared creates the memcache client. It returns nil, a disabled cache,
// when no host is configured. It is the responsibility of whatever has the
// values for this function (usually main.go shortly after reading the config
// file) to call this.
func NewShared(host string, port int64) *Shared {
	if host == "" {
		return nil
	}

	return &Shared{mc: memcache.New(fmt.Sprintf("%s:%d", host, port))}
}

// Enabled reports whether values are actually stored
func (s *Shared) Enabled() bool {
	return s != nil && s.mc != nil
}

// Set puts the given value into the cache for timeToLive seconds
func (s *Shared) Set(key string, data interface{}, timeToLive int32) {
	if !s.Enabled() {
		return
	}

	// Encode the data for serialisation in memcache
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(data)
	if err != nil {
		glog.Errorf("gob.Encode(data) %+v", err)
		return
	}

	err = s.mc.Set(
		&memcache.Item{
			Key:        key,
			Value:      buf.Bytes(),
			Expiration: timeToLive, // time in seconds
		},
	)
	if err != nil {
		glog.Errorf("mc.Set() %+v", err)
		return
	}
}

// Get decodes the value for key into dst, which must be a pointer, and
// reports whether it was found
func (s *Shared) Get(key string, dst interface{}) bool {
	if !s.Enabled() {
		return false
	}

	item, err := s.mc.Get(key)
	if err != nil {
		// Cache misses are expected, but other errors are logged.
		if err != memcache.ErrCacheMiss {
			glog.Warningf("mc.Get(key) %+v", err)
		}
		return false
	}

	err = gob.NewDecoder(bytes.NewReader(item.Value)).Decode(dst)
	if err != nil {
		glog.Errorf("gob.Decode(dst) %+v", err)
		return false
	}

	return true
}

// Delete removes the key from the cache, if it is in the cache
func (s *Shared) Delete(key string) {
	if !s.Enabled() {
		return
	}

	err := s.mc.Delete(key)
	if err != nil && err != memcache.ErrCacheMiss {
		glog.Warningf("mc.Delete(key) %+v", err)
	}
}
