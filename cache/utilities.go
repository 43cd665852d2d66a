package cache

type i struct {
	V int64
}

// SetInt64 is a utility function to put an int64 into the shared cache
func (c *Shared) SetInt64(key string, data int64, timeToLive int32) {
	c.Set(key, i{V: data}, timeToLive)
}

// GetInt64 is a utility function to get an int64 from the shared cache
func (c *Shared) GetInt64(key string) (int64, bool) {
	var val i
	if c.Get(key, &val) {
		return val.V, true
	}

	return 0, false
}
