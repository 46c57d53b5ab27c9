package cache

import (
	"sync"
	"time"
)

// sweepEvery bounds how much expired garbage can pile up before a
// write triggers a full sweep.
const sweepEvery = 512

type ttlEntry struct {
	b   []byte
	exp int64 // unix nanos, 0 = no expiry
}

// TTLCache is the in-process BytesCache used when Redis is not
// configured. Expired entries are dropped lazily on read and swept in
// bulk every sweepEvery writes.
type TTLCache struct {
	mu     sync.RWMutex
	m      map[string]ttlEntry
	writes int
}

func NewTTLCache() *TTLCache {
	return &TTLCache{m: make(map[string]ttlEntry)}
}

func (c *TTLCache) GetBytes(key string) ([]byte, bool, error) {
	now := time.Now().UnixNano()

	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.exp != 0 && now > e.exp {
		c.mu.Lock()
		// Re-check under the write lock; the entry may have been
		// replaced since the read.
		if cur, ok := c.m[key]; ok && cur.exp == e.exp {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.b, true, nil
}

func (c *TTLCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}

	c.mu.Lock()
	c.m[key] = ttlEntry{b: value, exp: exp}
	c.writes++
	if c.writes >= sweepEvery {
		c.writes = 0
		c.sweepLocked(time.Now().UnixNano())
	}
	c.mu.Unlock()
	return nil
}

func (c *TTLCache) sweepLocked(now int64) {
	for k, e := range c.m {
		if e.exp != 0 && now > e.exp {
			delete(c.m, k)
		}
	}
}
