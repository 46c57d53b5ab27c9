// Package cache provides the byte-oriented caches backing the signal
// read paths: recent-signal lookups and the HTTP read endpoints.
// Values are pre-marshaled JSON so the same payloads can live in Redis
// or in process memory interchangeably.
package cache

import "time"

// BytesCache stores opaque byte payloads with a per-entry TTL. A zero
// TTL means the entry never expires.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
