package cache

import (
	"bytes"
	"fmt"
	"testing"
	"time"
)

func TestTTLCacheRoundTrip(t *testing.T) {
	c := NewTTLCache()

	if err := c.SetBytes("k", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, ok, err := c.GetBytes("k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(b, []byte("payload")) {
		t.Fatalf("got %q", b)
	}
}

func TestTTLCacheMiss(t *testing.T) {
	c := NewTTLCache()
	if _, ok, err := c.GetBytes("absent"); ok || err != nil {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := c.GetBytes("k"); ok {
		t.Fatal("expired entry still readable")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte("x"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := c.GetBytes("k"); !ok {
		t.Fatal("zero-TTL entry missing")
	}
}

func TestTTLCacheSweep(t *testing.T) {
	c := NewTTLCache()
	for i := 0; i < sweepEvery; i++ {
		if err := c.SetBytes(fmt.Sprintf("k%d", i), []byte("x"), time.Nanosecond); err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
	}
	time.Sleep(5 * time.Millisecond)
	// One more write past the threshold forces the sweep.
	if err := c.SetBytes("fresh", []byte("x"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	c.mu.RLock()
	n := len(c.m)
	c.mu.RUnlock()
	if n > 2 {
		t.Fatalf("sweep left %d entries", n)
	}
}
