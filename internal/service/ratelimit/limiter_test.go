package ratelimit

import (
	"testing"
	"time"
)

func TestAllowBurstThenBlock(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("client:op", 3, 0) {
			t.Fatalf("call %d inside burst capacity was blocked", i)
		}
	}
	if l.Allow("client:op", 3, 0) {
		t.Fatal("call past capacity with no refill was allowed")
	}
}

func TestAllowRefills(t *testing.T) {
	l := New()
	if !l.Allow("k", 1, 1000) {
		t.Fatal("first call blocked")
	}
	if l.Allow("k", 1, 1000) {
		t.Fatal("immediate second call allowed at capacity 1")
	}
	// 1000 tokens/sec refills one token within a few ms.
	time.Sleep(10 * time.Millisecond)
	if !l.Allow("k", 1, 1000) {
		t.Fatal("call after refill window blocked")
	}
}

func TestAllowIsolatesKeys(t *testing.T) {
	l := New()
	if !l.Allow("a:op", 1, 0) {
		t.Fatal("first key blocked")
	}
	if !l.Allow("b:op", 1, 0) {
		t.Fatal("second key affected by first key's bucket")
	}
	if l.Allow("a:op", 1, 0) {
		t.Fatal("exhausted key allowed")
	}
}
