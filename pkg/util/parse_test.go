package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2025-03-01T09:30:00Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatal("rfc3339 not accepted")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("parsed %v", got)
	}
}

func TestParseTimeUnixSeconds(t *testing.T) {
	want := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(want, 10))
	if !ok {
		t.Fatal("unix seconds not accepted")
	}
	if got.Unix() != want {
		t.Fatalf("unix = %d, want %d", got.Unix(), want)
	}
}

func TestParseTimeRejects(t *testing.T) {
	for _, s := range []string{"", "yesterday", "-5"} {
		if _, ok := ParseTime(s); ok {
			t.Fatalf("%q accepted", s)
		}
	}
}
