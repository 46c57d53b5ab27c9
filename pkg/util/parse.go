// Package util holds small parsing helpers shared across transport
// layers.
package util

import (
	"strconv"
	"time"
)

// ParseTime accepts RFC3339 timestamps (with or without sub-second
// precision) and positive unix-second integers. The second return
// value reports whether any format matched.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil && sec > 0 {
		return time.Unix(sec, 0), true
	}
	return time.Time{}, false
}
