package http

import (
	"time"

	xutil "QuantSig/pkg/util"
)

// ParseTime accepts RFC3339 timestamps and unix seconds. It reports
// whether any format matched.
func ParseTime(s string) (time.Time, bool) { return xutil.ParseTime(s) }
