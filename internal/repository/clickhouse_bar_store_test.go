package repository

import (
	"regexp"
	"strings"
	"testing"

	domrepo "QuantSig/internal/domain/repository"
)

// rt_bars_1m columns as created by the schema bootstrap. The rollup
// query may only reference these.
var barColumns = map[string]bool{
	"bucket": true,
	"symbol": true,
	"open":   true,
	"high":   true,
	"low":    true,
	"close":  true,
	"volume": true,
}

func TestRollupSelectMatchesBarSchema(t *testing.T) {
	q := rollupSelect("1 hour")

	if !strings.Contains(q, "sum(volume)") {
		t.Fatalf("rollup must aggregate the volume column:\n%s", q)
	}

	// Every aggregated column reference must exist in the table.
	re := regexp.MustCompile(`(?:argMin|argMax|max|min|sum)\((\w+)`)
	for _, m := range re.FindAllStringSubmatch(q, -1) {
		if !barColumns[m[1]] {
			t.Fatalf("query references %q, not a rt_bars_1m column", m[1])
		}
	}
}

func TestIntervalForTF(t *testing.T) {
	for tf, want := range map[domrepo.Timeframe]string{
		domrepo.TF1m: "1 minute",
		domrepo.TF1h: "1 hour",
		domrepo.TF1d: "1 day",
	} {
		got, err := intervalForTF(tf)
		if err != nil {
			t.Fatalf("%s: %v", tf, err)
		}
		if got != want {
			t.Fatalf("%s -> %q, want %q", tf, got, want)
		}
	}
	if _, err := intervalForTF(domrepo.Timeframe("2h")); err == nil {
		t.Fatal("unsupported timeframe accepted")
	}
}
