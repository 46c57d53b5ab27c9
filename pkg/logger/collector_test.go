package logger

import (
	"context"
	"testing"
	"time"
)

type capturePublisher struct {
	batches chan []AggregatedLogEntry
}

func (c *capturePublisher) PublishMessage(_ context.Context, _ string, payload interface{}) error {
	if logs, ok := payload.([]AggregatedLogEntry); ok {
		c.batches <- logs
	}
	return nil
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{batches: make(chan []AggregatedLogEntry, 4)}
}

func TestCollectorAggregatesRepeats(t *testing.T) {
	pub := newCapturePublisher()
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour, // flush only on Close
		CountThreshold: 100,
		Topic:          "logs.aggregated",
		Publisher:      pub,
	})

	for i := 0; i < 3; i++ {
		c.AddLog("error", "query failed", map[string]interface{}{"symbol": "AAPL"}, "store.go:10")
	}
	c.AddLog("error", "query failed", map[string]interface{}{"symbol": "MSFT"}, "store.go:10")
	c.Close()

	select {
	case logs := <-pub.batches:
		if len(logs) != 2 {
			t.Fatalf("expected 2 unique entries, got %d", len(logs))
		}
		counts := map[interface{}]int{}
		for _, e := range logs {
			counts[e.Fields["symbol"]] = e.Count
		}
		if counts["AAPL"] != 3 || counts["MSFT"] != 1 {
			t.Fatalf("counts = %v", counts)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("close did not flush")
	}
}

func TestCollectorCountThresholdFlush(t *testing.T) {
	pub := newCapturePublisher()
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 2,
		Topic:          "logs.aggregated",
		Publisher:      pub,
	})
	defer c.Close()

	c.AddLog("error", "first", nil, "a.go:1")
	c.AddLog("error", "second", nil, "b.go:2")

	select {
	case logs := <-pub.batches:
		if len(logs) != 2 {
			t.Fatalf("threshold flush carried %d entries", len(logs))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("count threshold did not trigger a flush")
	}
}

func TestLoggerErrorFeedsCollector(t *testing.T) {
	pub := newCapturePublisher()
	l, err := New(&Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	l.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "logs.aggregated",
		Publisher:      pub,
	})

	l.Error("downstream unavailable", String("component", "bars"))
	l.RemoveCollector()

	select {
	case logs := <-pub.batches:
		if len(logs) != 1 || logs[0].Level != "error" {
			t.Fatalf("unexpected batch %+v", logs)
		}
		if logs[0].Fields["component"] != "bars" {
			t.Fatalf("fields = %v", logs[0].Fields)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error log never reached the collector")
	}
}
