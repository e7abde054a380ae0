package main

import (
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(samples, 50); got != 5 {
		t.Fatalf("p50 = %v, want 5", got)
	}
	if got := percentile(samples, 100); got != 10 {
		t.Fatalf("p100 = %v, want 10", got)
	}
	if got := percentile(samples, 0); got != 1 {
		t.Fatalf("p0 = %v, want 1", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty = %v, want 0", got)
	}
}

func TestComputeStatsSortsSamples(t *testing.T) {
	s := computeStats(time.Second, []time.Duration{9, 1, 5}, 2)
	if s.ops != 3 || s.failures != 2 || s.p50 != 5 || s.p99 != 5 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if s.opsPerS != 3 {
		t.Fatalf("ops/sec = %v, want 3", s.opsPerS)
	}
}
