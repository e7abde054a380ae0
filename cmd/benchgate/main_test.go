package main

import (
	"strings"
	"testing"
)

const baselineOutput = `goos: linux
BenchmarkAuthenticateCached-8           	 1000000	      1000 ns/op	     512 B/op	       6 allocs/op
BenchmarkAuthenticateCached-8           	 1000000	      1100 ns/op	     512 B/op	       6 allocs/op
BenchmarkAuthenticateCached-8           	 1000000	      1200 ns/op	     512 B/op	       6 allocs/op
BenchmarkAuthenticateStoreRoundTrip-8   	   20000	     50000 ns/op
BenchmarkAuthenticateParallel-8         	 3000000	       400 ns/op
BenchmarkMetricsInc-8                   	100000000	        10 ns/op
PASS
`

func mustParse(t *testing.T, s string) samples {
	t.Helper()
	out, err := parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return out
}

func TestParseKeepsTrackedOnly(t *testing.T) {
	s := mustParse(t, baselineOutput)
	if _, ok := s["BenchmarkMetricsInc"]; ok {
		t.Fatal("untracked benchmark must be skipped")
	}
	if got := s["BenchmarkAuthenticateCached"]["ns/op"]; len(got) != 3 {
		t.Fatalf("expected 3 ns/op samples, got %v", got)
	}
	if got := s["BenchmarkAuthenticateCached"]["allocs/op"]; len(got) != 3 || got[0] != 6 {
		t.Fatalf("unexpected allocs samples: %v", got)
	}
}

func TestCompareWithinThreshold(t *testing.T) {
	base := mustParse(t, baselineOutput)
	cand := mustParse(t, strings.ReplaceAll(baselineOutput, "50000 ns/op", "60000 ns/op"))

	rows, problems := compare(base, cand, 0.30)
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
}

func TestCompareFlagsRegression(t *testing.T) {
	base := mustParse(t, baselineOutput)
	cand := mustParse(t, strings.ReplaceAll(baselineOutput, "400 ns/op", "900 ns/op"))

	_, problems := compare(base, cand, 0.30)
	if len(problems) != 1 || !strings.Contains(problems[0], "BenchmarkAuthenticateParallel") {
		t.Fatalf("expected one parallel regression, got %v", problems)
	}
}

func TestCompareMissingSamples(t *testing.T) {
	base := mustParse(t, baselineOutput)
	_, problems := compare(base, samples{}, 0.30)
	if len(problems) != 4 {
		t.Fatalf("expected every tracked unit to be missing, got %v", problems)
	}
}

func TestMedianAndTrim(t *testing.T) {
	if got := median([]float64{3, 1, 2, 4}); got != 2.5 {
		t.Fatalf("median = %v", got)
	}
	if got := trimProcs("BenchmarkAuthenticateCached-16"); got != "BenchmarkAuthenticateCached" {
		t.Fatalf("trimProcs = %q", got)
	}
	if got := trimProcs("BenchmarkFoo-bar"); got != "BenchmarkFoo-bar" {
		t.Fatalf("trimProcs = %q", got)
	}
}
