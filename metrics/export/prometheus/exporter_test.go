package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	storeauth "github.com/Arunava9732/Arunava45-sub000"
	"github.com/Arunava9732/Arunava45-sub000/session"
)

type fakeSource struct {
	snapshot storeauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() storeauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

type fakeCacheSource struct {
	fakeSource
	stats session.CacheStats
}

func (f fakeCacheSource) CacheStats() session.CacheStats { return f.stats }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: storeauth.MetricsSnapshot{
			Counters:   map[storeauth.MetricID]uint64{},
			Histograms: map[storeauth.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: storeauth.MetricsSnapshot{
			Counters: map[storeauth.MetricID]uint64{
				storeauth.MetricAuthSuccess:   7,
				storeauth.MetricTokenReissued: 3,
			},
			Histograms: map[storeauth.MetricID][]uint64{
				storeauth.MetricAuthenticateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"storeauth_authenticate_success_total 7",
		"storeauth_token_reissued_total 3",
		"storeauth_janitor_swept_total 0",
		"storeauth_authenticate_latency_seconds_bucket{le=\"0.005\"} 1",
		"storeauth_authenticate_latency_seconds_bucket{le=\"+Inf\"} 36",
		"storeauth_authenticate_latency_seconds_count 36",
		"storeauth_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "storeauth_session_cache_entries") {
		t.Fatal("cache gauge must be absent for a source without a cache")
	}
	if exp.Render() != out {
		t.Fatal("render must be deterministic")
	}
}

func TestRenderIncludesCacheStats(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeCacheSource{
		fakeSource: fakeSource{
			snapshot: storeauth.MetricsSnapshot{
				Counters:   map[storeauth.MetricID]uint64{storeauth.MetricSessionCacheHit: 9},
				Histograms: map[storeauth.MetricID][]uint64{},
			},
		},
		stats: session.CacheStats{Size: 42, Evictions: 5},
	})

	out := exp.Render()
	if !strings.Contains(out, "# TYPE storeauth_session_cache_entries gauge\nstoreauth_session_cache_entries 42") {
		t.Fatalf("expected cache gauge, got:\n%s", out)
	}
	if !strings.Contains(out, "storeauth_session_cache_evictions_total 5") {
		t.Fatalf("expected eviction counter, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: storeauth.MetricsSnapshot{
			Counters:   map[storeauth.MetricID]uint64{storeauth.MetricLoginSuccess: 1},
			Histograms: map[storeauth.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: storeauth.MetricsSnapshot{
			Counters: map[storeauth.MetricID]uint64{
				storeauth.MetricAuthSuccess:      100000,
				storeauth.MetricAuthFailure:      400,
				storeauth.MetricSessionCacheHit:  95000,
				storeauth.MetricSessionCacheMiss: 5000,
				storeauth.MetricTokenReissued:    120,
				storeauth.MetricLoginSuccess:     800,
				storeauth.MetricJanitorSwept:     30,
			},
			Histograms: map[storeauth.MetricID][]uint64{
				storeauth.MetricAuthenticateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
		dropped: 0,
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
