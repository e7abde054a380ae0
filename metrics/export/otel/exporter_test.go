package otel

import (
	"context"
	"sync"
	"testing"

	storeauth "github.com/Arunava9732/Arunava45-sub000"
	"github.com/Arunava9732/Arunava45-sub000/session"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot storeauth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() storeauth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := storeauth.MetricsSnapshot{
		Counters:   make(map[storeauth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[storeauth.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("storeauth-test")

	src := &fakeSource{
		snapshot: storeauth.MetricsSnapshot{
			Counters: map[storeauth.MetricID]uint64{
				storeauth.MetricLoginSuccess: 3,
			},
			Histograms: map[storeauth.MetricID][]uint64{
				storeauth.MetricAuthenticateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}
}

func TestExporterRejectsNilSource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("storeauth-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("storeauth-test")

	src := &fakeSource{
		snapshot: storeauth.MetricsSnapshot{
			Counters: map[storeauth.MetricID]uint64{
				storeauth.MetricLoginSuccess: 1,
			},
			Histograms: map[storeauth.MetricID][]uint64{
				storeauth.MetricAuthenticateLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[storeauth.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}

type fakeCacheSource struct {
	*fakeSource
	stats session.CacheStats
}

func (f fakeCacheSource) CacheStats() session.CacheStats { return f.stats }

func collectInt64(t *testing.T, rm metricdata.ResourceMetrics, name string) (int64, bool) {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			}
		}
	}
	return 0, false
}

func TestExporterObservesNamedValues(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("storeauth-test")

	src := fakeCacheSource{
		fakeSource: &fakeSource{
			snapshot: storeauth.MetricsSnapshot{
				Counters: map[storeauth.MetricID]uint64{
					storeauth.MetricTokenReissued: 4,
				},
				Histograms: map[storeauth.MetricID][]uint64{
					storeauth.MetricAuthenticateLatency: {2, 0, 1, 0, 0, 0, 0, 0},
				},
			},
		},
		stats: session.CacheStats{Size: 12, Evictions: 3},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	for name, want := range map[string]int64{
		"storeauth_token_reissued_total":                        4,
		"storeauth_authenticate_latency_seconds_count":          3,
		"storeauth_authenticate_latency_seconds_bucket_le_0_01": 2,
		"storeauth_session_cache_entries":                       12,
		"storeauth_session_cache_evictions_total":               3,
	} {
		got, ok := collectInt64(t, rm, name)
		if !ok {
			t.Fatalf("metric %s not collected", name)
		}
		if got != want {
			t.Fatalf("%s = %d, want %d", name, got, want)
		}
	}
}
