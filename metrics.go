package storeauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter or histogram.
type MetricID uint16

const (
	// MetricAuthSuccess counts requests that reached StateAuthenticated.
	MetricAuthSuccess MetricID = iota
	// MetricAuthFailure counts every failed required-auth request.
	MetricAuthFailure
	// MetricAuthNoCredential counts NO_TOKEN failures.
	MetricAuthNoCredential
	// MetricAuthInvalidToken counts INVALID_TOKEN failures.
	MetricAuthInvalidToken
	// MetricAuthSessionNotFound counts INVALID_SESSION failures with no record.
	MetricAuthSessionNotFound
	// MetricAuthSessionExpired counts SESSION_EXPIRED failures.
	MetricAuthSessionExpired
	// MetricAuthStoreUnavailable counts requests failed closed on a store error.
	MetricAuthStoreUnavailable
	// MetricTokenReissued counts expired tokens replaced for a live session.
	MetricTokenReissued
	// MetricTokenReissueFailed counts reissues that could not be completed.
	MetricTokenReissueFailed
	// MetricSessionTouched counts sliding-expiration writes.
	MetricSessionTouched
	// MetricSessionCacheHit counts session resolutions served by the cache.
	MetricSessionCacheHit
	// MetricSessionCacheMiss counts session resolutions that reached the store.
	MetricSessionCacheMiss
	// MetricCookieRefreshFailed counts best-effort cookie writes that failed.
	MetricCookieRefreshFailed
	// MetricOptionalAuthAnonymous counts optional-auth requests that proceeded without identity.
	MetricOptionalAuthAnonymous
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricLogout counts logouts.
	MetricLogout
	// MetricSessionCreated counts session records created at login.
	MetricSessionCreated
	// MetricSessionInvalidated counts records removed by explicit invalidation.
	MetricSessionInvalidated
	// MetricJanitorSwept counts records removed by the janitor.
	MetricJanitorSwept
	// MetricJanitorFailure counts janitor sweeps that returned an error.
	MetricJanitorFailure
	// MetricAuthenticateLatency is the Authenticate latency histogram.
	MetricAuthenticateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters and one latency histogram.
// A nil or disabled Metrics ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every metric. Histogram
// buckets are non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add adds n to the counter id.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d in the histogram id. Only MetricAuthenticateLatency
// carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricAuthenticateLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricAuthenticateLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthenticateLatency].buckets[i])
		}
		s.Histograms[MetricAuthenticateLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
