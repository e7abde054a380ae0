package internaldefs

import (
	storeauth "github.com/Arunava9732/Arunava45-sub000"
)

type CounterDef struct {
	ID   storeauth.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   storeauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: storeauth.MetricAuthSuccess, Name: "storeauth_authenticate_success_total", Help: "Requests authenticated against a live session."},
	{ID: storeauth.MetricAuthFailure, Name: "storeauth_authenticate_failure_total", Help: "Requests rejected by required authentication."},
	{ID: storeauth.MetricAuthNoCredential, Name: "storeauth_authenticate_no_token_total", Help: "Requests without a credential."},
	{ID: storeauth.MetricAuthInvalidToken, Name: "storeauth_authenticate_invalid_token_total", Help: "Requests with a malformed or badly signed token."},
	{ID: storeauth.MetricAuthSessionNotFound, Name: "storeauth_authenticate_session_not_found_total", Help: "Verified tokens without a session record."},
	{ID: storeauth.MetricAuthSessionExpired, Name: "storeauth_authenticate_session_expired_total", Help: "Verified tokens whose session had expired."},
	{ID: storeauth.MetricAuthStoreUnavailable, Name: "storeauth_authenticate_store_unavailable_total", Help: "Requests failed closed on a session store error."},
	{ID: storeauth.MetricTokenReissued, Name: "storeauth_token_reissued_total", Help: "Expired tokens reissued for a live session."},
	{ID: storeauth.MetricTokenReissueFailed, Name: "storeauth_token_reissue_failed_total", Help: "Token reissues that could not be completed."},
	{ID: storeauth.MetricSessionTouched, Name: "storeauth_session_touched_total", Help: "Sliding-expiration session writes."},
	{ID: storeauth.MetricSessionCacheHit, Name: "storeauth_session_cache_hit_total", Help: "Session lookups served by the cache."},
	{ID: storeauth.MetricSessionCacheMiss, Name: "storeauth_session_cache_miss_total", Help: "Session lookups that reached the store."},
	{ID: storeauth.MetricCookieRefreshFailed, Name: "storeauth_cookie_refresh_failed_total", Help: "Best-effort cookie writes that failed."},
	{ID: storeauth.MetricOptionalAuthAnonymous, Name: "storeauth_optional_auth_anonymous_total", Help: "Optional-auth requests served without identity."},
	{ID: storeauth.MetricLoginSuccess, Name: "storeauth_login_success_total", Help: "Successful login attempts."},
	{ID: storeauth.MetricLoginFailure, Name: "storeauth_login_failure_total", Help: "Failed login attempts."},
	{ID: storeauth.MetricLogout, Name: "storeauth_logout_total", Help: "Logout operations."},
	{ID: storeauth.MetricSessionCreated, Name: "storeauth_session_created_total", Help: "Created sessions."},
	{ID: storeauth.MetricSessionInvalidated, Name: "storeauth_session_invalidated_total", Help: "Sessions removed by explicit invalidation."},
	{ID: storeauth.MetricJanitorSwept, Name: "storeauth_janitor_swept_total", Help: "Expired sessions removed by the janitor."},
	{ID: storeauth.MetricJanitorFailure, Name: "storeauth_janitor_failure_total", Help: "Janitor passes that reported an error."},
}

var HistogramDefs = []HistogramDef{
	{ID: storeauth.MetricAuthenticateLatency, Name: "storeauth_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
