// Package prometheus renders storeauth metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts a [storeauth.Engine] and exposes an
// [http.Handler]. Counter names are prefixed storeauth_*_total; the single
// histogram is storeauth_authenticate_latency_seconds. When the source owns a
// session cache its size and evictions are exported too.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
