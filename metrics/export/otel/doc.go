// Package otel binds storeauth metrics to OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and an
// Int64ObservableGauge per latency bucket. A single callback reads
// [storeauth.Engine.MetricsSnapshot] on each collection cycle. Sources that
// expose CacheStats also get session cache instruments.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
