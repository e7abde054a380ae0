// Package session defines the durable session record, the Store contract the
// authentication core talks to, and the bounded read-through Cache that sits
// in front of any Store.
//
// # Architecture boundaries
//
// This package owns the [Record] model, the [Store] interface, the
// in-process [MemoryStore] and the [Cache]. Concrete backends (JSON files,
// Redis, Postgres) live under stores/. Nothing here parses tokens or makes
// authentication decisions; that belongs to the Engine.
//
// # What this package must NOT do
//
//   - Import the root package, jwt or cookie (no upward imports).
//   - Retry failed store operations.
//   - Treat a cache hit as authoritative beyond its freshness window.
package session
