// Package storeauth authenticates storefront requests by reconciling a signed
// token carried in a cookie or bearer header against a durable server-side
// session record.
//
// Tokens are long-lived and self-describing; the session record is the
// authority. A correctly signed but expired token is silently reissued while
// its session is live, and idle sessions slide their expiry forward on use.
// A small in-process cache keeps the hot path off the session store.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// storeauth is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([AuthResult], [Identity], [SessionInfo]). Token encoding
// lives in jwt/, the session model, store contract and cache in session/,
// the transport cookie in cookie/, the expired-session sweep in janitor/, and
// concrete stores under stores/.
//
// # What this package must NOT do
//
//   - Expose store clients or encoding details in its public API.
//   - Perform I/O outside of Engine methods (Build is allocation-only).
//   - Import any sub-package that re-imports storeauth (no import cycles).
//
// # Performance contract
//
// Authenticate is the hot path. A request whose session is cached and fresh
// performs no store I/O; a request inside the touch interval performs no
// store writes.
package storeauth
