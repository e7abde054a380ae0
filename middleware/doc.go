// Package middleware adapts storeauth.Engine to net/http.
//
// # Guards
//
//   - [RequireAuth]: runs Engine.Authenticate and rejects with 401 and the
//     failure code on any error.
//   - [OptionalAuth]: attaches an identity when a valid, unexpired token is
//     present and never rejects.
//   - [RequireAdmin]: RequireAuth followed by a 403 unless the identity is an
//     admin.
//
// Handlers read the outcome with [IdentityFromContext],
// [AuthResultFromContext] and [TokenFromContext].
//
// # What this package must NOT do
//
//   - Parse or issue tokens (delegates to Engine).
//   - Touch the session store or cookies directly.
package middleware
