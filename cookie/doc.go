// Package cookie builds, signs, reads and clears the session transport cookie.
//
// The Secure attribute is derived from the request: it is set only when the
// request arrived over TLS, or when a trusted proxy reports https through
// X-Forwarded-Proto or Forwarded. Set and Clear are the only two mutation
// points and Clear is idempotent.
package cookie
