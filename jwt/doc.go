// Package jwt issues and verifies the signed, expiring identity tokens that
// storefront clients present on every request.
//
// Tokens carry userId, email, role, name, iat, exp and a random jti. Verify
// always checks the signature first and reports expiry separately from
// signature and decoding failures, so a caller can recover the claims of an
// expired token (VerifyOptions.AllowExpired) and decide whether to reissue.
package jwt
