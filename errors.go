package storeauth

import "errors"

var (
	// ErrNoCredential is returned when the request carries no token.
	ErrNoCredential = errors.New("no credential")
	// ErrMalformedToken is returned for a credential that is not a three-segment token.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidSignature is returned when the token signature or claims do not verify.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrTokenExpired is returned when an expired token could not be reissued.
	ErrTokenExpired = errors.New("token expired")
	// ErrSessionNotFound is returned when no durable session matches a verified token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when the durable session is past its window.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionUnavailable is returned when the session store cannot be reached.
	// Authentication fails closed on it.
	ErrSessionUnavailable = errors.New("session store unavailable")
	// ErrInvalidCredentials is returned by Login for any unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by UserProvider implementations.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned by methods called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Machine-readable failure codes carried in 401 response bodies.
const (
	CodeNoToken        = "NO_TOKEN"
	CodeInvalidToken   = "INVALID_TOKEN"
	CodeInvalidSession = "INVALID_SESSION"
	CodeSessionExpired = "SESSION_EXPIRED"
	CodeTokenExpired   = "TOKEN_EXPIRED"
)

// FailureCode maps an authentication error to its client-visible code.
// Unknown errors map to INVALID_SESSION so a failure never reads as success.
func FailureCode(err error) string {
	switch {
	case errors.Is(err, ErrNoCredential):
		return CodeNoToken
	case errors.Is(err, ErrMalformedToken), errors.Is(err, ErrInvalidSignature):
		return CodeInvalidToken
	case errors.Is(err, ErrSessionExpired):
		return CodeSessionExpired
	case errors.Is(err, ErrTokenExpired):
		return CodeTokenExpired
	default:
		return CodeInvalidSession
	}
}

// FailureMessage is the human-readable message paired with FailureCode.
func FailureMessage(err error) string {
	switch FailureCode(err) {
	case CodeNoToken:
		return "Authentication required"
	case CodeInvalidToken:
		return "Invalid token"
	case CodeSessionExpired:
		return "Session expired, please log in again"
	case CodeTokenExpired:
		return "Token expired"
	default:
		return "Invalid session"
	}
}
