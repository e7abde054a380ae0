package storeauth

import (
	"context"
	"time"

	"github.com/Arunava9732/Arunava45-sub000/cookie"
	"github.com/Arunava9732/Arunava45-sub000/jwt"
	"github.com/Arunava9732/Arunava45-sub000/session"
)

const (
	// RoleCustomer is the role of every storefront shopper.
	RoleCustomer = "customer"
	// RoleAdmin gates the administrative routes.
	RoleAdmin = "admin"
)

// User is the account record consumed from the user collection. The Engine
// reads it at login and when refreshing claims during token reissue.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	Role         string `json:"role"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

// UserProvider is the user collection the Engine consumes. Implementations
// return [ErrUserNotFound] when no user matches.
//
//	Implementations: stores/filestore, stores/pgstore
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
}

// PasswordHashUpdater is implemented by user providers that can persist an
// upgraded password hash. Login uses it when Password.UpgradeOnLogin is set.
type PasswordHashUpdater interface {
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Name   string `json:"name,omitempty"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func identityFromClaims(c *jwt.Claims) Identity {
	return Identity{
		UserID: c.UserID,
		Email:  c.Email,
		Role:   c.Role,
		Name:   c.Name,
	}
}

// AuthState is the terminal state the reconciler reached for one request.
type AuthState uint8

const (
	// StateNoCredential means neither cookie nor bearer header carried a token.
	StateNoCredential AuthState = iota
	// StateTokenMalformed means the credential is not a three-segment token.
	StateTokenMalformed
	// StateTokenInvalid means the signature or claims did not verify.
	StateTokenInvalid
	// StateTokenExpiredSessionMissing means an expired token had no session.
	StateTokenExpiredSessionMissing
	// StateTokenExpiredSessionValid means an expired token had a live session
	// but could not be reissued. A successful reissue ends in StateAuthenticated
	// with AuthResult.Reissued set.
	StateTokenExpiredSessionValid
	// StateTokenExpiredSessionExpired means both the token and its session had expired.
	StateTokenExpiredSessionExpired
	// StateTokenValidSessionMissing means a valid token had no session.
	StateTokenValidSessionMissing
	// StateTokenValidSessionExpired means a valid token pointed at an expired session.
	StateTokenValidSessionExpired
	// StateAuthenticated means the request carries a live identity.
	StateAuthenticated
)

var authStateNames = [...]string{
	StateNoCredential:               "no_credential",
	StateTokenMalformed:             "token_malformed",
	StateTokenInvalid:               "token_invalid",
	StateTokenExpiredSessionMissing: "token_expired_session_missing",
	StateTokenExpiredSessionValid:   "token_expired_session_valid",
	StateTokenExpiredSessionExpired: "token_expired_session_expired",
	StateTokenValidSessionMissing:   "token_valid_session_missing",
	StateTokenValidSessionExpired:   "token_valid_session_expired",
	StateAuthenticated:              "authenticated",
}

func (s AuthState) String() string {
	if int(s) < len(authStateNames) {
		return authStateNames[s]
	}
	return "unknown"
}

// AuthResult is returned by [Engine.Authenticate]. It is non-nil even on
// failure so callers can inspect State and the cookie outcome.
type AuthResult struct {
	Identity Identity
	Claims   *jwt.Claims
	// Token is the effective credential for the rest of the request. After a
	// reissue it is the new token.
	Token   string
	Session *session.Record
	State   AuthState

	Reissued bool
	Touched  bool
	CacheHit bool

	// Cookie reports the best-effort cookie mutation made for this request.
	Cookie cookie.Result
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	Identity  Identity
	Token     string
	SessionID string
	ExpiresAt time.Time
	// CookieMaxAge is the lifetime to give the transport cookie.
	CookieMaxAge time.Duration
}

// SessionInfo is the client-facing projection of a session record.
type SessionInfo struct {
	ID           string    `json:"id"`
	UserAgent    string    `json:"userAgent"`
	IPAddress    string    `json:"ipAddress"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Current      bool      `json:"current"`
}
