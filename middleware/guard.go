package middleware

import (
	"context"
	"net/http"

	storeauth "github.com/Arunava9732/Arunava45-sub000"
	"github.com/Arunava9732/Arunava45-sub000/internal/httpjson"
)

const CodeForbidden = "FORBIDDEN"

type authResultContextKey struct{}

// AuthResultFromContext returns the result attached by a guard.
func AuthResultFromContext(ctx context.Context) (*storeauth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*storeauth.AuthResult)
	return res, ok && res != nil
}

// IdentityFromContext returns the authenticated principal, if any.
func IdentityFromContext(ctx context.Context) (storeauth.Identity, bool) {
	res, ok := AuthResultFromContext(ctx)
	if !ok {
		return storeauth.Identity{}, false
	}
	return res.Identity, true
}

// TokenFromContext returns the effective token for the request. After a
// reissue it is the new token.
func TokenFromContext(ctx context.Context) (string, bool) {
	res, ok := AuthResultFromContext(ctx)
	if !ok || res.Token == "" {
		return "", false
	}
	return res.Token, true
}

func WithAuthResult(ctx context.Context, res *storeauth.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

func RequireAuth(engine *storeauth.Engine) func(http.Handler) http.Handler {
	return guard(engine, false)
}

// RequireAdmin rejects authenticated non-admins with 403.
func RequireAdmin(engine *storeauth.Engine) func(http.Handler) http.Handler {
	return guard(engine, true)
}

func guard(engine *storeauth.Engine, admin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				httpjson.WriteFailure(w, http.StatusUnauthorized,
					storeauth.FailureMessage(storeauth.ErrEngineNotReady),
					storeauth.FailureCode(storeauth.ErrEngineNotReady))
				return
			}

			res, err := engine.Authenticate(w, r)
			if err != nil {
				httpjson.WriteFailure(w, http.StatusUnauthorized, storeauth.FailureMessage(err), storeauth.FailureCode(err))
				return
			}
			if admin && !res.Identity.IsAdmin() {
				httpjson.WriteFailure(w, http.StatusForbidden, "Admin access required", CodeForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), res)))
		})
	}
}

// OptionalAuth attaches an identity when one can be derived and otherwise
// passes the request through unchanged.
func OptionalAuth(engine *storeauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine != nil {
				if res, ok := engine.AuthenticateOptional(r); ok {
					r = r.WithContext(WithAuthResult(r.Context(), res))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
