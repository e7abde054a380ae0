package storeauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Arunava9732/Arunava45-sub000/jwt"
	"github.com/Arunava9732/Arunava45-sub000/session"
	"go.uber.org/zap"
)

// Authenticate reconciles the request credential against its durable
// session.
//
// The credential is read from the signed cookie first, then from an
// `Authorization: Bearer` header. A correctly signed token whose expiry has
// passed is reissued while its session is still live; the new token is set
// on the cookie and returned in AuthResult.Token. A session idle for longer
// than Session.TouchInterval has its activity and expiry extended. Every
// failure clears the cookie.
//
// The returned AuthResult is never nil. On failure err maps to a wire code
// through [FailureCode].
func (e *Engine) Authenticate(w http.ResponseWriter, r *http.Request) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return &AuthResult{}, ErrEngineNotReady
	}
	start := time.Now()

	res, err := e.reconcile(r.Context(), w, r)

	e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	if err != nil {
		e.metricInc(MetricAuthFailure)
		e.countFailure(err)
		res.Cookie = e.cookies.Clear(w, r)
		return res, err
	}
	e.metricInc(MetricAuthSuccess)
	return res, nil
}

// AuthenticateOptional resolves an identity from a valid, unexpired token
// without consulting the session store. It never blocks the request and
// never touches cookies; ok is false whenever no identity could be derived.
func (e *Engine) AuthenticateOptional(r *http.Request) (*AuthResult, bool) {
	if e == nil || e.jwtManager == nil {
		return nil, false
	}
	token, found := e.credential(r)
	if !found {
		e.metricInc(MetricOptionalAuthAnonymous)
		return nil, false
	}
	claims, _, err := e.verifyCredential(token)
	if err != nil || claims.ExpiredAt(e.clock.Now()) {
		e.metricInc(MetricOptionalAuthAnonymous)
		return nil, false
	}
	return &AuthResult{
		Identity: identityFromClaims(claims),
		Claims:   claims,
		Token:    token,
		State:    StateAuthenticated,
	}, true
}

func (e *Engine) reconcile(ctx context.Context, w http.ResponseWriter, r *http.Request) (*AuthResult, error) {
	res := &AuthResult{}

	token, fromCookie := e.credential(r)
	if token == "" {
		res.State = StateNoCredential
		return res, ErrNoCredential
	}
	res.Token = token

	claims, state, err := e.verifyCredential(token)
	if err != nil {
		res.State = state
		return res, err
	}
	res.Claims = claims
	tokenExpired := claims.ExpiredAt(e.clock.Now())

	rec, hit, err := e.sessions.Get(ctx, token, claims.UserID)
	if hit {
		e.metricInc(MetricSessionCacheHit)
	} else {
		e.metricInc(MetricSessionCacheMiss)
	}
	if err != nil {
		res.State = missingState(tokenExpired)
		if session.IsNotFound(err) {
			return res, ErrSessionNotFound
		}
		e.log.Warn("session lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return res, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	res.CacheHit = hit

	now := e.clock.Now()
	if rec.Expired(now) {
		e.expireSession(ctx, token, rec)
		if tokenExpired {
			res.State = StateTokenExpiredSessionExpired
		} else {
			res.State = StateTokenValidSessionExpired
		}
		return res, ErrSessionExpired
	}
	res.Session = rec

	switch {
	case tokenExpired:
		newToken, newClaims, updated, err := e.reissue(ctx, claims, rec, now)
		if err != nil {
			if session.IsNotFound(err) {
				e.sessions.Invalidate(token)
				res.State = StateTokenExpiredSessionMissing
				res.Session = nil
				return res, ErrSessionNotFound
			}
			res.State = StateTokenExpiredSessionValid
			return res, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		res.Token, res.Claims, res.Session = newToken, newClaims, updated
		res.Reissued = true
		e.emitAudit(ctx, auditEventTokenReissued, true, updated.UserID, updated.ID, nil, nil)

	case now.Sub(rec.LastActivityAt) > e.config.Session.TouchInterval:
		updated, err := e.touch(ctx, token, rec, claims.Role, now)
		if err != nil {
			res.State = StateTokenValidSessionMissing
			if session.IsNotFound(err) {
				return res, ErrSessionNotFound
			}
			e.log.Warn("session touch failed", zap.String("session_id", rec.ID), zap.Error(err))
			return res, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
		}
		res.Session = updated
		res.Touched = true
	}

	if res.Reissued || (res.Touched && fromCookie) {
		res.Cookie = e.cookies.Set(w, r, res.Token, e.config.SessionLifetime(res.Claims.Role))
		if !res.Cookie.Applied {
			e.metricInc(MetricCookieRefreshFailed)
			e.log.Warn("cookie refresh failed", zap.String("session_id", res.Session.ID), zap.Error(res.Cookie.Err))
		}
	}

	res.Identity = identityFromClaims(res.Claims)
	res.State = StateAuthenticated
	return res, nil
}

// credential returns the token and whether it came from the cookie.
func (e *Engine) credential(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	if tok, ok := e.cookies.Read(r); ok && tok != "" {
		return tok, true
	}
	return bearerToken(r), false
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// wellFormed reports whether token has exactly three non-empty segments.
func wellFormed(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// verifyCredential checks structure and signature. Claims of a correctly
// signed but time-expired token are returned without error.
func (e *Engine) verifyCredential(token string) (*jwt.Claims, AuthState, error) {
	if !wellFormed(token) {
		return nil, StateTokenMalformed, ErrMalformedToken
	}
	claims, err := e.jwtManager.Verify(token, jwt.VerifyOptions{})
	if errors.Is(err, jwt.ErrExpired) {
		claims, err = e.jwtManager.Verify(token, jwt.VerifyOptions{AllowExpired: true})
	}
	if err != nil {
		state, mapped := classifyTokenError(err)
		return nil, state, mapped
	}
	return claims, StateAuthenticated, nil
}

func classifyTokenError(err error) (AuthState, error) {
	if errors.Is(err, jwt.ErrMalformed) {
		return StateTokenMalformed, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return StateTokenInvalid, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
}

func missingState(tokenExpired bool) AuthState {
	if tokenExpired {
		return StateTokenExpiredSessionMissing
	}
	return StateTokenValidSessionMissing
}

// expireSession removes a session found past its window. A failed delete
// is left for the janitor.
func (e *Engine) expireSession(ctx context.Context, token string, rec *session.Record) {
	if err := e.sessionStore.Delete(ctx, rec.ID); err != nil {
		e.log.Warn("expired session delete failed", zap.String("session_id", rec.ID), zap.Error(err))
	}
	e.sessions.Invalidate(token)
	e.emitAudit(ctx, auditEventSessionExpired, true, rec.UserID, rec.ID, nil, nil)
}

// reissue replaces the expired token of a live session. Identity fields are
// refreshed from the user collection when it answers and copied from the
// old claims otherwise.
func (e *Engine) reissue(ctx context.Context, old *jwt.Claims, rec *session.Record, now time.Time) (string, *jwt.Claims, *session.Record, error) {
	sub := jwt.Subject{
		UserID: old.UserID,
		Email:  old.Email,
		Role:   old.Role,
		Name:   old.Name,
	}
	if user, err := e.userProvider.GetUserByID(ctx, old.UserID); err == nil && user != nil {
		sub = subjectFromUser(user)
		if sub.Role == "" {
			sub.Role = old.Role
		}
	} else if err != nil && !errors.Is(err, ErrUserNotFound) {
		e.log.Warn("user refresh failed during reissue", zap.String("user_id", old.UserID), zap.Error(err))
	}

	token, claims, err := e.jwtManager.Issue(sub)
	if err != nil {
		e.reissueFailed(ctx, rec, err)
		return "", nil, nil, err
	}

	expires := extendExpiry(rec.ExpiresAt, now.Add(e.config.SessionLifetime(sub.Role)))
	updated, err := e.sessionStore.Update(ctx, rec.ID, session.Patch{
		Token:          &token,
		LastActivityAt: &now,
		ExpiresAt:      &expires,
	})
	if err != nil {
		e.reissueFailed(ctx, rec, err)
		return "", nil, nil, err
	}

	e.sessions.Invalidate(rec.Token)
	e.sessions.Put(token, *updated)
	e.metricInc(MetricTokenReissued)
	return token, claims, updated, nil
}

func (e *Engine) reissueFailed(ctx context.Context, rec *session.Record, err error) {
	e.metricInc(MetricTokenReissueFailed)
	e.log.Warn("token reissue failed", zap.String("session_id", rec.ID), zap.Error(err))
	e.emitAudit(ctx, auditEventTokenReissueFailed, false, rec.UserID, rec.ID, err, nil)
}

// touch records activity and slides the expiry forward. ExpiresAt never
// moves backwards.
func (e *Engine) touch(ctx context.Context, token string, rec *session.Record, role string, now time.Time) (*session.Record, error) {
	expires := extendExpiry(rec.ExpiresAt, now.Add(e.config.SessionLifetime(role)))
	updated, err := e.sessionStore.Update(ctx, rec.ID, session.Patch{
		LastActivityAt: &now,
		ExpiresAt:      &expires,
	})
	if err != nil {
		if session.IsNotFound(err) {
			e.sessions.Invalidate(token)
		}
		return nil, err
	}
	e.sessions.Put(token, *updated)
	e.metricInc(MetricSessionTouched)
	return updated, nil
}

func extendExpiry(current, candidate time.Time) time.Time {
	if candidate.After(current) {
		return candidate
	}
	return current
}

func (e *Engine) countFailure(err error) {
	switch {
	case errors.Is(err, ErrNoCredential):
		e.metricInc(MetricAuthNoCredential)
	case errors.Is(err, ErrMalformedToken), errors.Is(err, ErrInvalidSignature):
		e.metricInc(MetricAuthInvalidToken)
	case errors.Is(err, ErrSessionUnavailable):
		e.metricInc(MetricAuthStoreUnavailable)
	case errors.Is(err, ErrSessionExpired):
		e.metricInc(MetricAuthSessionExpired)
	case errors.Is(err, ErrSessionNotFound):
		e.metricInc(MetricAuthSessionNotFound)
	}
}
