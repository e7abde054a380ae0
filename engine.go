package storeauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Arunava9732/Arunava45-sub000/cookie"
	"github.com/Arunava9732/Arunava45-sub000/internal"
	"github.com/Arunava9732/Arunava45-sub000/janitor"
	"github.com/Arunava9732/Arunava45-sub000/jwt"
	"github.com/Arunava9732/Arunava45-sub000/password"
	"github.com/Arunava9732/Arunava45-sub000/session"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Engine owns the token codec, the session cache, the cookie manager and
// the janitor for one storefront process. It is safe for concurrent use
// once returned by [Builder.Build].
type Engine struct {
	config       Config
	clock        clockwork.Clock
	log          *zap.Logger
	sessionStore session.Store
	sessions     *session.Cache
	userProvider UserProvider
	jwtManager   *jwt.Manager
	cookies      *cookie.Manager
	passwordHash *password.Hasher
	dummyHash    string
	audit        *auditDispatcher
	metrics      *Metrics
	janitor      *janitor.Janitor
}

// Close stops the janitor and drains the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.janitor != nil {
		e.janitor.Stop()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// CacheStats reports session cache activity.
func (e *Engine) CacheStats() session.CacheStats {
	if e == nil || e.sessions == nil {
		return session.CacheStats{}
	}
	return e.sessions.Stats()
}

func (e *Engine) Logger() *zap.Logger {
	if e == nil || e.log == nil {
		return zap.NewNop()
	}
	return e.log
}

// SessionLifetime returns the session window, and cookie lifetime, for role.
func (e *Engine) SessionLifetime(role string) time.Duration {
	return e.config.SessionLifetime(role)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
LOGIN / LOGOUT
====================================
*/

// Login checks email and password, issues a token and creates a durable
// session. The client IP and User-Agent are taken from ctx (see
// [WithClientIP], [WithUserAgent]). Unknown emails and wrong passwords both
// return [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, email, pw string) (*LoginResult, error) {
	if e == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}
	email = strings.TrimSpace(email)
	if email == "" || pw == "" {
		e.loginFailed(ctx, "", email, "empty_credentials")
		return nil, ErrInvalidCredentials
	}

	user, err := e.userProvider.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricLoginFailure)
			return nil, fmt.Errorf("load user: %w", err)
		}
		// equalize timing with the wrong-password path
		_, _ = e.passwordHash.Verify(pw, e.dummyHash)
		e.loginFailed(ctx, "", email, "user_not_found")
		return nil, ErrInvalidCredentials
	}

	ok, err := e.passwordHash.Verify(pw, user.PasswordHash)
	if err != nil || !ok {
		e.loginFailed(ctx, user.ID, email, "password_mismatch")
		return nil, ErrInvalidCredentials
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradePasswordHash(ctx, user, pw)
	}
	pw = ""

	if user.Role == "" {
		user.Role = RoleCustomer
	}
	token, claims, err := e.jwtManager.Issue(subjectFromUser(user))
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}

	sessionID, err := internal.NewSessionIDString()
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}
	now := e.clock.Now()
	lifetime := e.config.SessionLifetime(user.Role)
	rec, err := e.sessionStore.Create(ctx, session.Record{
		ID:             sessionID,
		UserID:         user.ID,
		Token:          token,
		UserAgent:      session.TruncateUserAgent(userAgentFromContext(ctx), e.config.Session.UserAgentMaxLength),
		IPAddress:      clientIPFromContext(ctx),
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(lifetime),
	})
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, "", ErrSessionUnavailable, nil)
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	e.sessions.Put(token, *rec)

	e.metricInc(MetricSessionCreated)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, rec.ID, nil, nil)

	return &LoginResult{
		Identity:     identityFromClaims(claims),
		Token:        token,
		SessionID:    rec.ID,
		ExpiresAt:    rec.ExpiresAt,
		CookieMaxAge: lifetime,
	}, nil
}

func (e *Engine) loginFailed(ctx context.Context, userID, email, reason string) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": email,
			"reason":     reason,
		}
	})
}

func (e *Engine) upgradePasswordHash(ctx context.Context, user *User, pw string) {
	updater, ok := e.userProvider.(PasswordHashUpdater)
	if !ok {
		return
	}
	needsUpgrade, err := e.passwordHash.NeedsRehash(user.PasswordHash)
	if err != nil || !needsUpgrade {
		return
	}
	upgraded, err := e.passwordHash.Hash(pw)
	if err != nil {
		e.log.Warn("password hash upgrade generation failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	// best-effort, login proceeds either way
	if err := updater.UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
		e.log.Warn("password hash upgrade update failed", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// Logout deletes the session behind token. Expired tokens are accepted so a
// client can always sign out; a session that is already gone is not an error.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	if token == "" {
		return ErrNoCredential
	}
	if !wellFormed(token) {
		return ErrMalformedToken
	}
	claims, err := e.jwtManager.Verify(token, jwt.VerifyOptions{AllowExpired: true})
	if err != nil {
		_, mapped := classifyTokenError(err)
		return mapped
	}

	defer e.sessions.Invalidate(token)

	rec, err := e.sessionStore.FindOne(ctx, session.Query{Token: token, UserID: claims.UserID})
	if err != nil {
		if session.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	if err := e.sessionStore.Delete(ctx, rec.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, rec.UserID, rec.ID, nil, nil)
	return nil
}

/*
====================================
SESSION MANAGEMENT
====================================
*/

// InvalidateUserSessions deletes every session of userID except
// keepSessionID (which may be empty) and returns how many were removed.
// Deletion continues past individual failures; their errors are joined.
func (e *Engine) InvalidateUserSessions(ctx context.Context, userID, keepSessionID string) (int, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	recs, err := session.ListByUser(ctx, e.sessionStore, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	var (
		removed int
		errs    []error
	)
	for _, rec := range recs {
		if rec.ID == keepSessionID {
			continue
		}
		if err := e.sessionStore.Delete(ctx, rec.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete session %s: %w", rec.ID, err))
			continue
		}
		e.sessions.Invalidate(rec.Token)
		removed++
	}

	e.metrics.Add(MetricSessionInvalidated, uint64(removed))
	e.emitAudit(ctx, auditEventSessionInvalidated, len(errs) == 0, userID, keepSessionID, errors.Join(errs...), func() map[string]string {
		return map[string]string{
			"removed": strconv.Itoa(removed),
		}
	})
	return removed, errors.Join(errs...)
}

// ListUserSessions returns the live sessions of userID, most recently used
// first. The session carrying currentToken is marked Current.
func (e *Engine) ListUserSessions(ctx context.Context, userID, currentToken string) ([]SessionInfo, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	recs, err := session.ListByUser(ctx, e.sessionStore, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	now := e.clock.Now()
	out := make([]SessionInfo, 0, len(recs))
	for _, rec := range recs {
		if rec.Expired(now) {
			continue
		}
		out = append(out, SessionInfo{
			ID:           rec.ID,
			UserAgent:    rec.UserAgent,
			IPAddress:    rec.IPAddress,
			CreatedAt:    rec.CreatedAt,
			LastActivity: rec.LastActivityAt,
			ExpiresAt:    rec.ExpiresAt,
			Current:      currentToken != "" && rec.Token == currentToken,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out, nil
}

// SetSessionCookie writes the signed transport cookie for token with the
// session window of role.
func (e *Engine) SetSessionCookie(w http.ResponseWriter, r *http.Request, token, role string) cookie.Result {
	if e == nil || e.cookies == nil {
		return cookie.Result{Err: ErrEngineNotReady}
	}
	return e.cookies.Set(w, r, token, e.config.SessionLifetime(role))
}

func (e *Engine) ClearSessionCookie(w http.ResponseWriter, r *http.Request) cookie.Result {
	if e == nil || e.cookies == nil {
		return cookie.Result{Err: ErrEngineNotReady}
	}
	return e.cookies.Clear(w, r)
}

/*
====================================
JANITOR
====================================
*/

// StartJanitor starts the periodic expired-session sweep. It is a no-op
// when the janitor is disabled. The sweep stops on Close or when ctx ends.
func (e *Engine) StartJanitor(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.janitor == nil {
		return nil
	}
	return e.janitor.Start(ctx)
}

// SweepExpiredSessions runs one janitor pass immediately.
func (e *Engine) SweepExpiredSessions(ctx context.Context) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if e.janitor == nil {
		return 0, nil
	}
	return e.janitor.RunOnce(ctx)
}

func (e *Engine) onSwept(removed []session.Record, err error) {
	for _, rec := range removed {
		e.sessions.Invalidate(rec.Token)
	}
	e.metrics.Add(MetricJanitorSwept, uint64(len(removed)))
	if err != nil {
		e.metricInc(MetricJanitorFailure)
	}
	e.emitAudit(context.Background(), auditEventSessionsSwept, err == nil, "", "", err, func() map[string]string {
		return map[string]string{
			"removed": strconv.Itoa(len(removed)),
		}
	})
}

func subjectFromUser(u *User) jwt.Subject {
	return jwt.Subject{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		Name:   u.Name,
	}
}
