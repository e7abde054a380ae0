package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	storeauth "github.com/Arunava9732/Arunava45-sub000"
	"github.com/Arunava9732/Arunava45-sub000/internal/httpjson"
	"github.com/Arunava9732/Arunava45-sub000/metrics/export/prometheus"
	"github.com/Arunava9732/Arunava45-sub000/middleware"
)

const maxLoginBody = 16 << 10

type Dependencies struct {
	Engine *storeauth.Engine
	Logger *zap.Logger
	// Health reports backend reachability for /healthz.
	Health func(context.Context) error
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	h := &handlers{engine: deps.Engine, log: deps.Logger, health: deps.Health}
	if h.log == nil {
		h.log = zap.NewNop()
	}

	r.Get("/healthz", h.healthz)
	r.Method(http.MethodGet, "/metrics", prometheus.NewPrometheusExporter(deps.Engine).Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.With(middleware.OptionalAuth(deps.Engine)).Get("/status", h.status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.Engine))
			r.Post("/logout", h.logout)
			r.Get("/me", h.me)
			r.Get("/sessions", h.listSessions)
			r.Delete("/sessions", h.revokeOtherSessions)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(deps.Engine))
		r.Get("/ping", h.adminPing)
	})
}

type handlers struct {
	engine *storeauth.Engine
	log    *zap.Logger
	health func(context.Context) error
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool               `json:"success"`
	Token     string             `json:"token"`
	User      storeauth.Identity `json:"user"`
	ExpiresAt time.Time          `json:"expiresAt"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		httpjson.WriteFailure(w, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST")
		return
	}

	res, err := h.engine.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, storeauth.ErrInvalidCredentials):
		httpjson.WriteFailure(w, http.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS")
		return
	case errors.Is(err, storeauth.ErrSessionUnavailable):
		h.log.Error("login: session store unavailable", zap.Error(err))
		httpjson.WriteFailure(w, http.StatusServiceUnavailable, "Service temporarily unavailable", "SERVICE_UNAVAILABLE")
		return
	case err != nil:
		h.log.Error("login failed", zap.Error(err))
		httpjson.WriteFailure(w, http.StatusInternalServerError, "Internal error", "INTERNAL")
		return
	}

	if cr := h.engine.SetSessionCookie(w, r, res.Token, res.Identity.Role); cr.Err != nil {
		h.log.Warn("login: cookie not set", zap.Error(cr.Err))
	}
	httpjson.Write(w, http.StatusOK, loginResponse{
		Success:   true,
		Token:     res.Token,
		User:      res.Identity,
		ExpiresAt: res.ExpiresAt,
	})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.TokenFromContext(r.Context())
	if err := h.engine.Logout(r.Context(), token); err != nil {
		h.log.Warn("logout failed", zap.Error(err))
	}
	h.engine.ClearSessionCookie(w, r)
	httpjson.Write(w, http.StatusOK, map[string]any{"success": true})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	httpjson.Write(w, http.StatusOK, map[string]any{"success": true, "user": id})
}

func (h *handlers) listSessions(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	token, _ := middleware.TokenFromContext(r.Context())

	sessions, err := h.engine.ListUserSessions(r.Context(), id.UserID, token)
	if err != nil {
		h.log.Error("list sessions failed", zap.String("user_id", id.UserID), zap.Error(err))
		httpjson.WriteFailure(w, http.StatusServiceUnavailable, "Service temporarily unavailable", "SERVICE_UNAVAILABLE")
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"success": true, "sessions": sessions})
}

// revokeOtherSessions signs the user out everywhere except this request's
// session.
func (h *handlers) revokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	keep := ""
	if res.Session != nil {
		keep = res.Session.ID
	}

	removed, err := h.engine.InvalidateUserSessions(r.Context(), res.Identity.UserID, keep)
	if err != nil {
		h.log.Warn("revoke sessions incomplete", zap.String("user_id", res.Identity.UserID), zap.Int("removed", removed), zap.Error(err))
		httpjson.WriteFailure(w, http.StatusServiceUnavailable, "Some sessions could not be revoked", "SERVICE_UNAVAILABLE")
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"success": true, "removed": removed})
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	body := map[string]any{"success": true, "authenticated": ok}
	if ok {
		body["user"] = id
	}
	httpjson.Write(w, http.StatusOK, body)
}

func (h *handlers) adminPing(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	httpjson.Write(w, http.StatusOK, map[string]any{"success": true, "admin": id.UserID})
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			httpjson.Write(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded"})
			return
		}
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"status": "ok"})
}
