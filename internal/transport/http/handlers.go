// Copyright 2026 The Elev8 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/unrolled/secure"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/elev8/access/internal/access"
	"github.com/elev8/access/internal/audit"
	"github.com/elev8/access/internal/guard"
	"github.com/elev8/access/internal/identity"
	"github.com/elev8/access/internal/observability/logger"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WatchMetrics tracks open watch streams.
type WatchMetrics interface {
	WatcherOpened(ctx context.Context)
	WatcherClosed(ctx context.Context)
}

// Dependencies are the services the handlers call.
type Dependencies struct {
	Guard     *guard.Guard
	Members   identity.MemberRepository
	Events    identity.EventSource
	Publisher identity.Publisher
	Revoker   identity.Revoker
	Audit     audit.Logger
	Metrics   WatchMetrics
	Database  Pinger
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	guard     *guard.Guard
	members   identity.MemberRepository
	events    identity.EventSource
	publisher identity.Publisher
	revoker   identity.Revoker
	audit     audit.Logger
	metrics   WatchMetrics
	database  Pinger
	validate  *validator.Validate

	cookieName string
	heartbeat  time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Dependencies, cookieName string) *Handler {
	h := &Handler{
		guard:      deps.Guard,
		members:    deps.Members,
		events:     deps.Events,
		publisher:  deps.Publisher,
		revoker:    deps.Revoker,
		audit:      deps.Audit,
		metrics:    deps.Metrics,
		database:   deps.Database,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		cookieName: cookieName,
		heartbeat:  25 * time.Second,
	}
	if h.audit == nil {
		h.audit = audit.Discard{}
	}
	return h
}

// RouterConfig holds router level settings
type RouterConfig struct {
	RequestTimeout time.Duration
	AllowedHosts   []string
	DevMode        bool
	// StaticFS holds the built front end. The app shell is not mounted
	// when it is nil.
	StaticFS fs.FS
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter, cfg RouterConfig) *chi.Mux {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	secureMiddleware := secure.New(secure.Options{
		AllowedHosts:       cfg.AllowedHosts,
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      cfg.DevMode,
	})

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(secureMiddleware.Handler)
	r.Use(TokenMiddleware(h.cookieName))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		// Streams outlive the request timeout.
		r.Get("/access/watch", h.WatchAccess)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))

			r.Post("/access/check", h.CheckAccess)
			r.Get("/access/landing", h.GetLanding)
			r.Get("/access/navigation", h.GetNavigation)
			r.Get("/access/roles/me", h.GetMyRole)

			r.Group(func(r chi.Router) {
				r.Use(RequireSession(h.guard))

				r.Post("/session/signin", h.SignIn)
				r.Post("/session/refresh", h.RefreshSession)
				r.Post("/session/signout", h.SignOut)

				r.With(RequireRole(access.RoleAdmin)).Put("/members/{memberID}/roles", h.UpdateMemberRoles)
			})
		})
	})

	r.Get("/", h.LandingRedirect)
	if cfg.StaticFS != nil {
		r.Handle("/*", SPAHandler{StaticFS: cfg.StaticFS, Protect: GuardMiddleware(h.guard)})
	}

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status":  "healthy",
		"service": "elev8-access",
	}
	if h.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.database.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "health check: database unreachable", logger.Error(err))
			status["status"] = "degraded"
			status["database"] = "unreachable"
			respondJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) publish(ctx context.Context, ev identity.Event) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "failed to publish identity event",
			logger.Event(string(ev.Type)),
			logger.UserID(ev.UserID),
			logger.Error(err),
		)
	}
}

func (h *Handler) auditEvent(r *http.Request, eventType, resource string, metadata map[string]any) {
	h.audit.Log(r.Context(), audit.Event{
		Type:      eventType,
		ActorID:   GetUserID(r.Context()),
		Resource:  resource,
		Metadata:  metadata,
		IPAddress: getClientIP(r),
		UserAgent: r.UserAgent(),
	})
}

func (h *Handler) clearTokenCookie(w http.ResponseWriter) {
	if h.cookieName == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
