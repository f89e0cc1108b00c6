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
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/elev8/access/internal/access"
	"github.com/elev8/access/internal/guard"
	"github.com/elev8/access/internal/identity"
	"github.com/elev8/access/internal/observability/logger"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.DebugContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start)),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// TokenMiddleware moves the caller's access token into the request context,
// where the token session provider reads it. The Authorization header wins
// over the cookie. Verification happens later, on demand.
func TokenMiddleware(cookieName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" && cookieName != "" {
				if c, err := r.Cookie(cookieName); err == nil {
					raw = c.Value
				}
			}
			if raw != "" {
				r = r.WithContext(identity.ContextWithToken(r.Context(), raw))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GuardMiddleware protects app shell pages. Signed out visitors are sent to
// the login page with a return_to parameter, denied users to their landing
// page. Access failures never render an error page.
func GuardMiddleware(g *guard.Guard) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Evaluate(r.Context(), r.URL.Path)
			if d.Allowed() {
				next.ServeHTTP(w, r)
				return
			}

			target := d.RedirectTo
			if d.State == guard.StateUnauthenticated {
				target = loginURL(d)
			}
			slog.DebugContext(r.Context(), "app shell redirect",
				logger.Path(r.URL.Path),
				logger.State(d.State.String()),
				logger.RedirectTo(target),
			)
			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}

func loginURL(d guard.Decision) string {
	if d.ReturnTo == "" {
		return d.RedirectTo
	}
	return d.RedirectTo + "?" + url.Values{"return_to": {d.ReturnTo}}.Encode()
}

// RequireSession rejects requests without a valid session and stores the
// session and resolved role in the context.
func RequireSession(g *guard.Guard) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, role := g.Identify(r.Context())
			if sess == nil {
				respondError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), sess, role)))
		})
	}
}

// RequireRole allows the request when the role resolved by RequireSession
// is one of roles. Admin passes every check.
func RequireRole(roles ...access.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetRole(r.Context())
			if role != access.RoleAdmin && !slices.Contains(roles, role) {
				slog.WarnContext(r.Context(), "role check failed",
					logger.UserID(GetUserID(r.Context())),
					logger.Role(role.String()),
					logger.Path(r.URL.Path),
				)
				respondError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
