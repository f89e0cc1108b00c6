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

package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/elev8/access/internal/access"
	"github.com/elev8/access/internal/identity"
	"github.com/elev8/access/internal/observability/logger"
)

const (
	// DefaultProfileTimeout bounds the profile lookup before falling back
	// to the member role.
	DefaultProfileTimeout = 5 * time.Second

	// DefaultLoginPath is where unauthenticated visitors are sent.
	DefaultLoginPath = "/auth/login"
)

// ErrProfileTimeout is reported to the recorder when a lookup overruns.
var ErrProfileTimeout = errors.New("profile lookup timed out")

// Config holds guard configuration
type Config struct {
	ProfileTimeout time.Duration
	LoginPath      string
	// OnTransition, when set, observes every state of every run, loading
	// states included. It runs on the evaluating goroutine.
	OnTransition func(Decision)
}

// Guard decides whether the current identity may view a path.
type Guard struct {
	table    *access.Table
	routes   *access.RouteTable
	sessions identity.SessionProvider
	profiles identity.ProfileStore
	cfg      Config
	recorder Recorder
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures a Guard.
type Option func(*Guard)

// WithRecorder sets the recorder notified of every terminal decision.
func WithRecorder(r Recorder) Option {
	return func(g *Guard) { g.recorder = r }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// New creates a guard composing the permission table and route metadata.
// A nil routes table imposes no route constraints.
func New(table *access.Table, routes *access.RouteTable, sessions identity.SessionProvider, profiles identity.ProfileStore, cfg Config, opts ...Option) *Guard {
	if cfg.ProfileTimeout <= 0 {
		cfg.ProfileTimeout = DefaultProfileTimeout
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}

	g := &Guard{
		table:    table,
		routes:   routes,
		sessions: sessions,
		profiles: profiles,
		cfg:      cfg,
		recorder: nopRecorder{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("github.com/elev8/access/internal/guard"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(logger.Component("guard"))
	return g
}

// Table returns the permission table the guard consults.
func (g *Guard) Table() *access.Table {
	return g.table
}

// Evaluate runs the pipeline once for path. Extra constraints are merged
// with the route metadata for path.
func (g *Guard) Evaluate(ctx context.Context, path string, extra ...access.Constraint) Decision {
	ctx, span := g.tracer.Start(ctx, "guard.Evaluate", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	d := g.evaluate(ctx, path, extra)

	span.SetAttributes(
		attribute.String("guard.state", d.State.String()),
		attribute.String("guard.role", d.Role.String()),
	)
	if d.Reason != "" {
		span.SetAttributes(attribute.String("guard.reason", d.Reason))
	}
	// A cancelled run resolved against a missing profile; nobody acts on it.
	if ctx.Err() == nil {
		g.recorder.RecordDecision(ctx, d)
	}
	return d
}

func (g *Guard) evaluate(ctx context.Context, path string, extra []access.Constraint) Decision {
	d := Decision{Path: path}
	g.transition(&d, StateLoadingAuth)

	sess, reason := g.session(ctx)
	if sess == nil {
		if strings.HasPrefix(path, access.AuthPrefix) {
			g.transition(&d, StateAccessGranted)
			return d
		}
		d.RedirectTo = g.cfg.LoginPath
		d.ReturnTo = path
		d.Reason = reason
		g.transition(&d, StateUnauthenticated)
		return d
	}

	d.Authenticated = true
	d.UserID = sess.UserID
	d.SessionID = sess.ID
	g.transition(&d, StateLoadingProfile)

	d.Role = access.ResolveRole(g.profile(ctx, sess.UserID))

	if !g.table.IsPathAccessible(path, d.Role) {
		return g.deny(d, ReasonNotPermitted)
	}

	constraint := g.routes.Lookup(path)
	for _, c := range extra {
		constraint = constraint.Merge(c)
	}
	if !constraint.Permits(d.Role) {
		return g.deny(d, ReasonRouteConstraint)
	}

	g.transition(&d, StateAccessGranted)
	return d
}

func (g *Guard) deny(d Decision, reason string) Decision {
	landing, err := g.table.RedirectPath(d.Role)
	if err != nil {
		// ResolveRole only yields table roles; a miss is a broken table.
		panic(fmt.Errorf("guard: %w", err))
	}
	d.RedirectTo = landing
	d.Reason = reason
	g.transition(&d, StateAccessDenied)
	return d
}

func (g *Guard) transition(d *Decision, s State) {
	d.State = s
	if g.cfg.OnTransition != nil {
		g.cfg.OnTransition(*d)
	}
}

// session treats any provider failure as signed out.
func (g *Guard) session(ctx context.Context) (*identity.Session, string) {
	sess, err := g.sessions.CurrentSession(ctx)
	if err != nil {
		g.logger.DebugContext(ctx, "session lookup failed, treating as signed out", logger.Error(err))
		return nil, ReasonSessionError
	}
	if sess == nil || sess.IsExpired() {
		return nil, ReasonNoSession
	}
	return sess, ""
}

type profileResult struct {
	profile *identity.Profile
	err     error
}

// profile loads the member profile within the configured timeout. Any
// failure yields nil, which resolves to the member role.
func (g *Guard) profile(ctx context.Context, userID string) *identity.Profile {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.ProfileTimeout)
	defer cancel()

	start := time.Now()
	ch := make(chan profileResult, 1)
	go func() {
		p, err := g.profiles.GetProfileByID(ctx, userID)
		ch <- profileResult{profile: p, err: err}
	}()

	var res profileResult
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	if errors.Is(res.err, context.DeadlineExceeded) {
		res.err = ErrProfileTimeout
	}
	if !errors.Is(res.err, context.Canceled) {
		g.recorder.RecordProfileLookup(ctx, time.Since(start), res.err)
	}

	if res.err != nil {
		g.logger.WarnContext(ctx, "profile lookup failed, falling back to member role",
			logger.UserID(userID),
			logger.Error(res.err),
		)
		return nil
	}
	if res.profile == nil {
		g.logger.DebugContext(ctx, "no member profile, resolving as member", logger.UserID(userID))
	}
	return res.profile
}

// Identify resolves the current user and role without checking a path.
// Anonymous visitors resolve to the member role with Authenticated false.
func (g *Guard) Identify(ctx context.Context) (*identity.Session, access.Role) {
	sess, _ := g.session(ctx)
	if sess == nil {
		return nil, access.RoleMember
	}
	return sess, access.ResolveRole(g.profile(ctx, sess.UserID))
}

// Landing resolves the role and returns its landing page. Anonymous
// visitors are sent to the member landing, where the guard in turn sends
// them to sign in.
func (g *Guard) Landing(ctx context.Context) Landing {
	ctx, span := g.tracer.Start(ctx, "guard.Landing")
	defer span.End()

	sess, role := g.Identify(ctx)
	redirect, err := g.table.RedirectPath(role)
	if err != nil {
		panic(fmt.Errorf("guard: %w", err))
	}

	l := Landing{Role: role, RedirectTo: redirect}
	if sess != nil {
		l.Authenticated = true
		l.UserID = sess.UserID
	}
	span.SetAttributes(attribute.String("guard.role", role.String()))
	return l
}
