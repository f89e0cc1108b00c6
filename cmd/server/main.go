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

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elev8/access/internal/access"
	"github.com/elev8/access/internal/audit"
	"github.com/elev8/access/internal/config"
	"github.com/elev8/access/internal/guard"
	"github.com/elev8/access/internal/identity"
	"github.com/elev8/access/internal/observability/logger"
	"github.com/elev8/access/internal/observability/metrics"
	"github.com/elev8/access/internal/observability/tracing"
	"github.com/elev8/access/internal/store/cache"
	"github.com/elev8/access/internal/store/postgres"
	transportHTTP "github.com/elev8/access/internal/transport/http"
)

type revocationList interface {
	identity.Revoker
	identity.RevocationChecker
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: cfg.OTel.ServiceName,
	})
	slog.Info("starting elev8 access service")

	if err := run(cfg); err != nil {
		slog.Error("server failed", logger.Error(err))
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A broken table must stop the rollout, not lock users out.
	table := access.DefaultTable()
	if err := table.Validate(); err != nil {
		return fmt.Errorf("invalid permission table: %w", err)
	}

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.OTel.ServiceVersion,
		SamplingRate:   cfg.OTel.SamplingRate,
		Endpoint:       cfg.OTel.Endpoint,
		Insecure:       cfg.OTel.Insecure,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tracer.Shutdown(shutdownCtx)
		}()
	}

	accessMetrics, err := metrics.NewAccessMetrics(metrics.New(metrics.Config{Enabled: cfg.OTel.MetricsEnabled}, cfg.OTel.ServiceName))
	if err != nil {
		return err
	}

	db, err := postgres.New(ctx, postgres.ConfigFrom(cfg.Database))
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("connected to database")

	members := postgres.NewMemberRepository(db)
	auditLogger := audit.NewSlogLogger(nil)

	group, gctx := errgroup.WithContext(ctx)

	var (
		profiles    identity.ProfileStore     = members
		memberRepo  identity.MemberRepository = members
		events      identity.EventSource
		publisher   identity.Publisher
		revocations revocationList
	)
	if cfg.Redis.Enabled {
		client, err := cache.New(ctx, cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer client.Close()

		bus := cache.NewEventBus(client, cfg.Redis.EventChannel)
		profileCache := cache.NewProfileCache(client, members, cfg.Redis.ProfileTTL, cfg.Redis.NegativeTTL)
		// Writes from other instances and tools arrive only as events.
		defer profileCache.InvalidateOn(bus)()
		cachedMembers := cache.NewMembers(members, profileCache)

		profiles, memberRepo, events, publisher = cachedMembers, cachedMembers, bus, bus
		revocations = cache.NewSessionRevocations(client)
		group.Go(func() error { return bus.Run(gctx) })
		slog.Info("connected to redis", slog.String("addr", cfg.Redis.Addr))
	} else {
		bus := identity.NewMemoryBus()
		events, publisher = bus, bus
		revocations = identity.NewMemoryRevocations()
		slog.Warn("redis disabled, identity events and sign-outs stay local to this instance")
	}

	verifierOpts := []identity.VerifierOption{identity.WithRevocations(revocations)}
	if cfg.Auth.Issuer != "" {
		verifierOpts = append(verifierOpts, identity.WithIssuer(cfg.Auth.Issuer))
	}
	if cfg.Auth.Audience != "" {
		verifierOpts = append(verifierOpts, identity.WithAudience(cfg.Auth.Audience))
	}
	verifier := identity.NewTokenVerifier(cfg.Auth.JWTSecret, verifierOpts...)

	g := guard.New(table, access.Routes(), identity.NewTokenSessionProvider(verifier), profiles,
		guard.Config{
			ProfileTimeout: cfg.Guard.ProfileTimeout,
			LoginPath:      cfg.Guard.LoginPath,
		},
		guard.WithRecorder(guard.MultiRecorder{
			accessMetrics,
			guard.AuditRecorder{Logger: auditLogger, GrantsToo: cfg.Guard.AuditGrants},
		}),
	)

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	defer rateLimiter.Stop()

	handler := transportHTTP.NewHandler(transportHTTP.Dependencies{
		Guard:     g,
		Members:   memberRepo,
		Events:    events,
		Publisher: publisher,
		Revoker:   revocations,
		Audit:     auditLogger,
		Metrics:   accessMetrics,
		Database:  db,
	}, cfg.Auth.CookieName)

	var static fs.FS
	if cfg.Server.StaticDir != "" {
		static = os.DirFS(cfg.Server.StaticDir)
	}
	router := transportHTTP.NewRouter(handler, rateLimiter, transportHTTP.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedHosts:   cfg.Server.AllowedHosts,
		DevMode:        cfg.Server.DevMode,
		StaticFS:       static,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		// Watch streams end when the process shuts down.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	group.Go(func() error {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"), slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return group.Wait()
}
