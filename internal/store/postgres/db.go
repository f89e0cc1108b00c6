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

package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elev8/access/internal/config"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DB wraps the connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN renders the pgx connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d pool_min_conns=%d",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
		c.MaxOpenConns,
		c.MaxIdleConns,
	)
}

// ConfigFrom maps the application database settings.
func ConfigFrom(c config.DatabaseConfig) Config {
	return Config{
		Host:         c.Host,
		Port:         c.Port,
		User:         c.User,
		Password:     c.Password,
		Database:     c.Database,
		SSLMode:      c.SSLMode,
		MaxOpenConns: c.MaxOpenConns,
		MaxIdleConns: c.MaxIdleConns,
	}
}

// New creates a new database connection
func New(ctx context.Context, cfg Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	db.pool.Close()
}

// Ping checks the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Migrations lists the embedded up migrations in apply order.
func Migrations() ([]string, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Rollbacks lists the embedded down migrations in reverse apply order.
func Rollbacks() ([]string, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.down.sql")
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Migrate applies every embedded up migration. Migrations are written to
// be idempotent.
func (db *DB) Migrate(ctx context.Context, onApplied func(name string)) error {
	names, err := Migrations()
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	return db.execScripts(ctx, names, onApplied)
}

// Rollback applies every embedded down migration, dropping the schema.
func (db *DB) Rollback(ctx context.Context, onApplied func(name string)) error {
	names, err := Rollbacks()
	if err != nil {
		return fmt.Errorf("failed to list rollbacks: %w", err)
	}
	return db.execScripts(ctx, names, onApplied)
}

func (db *DB) execScripts(ctx context.Context, names []string, onApplied func(name string)) error {
	for _, name := range names {
		script, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := db.pool.Exec(ctx, string(script)); err != nil {
			return fmt.Errorf("failed to execute %s: %w", name, err)
		}
		if onApplied != nil {
			onApplied(strings.TrimPrefix(name, "migrations/"))
		}
	}
	return nil
}
