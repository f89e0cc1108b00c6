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

package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Database  DatabaseConfig  `envconfig:"DB"`
	Redis     RedisConfig     `envconfig:"REDIS"`
	Auth      AuthConfig      `envconfig:"AUTH"`
	Guard     GuardConfig     `envconfig:"GUARD"`
	Log       LogConfig       `envconfig:"LOG"`
	OTel      OTelConfig      `envconfig:"OTEL"`
	RateLimit RateLimitConfig `envconfig:"RATELIMIT"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `envconfig:"HOST" default:"0.0.0.0"`
	Port           string        `envconfig:"PORT" default:"8080"`
	ReadTimeout    time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" default:"0s"` // 0 keeps watch streams open
	IdleTimeout    time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	StaticDir      string        `envconfig:"STATIC_DIR"`
	AllowedHosts   []string      `envconfig:"ALLOWED_HOSTS"`
	DevMode        bool          `envconfig:"DEV_MODE" default:"false"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string `envconfig:"HOST" default:"localhost"`
	Port         string `envconfig:"PORT" default:"5432"`
	User         string `envconfig:"USER" default:"elev8"`
	Password     string `envconfig:"PASSWORD"`
	Database     string `envconfig:"NAME" default:"elev8"`
	SSLMode      string `envconfig:"SSLMODE" default:"disable"`
	MaxOpenConns int    `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns int    `envconfig:"MAX_IDLE_CONNS" default:"5"`
}

// RedisConfig holds profile cache and event bus configuration
type RedisConfig struct {
	Enabled      bool          `envconfig:"ENABLED" default:"false"`
	Addr         string        `envconfig:"ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"PASSWORD"`
	DB           int           `envconfig:"DB" default:"0"`
	ProfileTTL   time.Duration `envconfig:"PROFILE_TTL" default:"30s"`
	NegativeTTL  time.Duration `envconfig:"NEGATIVE_TTL" default:"5s"`
	EventChannel string        `envconfig:"EVENT_CHANNEL" default:"elev8:identity:events"`
}

// AuthConfig holds access token verification settings
type AuthConfig struct {
	JWTSecret  string `envconfig:"JWT_SECRET"`
	Issuer     string `envconfig:"ISSUER"`
	Audience   string `envconfig:"AUDIENCE"`
	CookieName string `envconfig:"COOKIE_NAME" default:"elev8_access_token"`
}

// GuardConfig holds route guard settings
type GuardConfig struct {
	ProfileTimeout time.Duration `envconfig:"PROFILE_TIMEOUT" default:"5s"`
	LoginPath      string        `envconfig:"LOGIN_PATH" default:"/auth/login"`
	AuditGrants    bool          `envconfig:"AUDIT_GRANTS" default:"false"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

// OTelConfig holds tracing and metrics configuration
type OTelConfig struct {
	Enabled        bool    `envconfig:"ENABLED" default:"false"`
	MetricsEnabled bool    `envconfig:"METRICS_ENABLED" default:"false"`
	ServiceName    string  `envconfig:"SERVICE_NAME" default:"elev8-access"`
	ServiceVersion string  `envconfig:"SERVICE_VERSION" default:"0.1.0"`
	Endpoint       string  `envconfig:"ENDPOINT"`
	Insecure       bool    `envconfig:"INSECURE" default:"false"`
	SamplingRate   float64 `envconfig:"SAMPLING_RATE" default:"1.0"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"RPS" default:"10"`
	Burst             int     `envconfig:"BURST" default:"20"`
}

const minSecretLength = 32

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadDatabase loads only the database settings, for tools that never
// serve traffic.
func LoadDatabase() (*DatabaseConfig, error) {
	var db DatabaseConfig
	if err := envconfig.Process("DB", &db); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if db.Password == "" {
		return nil, errors.New("DB_PASSWORD is required")
	}
	return &db, nil
}

// LoadRedis loads only the Redis settings.
func LoadRedis() (*RedisConfig, error) {
	var r RedisConfig
	if err := envconfig.Process("REDIS", &r); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &r, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Password == "" {
		errs = append(errs, errors.New("DB_PASSWORD is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	} else if len(c.Auth.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.Guard.ProfileTimeout <= 0 {
		errs = append(errs, errors.New("GUARD_PROFILE_TIMEOUT must be positive"))
	}
	// The login page has to stay reachable for anonymous visitors.
	if !strings.HasPrefix(c.Guard.LoginPath, "/auth/") {
		errs = append(errs, fmt.Errorf("GUARD_LOGIN_PATH %q must be under /auth/", c.Guard.LoginPath))
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("RATELIMIT_RPS and RATELIMIT_BURST must be positive"))
	}

	return errors.Join(errs...)
}
