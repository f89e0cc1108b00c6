package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("AUTH_JWT_SECRET", validSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Guard.ProfileTimeout)
	assert.Equal(t, "/auth/login", cfg.Guard.LoginPath)
	assert.Equal(t, "elev8_access_token", cfg.Auth.CookieName)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "elev8-access", cfg.OTel.ServiceName)
	assert.Equal(t, float64(10), cfg.RateLimit.RequestsPerSecond)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "elev8:identity:events", cfg.Redis.EventChannel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("AUTH_JWT_SECRET", validSecret)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("GUARD_PROFILE_TIMEOUT", "750ms")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("SERVER_ALLOWED_HOSTS", "app.elev8.fit,admin.elev8.fit")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Guard.ProfileTimeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"app.elev8.fit", "admin.elev8.fit"}, cfg.Server.AllowedHosts)
}

// TestPurpose: Validates that the service refuses to start without its secrets or with an unreachable login page.
// Scope: Unit Test
// Security: Secure defaults
// Expected: Missing or weak secrets and a login path outside /auth/ are rejected.
// Test Case ID: CFG-01
func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Database:  DatabaseConfig{Password: "pw"},
			Auth:      AuthConfig{JWTSecret: validSecret},
			Guard:     GuardConfig{ProfileTimeout: time.Second, LoginPath: "/auth/login"},
			RateLimit: RateLimitConfig{RequestsPerSecond: 1, Burst: 1},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Auth.JWTSecret = ""
	assert.ErrorContains(t, cfg.Validate(), "AUTH_JWT_SECRET is required")

	cfg = base()
	cfg.Auth.JWTSecret = "short"
	assert.ErrorContains(t, cfg.Validate(), "at least")

	cfg = base()
	cfg.Database.Password = ""
	assert.ErrorContains(t, cfg.Validate(), "DB_PASSWORD")

	cfg = base()
	cfg.Guard.LoginPath = "/login"
	assert.ErrorContains(t, cfg.Validate(), "GUARD_LOGIN_PATH")

	cfg = base()
	cfg.Guard.ProfileTimeout = 0
	assert.ErrorContains(t, cfg.Validate(), "GUARD_PROFILE_TIMEOUT")
}

func TestLoad_MissingSecrets(t *testing.T) {
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDatabase(t *testing.T) {
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("AUTH_JWT_SECRET", "")

	db, err := LoadDatabase()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", db.Host)
	assert.Equal(t, "elev8", db.Database)

	t.Setenv("DB_PASSWORD", "")
	_, err = LoadDatabase()
	assert.ErrorContains(t, err, "DB_PASSWORD")
}

func TestLoadRedis(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "cache.internal:6379")

	r, err := LoadRedis()
	require.NoError(t, err)
	assert.True(t, r.Enabled)
	assert.Equal(t, "cache.internal:6379", r.Addr)
	assert.Equal(t, "elev8:identity:events", r.EventChannel)
	assert.Equal(t, 30*time.Second, r.ProfileTTL)
}
