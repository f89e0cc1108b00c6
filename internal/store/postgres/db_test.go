package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elev8/access/internal/config"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{
		Host:         "db",
		Port:         "5432",
		User:         "elev8",
		Password:     "pw",
		Database:     "elev8",
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}
	assert.Equal(t,
		"host=db port=5432 user=elev8 password=pw dbname=elev8 sslmode=disable pool_max_conns=10 pool_min_conns=2",
		cfg.DSN(),
	)
}

func TestMigrations_Embedded(t *testing.T) {
	names, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "migrations/001_members.up.sql", names[0])

	down, err := Rollbacks()
	require.NoError(t, err)
	require.Len(t, down, len(names))
	assert.Equal(t, "migrations/001_members.down.sql", down[len(down)-1])
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.DatabaseConfig{Host: "db", Port: "5433", User: "u", Password: "p", Database: "gym", SSLMode: "require", MaxOpenConns: 4, MaxIdleConns: 1})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=gym sslmode=require pool_max_conns=4 pool_min_conns=1", cfg.DSN())
}
