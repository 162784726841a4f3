package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("EXPORT_POLL_TIMEOUT_SEC", "2")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Exports.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Exports.PollTimeout)
	assert.Equal(t, 0, cfg.Database.MaxConns)
	assert.Equal(t, ":9091", cfg.Metrics.WorkerAddr)
}

func TestValidateRequiresSecret(t *testing.T) {
	cfg := &Config{Exports: ExportsConfig{MaxAttempts: 1}}
	assert.Error(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "1", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:1/d?sslmode=disable", c.DSN())
	c.URL = "postgres://x"
	assert.Equal(t, "postgres://x", c.DSN())
}

func TestAllowedOrigins(t *testing.T) {
	s := ServerConfig{CORSAllowedOrigins: " http://a , ,http://b"}
	assert.Equal(t, []string{"http://a", "http://b"}, s.AllowedOrigins())
}
