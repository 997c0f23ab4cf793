package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, SheetsGoogle, cfg.Sheets.Backend)
	assert.Equal(t, 16*time.Hour, cfg.Requests.Cooldown)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "", cfg.Redis.Address)
	assert.False(t, cfg.UseMemoryStore())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_DSN", "memory")
	t.Setenv("SHEETS_BACKEND", "Memory")
	t.Setenv("REQUEST_COOLDOWN", "1h")
	t.Setenv("REBUILD_INTERVAL", "0s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ADMIN_EMAIL", "admin@example.com")
	t.Setenv("ADMIN_PASSWORD", "adminpass")
	t.Setenv("SERVER_HOST", "127.0.0.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.UseMemoryStore())
	assert.Equal(t, SheetsMemory, cfg.Sheets.Backend)
	assert.Equal(t, time.Hour, cfg.Requests.Cooldown)
	assert.Equal(t, time.Duration(0), cfg.Resync.Interval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "admin@example.com", cfg.Auth.AdminEmail)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"bad port", map[string]string{"SERVER_PORT": "70000"}},
		{"bad backend", map[string]string{"SHEETS_BACKEND": "excel"}},
		{"admin without password", map[string]string{"ADMIN_EMAIL": "a@b.c"}},
		{"negative cooldown", map[string]string{"REQUEST_COOLDOWN": "-1h"}},
		{"empty dsn", map[string]string{"DATABASE_DSN": ""}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
		})
	}
}
