package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"SESSION_SECRET", "SESSION_TTL", "SESSION_MAX_AGE", "BACKEND_URL", "BACKEND_TIMEOUT", "CORS_ORIGINS", "COOKIE_SECURE", "ROUTES_FILE", "LISTEN_ADDR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "http://localhost:8081", cfg.Backend.URL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "carrent_session", cfg.Session.CookieName)
	assert.False(t, cfg.Session.CookieSecure)
	assert.True(t, cfg.Session.SecretIsTemp)
	assert.Len(t, cfg.Session.Secret, 64)
	assert.Empty(t, cfg.Routes.File)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SESSION_SECRET", "a-very-long-session-secret-for-tests!")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("SESSION_MAX_AGE", "12h")
	t.Setenv("BACKEND_URL", "https://api.carrent.test")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://carrent.test, https://admin.carrent.test")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("ROUTES_FILE", "routes.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Session.SecretIsTemp)
	assert.Equal(t, "a-very-long-session-secret-for-tests!", cfg.Session.Secret)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 12*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, "https://api.carrent.test", cfg.Backend.URL)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, []string{"https://carrent.test", "https://admin.carrent.test"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, "routes.yaml", cfg.Routes.File)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad ttl", "SESSION_TTL", "soon"},
		{"negative timeout", "BACKEND_TIMEOUT", "-1s"},
		{"bad bool", "COOKIE_SECURE", "maybe"},
		{"max age below ttl", "SESSION_MAX_AGE", "1m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}
