package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Gateway HTTP server
	Server ServerConfig

	// Backend credential service the gateway talks to
	Backend BackendConfig

	// Session cookie and lifetimes
	Session SessionConfig

	// Route table overrides
	Routes RoutesConfig

	// Credential service (cmd/authapi)
	AuthAPI AuthAPIConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds gateway listener configuration
type ServerConfig struct {
	Address     string
	CORSOrigins []string
}

// BackendConfig holds the backend API location
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// SessionConfig holds session settings
type SessionConfig struct {
	Secret       string
	SecretIsTemp bool // generated at startup because SESSION_SECRET was unset
	TTL          time.Duration
	MaxAge       time.Duration
	CookieName   string
	CookieSecure bool
}

// RoutesConfig points at an optional YAML route table
type RoutesConfig struct {
	File string
}

// AuthAPIConfig holds the credential service configuration
type AuthAPIConfig struct {
	Address     string
	DatabaseURL string
	TokenTTL    time.Duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	backendTimeout, err := durationEnv("BACKEND_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := durationEnv("SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	sessionMaxAge, err := durationEnv("SESSION_MAX_AGE", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	tokenTTL, err := durationEnv("AUTHAPI_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	cookieSecure, err := boolEnv("COOKIE_SECURE", false)
	if err != nil {
		return nil, err
	}

	if sessionMaxAge < sessionTTL {
		return nil, fmt.Errorf("SESSION_MAX_AGE (%s) must not be shorter than SESSION_TTL (%s)", sessionMaxAge, sessionTTL)
	}

	// Without a configured secret, sessions only survive until restart
	secret := os.Getenv("SESSION_SECRET")
	secretIsTemp := false
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return nil, err
		}
		secretIsTemp = true
	}

	return &Config{
		Server: ServerConfig{
			Address:     stringEnv("LISTEN_ADDR", ":8080"),
			CORSOrigins: listEnv("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Backend: BackendConfig{
			URL:     stringEnv("BACKEND_URL", "http://localhost:8081"),
			Timeout: backendTimeout,
		},
		Session: SessionConfig{
			Secret:       secret,
			SecretIsTemp: secretIsTemp,
			TTL:          sessionTTL,
			MaxAge:       sessionMaxAge,
			CookieName:   stringEnv("SESSION_COOKIE", "carrent_session"),
			CookieSecure: cookieSecure,
		},
		Routes: RoutesConfig{
			File: os.Getenv("ROUTES_FILE"),
		},
		AuthAPI: AuthAPIConfig{
			Address:     stringEnv("AUTHAPI_LISTEN_ADDR", ":8081"),
			DatabaseURL: stringEnv("DATABASE_URL", "carrent.sqlite"),
			TokenTTL:    tokenTTL,
		},
		Logging: LoggingConfig{
			Level:  stringEnv("LOG_LEVEL", "info"),
			Format: stringEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// randomSecret returns 64 hex characters (32 bytes of randomness)
func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
