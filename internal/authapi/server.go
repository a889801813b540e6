// Package authapi is the backend credential service: it stores accounts
// and answers POST /auth/login with a user record and a bearer token.
package authapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/carrent-dev/carrent/internal/auth"
	"github.com/carrent-dev/carrent/internal/config"
	"github.com/carrent-dev/carrent/internal/models"
)

// Server represents the credential service HTTP server
type Server struct {
	router  *gin.Engine
	db      *gorm.DB
	logger  zerolog.Logger
	tokens  *tokenSigner
	address string
}

// New opens the database and creates a server instance
func New(cfg *config.Config, zlog zerolog.Logger) (*Server, error) {
	db, err := OpenDatabase(cfg.AuthAPI.DatabaseURL, zlog)
	if err != nil {
		return nil, err
	}

	s, err := NewWithDB(db, cfg.AuthAPI.TokenTTL, zlog)
	if err != nil {
		return nil, err
	}
	s.address = cfg.AuthAPI.Address
	return s, nil
}

// NewWithDB creates a server on an already opened database
func NewWithDB(db *gorm.DB, tokenTTL time.Duration, zlog zerolog.Logger) (*Server, error) {
	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	secret, err := loadSigningKey(db, zlog)
	if err != nil {
		return nil, err
	}

	if err := registerValidators(); err != nil {
		return nil, err
	}

	s := &Server{
		db:      db,
		logger:  zlog,
		tokens:  newTokenSigner(secret, tokenTTL),
		address: ":8081",
	}
	s.setupRouter()
	return s, nil
}

// registerValidators adds custom binding rules to gin's validator
func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unsupported binding validator %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("carrole", func(fl validator.FieldLevel) bool {
		return auth.Role(fl.Field().String()).Valid()
	}); err != nil {
		return fmt.Errorf("failed to register carrole validator: %w", err)
	}
	return nil
}

// loadSigningKey reads the token secret, generating it on first start
func loadSigningKey(db *gorm.DB, zlog zerolog.Logger) (string, error) {
	var cfg models.Config
	err := db.First(&cfg).Error
	if err == nil {
		zlog.Debug().Msg("Loaded JWT secret from database")
		return cfg.JWTSecret, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	// Generate JWT secret (64 hex characters = 32 bytes of randomness)
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	cfg = models.Config{JWTSecret: hex.EncodeToString(secretBytes)}
	if err := db.Create(&cfg).Error; err != nil {
		return "", fmt.Errorf("failed to create config: %w", err)
	}

	zlog.Info().Msg("Generated new JWT secret")
	return cfg.JWTSecret, nil
}

// OpenDatabase opens the SQLite database with production settings
func OpenDatabase(url string, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8
		maxIdleConns    = 4
		connMaxLifetime = 5 * time.Minute
		busyTimeout     = 5000 // milliseconds
	)

	db, err := gorm.Open(sqlite.Open(url), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode must be set first
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.GET("/health", s.healthCheck)

	// Public auth endpoints
	s.router.POST("/api/setup", s.setupFirstAdmin)
	s.router.POST("/auth/register", s.register)
	s.router.POST("/auth/login", s.login)

	authed := s.router.Group("")
	authed.Use(s.bearerAuthMiddleware())
	{
		authed.GET("/auth/me", s.getCurrentUser)

		// User management (admin only)
		users := authed.Group("/api/users")
		users.Use(adminOnlyMiddleware(s.logger))
		{
			users.GET("", s.listUsers)
			users.POST("", s.createUser)
		}
	}
}

// loggingMiddleware logs each request with zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "carrent-authapi",
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM
func (s *Server) Start() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", s.address).Msg("Starting credential service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("credential service failed: %w", err)
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Credential service shutdown complete")
	return nil
}
