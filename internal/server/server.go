// Package server is the customer and admin web gateway. Every request
// passes the route gate before it reaches a page or API handler.
package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/carrent-dev/carrent/internal/auth"
	"github.com/carrent-dev/carrent/internal/config"
	"github.com/carrent-dev/carrent/internal/gate"
	"github.com/carrent-dev/carrent/internal/verifier"
)

// Server represents the HTTP gateway
type Server struct {
	router  *gin.Engine
	config  *config.Config
	logger  zerolog.Logger
	gate    *gate.Gate
	issuer  *auth.Issuer
	codec   *auth.TokenCodec
	backend *verifier.Client
	proxy   *httputil.ReverseProxy
	now     func() time.Time
	version string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	routes := gate.DefaultConfig()
	if cfg.Routes.File != "" {
		loaded, err := gate.LoadConfig(cfg.Routes.File)
		if err != nil {
			return nil, err
		}
		routes = loaded
		zlog.Info().Str("file", cfg.Routes.File).Int("rules", len(routes.Rules)).Msg("Loaded route table")
	}

	g, err := gate.New(routes)
	if err != nil {
		return nil, fmt.Errorf("invalid route table: %w", err)
	}

	codec, err := auth.NewTokenCodec(cfg.Session.Secret)
	if err != nil {
		return nil, err
	}

	backend := verifier.New(cfg.Backend.URL, cfg.Backend.Timeout)
	issuer := auth.NewIssuer(backend, auth.IssuerConfig{
		TTL:     cfg.Session.TTL,
		MaxAge:  cfg.Session.MaxAge,
		Timeout: cfg.Backend.Timeout,
	}, zlog)

	proxy, err := newBackendProxy(cfg.Backend.URL, zlog)
	if err != nil {
		return nil, err
	}

	server := &Server{
		config:  cfg,
		logger:  zlog,
		gate:    g,
		issuer:  issuer,
		codec:   codec,
		backend: backend,
		proxy:   proxy,
		now:     time.Now,
		version: version,
	}

	server.setupRouter()

	return server, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	if len(s.config.Server.CORSOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.Server.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Every route, including unmatched ones, passes the gate first
	s.router.Use(s.gateMiddleware())

	s.router.GET("/health", s.healthCheck)

	// Marketing and auth pages
	s.router.GET("/", s.homePage)
	s.router.GET("/unauthorized", s.unauthorizedPage)
	s.router.GET("/auth/login", s.loginPage)
	s.router.POST("/auth/login", s.loginSubmit)
	s.router.GET("/auth/register", s.registerPage)
	s.router.POST("/auth/register", s.registerSubmit)

	// Customer dashboard
	s.router.GET("/dashboard", s.dashboardPage)
	s.router.GET("/dashboard/:section", s.dashboardPage)

	// Admin panel
	s.router.GET("/admin", s.adminPage)
	s.router.GET("/admin/:section", s.adminPage)

	api := s.router.Group("/api")
	{
		api.POST("/auth/login", s.apiLogin)
		api.POST("/auth/logout", s.apiLogout)
		api.GET("/session", s.sessionInfo)
		api.GET("/session/authorize", s.authorizeProbe)

		// Backend API, called with the session's bearer token
		api.Any("/backend/*path", s.proxyBackend)
	}

	s.router.NoRoute(s.notFound)
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP())
		if claims, ok := GetClaims(c); ok {
			event = event.Str("user_id", claims.Subject)
		}
		event.Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "carrent-gateway",
		"version":   s.version,
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM
func (s *Server) Start() error {
	addr := s.config.Server.Address

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
