package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// newBackendProxy builds the reverse proxy for /api/backend/*
func newBackendProxy(backendURL string, zlog zerolog.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(backendURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme and host are required", backendURL)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			zlog.Error().Err(err).Str("path", r.URL.Path).Msg("Backend request failed")
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"Backend unavailable"}`))
		},
	}, nil
}

// proxyBackend forwards the request to the backend API with the session's
// access token. The session cookie never leaves the gateway.
func (s *Server) proxyBackend(c *gin.Context) {
	claims, ok := GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	// ReverseProxy falls back to CloseNotifier when the context cannot be
	// cancelled, which gin's writer only supports over a real connection.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	req := c.Request.Clone(ctx)
	req.URL.Path = c.Param("path")
	req.URL.RawPath = ""
	req.Header.Del("Cookie")
	req.Header.Set("Authorization", "Bearer "+claims.AccessToken)

	s.proxy.ServeHTTP(c.Writer, req)
}
