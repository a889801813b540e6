package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carrent-dev/carrent/internal/auth"
	"github.com/carrent-dev/carrent/internal/gate"
)

const (
	claimsKey   = "session"
	callbackKey = "callbackUrl"
	apiPrefix   = "/api/"
	logoutRoute = "/api/auth/logout"
)

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(claimsKey, claims)
}

// GetClaims returns the session claims the gate attached to the request
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}

	claims, ok := value.(*auth.Claims)
	return claims, ok && claims != nil
}

// gateMiddleware decodes the session cookie, asks the gate for a decision
// and enforces it. Allowed requests with a session get a refreshed cookie,
// except logout which only ever clears it.
func (s *Server) gateMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := s.readSession(c)
		now := s.now()

		decision := s.gate.Authorize(c.Request.URL.Path, claims, now)

		switch decision.Kind {
		case gate.Allow:
			if claims != nil {
				if c.FullPath() == logoutRoute {
					setClaims(c, claims)
					c.Next()
					return
				}
				if refreshed, err := s.issuer.Refresh(claims); err == nil {
					if err := s.writeSession(c, refreshed); err != nil {
						s.logger.Error().Err(err).Str("user_id", claims.Subject).Msg("Failed to refresh session")
					} else {
						claims = refreshed
					}
				}
				setClaims(c, claims)
			}
			c.Next()

		case gate.Redirect:
			s.enforceRedirect(c, decision)

		default:
			s.logger.Warn().
				Str("path", c.Request.URL.Path).
				Str("reason", string(decision.Reason)).
				Msg("Request denied")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request path"})
		}
	}
}

// readSession returns the claims carried by the session cookie, or nil for
// anonymous callers. Unreadable cookies are cleared.
func (s *Server) readSession(c *gin.Context) *auth.Claims {
	token, err := c.Cookie(s.config.Session.CookieName)
	if err != nil || token == "" {
		return nil
	}

	claims, err := s.codec.Decode(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpired) {
			s.logger.Debug().Msg("Session expired")
		} else {
			s.logger.Warn().Err(err).Str("client_ip", c.ClientIP()).Msg("Rejected session cookie")
		}
		s.clearSession(c)
		return nil
	}
	return claims
}

// enforceRedirect turns a redirect decision into an HTTP answer. API
// callers get a status code they can act on instead of a Location.
func (s *Server) enforceRedirect(c *gin.Context, decision gate.Decision) {
	if strings.HasPrefix(c.Request.URL.Path, apiPrefix) {
		status := http.StatusUnauthorized
		message := "Authentication required"
		switch decision.Reason {
		case gate.ReasonForbidden:
			status = http.StatusForbidden
			message = "Insufficient permissions"
		case gate.ReasonSignedIn:
			status = http.StatusConflict
			message = "Already signed in"
		}
		c.AbortWithStatusJSON(status, gin.H{
			"error":    message,
			"reason":   decision.Reason,
			"redirect": decision.Location,
		})
		return
	}

	location := decision.Location
	if decision.Reason == gate.ReasonUnauthenticated && c.Request.Method == http.MethodGet {
		location += "?" + callbackKey + "=" + url.QueryEscape(c.Request.URL.RequestURI())
	}

	status := http.StatusSeeOther
	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
		status = http.StatusFound
	}

	s.logger.Debug().
		Str("path", c.Request.URL.Path).
		Str("reason", string(decision.Reason)).
		Str("location", decision.Location).
		Msg("Redirecting request")

	c.Redirect(status, location)
	c.Abort()
}
