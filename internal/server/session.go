package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carrent-dev/carrent/internal/auth"
)

// writeSession signs claims into the session cookie. The cookie lives
// exactly as long as the claims.
func (s *Server) writeSession(c *gin.Context, claims *auth.Claims) error {
	token, err := s.codec.Encode(claims)
	if err != nil {
		return err
	}

	maxAge := int(claims.ExpiresAt.Sub(s.now()) / time.Second)
	if maxAge < 1 {
		maxAge = 1
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.config.Session.CookieName, token, maxAge, "/", "", s.config.Session.CookieSecure, true)
	return nil
}

func (s *Server) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.config.Session.CookieName, "", -1, "/", "", s.config.Session.CookieSecure, true)
}
