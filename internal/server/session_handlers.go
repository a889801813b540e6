package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carrent-dev/carrent/internal/auth"
	"github.com/carrent-dev/carrent/internal/gate"
	"github.com/carrent-dev/carrent/internal/verifier"
)

// LoginForm is a sign-in submission, as a form post or JSON
type LoginForm struct {
	Email       string `form:"email" json:"email" binding:"required,email"`
	Password    string `form:"password" json:"password" binding:"required"`
	CallbackURL string `form:"callbackUrl" json:"callbackUrl"`
}

// RegisterForm is a customer sign-up submission
type RegisterForm struct {
	Email     string `form:"email" json:"email" binding:"required,email"`
	Password  string `form:"password" json:"password" binding:"required,min=8"`
	FirstName string `form:"firstName" json:"firstName" binding:"required"`
	LastName  string `form:"lastName" json:"lastName"`
}

// SessionUser is the public view of a session
type SessionUser struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

// SessionResponse answers login and session lookups
type SessionResponse struct {
	User      *SessionUser `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Redirect  string       `json:"redirect,omitempty"`
}

// AuthorizeResponse reports what the gate would do with a path
type AuthorizeResponse struct {
	Path     string      `json:"path"`
	Decision string      `json:"decision"`
	Class    gate.Class  `json:"class"`
	Location string      `json:"location,omitempty"`
	Reason   gate.Reason `json:"reason,omitempty"`
}

func sessionUser(claims *auth.Claims) *SessionUser {
	return &SessionUser{
		ID:    claims.Subject,
		Name:  claims.DisplayName,
		Email: claims.Email,
		Role:  claims.Role,
	}
}

// signIn authenticates and sets the session cookie. On failure it returns
// the status and message to show the caller.
func (s *Server) signIn(c *gin.Context, email, password string) (*auth.Claims, int, string) {
	claims, err := s.issuer.Authenticate(c.Request.Context(), auth.Credentials{Email: email, Password: password})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, http.StatusUnauthorized, "Invalid email or password"
		}
		return nil, http.StatusServiceUnavailable, "Sign-in is temporarily unavailable, please try again"
	}

	if err := s.writeSession(c, claims); err != nil {
		s.logger.Error().Err(err).Str("user_id", claims.Subject).Msg("Failed to write session cookie")
		return nil, http.StatusInternalServerError, "Failed to create session"
	}
	return claims, http.StatusOK, ""
}

// landingFor picks where a freshly signed-in user goes. A callback is only
// honoured when it is a local path the gate allows for these claims.
func (s *Server) landingFor(claims *auth.Claims, callback string) string {
	fallback := s.gate.DefaultRoute(claims.Role)
	if callback == "" || !strings.HasPrefix(callback, "/") || strings.HasPrefix(callback, "//") || strings.Contains(callback, "\\") {
		return fallback
	}

	target, err := url.Parse(callback)
	if err != nil || target.Scheme != "" || target.Host != "" {
		return fallback
	}

	if s.gate.Authorize(target.Path, claims, s.now()).Kind != gate.Allow {
		return fallback
	}
	return target.RequestURI()
}

// loginSubmit handles the sign-in form
func (s *Server) loginSubmit(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderPage(c, http.StatusBadRequest, s.loginDescriptor(c, form.CallbackURL, "Email and password are required"))
		return
	}

	claims, status, message := s.signIn(c, form.Email, form.Password)
	if claims == nil {
		s.renderPage(c, status, s.loginDescriptor(c, form.CallbackURL, message))
		return
	}

	c.Redirect(http.StatusSeeOther, s.landingFor(claims, form.CallbackURL))
}

// registerSubmit creates a customer account and signs it in
func (s *Server) registerSubmit(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderPage(c, http.StatusBadRequest, s.registerDescriptor(err.Error()))
		return
	}

	err := s.backend.Register(c.Request.Context(), verifier.RegisterRequest{
		Email:     form.Email,
		Password:  form.Password,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, verifier.ErrEmailTaken):
			s.renderPage(c, http.StatusConflict, s.registerDescriptor("An account with this email already exists"))
		case errors.Is(err, verifier.ErrInvalidRegistration):
			s.renderPage(c, http.StatusBadRequest, s.registerDescriptor(err.Error()))
		default:
			s.logger.Warn().Err(err).Msg("Registration failed")
			s.renderPage(c, http.StatusServiceUnavailable, s.registerDescriptor("Registration is temporarily unavailable, please try again"))
		}
		return
	}

	claims, status, message := s.signIn(c, form.Email, form.Password)
	if claims == nil {
		// The account exists; the user can still sign in later
		s.renderPage(c, status, s.loginDescriptor(c, "", message))
		return
	}

	s.logger.Info().Str("user_id", claims.Subject).Msg("Customer registered")
	c.Redirect(http.StatusSeeOther, s.gate.DefaultRoute(claims.Role))
}

// apiLogin is the JSON sign-in endpoint
func (s *Server) apiLogin(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, status, message := s.signIn(c, form.Email, form.Password)
	if claims == nil {
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		User:      sessionUser(claims),
		ExpiresAt: claims.ExpiresAt,
		Redirect:  s.landingFor(claims, form.CallbackURL),
	})
}

// apiLogout clears the session cookie. Sessions are stateless, so this is
// all logout needs to do.
func (s *Server) apiLogout(c *gin.Context) {
	if claims, ok := GetClaims(c); ok {
		s.logger.Info().Str("user_id", claims.Subject).Msg("User signed out")
	}
	s.clearSession(c)
	c.JSON(http.StatusOK, gin.H{"status": "signed_out", "redirect": s.gate.LoginPath()})
}

// sessionInfo returns the caller's session, if any
func (s *Server) sessionInfo(c *gin.Context) {
	claims, ok := GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not signed in"})
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		User:      sessionUser(claims),
		ExpiresAt: claims.ExpiresAt,
		Redirect:  s.gate.DefaultRoute(claims.Role),
	})
}

// authorizeProbe reports the gate's decision for ?path= with the caller's
// session, without enforcing it
func (s *Server) authorizeProbe(c *gin.Context) {
	p := c.Query("path")
	claims, _ := GetClaims(c)

	decision := s.gate.Authorize(p, claims, s.now())
	c.JSON(http.StatusOK, AuthorizeResponse{
		Path:     p,
		Decision: decision.Kind.String(),
		Class:    decision.Class,
		Location: decision.Location,
		Reason:   decision.Reason,
	})
}
