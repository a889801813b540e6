package authapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/carrent-dev/carrent/internal/auth"
	"github.com/carrent-dev/carrent/internal/models"
)

const bearerPrefix = "Bearer "

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrUserNotFound      = errors.New("user not found")
)

const currentUserKey = "current_user"

func setCurrentUser(c *gin.Context, user *models.User) {
	c.Set(currentUserKey, user)
}

func currentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(currentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}
	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.AbortWithStatusJSON(statusCode, gin.H{"error": message})
}

// bearerAuthMiddleware validates bearer tokens and loads the user. The
// role is re-read from the database so a demoted user loses access at once.
func (s *Server) bearerAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, err, "Unauthorized")
			return
		}

		claims, err := s.tokens.validate(token)
		if err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, err, "Invalid or expired token")
			return
		}

		var user models.User
		if err := models.FindByID(s.db, claims.Subject, &user); err != nil {
			respondWithError(c, s.logger.With().Str("user_id", claims.Subject).Logger(), http.StatusUnauthorized, ErrUserNotFound, "User not found")
			return
		}

		setCurrentUser(c, &user)
		c.Next()
	}
}

// adminOnlyMiddleware ensures the authenticated user is an admin
func adminOnlyMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			respondWithError(c, log, http.StatusUnauthorized, errors.New("no user"), "Unauthorized")
			return
		}
		if auth.Role(user.Role) != auth.RoleAdmin {
			respondWithError(c, log, http.StatusForbidden, auth.ErrForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}
