package authapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/carrent-dev/carrent/internal/auth"
	"github.com/carrent-dev/carrent/internal/models"
)

// SetupRequest represents the first-run setup request
type SetupRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName"`
}

// RegisterRequest represents a customer sign-up
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateUserRequest represents an admin creating an account
type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName"`
	Role      string `json:"role" binding:"required,carrole"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	User  *UserDetail `json:"user"`
	Token string      `json:"token"`
}

func userDetail(u *models.User) *UserDetail {
	return &UserDetail{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

// setupFirstAdmin creates the first admin user (only works if no users exist)
func (s *Server) setupFirstAdmin(c *gin.Context) {
	var req SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Setup already completed"})
		return
	}

	user, ok := s.createAccount(c, req.Email, req.Password, req.FirstName, req.LastName, auth.RoleAdmin)
	if !ok {
		return
	}

	token, err := s.tokens.generate(user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("First admin user created")
	c.JSON(http.StatusOK, LoginResponse{User: userDetail(user), Token: token})
}

// register creates a customer account. Self-service sign-up is always USER.
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := s.createAccount(c, req.Email, req.Password, req.FirstName, req.LastName, auth.RoleUser)
	if !ok {
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User registered")
	c.JSON(http.StatusCreated, gin.H{"user": userDetail(user)})
}

// login verifies credentials. Unknown emails and wrong passwords get the
// same answer after the same amount of bcrypt work.
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := s.db.Where("email = ?", models.NormalizeEmail(req.Email)).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error().Err(err).Msg("Failed to find user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		auth.BurnPasswordCheck(req.Password)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := s.tokens.generate(&user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User logged in")
	c.JSON(http.StatusOK, LoginResponse{User: userDetail(&user), Token: token})
}

// getCurrentUser returns the bearer token's user
func (s *Server) getCurrentUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, userDetail(user))
}

// listUsers lists all users (admin only)
func (s *Server) listUsers(c *gin.Context) {
	var users []models.User
	if err := s.db.Order("created_at DESC").Find(&users).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	details := make([]*UserDetail, len(users))
	for i := range users {
		details[i] = userDetail(&users[i])
	}
	c.JSON(http.StatusOK, details)
}

// createUser creates an account with an explicit role (admin only)
func (s *Server) createUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := s.createAccount(c, req.Email, req.Password, req.FirstName, req.LastName, auth.Role(req.Role))
	if !ok {
		return
	}

	createdBy, _ := currentUser(c)
	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", user.Role).
		Str("created_by", createdBy.ID).
		Msg("User created")

	c.JSON(http.StatusCreated, gin.H{"user": userDetail(user)})
}

// createAccount hashes the password and inserts the user, writing the
// error response itself when it fails
func (s *Server) createAccount(c *gin.Context, email, password, firstName, lastName string, role auth.Role) (*models.User, bool) {
	email = models.NormalizeEmail(email)

	var existing int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to check email")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return nil, false
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         string(role),
	}
	if err := s.db.Create(user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return nil, false
	}
	return user, true
}
