package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer     = "carrent"
	minSecretLength = 32
)

// sessionToken is the signed representation of Claims stored in the cookie
type sessionToken struct {
	Role        string `json:"role"`
	AccessToken string `json:"access_token"`
	DisplayName string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies session tokens with HS256
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// NewTokenCodec creates a codec for the given secret
func NewTokenCodec(secret string) (*TokenCodec, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d characters", minSecretLength)
	}
	return &TokenCodec{secret: []byte(secret), now: time.Now}, nil
}

// SetClock overrides the time source used for expiry validation
func (tc *TokenCodec) SetClock(now func() time.Time) {
	tc.now = now
}

// Encode signs the claims into a compact JWT
func (tc *TokenCodec) Encode(c *Claims) (string, error) {
	if c == nil || c.Subject == "" || !c.Role.Valid() {
		return "", fmt.Errorf("refusing to sign incomplete claims: %w", ErrInvalidToken)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionToken{
		Role:        string(c.Role),
		AccessToken: c.AccessToken,
		DisplayName: c.DisplayName,
		Email:       c.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   c.Subject,
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			NotBefore: jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
	})
	return token.SignedString(tc.secret)
}

// Decode verifies a session token and returns its claims.
// Expired tokens yield ErrExpired, anything else that fails yields ErrInvalidToken.
func (tc *TokenCodec) Decode(tokenString string) (*Claims, error) {
	var st sessionToken
	token, err := jwt.ParseWithClaims(tokenString, &st, func(token *jwt.Token) (interface{}, error) {
		return tc.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(tc.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("failed to parse token: %w", ErrExpired)
		}
		return nil, fmt.Errorf("failed to parse token: %w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	role, err := ParseRole(st.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if st.Subject == "" || st.IssuedAt == nil || st.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing registered claims", ErrInvalidToken)
	}

	return &Claims{
		Subject:     st.Subject,
		Role:        role,
		AccessToken: st.AccessToken,
		DisplayName: st.DisplayName,
		Email:       st.Email,
		IssuedAt:    st.IssuedAt.Time,
		ExpiresAt:   st.ExpiresAt.Time,
	}, nil
}
