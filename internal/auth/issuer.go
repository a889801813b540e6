package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultSessionTTL    = 30 * time.Minute
	DefaultSessionMaxAge = 30 * 24 * time.Hour
)

// Credentials is a login attempt
type Credentials struct {
	Email    string
	Password string
}

// VerifiedUser is the user record returned by the credential service
type VerifiedUser struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Role      string
}

// Verification is a successful credential check
type Verification struct {
	User  VerifiedUser
	Token string
}

// Verifier checks credentials against the backend. Implementations wrap
// ErrInvalidCredentials for rejections; every other error is treated as
// ErrUnavailable.
type Verifier interface {
	VerifyCredentials(ctx context.Context, creds Credentials) (*Verification, error)
}

// IssuerConfig controls session lifetimes
type IssuerConfig struct {
	// TTL is the sliding validity window granted at login and on each refresh.
	TTL time.Duration
	// MaxAge caps the session lifetime measured from IssuedAt.
	MaxAge time.Duration
	// Timeout bounds the round trip to the credential service.
	Timeout time.Duration
	Clock   func() time.Time
}

// Issuer turns verified credentials into session claims
type Issuer struct {
	verifier Verifier
	ttl      time.Duration
	maxAge   time.Duration
	timeout  time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// NewIssuer creates an issuer backed by the given verifier
func NewIssuer(verifier Verifier, cfg IssuerConfig, logger zerolog.Logger) *Issuer {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultSessionMaxAge
	}
	if cfg.MaxAge < cfg.TTL {
		cfg.MaxAge = cfg.TTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Issuer{
		verifier: verifier,
		ttl:      cfg.TTL,
		maxAge:   cfg.MaxAge,
		timeout:  cfg.Timeout,
		now:      cfg.Clock,
		logger:   logger,
	}
}

// Authenticate exchanges credentials for fresh session claims
func (i *Issuer) Authenticate(ctx context.Context, creds Credentials) (*Claims, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	v, err := i.verifier.VerifyCredentials(ctx, creds)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			i.logger.Info().Msg("Credential check rejected")
			return nil, ErrInvalidCredentials
		}
		i.logger.Warn().Err(err).Msg("Credential service unavailable")
		return nil, ErrUnavailable
	}
	if v == nil || v.User.ID == "" || v.Token == "" {
		i.logger.Warn().Msg("Credential service returned an incomplete verification")
		return nil, ErrUnavailable
	}

	role, err := ParseRole(v.User.Role)
	if err != nil {
		i.logger.Warn().Err(err).Str("user_id", v.User.ID).Msg("Verified user carries an unknown role")
		return nil, ErrUnavailable
	}

	now := i.now().Truncate(time.Second)
	claims := &Claims{
		Subject:     v.User.ID,
		Role:        role,
		AccessToken: v.Token,
		DisplayName: strings.TrimSpace(v.User.FirstName + " " + v.User.LastName),
		Email:       v.User.Email,
		IssuedAt:    now,
		ExpiresAt:   i.expiry(now, now),
	}

	i.logger.Info().Str("user_id", claims.Subject).Str("role", claims.Role.String()).Msg("Session issued")
	return claims, nil
}

// Refresh extends a valid session. Subject, role and issue time are copied
// unchanged; only ExpiresAt moves.
func (i *Issuer) Refresh(c *Claims) (*Claims, error) {
	now := i.now()
	if !c.Valid(now) {
		return nil, ErrExpired
	}
	next := *c
	next.ExpiresAt = i.expiry(c.IssuedAt, now)
	if !next.ExpiresAt.After(now) {
		return nil, ErrExpired
	}
	return &next, nil
}

// TTL returns the sliding validity window
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

func (i *Issuer) expiry(issuedAt, now time.Time) time.Time {
	exp := now.Add(i.ttl)
	if limit := issuedAt.Add(i.maxAge); exp.After(limit) {
		exp = limit
	}
	// Tokens carry second precision
	return exp.Truncate(time.Second)
}
