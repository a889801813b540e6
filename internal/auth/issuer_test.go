package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVerifier answers from a fixed user table
type fakeVerifier struct {
	users map[string]fakeUser
	err   error
	calls int
}

type fakeUser struct {
	password string
	record   VerifiedUser
}

func (f *fakeVerifier) VerifyCredentials(ctx context.Context, creds Credentials) (*Verification, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[creds.Email]
	if !ok || u.password != creds.Password {
		return nil, fmt.Errorf("login rejected (status 401): %w", ErrInvalidCredentials)
	}
	return &Verification{User: u.record, Token: "tok-" + u.record.ID}, nil
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{users: map[string]fakeUser{
		"admin@carrent.test": {
			password: "admin-pass",
			record:   VerifiedUser{ID: "u-admin", Email: "admin@carrent.test", FirstName: "Ada", LastName: "Admin", Role: "ADMIN"},
		},
		"user@carrent.test": {
			password: "user-pass",
			record:   VerifiedUser{ID: "u-user", Email: "user@carrent.test", FirstName: "Uma", Role: "USER"},
		},
	}}
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestIssuer(v Verifier, clock *fixedClock) *Issuer {
	return NewIssuer(v, IssuerConfig{
		TTL:    30 * time.Minute,
		MaxAge: 2 * time.Hour,
		Clock:  clock.now,
	}, zerolog.Nop())
}

func TestAuthenticate_CopiesRoleFromVerifiedRecord(t *testing.T) {
	clock := &fixedClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(newFakeVerifier(), clock)

	tests := []struct {
		email, password string
		wantRole        Role
		wantName        string
	}{
		{"admin@carrent.test", "admin-pass", RoleAdmin, "Ada Admin"},
		{"user@carrent.test", "user-pass", RoleUser, "Uma"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			claims, err := issuer.Authenticate(context.Background(), Credentials{Email: tt.email, Password: tt.password})
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, claims.Role)
			assert.Equal(t, tt.wantName, claims.DisplayName)
			assert.Equal(t, tt.email, claims.Email)
			assert.NotEmpty(t, claims.AccessToken)
			assert.Equal(t, clock.t, claims.IssuedAt)
			assert.Equal(t, clock.t.Add(30*time.Minute), claims.ExpiresAt)
			assert.True(t, claims.Valid(clock.t))
		})
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	clock := &fixedClock{t: time.Now()}
	issuer := newTestIssuer(newFakeVerifier(), clock)

	claims, err := issuer.Authenticate(context.Background(), Credentials{Email: "a@b.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, claims)

	// Unknown email and wrong password are indistinguishable
	_, errKnown := issuer.Authenticate(context.Background(), Credentials{Email: "user@carrent.test", Password: "wrong"})
	assert.Equal(t, err, errKnown)
}

func TestAuthenticate_EmptyInputSkipsBackend(t *testing.T) {
	v := newFakeVerifier()
	issuer := newTestIssuer(v, &fixedClock{t: time.Now()})

	for _, creds := range []Credentials{{}, {Email: "user@carrent.test"}, {Password: "x"}, {Email: "   ", Password: "x"}} {
		_, err := issuer.Authenticate(context.Background(), creds)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	assert.Zero(t, v.calls)
}

func TestAuthenticate_FailsClosed(t *testing.T) {
	tests := []struct {
		name     string
		verifier Verifier
	}{
		{
			name:     "network error",
			verifier: &fakeVerifier{err: errors.New("dial tcp: connection refused")},
		},
		{
			name:     "deadline",
			verifier: &fakeVerifier{err: context.DeadlineExceeded},
		},
		{
			name:     "empty role",
			verifier: staticVerifier{v: &Verification{User: VerifiedUser{ID: "u1"}, Token: "t"}},
		},
		{
			name:     "lower-case role",
			verifier: staticVerifier{v: &Verification{User: VerifiedUser{ID: "u1", Role: "admin"}, Token: "t"}},
		},
		{
			name:     "missing token",
			verifier: staticVerifier{v: &Verification{User: VerifiedUser{ID: "u1", Role: "USER"}}},
		},
		{
			name:     "nil verification",
			verifier: staticVerifier{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer := newTestIssuer(tt.verifier, &fixedClock{t: time.Now()})
			claims, err := issuer.Authenticate(context.Background(), Credentials{Email: "x@y.z", Password: "pw"})
			require.ErrorIs(t, err, ErrUnavailable)
			assert.Nil(t, claims)
		})
	}
}

type staticVerifier struct{ v *Verification }

func (s staticVerifier) VerifyCredentials(ctx context.Context, creds Credentials) (*Verification, error) {
	return s.v, nil
}

type blockingVerifier struct{}

func (blockingVerifier) VerifyCredentials(ctx context.Context, creds Credentials) (*Verification, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAuthenticate_TimeoutIsUnavailable(t *testing.T) {
	issuer := NewIssuer(blockingVerifier{}, IssuerConfig{Timeout: 20 * time.Millisecond}, zerolog.Nop())

	_, err := issuer.Authenticate(context.Background(), Credentials{Email: "x@y.z", Password: "pw"})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestRefresh(t *testing.T) {
	clock := &fixedClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(newFakeVerifier(), clock)

	original, err := issuer.Authenticate(context.Background(), Credentials{Email: "admin@carrent.test", Password: "admin-pass"})
	require.NoError(t, err)

	clock.advance(10 * time.Minute)
	once, err := issuer.Refresh(original)
	require.NoError(t, err)
	clock.advance(10 * time.Minute)
	twice, err := issuer.Refresh(once)
	require.NoError(t, err)

	for _, c := range []*Claims{once, twice} {
		assert.Equal(t, original.Subject, c.Subject)
		assert.Equal(t, original.Role, c.Role)
		assert.Equal(t, original.AccessToken, c.AccessToken)
		assert.Equal(t, original.IssuedAt, c.IssuedAt)
	}
	assert.Equal(t, clock.t.Add(30*time.Minute), twice.ExpiresAt)
	assert.True(t, twice.ExpiresAt.After(once.ExpiresAt))

	// The input value is left untouched
	assert.Equal(t, time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC), original.ExpiresAt)
}

func TestRefresh_Expired(t *testing.T) {
	clock := &fixedClock{t: time.Now()}
	issuer := newTestIssuer(newFakeVerifier(), clock)

	claims, err := issuer.Authenticate(context.Background(), Credentials{Email: "user@carrent.test", Password: "user-pass"})
	require.NoError(t, err)

	clock.advance(31 * time.Minute)
	_, err = issuer.Refresh(claims)
	require.ErrorIs(t, err, ErrExpired)

	_, err = issuer.Refresh(nil)
	require.ErrorIs(t, err, ErrExpired)
}

func TestRefresh_CappedByMaxAge(t *testing.T) {
	clock := &fixedClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(newFakeVerifier(), clock)

	claims, err := issuer.Authenticate(context.Background(), Credentials{Email: "user@carrent.test", Password: "user-pass"})
	require.NoError(t, err)

	// Keep the session alive right up to the two hour cap
	for i := 0; i < 4; i++ {
		clock.advance(25 * time.Minute)
		claims, err = issuer.Refresh(claims)
		require.NoError(t, err)
	}
	assert.Equal(t, claims.IssuedAt.Add(2*time.Hour), claims.ExpiresAt)

	clock.t = claims.ExpiresAt
	_, err = issuer.Refresh(claims)
	require.ErrorIs(t, err, ErrExpired)
}
