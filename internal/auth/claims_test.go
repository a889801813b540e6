package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClaimsValid(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		claims *Claims
		want   bool
	}{
		{name: "nil", claims: nil, want: false},
		{name: "no role", claims: &Claims{Subject: "u1", ExpiresAt: now.Add(time.Minute)}, want: false},
		{name: "unknown role", claims: &Claims{Subject: "u1", Role: "admin", ExpiresAt: now.Add(time.Minute)}, want: false},
		{name: "no subject", claims: &Claims{Role: RoleUser, ExpiresAt: now.Add(time.Minute)}, want: false},
		{name: "expired", claims: &Claims{Subject: "u1", Role: RoleUser, ExpiresAt: now}, want: false},
		{name: "user", claims: &Claims{Subject: "u1", Role: RoleUser, ExpiresAt: now.Add(time.Minute)}, want: true},
		{name: "admin", claims: &Claims{Subject: "u1", Role: RoleAdmin, ExpiresAt: now.Add(time.Minute)}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.Valid(now))
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("ADMIN")
	assert.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	for _, s := range []string{"", "admin", "User", "ROOT"} {
		_, err := ParseRole(s)
		assert.Error(t, err, s)
	}
}
