package auth

import "time"

// Claims is the identity carried by a session. Values are never mutated
// after issuance; Refresh returns a new value.
type Claims struct {
	Subject     string    `json:"sub"`
	Role        Role      `json:"role"`
	AccessToken string    `json:"-"`
	DisplayName string    `json:"name"`
	Email       string    `json:"email"`
	IssuedAt    time.Time `json:"iat"`
	ExpiresAt   time.Time `json:"exp"`
}

// Valid reports whether c is an authenticated session at now.
// A nil value, a missing subject or an unknown role is never valid.
func (c *Claims) Valid(now time.Time) bool {
	if c == nil {
		return false
	}
	if c.Subject == "" || !c.Role.Valid() {
		return false
	}
	return now.Before(c.ExpiresAt)
}

// IsAdmin reports whether the claims carry the admin role.
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
