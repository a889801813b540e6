package auth

import "errors"

var (
	// ErrInvalidCredentials means the email/password pair was rejected.
	// It never says which of the two was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnavailable means the credential service could not give a usable
	// answer (unreachable, timed out, or replied with something unexpected).
	ErrUnavailable = errors.New("credential service unavailable")

	// ErrExpired means the session lapsed and the user must log in again.
	ErrExpired = errors.New("session expired")

	// ErrForbidden means the session is valid but its role is insufficient.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidToken means a session token failed signature or shape checks.
	ErrInvalidToken = errors.New("invalid session token")
)
