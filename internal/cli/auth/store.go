package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zalando/go-keyring"
)

var (
	// ErrNotAuthenticated is returned when no session is stored for a gateway
	ErrNotAuthenticated = errors.New("not authenticated. Please run 'carrent login' first")
	// ErrSessionExpired is returned when the stored session is past its expiry
	ErrSessionExpired = errors.New("session expired. Please run 'carrent login' again")
)

// Session is what the CLI remembers about a gateway sign-in. ExpiresAt is
// the gateway's sliding expiry as of the last response that refreshed it.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// Expired reports whether the gateway will have dropped the session by now.
// A session with no known expiry is left for the gateway to judge.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionStore keeps one session per gateway URL
type SessionStore interface {
	Save(gatewayURL string, session *Session) error
	Load(gatewayURL string) (*Session, error)
	Delete(gatewayURL string) error
}

// Keyring stores sessions as JSON in the OS keychain/credential manager
type Keyring struct {
	Service string
}

// Default is the store the CLI uses outside tests
var Default SessionStore = &Keyring{Service: "carrent-cli"}

func keyFor(gatewayURL string) string {
	return "session-" + gatewayURL
}

func (k *Keyring) Save(gatewayURL string, session *Session) error {
	if session == nil || session.Token == "" {
		return fmt.Errorf("refusing to save an empty session")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := keyring.Set(k.Service, keyFor(gatewayURL), string(data)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (k *Keyring) Load(gatewayURL string) (*Session, error) {
	data, err := keyring.Get(k.Service, keyFor(gatewayURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil || session.Token == "" {
		return nil, ErrNotAuthenticated
	}
	return &session, nil
}

func (k *Keyring) Delete(gatewayURL string) error {
	if err := keyring.Delete(k.Service, keyFor(gatewayURL)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
