package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carrent-dev/carrent/internal/cli/auth"
	"github.com/carrent-dev/carrent/internal/cli/client"
)

// mockSessionStore is a simple in-memory session store for testing
type mockSessionStore struct {
	sessions map[string]*auth.Session
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{
		sessions: make(map[string]*auth.Session),
	}
}

func (m *mockSessionStore) Save(gatewayURL string, session *auth.Session) error {
	m.sessions[gatewayURL] = session
	return nil
}

func (m *mockSessionStore) Load(gatewayURL string) (*auth.Session, error) {
	session, exists := m.sessions[gatewayURL]
	if !exists {
		return nil, auth.ErrNotAuthenticated
	}
	return session, nil
}

func (m *mockSessionStore) Delete(gatewayURL string) error {
	delete(m.sessions, gatewayURL)
	return nil
}

// token returns the stored token for gatewayURL, or "" if signed out
func (m *mockSessionStore) token(gatewayURL string) string {
	if session, ok := m.sessions[gatewayURL]; ok {
		return session.Token
	}
	return ""
}

// setupTestEnvironment isolates the test from any carrent.json and
// CARRENT_* variables and returns options pointing at serverURL
func setupTestEnvironment(t *testing.T, serverURL string) (*Options, *mockSessionStore, *bytes.Buffer) {
	t.Helper()

	t.Chdir(t.TempDir())
	t.Setenv("CARRENT_SERVER", "")
	t.Setenv("CARRENT_SESSION_COOKIE", "")
	t.Setenv("CARRENT_EMAIL", "")
	t.Setenv("CARRENT_PASSWORD", "")

	store := newMockSessionStore()
	out := &bytes.Buffer{}
	return &Options{Server: serverURL, Store: store, Out: out}, store, out
}

// mockAPIServer creates a mock gateway that knows one user
func mockAPIServer(t *testing.T, email, password, sessionToken string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var loginReq struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if loginReq.Email != email || loginReq.Password != password {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "Invalid email or password"}`))
			return
		}

		http.SetCookie(w, &http.Cookie{Name: client.DefaultSessionCookie, Value: sessionToken, Path: "/"})
		json.NewEncoder(w).Encode(map[string]interface{}{
			"user": map[string]interface{}{
				"id":    "user-123",
				"email": loginReq.Email,
				"name":  "Test User",
				"role":  "ADMIN",
			},
			"expiresAt": "2099-01-01T12:30:00Z",
			"redirect":  "/admin",
		})
	})
	mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(client.DefaultSessionCookie)
		if err != nil || cookie.Value != sessionToken {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "Not signed in"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: client.DefaultSessionCookie, Value: sessionToken + "-refreshed", Path: "/"})
		json.NewEncoder(w).Encode(map[string]interface{}{
			"user": map[string]interface{}{
				"id":    "user-123",
				"email": email,
				"name":  "Test User",
				"role":  "ADMIN",
			},
			"expiresAt": "2099-01-01T12:30:00Z",
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestLoginCommand_Structure(t *testing.T) {
	cmd := NewLoginCmd(DefaultOptions())

	if cmd.Use != "login" {
		t.Errorf("expected Use to be 'login', got %s", cmd.Use)
	}
	if cmd.Flags().Lookup("email") == nil {
		t.Error("expected --email flag to exist")
	}
	if cmd.Flags().Lookup("password") == nil {
		t.Error("expected --password flag to exist")
	}
}

func TestLoginCommand_SuccessfulLogin(t *testing.T) {
	mockServer := mockAPIServer(t, "test@example.com", "password123", "session-abc")
	opts, store, out := setupTestEnvironment(t, mockServer.URL)

	if err := runLogin(opts, "test@example.com", "password123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.token(mockServer.URL) != "session-abc" {
		t.Errorf("expected session to be stored for %s, got %v", mockServer.URL, store.sessions)
	}
	if !strings.Contains(out.String(), "Role: ADMIN") {
		t.Errorf("expected role in output, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Home: /admin") {
		t.Errorf("expected home route in output, got:\n%s", out.String())
	}
}

func TestLoginCommand_InvalidCredentials(t *testing.T) {
	mockServer := mockAPIServer(t, "test@example.com", "password123", "session-abc")
	opts, store, _ := setupTestEnvironment(t, mockServer.URL)

	err := runLogin(opts, "test@example.com", "wrong")
	if err == nil {
		t.Fatal("expected error for invalid credentials, got nil")
	}
	if !strings.Contains(err.Error(), "Invalid email or password") {
		t.Errorf("unexpected error: %v", err)
	}
	if len(store.sessions) != 0 {
		t.Errorf("expected no stored session, got %v", store.sessions)
	}
}

func TestLoginCommand_MissingEmail(t *testing.T) {
	opts, _, _ := setupTestEnvironment(t, "http://127.0.0.1:1")

	err := runLogin(opts, "", "password123")
	if err == nil {
		t.Fatal("expected error when email is missing, got nil")
	}

	expectedError := "email is required (use --email flag or CARRENT_EMAIL env var)"
	if err.Error() != expectedError {
		t.Errorf("expected error '%s', got '%s'", expectedError, err.Error())
	}
}

func TestLoginCommand_EnvVarCredentials(t *testing.T) {
	mockServer := mockAPIServer(t, "env@example.com", "envpass", "session-env")
	opts, store, _ := setupTestEnvironment(t, mockServer.URL)

	t.Setenv("CARRENT_EMAIL", "env@example.com")
	t.Setenv("CARRENT_PASSWORD", "envpass")

	if err := runLogin(opts, "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.token(mockServer.URL) != "session-env" {
		t.Errorf("expected session from env credentials, got %v", store.sessions)
	}
}

func TestLoginCommand_InvalidServer(t *testing.T) {
	opts, _, _ := setupTestEnvironment(t, "ftp://carrent.example.com")

	if err := runLogin(opts, "test@example.com", "password123"); err == nil {
		t.Error("expected error for unsupported gateway URL, got nil")
	}
}

func TestWhoamiCommand(t *testing.T) {
	mockServer := mockAPIServer(t, "test@example.com", "password123", "session-abc")
	opts, store, out := setupTestEnvironment(t, mockServer.URL)

	if err := runWhoami(opts); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated before login, got %v", err)
	}

	store.sessions[mockServer.URL] = &auth.Session{Token: "session-abc"}
	if err := runWhoami(opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Test User (test@example.com)") {
		t.Errorf("expected user in output, got:\n%s", out.String())
	}
	if store.token(mockServer.URL) != "session-abc-refreshed" {
		t.Errorf("expected refreshed session to be stored, got %q", store.token(mockServer.URL))
	}

	// A session the gateway no longer accepts is forgotten
	store.sessions[mockServer.URL] = &auth.Session{Token: "stale"}
	if err := runWhoami(opts); !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, ok := store.sessions[mockServer.URL]; ok {
		t.Error("expected stale session to be deleted")
	}
}

func TestLoginCommand_StoresExpiry(t *testing.T) {
	mockServer := mockAPIServer(t, "test@example.com", "password123", "session-abc")
	opts, store, _ := setupTestEnvironment(t, mockServer.URL)

	if err := runLogin(opts, "test@example.com", "password123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2099, 1, 1, 12, 30, 0, 0, time.UTC)
	if got := store.sessions[mockServer.URL].ExpiresAt; !got.Equal(want) {
		t.Errorf("expected expiry %s, got %s", want, got)
	}
}

func TestWhoamiCommand_ExpiredLocally(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	opts, store, _ := setupTestEnvironment(t, server.URL)
	store.sessions[server.URL] = &auth.Session{Token: "session-abc", ExpiresAt: time.Now().Add(-time.Minute)}

	if err := runWhoami(opts); !errors.Is(err, auth.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("expected no gateway round trip, got %d requests", hits.Load())
	}
	if _, ok := store.sessions[server.URL]; ok {
		t.Error("expected expired session to be deleted")
	}
}
