package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultSessionCookie is the gateway's default SESSION_COOKIE
const DefaultSessionCookie = "carrent_session"

var (
	// ErrUnauthorized means the gateway did not accept the stored session
	ErrUnauthorized = errors.New("session expired or invalid. Please run 'carrent login' again")
)

// Client represents an HTTP client for the CarRent gateway API
type Client struct {
	baseURL    string
	cookieName string
	httpClient *http.Client
	refreshed  string
	// refreshedExpiry is derived from the refreshed cookie's Max-Age
	refreshedExpiry time.Time
}

// New creates a new API client
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cookieName: DefaultSessionCookie,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RefreshedToken returns the newest session cookie the gateway sent back,
// or "" if none. The gateway slides the expiry on every allowed request.
func (c *Client) RefreshedToken() string {
	return c.refreshed
}

// RefreshedExpiry returns when the refreshed session runs out, or the zero
// time if the gateway did not say
func (c *Client) RefreshedExpiry() time.Time {
	return c.refreshedExpiry
}

// SetSessionCookie matches a gateway started with a custom SESSION_COOKIE.
// An empty name keeps the default.
func (c *Client) SetSessionCookie(name string) {
	if name != "" {
		c.cookieName = name
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the signed-in user as reported by the gateway
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SessionResponse represents the login and session responses
type SessionResponse struct {
	User      *User     `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
	Redirect  string    `json:"redirect"`
}

// Decision is the gateway's verdict for a path
type Decision struct {
	Path     string `json:"path"`
	Decision string `json:"decision"`
	Class    string `json:"class"`
	Location string `json:"location"`
	Reason   string `json:"reason"`
}

// Login signs in and returns the session along with the session cookie value
func (c *Client) Login(email, password string) (*SessionResponse, string, error) {
	jsonData, err := json.Marshal(LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.httpClient.Post(
		fmt.Sprintf("%s/api/auth/login", c.baseURL),
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("login failed (status %d): %s", resp.StatusCode, errorMessage(resp.Body))
	}

	var session SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, "", fmt.Errorf("failed to decode response: %w", err)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == c.cookieName && cookie.Value != "" {
			return &session, cookie.Value, nil
		}
	}
	return nil, "", fmt.Errorf("login response did not set the %q cookie (check the gateway's SESSION_COOKIE)", c.cookieName)
}

// Session returns the session for a stored token
func (c *Client) Session(token string) (*SessionResponse, error) {
	var session SessionResponse
	if err := c.getJSON("/api/session", token, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Authorize asks the gateway what it would do with a request for path
func (c *Client) Authorize(token, path string) (*Decision, error) {
	var decision Decision
	if err := c.getJSON("/api/session/authorize?path="+url.QueryEscape(path), token, &decision); err != nil {
		return nil, err
	}
	return &decision, nil
}

// Logout clears the session on the gateway side
func (c *Client) Logout(token string) error {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setSession(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("logout failed (status %d): %s", resp.StatusCode, errorMessage(resp.Body))
	}
	return nil
}

func (c *Client) getJSON(path, token string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setSession(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == c.cookieName && cookie.Value != "" {
			c.refreshed = cookie.Value
			c.refreshedExpiry = cookieExpiry(cookie, time.Now())
		}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, errorMessage(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func cookieExpiry(cookie *http.Cookie, now time.Time) time.Time {
	switch {
	case cookie.MaxAge > 0:
		return now.Add(time.Duration(cookie.MaxAge) * time.Second).Truncate(time.Second)
	case !cookie.Expires.IsZero():
		return cookie.Expires
	}
	return time.Time{}
}

func (c *Client) setSession(req *http.Request, token string) {
	if token != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: token})
	}
}

// errorMessage pulls the "error" field out of a JSON error body
func errorMessage(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 1<<16))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}
