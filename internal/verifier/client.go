// Package verifier talks to the backend credential service.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carrent-dev/carrent/internal/auth"
)

const maxResponseBytes = 1 << 20

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidRegistration = errors.New("invalid registration")
)

// Client is an HTTP client for the backend auth endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the backend at baseURL
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the backend root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserRecord is the user as the backend reports it
type UserRecord struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	User  *UserRecord `json:"user"`
	Token string      `json:"token"`
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// VerifyCredentials implements auth.Verifier against POST /auth/login.
// 4xx answers are rejections, except 408 and 429 which ask the caller to
// retry. Transport failures, 5xx answers and bodies without a user and token
// are unavailability.
func (c *Client) VerifyCredentials(ctx context.Context, creds auth.Credentials) (*auth.Verification, error) {
	resp, err := c.postJSON(ctx, "/auth/login", LoginRequest{Email: creds.Email, Password: creds.Password})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w: %v", auth.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("login failed (status %d): %w", resp.StatusCode, auth.ErrUnavailable)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("login rejected (status %d): %w", resp.StatusCode, auth.ErrInvalidCredentials)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("unexpected status %d: %w", resp.StatusCode, auth.ErrUnavailable)
	}

	var loginResp LoginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w: %v", auth.ErrUnavailable, err)
	}
	if loginResp.User == nil || loginResp.User.ID == "" || loginResp.Token == "" {
		return nil, fmt.Errorf("login response missing user or token: %w", auth.ErrUnavailable)
	}

	return &auth.Verification{
		User: auth.VerifiedUser{
			ID:        loginResp.User.ID,
			Email:     loginResp.User.Email,
			FirstName: loginResp.User.FirstName,
			LastName:  loginResp.User.LastName,
			Role:      loginResp.User.Role,
		},
		Token: loginResp.Token,
	}, nil
}

// Register creates a customer account
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	resp, err := c.postJSON(ctx, "/auth/register", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	switch {
	case resp.StatusCode == http.StatusConflict:
		return ErrEmailTaken
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: %s", ErrInvalidRegistration, errorMessage(body))
	default:
		return fmt.Errorf("register failed (status %d): %w", resp.StatusCode, auth.ErrUnavailable)
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w: %v", auth.ErrUnavailable, err)
	}
	return resp, nil
}

// errorMessage pulls the "error" field out of a JSON error body
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
