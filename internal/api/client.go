// Package api is a client for the EduLite REST API.
//
// The token endpoints speak SimpleJWT: obtain returns an access/refresh
// pair, refresh trades the refresh token for a new access token. All other
// endpoints expect an Authorization header, which is the job of the session
// transport wrapped around the HTTP client, not of this package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ibrahim-sisar/edulite-cli/internal/session"
)

// Paths of the authentication endpoints. These never carry an Authorization
// header and never trigger a token refresh.
const (
	TokenPath        = "/api/token/"
	TokenRefreshPath = "/api/token/refresh/"
	RegisterPath     = "/api/register/"
)

// AuthPaths returns the endpoint paths the session transport must leave
// untouched.
func AuthPaths() []string {
	return []string{TokenPath, TokenRefreshPath, RegisterPath}
}

// Error is a non-2xx API response.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// TokenPair is the response of the token obtain endpoint. Refresh is also
// set on refresh responses when the server rotates the refresh token.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RegisterRequest is the body of the registration endpoint.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// User is the authenticated user's account record.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Course is a course listing entry.
type Course struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Outline    string `json:"outline"`
	Language   string `json:"language"`
	Country    string `json:"country"`
	Subject    string `json:"subject"`
	Visibility string `json:"visibility"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	IsActive   bool   `json:"is_active"`
}

// page is the DRF pagination envelope.
type page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []T    `json:"results"`
}

// Client talks to one EduLite server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for all requests. Wire a client
// whose transport is a session.Transport to get automatic credential
// handling; the authentication endpoints stay unannotated either way
// because the transport skips them by path.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must include scheme and host", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ObtainToken authenticates with username/password and returns a fresh
// credential pair.
func (c *Client) ObtainToken(ctx context.Context, username, password string) (*TokenPair, error) {
	body := map[string]string{"username": username, "password": password}
	var pair TokenPair
	if err := c.do(ctx, http.MethodPost, TokenPath, body, &pair); err != nil {
		return nil, fmt.Errorf("obtaining tokens: %w", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		return nil, fmt.Errorf("token endpoint returned an incomplete pair")
	}
	return &pair, nil
}

// RefreshToken trades a refresh token for a new access token. rotated is
// non-empty when the server issued a replacement refresh token.
//
// A 401 means the refresh token itself is invalid; that case wraps
// session.ErrRefreshRejected so the session manager can end the session
// instead of treating it as a transient failure. RefreshToken implements
// session.ExchangeFunc.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (access, rotated string, err error) {
	body := map[string]string{"refresh": refresh}
	var pair TokenPair
	if err := c.do(ctx, http.MethodPost, TokenRefreshPath, body, &pair); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return "", "", fmt.Errorf("%w: %s", session.ErrRefreshRejected, apiErr.Detail)
		}
		return "", "", fmt.Errorf("refresh endpoint: %w", err)
	}
	if pair.Access == "" {
		return "", "", fmt.Errorf("refresh endpoint returned no access token")
	}
	return pair.Access, pair.Refresh, nil
}

// Register creates a new user account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if err := c.do(ctx, http.MethodPost, RegisterPath, req, nil); err != nil {
		return fmt.Errorf("registering: %w", err)
	}
	return nil
}

// CurrentUser returns the account of the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/users/me/", nil, &user); err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}
	return &user, nil
}

// Courses returns the first page of the course list.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var result page[Course]
	if err := c.do(ctx, http.MethodGet, "/api/courses/", nil, &result); err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	return result.Results, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/api/health/", nil, nil); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

// do performs one JSON request/response round trip. Non-2xx responses
// become *Error with the DRF detail message when one is present.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{StatusCode: resp.StatusCode, Detail: errorDetail(resp.Body)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// errorDetail extracts a human-readable message from a DRF error body:
// either {"detail": "..."} or a field-to-messages validation map.
func errorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 8192))
	if err != nil {
		return ""
	}

	var envelope struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Detail != "" {
		return envelope.Detail
	}

	var fields map[string][]string
	if err := json.Unmarshal(data, &fields); err == nil && len(fields) > 0 {
		var parts []string
		for field, messages := range fields {
			parts = append(parts, field+": "+strings.Join(messages, " "))
		}
		return strings.Join(parts, "; ")
	}

	return strings.TrimSpace(string(data))
}
