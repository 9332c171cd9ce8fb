package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// Transport is an http.RoundTripper that attaches a valid access credential
// to every outbound request and translates an authentication failure into
// at most one coordinated refresh and one replay before ending the session.
type Transport struct {
	manager *Manager
	base    http.RoundTripper
	skipped map[string]struct{}
	logger  *slog.Logger
}

// Compile-time check that Transport implements http.RoundTripper.
var _ http.RoundTripper = (*Transport)(nil)

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithBase sets the underlying transport. Defaults to
// http.DefaultTransport.
func WithBase(base http.RoundTripper) TransportOption {
	return func(t *Transport) {
		t.base = base
	}
}

// WithSkippedPaths marks request paths that must never carry an
// Authorization header nor trigger a refresh: the authentication endpoints
// themselves. Matching is exact on the URL path.
func WithSkippedPaths(paths ...string) TransportOption {
	return func(t *Transport) {
		for _, p := range paths {
			t.skipped[p] = struct{}{}
		}
	}
}

// WithTransportLogger sets the logger. Defaults to slog.Default.
func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) {
		t.logger = logger
	}
}

// NewTransport creates a Transport backed by the given Manager.
func NewTransport(manager *Manager, opts ...TransportOption) *Transport {
	t := &Transport{
		manager: manager,
		base:    http.DefaultTransport,
		skipped: make(map[string]struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper.
//
// Requests to skipped (authentication) paths pass through untouched. Every
// other request gets an Authorization header when one is obtainable; when
// it is not, the request is sent anyway and the server's verdict is handled
// below rather than the request being silently dropped.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.skip(req.URL) {
		return t.base.RoundTrip(req)
	}

	token, err := t.manager.AccessToken(req.Context())
	if err != nil {
		t.logger.DebugContext(req.Context(), "sending request without access token",
			"path", req.URL.Path, "error", err)
		token = ""
	}

	resp, err := t.base.RoundTrip(t.annotate(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// The server rejected the credential even though the local clock
	// considered it valid (or none was attached). One forced refresh,
	// joining any exchange already in flight, then one replay.
	fresh, refreshErr := t.manager.Refresh(req.Context(), token)
	if refreshErr != nil {
		if terminal(refreshErr) {
			// A session existed and is now gone.
			t.manager.Terminate(refreshErr)
		}
		return resp, nil
	}

	replay, ok := rewind(req)
	if !ok {
		// The body was consumed and cannot be rebuilt, so the original
		// rejection stands.
		return resp, nil
	}
	_ = resp.Body.Close()

	retryResp, err := t.base.RoundTrip(t.annotate(replay, fresh))
	if err != nil {
		return nil, err
	}
	if retryResp.StatusCode == http.StatusUnauthorized {
		// Rejected again with a brand-new credential. No further retries.
		t.manager.Terminate(fmt.Errorf("request to %s unauthorized after token refresh", req.URL.Path))
	}
	return retryResp, nil
}

// terminal reports whether a refresh failure means the session is dead.
// There was no session to end when nothing was stored, and a caller that
// stopped waiting says nothing about the detached flight, which keeps
// running and may well succeed.
func terminal(err error) bool {
	return !errors.Is(err, ErrNoTokens) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func (t *Transport) skip(u *url.URL) bool {
	_, ok := t.skipped[u.Path]
	return ok
}

// annotate clones req with the Authorization header (when token is
// non-empty) and a request ID for log correlation. The original request is
// never mutated, per the http.RoundTripper contract.
func (t *Transport) annotate(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	if out.Header.Get("X-Request-ID") == "" {
		out.Header.Set("X-Request-ID", uuid.NewString())
	}
	return out
}

// rewind clones req with a replayable body. ok is false when the original
// body was already consumed and cannot be rebuilt.
func rewind(req *http.Request) (*http.Request, bool) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	out.Body = body
	return out, true
}
