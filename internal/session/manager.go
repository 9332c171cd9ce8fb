package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ibrahim-sisar/edulite-cli/internal/credstore"
	"github.com/ibrahim-sisar/edulite-cli/internal/jwtclaims"
)

// Failure kinds surfaced by the Manager. Callers branch on these to produce
// distinct user-facing messages.
var (
	// ErrNoTokens: nothing is stored. The user never logged in, or logged
	// out, or a previous failure already cleared the pair.
	ErrNoTokens = errors.New("no authentication tokens available")

	// ErrSessionExpired: a session existed but its refresh credential is no
	// longer usable, locally or from the server's perspective.
	ErrSessionExpired = errors.New("session expired")

	// ErrRefreshRejected must be wrapped by ExchangeFunc implementations
	// when the server deliberately rejects the refresh credential, so the
	// Manager can tell a dead session from a transient transport failure.
	ErrRefreshRejected = errors.New("refresh token rejected")
)

// ExchangeFunc trades a refresh credential for a new access credential.
// rotated is empty unless the server issued a replacement refresh
// credential alongside the access one.
type ExchangeFunc func(ctx context.Context, refresh string) (access, rotated string, err error)

// Manager coordinates credential refresh for concurrent callers and ends
// the session exactly once when the refresh credential stops working.
//
// All dependencies are injected; tests construct as many independent
// managers as they need, while production wires a single process-wide
// instance.
type Manager struct {
	store    credstore.Store
	exchange ExchangeFunc
	policy   jwtclaims.Policy
	logger   *slog.Logger

	// flight serializes refresh attempts: callers that observe an exchange
	// in progress join it and share its outcome.
	flight singleflight.Group

	mu       sync.Mutex
	notified bool
	handler  func(reason error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithPolicy sets the expiry policy (buffer and clock).
func WithPolicy(policy jwtclaims.Policy) Option {
	return func(m *Manager) {
		m.policy = policy
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager backed by the given store and exchange
// function.
func NewManager(store credstore.Store, exchange ExchangeFunc, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("missing credential store")
	}
	if exchange == nil {
		return nil, fmt.Errorf("missing exchange function")
	}

	m := &Manager{
		store:    store,
		exchange: exchange,
		policy:   jwtclaims.Policy{Buffer: jwtclaims.DefaultBuffer},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Login stores a freshly issued credential pair and begins a new session
// episode.
func (m *Manager) Login(ctx context.Context, access, refresh string) error {
	if access == "" || refresh == "" {
		return fmt.Errorf("both access and refresh tokens are required")
	}

	if err := m.store.Save(ctx, credstore.Pair{Access: access, Refresh: refresh}); err != nil {
		return fmt.Errorf("storing credentials: %w", err)
	}

	m.mu.Lock()
	m.notified = false
	m.mu.Unlock()
	return nil
}

// Logout clears the stored pair. Safe to call when not logged in.
func (m *Manager) Logout(ctx context.Context) error {
	return m.store.Clear(ctx)
}

// LoggedIn reports whether a usable session exists: a refresh credential is
// present and has not expired.
func (m *Manager) LoggedIn(ctx context.Context) bool {
	pair, err := m.store.Load(ctx)
	if err != nil {
		return false
	}
	return pair.Refresh != "" && !m.policy.Expired(pair.Refresh)
}

// AccessToken returns an access credential fit for an outbound request,
// refreshing the stored one first when it is expired or about to expire.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	pair, err := m.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}

	if pair.Access != "" && !m.policy.Expired(pair.Access) {
		return pair.Access, nil
	}
	return m.Refresh(ctx, pair.Access)
}

// Refresh exchanges the refresh credential for a new access credential.
//
// Concurrent callers join a single in-flight exchange and all receive the
// same outcome; no caller observes a half-completed refresh. stale is the
// access credential the caller saw fail (possibly empty); if a refresh that
// settled in the meantime already replaced it, the replacement is returned
// without another exchange.
//
// On any exchange failure the stored pair is cleared: credentials that just
// failed to refresh must not linger to be retried by every subsequent
// request.
func (m *Manager) Refresh(ctx context.Context, stale string) (string, error) {
	ch := m.flight.DoChan("refresh", func() (any, error) {
		// The flight is detached from the first caller's cancellation:
		// other callers may have joined it, and an aborted request must not
		// cancel a refresh they still depend on.
		return m.refresh(context.WithoutCancel(ctx), stale)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		// This caller stops waiting; the flight itself keeps running for
		// everyone else.
		return "", ctx.Err()
	}
}

func (m *Manager) refresh(ctx context.Context, stale string) (string, error) {
	pair, err := m.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}

	// A refresh that settled while this caller was on its way here may have
	// already replaced the credential it saw fail.
	if pair.Access != "" && pair.Access != stale && !m.policy.Expired(pair.Access) {
		return pair.Access, nil
	}

	if pair.Refresh == "" {
		return "", ErrNoTokens
	}
	if m.policy.Expired(pair.Refresh) {
		m.clear(ctx)
		return "", fmt.Errorf("%w: refresh token expired", ErrSessionExpired)
	}

	access, rotated, err := m.exchange(ctx, pair.Refresh)
	if err != nil {
		m.clear(ctx)
		if errors.Is(err, ErrRefreshRejected) {
			return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		return "", fmt.Errorf("refreshing access token: %w", err)
	}

	next := credstore.Pair{Access: access, Refresh: pair.Refresh}
	if rotated != "" {
		next.Refresh = rotated
	}
	if err := m.store.Save(ctx, next); err != nil {
		return "", fmt.Errorf("storing refreshed credentials: %w", err)
	}

	m.mu.Lock()
	m.notified = false
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "access token refreshed", "rotated_refresh", rotated != "")
	return access, nil
}

func (m *Manager) clear(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.WarnContext(ctx, "failed to clear credentials", "error", err)
	}
}

// SetTerminationHandler registers the callback invoked when the session
// ends irrecoverably. A single slot: the last registration wins.
func (m *Manager) SetTerminationHandler(fn func(reason error)) {
	m.mu.Lock()
	m.handler = fn
	m.mu.Unlock()
}

// Terminate reports an irrecoverable authentication failure. The registered
// handler runs at most once per failure episode, regardless of how many
// requests fail around the same time; a successful Login or refresh begins
// the next episode.
func (m *Manager) Terminate(reason error) {
	m.mu.Lock()
	if m.notified {
		m.mu.Unlock()
		return
	}
	m.notified = true
	fn := m.handler
	m.mu.Unlock()

	if fn != nil {
		fn(reason)
	}
}
