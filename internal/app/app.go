// Package app wires configuration into a ready-to-use EduLite client with
// automatic credential handling.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/ibrahim-sisar/edulite-cli/internal/api"
	"github.com/ibrahim-sisar/edulite-cli/internal/jwtclaims"
	"github.com/ibrahim-sisar/edulite-cli/internal/session"
)

// App bundles the session manager and the API client built from one Config.
type App struct {
	cfg *Config

	// Session is the token lifecycle manager.
	Session *session.Manager

	// API talks to the server through the session-adapted HTTP client.
	API *api.Client
}

// New creates an App from the given configuration.
//
// Two API clients share one base URL: a bare one whose only job is the
// token refresh exchange, and the main one whose transport attaches
// credentials to everything except the authentication endpoints.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := cfg.Auth.NewCredentialStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create credential store: %w", err)
	}

	tokenClient, err := api.New(cfg.API.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}))
	if err != nil {
		return nil, fmt.Errorf("failed to create token client: %w", err)
	}

	manager, err := session.NewManager(store, tokenClient.RefreshToken,
		session.WithPolicy(jwtclaims.Policy{Buffer: cfg.Auth.RefreshBuffer}))
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}
	manager.SetTerminationHandler(func(reason error) {
		slog.Warn("session terminated", "reason", reason)
		fmt.Fprintln(os.Stderr, "Your session has expired. Please log in again.")
	})

	authedClient := &http.Client{
		Timeout: cfg.API.Timeout,
		Transport: session.NewTransport(manager,
			session.WithSkippedPaths(api.AuthPaths()...)),
	}
	client, err := api.New(cfg.API.BaseURL, api.WithHTTPClient(authedClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	return &App{
		cfg:     cfg,
		Session: manager,
		API:     client,
	}, nil
}

// Login authenticates with username/password and stores the issued
// credential pair.
func (a *App) Login(ctx context.Context, username, password string) error {
	pair, err := a.API.ObtainToken(ctx, username, password)
	if err != nil {
		return err
	}
	return a.Session.Login(ctx, pair.Access, pair.Refresh)
}

// Logout clears the stored credential pair.
func (a *App) Logout(ctx context.Context) error {
	return a.Session.Logout(ctx)
}

// LoggedIn reports whether a usable session exists.
func (a *App) LoggedIn(ctx context.Context) bool {
	return a.Session.LoggedIn(ctx)
}
