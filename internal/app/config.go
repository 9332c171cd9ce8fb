package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ibrahim-sisar/edulite-cli/internal/credstore"
	"github.com/ibrahim-sisar/edulite-cli/internal/jwtclaims"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// CredentialStorageType represents the storage backends supported for the
// credential pair.
type CredentialStorageType string

const (
	CredentialStorageTypeFile    CredentialStorageType = "file"
	CredentialStorageTypeKeyring CredentialStorageType = "keyring"
	CredentialStorageTypeMemory  CredentialStorageType = "memory"
)

// keyringService identifies this application's secrets in the OS keyring.
const keyringService = "edulite-cli"

// Default configuration values
const (
	DefaultConfigLogLevel      = "info"
	DefaultConfigLogFormat     = LogFormatText
	DefaultConfigAPIBaseURL    = "http://localhost:8000"
	DefaultConfigAPITimeout    = 30 * time.Second
	DefaultConfigAuthStorage   = CredentialStorageTypeFile
	DefaultConfigRefreshBuffer = jwtclaims.DefaultBuffer
)

// APIConfig holds EduLite server settings.
type APIConfig struct {
	BaseURL string        `json:"base_url" validate:"required,url"`
	Timeout time.Duration `json:"timeout"`
}

// AuthConfig describes where the credential pair is stored and how eagerly
// the access token is refreshed.
type AuthConfig struct {
	// Storage selects the credential backend.
	Storage CredentialStorageType `json:"storage" validate:"required,oneof=file keyring memory"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	File        string `json:"file,omitempty"`         // For file storage: path to the credential file
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier

	// RefreshBuffer is the safety margin before a token's stated expiry at
	// which it is already treated as expired.
	RefreshBuffer time.Duration `json:"refresh_buffer"`
}

// NewCredentialStore creates a credential store from the authentication
// configuration.
func (a *AuthConfig) NewCredentialStore() (credstore.Store, error) {
	switch a.Storage {
	case CredentialStorageTypeFile:
		return credstore.NewFileStore(a.File)
	case CredentialStorageTypeKeyring:
		return credstore.NewKeyringStore(keyringService, a.KeyringUser)
	case CredentialStorageTypeMemory:
		return credstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", a.Storage)
	}
}

// Config holds the application's configuration.
type Config struct {
	LogLevel  string     `json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat LogFormat  `json:"log_format" validate:"oneof=text json"`
	API       APIConfig  `json:"api"`
	Auth      AuthConfig `json:"auth"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogLevel == "" {
		c.LogLevel = DefaultConfigLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultConfigAPIBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultConfigAPITimeout
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}
	if c.Auth.RefreshBuffer == 0 {
		c.Auth.RefreshBuffer = DefaultConfigRefreshBuffer
	}

	// Dynamic defaults based on storage type
	switch c.Auth.Storage {
	case CredentialStorageTypeFile:
		if c.Auth.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("auth.file required (auto-detect failed: %w)", err)
			}
			c.Auth.File = filepath.Join(configDir, "edulite", "credentials.json")
		}
	case CredentialStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Auth.KeyringUser = currentUser.Username
		}
	case CredentialStorageTypeMemory:
		// nothing to configure
	}

	return nil
}

// Validate validates the configuration using struct tags plus the
// storage-specific requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Auth.Storage {
	case CredentialStorageTypeFile:
		if c.Auth.File == "" {
			return errors.New("auth.file required for file storage")
		}
	case CredentialStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("auth.keyring_user required for keyring storage")
		}
	}

	if c.Auth.RefreshBuffer < 0 {
		return errors.New("auth.refresh_buffer must not be negative")
	}

	return nil
}

// SlogLevel converts the configured level name to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
