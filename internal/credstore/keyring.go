package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps the credential pair in OS-native secure storage.
// Uses macOS Keychain, Windows Credential Manager, or Linux Secret Service.
// The pair is serialized as a single JSON secret so both credentials are
// always replaced or removed together.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements Store
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore for the OS-native credential
// storage using the given service and user identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{
		service: service,
		user:    user,
	}, nil
}

// Load returns the pair from the system keyring, or a zero Pair when no
// secret exists for this service/user.
func (k *KeyringStore) Load(ctx context.Context) (Pair, error) {
	if err := ctx.Err(); err != nil {
		return Pair{}, err
	}

	secret, err := keyring.Get(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return Pair{}, nil
	}
	if err != nil {
		return Pair{}, err
	}

	var pair Pair
	if err := json.Unmarshal([]byte(secret), &pair); err != nil {
		return Pair{}, fmt.Errorf("corrupt keyring entry for service %s, user %s: %w", k.service, k.user, err)
	}
	return pair, nil
}

// Save persists the pair to the system keyring, overwriting any existing
// secret.
func (k *KeyringStore) Save(ctx context.Context, pair Pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	secret, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	return keyring.Set(k.service, k.user, string(secret))
}

// Clear removes the secret from the system keyring. Idempotent.
func (k *KeyringStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := keyring.Delete(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
