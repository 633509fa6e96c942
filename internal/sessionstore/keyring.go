package sessionstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps the encoded cookie session as a single secret in the OS
// keyring (macOS Keychain, Windows Credential Manager, Linux Secret Service),
// under a fixed service name and the configured user.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements SessionStore
var _ SessionStore = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore for the given service and user identifiers.
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

// Read returns the encoded session. A missing or empty secret means no stored
// session (ErrNotFound).
func (k *KeyringStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	session, err := keyring.Get(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("keyring service %s, user %s: %w", k.service, k.user, ErrNotFound)
	}
	if err != nil {
		return "", err
	}

	if session == "" {
		return "", fmt.Errorf("empty session in keyring for service %s, user %s: %w", k.service, k.user, ErrNotFound)
	}

	return session, nil
}

// Write replaces the stored session. Some platforms cap secret sizes; a session
// over the cap yields ErrSessionTooLarge.
func (k *KeyringStore) Write(ctx context.Context, session string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := keyring.Set(k.service, k.user, session)
	if errors.Is(err, keyring.ErrSetDataTooBig) {
		return fmt.Errorf("%d byte session for service %s: %w", len(session), k.service, ErrSessionTooLarge)
	}
	return err
}
