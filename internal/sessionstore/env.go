package sessionstore

import (
	"context"
	"fmt"
	"os"
)

// EnvStore provides read-only access to a session stored in an environment variable.
type EnvStore struct {
	envKey string
}

// Compile-time check to ensure EnvStore implements SessionStore
var _ SessionStore = (*EnvStore)(nil)

// NewEnvStore creates an EnvStore for the given environment variable.
func NewEnvStore(envKey string) (*EnvStore, error) {
	if envKey == "" {
		return nil, fmt.Errorf("environment key cannot be empty")
	}

	return &EnvStore{
		envKey: envKey,
	}, nil
}

// Read returns the session from the environment variable.
// An unset or empty variable reads as ErrNotFound.
func (e *EnvStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	session := os.Getenv(e.envKey)
	if session == "" {
		return "", fmt.Errorf("environment variable %s: %w", e.envKey, ErrNotFound)
	}
	return session, nil
}

// Write is not supported for environment variables.
func (e *EnvStore) Write(ctx context.Context, session string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return ErrReadOnly
}
