package sessionstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read when no session has been stored yet.
var ErrNotFound = errors.New("no stored session")

// ErrReadOnly is returned by Write on stores that cannot be written.
var ErrReadOnly = errors.New("session storage is read-only")

// ErrSessionTooLarge is returned by Write when the backend cannot hold the encoded session.
var ErrSessionTooLarge = errors.New("session too large for storage")

// SessionStore reads and writes the serialized session to persistent storage.
type SessionStore interface {
	// Read returns the stored session. Returns ErrNotFound if nothing is stored.
	Read(ctx context.Context) (string, error)

	// Write persists the session. Returns ErrReadOnly if the backend
	// is read-only (e.g., environment variables) or an error if the write fails.
	Write(ctx context.Context, session string) error
}
