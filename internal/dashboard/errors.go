package dashboard

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized reports a missing or rejected session, or a failed CSRF check.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound reports a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrBillingUnavailable reports that the payment provider session could not be created.
	ErrBillingUnavailable = errors.New("billing unavailable")
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// APIError is returned for unexpected backend response statuses.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Is classifies the error by status code.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	default:
		return false
	}
}
