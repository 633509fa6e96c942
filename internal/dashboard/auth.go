package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Headless authentication endpoints for browser-style (cookie) sessions.
const (
	authLoginPath   = "/_allauth/browser/v1/auth/login"
	authSessionPath = "/_allauth/browser/v1/auth/session"
)

// Login authenticates with email and password. On success the backend sets the
// session cookie in the client's jar.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	if err := c.validate.Struct(creds); err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}

	return c.do(ctx, c.httpClient, http.MethodPost, authLoginPath, creds, nil, http.StatusOK)
}

// Authenticated reports whether the current session is logged in.
func (c *Client) Authenticated(ctx context.Context) (bool, error) {
	err := c.do(ctx, c.httpClient, http.MethodGet, authSessionPath, nil, nil, http.StatusOK)
	var apiErr *APIError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		return false, nil
	default:
		return false, err
	}
}

// Logout ends the current session.
func (c *Client) Logout(ctx context.Context) error {
	// The headless API answers 401 once the session is gone
	return c.do(ctx, c.httpClient, http.MethodDelete, authSessionPath, nil, nil, http.StatusOK, http.StatusUnauthorized)
}
