package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// User returns the authenticated user with membership and subscription state.
func (c *Client) User(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/user/", nil, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// CancelAccess revokes the current user's membership. The backend only honors
// it in debug mode and otherwise answers with an explanatory message.
func (c *Client) CancelAccess(ctx context.Context) (string, error) {
	var resp messageResponse
	if err := c.do(ctx, c.httpClient, http.MethodPost, "/api/debug/cancel-access/", nil, &resp, http.StatusOK); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// CheckoutURL starts a subscription checkout for priceID and returns the
// payment page the backend redirects to.
func (c *Client) CheckoutURL(ctx context.Context, priceID string) (string, error) {
	if priceID == "" {
		return "", errors.New("price id cannot be empty")
	}
	return c.redirectTarget(ctx, "/payments/checkout/"+url.PathEscape(priceID)+"/")
}

// PortalURL returns the billing portal the backend redirects to.
func (c *Client) PortalURL(ctx context.Context) (string, error) {
	return c.redirectTarget(ctx, "/payments/customer-portal/")
}

// redirectTarget returns the 303 target of a billing endpoint. The backend
// answers with a 302 to the frontend when the payment provider is unavailable.
func (c *Client) redirectTarget(ctx context.Context, path string) (string, error) {
	header, status, err := c.send(ctx, c.noRedirect, http.MethodGet, path, nil, nil,
		http.StatusSeeOther, http.StatusFound)
	if err != nil {
		return "", err
	}

	location := header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("GET %s: redirect without location", path)
	}

	// Relative targets resolve against the backend
	target, err := c.baseURL.Parse(location)
	if err != nil {
		return "", fmt.Errorf("GET %s: invalid redirect location: %w", path, err)
	}

	if status == http.StatusFound {
		slog.WarnContext(ctx, "billing endpoint fell back to frontend", "path", path, "location", target.String())
		return "", fmt.Errorf("GET %s: %w", path, ErrBillingUnavailable)
	}
	return target.String(), nil
}
