package sessionstore

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// storedCookie is the persisted form of a session cookie.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// Encode serializes cookies for storage.
func Encode(cookies []*http.Cookie) (string, error) {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	return string(data), nil
}

// Decode parses a stored session. It accepts the JSON form produced by Encode
// or a Cookie header value ("sessionid=abc; csrftoken=def").
// Cookies that have already expired are dropped.
func Decode(session string) ([]*http.Cookie, error) {
	session = strings.TrimSpace(session)
	if session == "" {
		return nil, nil
	}

	if !strings.HasPrefix(session, "[") {
		cookies, err := http.ParseCookie(session)
		if err != nil {
			return nil, fmt.Errorf("parsing cookie header: %w", err)
		}
		return cookies, nil
	}

	var stored []storedCookie
	if err := json.Unmarshal([]byte(session), &stored); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}

	now := time.Now()
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		if !s.Expires.IsZero() && !s.Expires.After(now) {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:     s.Name,
			Value:    s.Value,
			Path:     s.Path,
			Domain:   s.Domain,
			Expires:  s.Expires,
			Secure:   s.Secure,
			HttpOnly: s.HttpOnly,
		})
	}
	return cookies, nil
}
