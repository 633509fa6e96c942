package csrf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

const (
	// SecureCookieName is the token cookie set by deployments served over HTTPS.
	SecureCookieName = "__Secure-csrftoken"
	// CookieName is the token cookie set by plain HTTP deployments.
	CookieName = "csrftoken"
	// HeaderName carries the token on state-mutating requests.
	HeaderName = "X-CSRFToken"

	// DefaultEndpointPath is the token-issuing endpoint relative to the backend base URL.
	DefaultEndpointPath = "/api/csrf/"
)

// cookieNames lists the token cookies in priority order.
var cookieNames = []string{SecureCookieName, CookieName}

// issueKey is the only key ever used with the single-flight group, making it a single slot.
const issueKey = "csrf"

// unknownErrorText replaces the response text of a failed request whose body cannot be read.
const unknownErrorText = "Unknown error"

// StatusError reports a non-successful response from the token endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("csrf initialization failed: %d - %s", e.StatusCode, e.Body)
}

// Result is the outcome of a bootstrap request.
// Err is set when the request failed; Token may still be empty on success
// when the backend neither set a cookie nor returned a token.
type Result struct {
	Token string
	Err   error
}

// Available reports whether a token was obtained.
func (r Result) Available() bool {
	return r.Token != ""
}

// issueResponse is the JSON body returned by the token endpoint.
type issueResponse struct {
	CSRFToken string `json:"csrfToken"`
	Status    string `json:"status"`
}

// Option configures a Bootstrapper.
type Option func(*config)

type config struct {
	endpointPath string
}

// WithEndpointPath overrides the token endpoint path (default DefaultEndpointPath).
func WithEndpointPath(path string) Option {
	return func(c *config) {
		c.endpointPath = path
	}
}

// Bootstrapper guarantees a CSRF token is available before mutating requests are sent.
// It is safe for concurrent use.
type Bootstrapper struct {
	client   *http.Client
	endpoint *url.URL

	group    singleflight.Group
	inFlight atomic.Bool
}

// New creates a Bootstrapper issuing tokens from baseURL. The client must carry
// the cookie jar shared with the requests that consume the token.
func New(client *http.Client, baseURL string, opts ...Option) (*Bootstrapper, error) {
	if client == nil {
		return nil, errors.New("missing http client")
	}
	if client.Jar == nil {
		return nil, errors.New("http client has no cookie jar")
	}

	cfg := &config{endpointPath: DefaultEndpointPath}
	for _, opt := range opts {
		opt(cfg)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}
	if _, err := url.Parse(cfg.endpointPath); err != nil {
		return nil, fmt.Errorf("invalid endpoint path: %w", err)
	}

	return &Bootstrapper{
		client: client,
		// Relative to the base path, like every other backend request
		endpoint: base.JoinPath(cfg.endpointPath),
	}, nil
}

// Endpoint returns the URL of the token-issuing endpoint.
func (b *Bootstrapper) Endpoint() *url.URL {
	u := *b.endpoint
	return &u
}

// ReadToken returns the token currently held in the cookie jar, or an empty
// string when neither token cookie is set.
func (b *Bootstrapper) ReadToken() string {
	token := b.cookieToken()
	if token == "" {
		slog.Debug("csrf token not found in cookies", "endpoint", b.endpoint.String())
	}
	return token
}

func (b *Bootstrapper) cookieToken() string {
	cookies := b.client.Jar.Cookies(b.endpoint)
	for _, name := range cookieNames {
		for _, c := range cookies {
			if c.Name == name && c.Value != "" {
				return c.Value
			}
		}
	}
	return ""
}

// attachCookies adds the jar's token cookies to req unless req already carries them.
func (b *Bootstrapper) attachCookies(req *http.Request) {
	for _, c := range b.client.Jar.Cookies(req.URL) {
		if !slices.Contains(cookieNames, c.Name) {
			continue
		}
		if _, err := req.Cookie(c.Name); err == nil {
			continue
		}
		req.AddCookie(c)
	}
}

// InFlight reports whether a token request is currently outstanding.
func (b *Bootstrapper) InFlight() bool {
	return b.inFlight.Load()
}

// EnsureInitialized obtains a token unless one is already present.
// Failure is logged, never returned.
func (b *Bootstrapper) EnsureInitialized(ctx context.Context) {
	if b.cookieToken() != "" {
		return
	}

	if res := b.Issue(ctx); res.Err != nil {
		slog.WarnContext(ctx, "failed to initialize csrf token", "error", res.Err)
	}
}

// IssueToken requests a fresh token and returns it, or an empty string if none
// could be obtained. Concurrent calls share a single request.
func (b *Bootstrapper) IssueToken(ctx context.Context) string {
	return b.Issue(ctx).Token
}

// Issue requests a fresh token. While a request is outstanding every caller
// receives that request's result. A caller whose context ends stops waiting,
// but the shared request keeps running for the others.
func (b *Bootstrapper) Issue(ctx context.Context) Result {
	// Detached so no single caller can abort the request other callers wait on.
	reqCtx := context.WithoutCancel(ctx)

	ch := b.group.DoChan(issueKey, func() (any, error) {
		b.inFlight.Store(true)
		// Runs before singleflight releases waiters and frees the slot.
		defer b.inFlight.Store(false)

		token, err := b.fetch(reqCtx)
		if err != nil {
			slog.ErrorContext(reqCtx, "failed to initialize csrf token", "error", err)
			return "", err
		}
		return token, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Result{Err: res.Err}
		}
		token, _ := res.Val.(string)
		return Result{Token: token}
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

// fetch performs the token request.
func (b *Bootstrapper) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting csrf token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := unknownErrorText
		if body, err := io.ReadAll(resp.Body); err == nil {
			text = string(body)
		}
		return "", &StatusError{StatusCode: resp.StatusCode, Body: text}
	}

	var data issueResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decoding csrf response: %w", err)
	}

	slog.DebugContext(ctx, "csrf endpoint responded", "status", data.Status, "has_token", data.CSRFToken != "")

	// Neither marker present: warn, then still try the cookie.
	if data.CSRFToken == "" && data.Status != "ok" {
		slog.WarnContext(ctx, "unexpected csrf response format", "status", data.Status)
	}

	// The client stored the response's Set-Cookie in the jar.
	if token := b.cookieToken(); token != "" {
		return token, nil
	}
	return data.CSRFToken, nil
}
