// Package proxy serves a local reverse proxy in front of the backend.
//
// A local frontend talks to the proxy as if it were the backend. The proxy owns
// the session: inbound cookies are dropped, the stored session cookies are
// attached instead, and Set-Cookie responses update the stored session. Unsafe
// requests get the bootstrapped CSRF token and the backend's own Origin, so the
// backend's CSRF validation passes without the frontend handling either.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/florianilch/dashctl/internal/csrf"
)

// forwardedPrefixes are the backend path prefixes served through the proxy.
var forwardedPrefixes = []string{"/api/", "/_allauth/", "/payments/"}

// Option configures a Proxy.
type Option func(*config)

type config struct {
	baseURL   string
	transport http.RoundTripper
}

// WithBaseURL sets the backend base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithTransport sets the transport used for upstream requests.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *config) {
		c.transport = transport
	}
}

// Proxy represents the local reverse proxy server
type Proxy struct {
	mux    *http.ServeMux
	server *http.Server
	source *csrf.Bootstrapper
}

// Compile-time check that Proxy implements http.Handler
var _ http.Handler = (*Proxy)(nil)

// New creates a reverse proxy to the backend. source and jar must share the same cookies.
func New(source *csrf.Bootstrapper, jar http.CookieJar, opts ...Option) (*Proxy, error) {
	if source == nil {
		return nil, errors.New("missing csrf bootstrapper")
	}
	if jar == nil {
		return nil, errors.New("missing cookie jar")
	}

	cfg := &config{transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(cfg)
	}

	upstream, err := url.Parse(cfg.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q: scheme and host required", cfg.baseURL)
	}

	transport := &csrf.Transport{
		Source: source,
		Base:   &cookieTransport{jar: jar, base: cfg.transport},
	}

	reverseProxyHandler := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.Out.Host = upstream.Host

			// The proxy's session and origin replace whatever the local client sent.
			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del("Origin")
			pr.Out.Header.Del("Referer")
			pr.Out.Header.Del(csrf.HeaderName)
		},
		// Flush as soon as the backend does.
		FlushInterval: -1,
		Transport:     transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.ErrorContext(r.Context(), "upstream request failed", "error", err)
			writeJSONError(r.Context(), w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		},
	}

	logger := slog.Default()

	p := &Proxy{
		mux:    http.NewServeMux(),
		source: source,
	}

	forward := applyMiddlewares(reverseProxyHandler,
		RequestID,
		Logging(logger),
		Recovery,
	)
	for _, prefix := range forwardedPrefixes {
		p.mux.Handle(prefix, forward)
	}

	p.mux.Handle("GET /healthz", applyMiddlewares(http.HandlerFunc(p.health), Recovery))

	return p, nil
}

// healthResponse reports proxy liveness and whether a CSRF token is held.
type healthResponse struct {
	Status string `json:"status"`
	CSRF   bool   `json:"csrf"`
}

func (p *Proxy) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, healthResponse{Status: "ok", CSRF: p.source.ReadToken() != ""}, http.StatusOK)
}

// ServeHTTP implements http.Handler interface
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mux.ServeHTTP(w, r)
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors (network failures during operation) are sent to the error channel.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (p *Proxy) Start(ctx context.Context, address string) (<-chan error, error) {
	// Create listener synchronously to catch port-in-use errors immediately
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	p.server = &http.Server{
		Handler:           p,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       90 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := p.server.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Shutdown performs graceful shutdown of the HTTP server.
// Returns error if shutdown fails or times out.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}

	if err := p.server.Shutdown(ctx); err != nil {
		// Graceful shutdown failed - force close
		_ = p.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
