package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/florianilch/dashctl/internal/csrf"
	"github.com/florianilch/dashctl/internal/dashboard"
	"github.com/florianilch/dashctl/internal/proxy"
)

// Clients bundles the components that talk to the backend. They share one cookie jar,
// so the session and the CSRF token seen by each of them are the same.
type Clients struct {
	Jar       *PersistentJar
	CSRF      *csrf.Bootstrapper
	Dashboard *dashboard.Client

	// transport is the base transport shared by every backend client.
	transport http.RoundTripper
}

// NewClients builds the backend clients from configuration.
// No I/O is performed; the stored session is loaded on first use.
func NewClients(cfg *Config) (*Clients, error) {
	store, err := cfg.Session.NewSessionStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	jar, err := NewPersistentJar(store, cfg.Backend.BaseURL, cfg.Session.Writable())
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	bootstrapper, err := csrf.New(
		&http.Client{Jar: jar, Transport: transport, Timeout: cfg.Backend.Timeout},
		cfg.Backend.BaseURL,
		csrf.WithEndpointPath(cfg.Backend.CSRFPath),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create csrf bootstrapper: %w", err)
	}

	apiClient := &http.Client{
		Jar:       jar,
		Transport: &csrf.Transport{Source: bootstrapper, Base: transport},
		Timeout:   cfg.Backend.Timeout,
	}
	dashboardClient, err := dashboard.New(apiClient, cfg.Backend.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard client: %w", err)
	}

	return &Clients{
		Jar:       jar,
		CSRF:      bootstrapper,
		Dashboard: dashboardClient,
		transport: transport,
	}, nil
}

// App orchestrates the lifecycle of the local proxy server.
type App struct {
	cfg     *Config
	clients *Clients
	proxy   *proxy.Proxy
}

// New creates a new App instance.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	clients, err := NewClients(cfg)
	if err != nil {
		return nil, err
	}

	proxyServer, err := proxy.New(clients.CSRF, clients.Jar,
		proxy.WithBaseURL(cfg.Backend.BaseURL),
		proxy.WithTransport(clients.transport),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}

	return &App{
		cfg:     cfg,
		clients: clients,
		proxy:   proxyServer,
	}, nil
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	address := a.cfg.Server.Host + ":" + strconv.FormatUint(uint64(a.cfg.Server.Port), 10)
	var shutdownFuncs []func(context.Context) error

	// Bootstrap before serving so the first proxied mutation does not pay for it.
	a.clients.CSRF.EnsureInitialized(gCtx)

	slog.InfoContext(gCtx, "starting proxy server", "address", address, "backend", a.cfg.Backend.BaseURL)
	proxyErrCh, err := a.proxy.Start(gCtx, address)
	if err != nil {
		return fmt.Errorf("proxy startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.proxy.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-proxyErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "proxy runtime error", "error", err)
				return fmt.Errorf("proxy: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "application ready", "address", address)

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
