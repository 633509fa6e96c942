package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/dashctl/internal/app"
	"github.com/florianilch/dashctl/internal/dashboard"
	"github.com/florianilch/dashctl/internal/observability"
)

// flushTimeout bounds how long buffered log records may delay exit.
const flushTimeout = 5 * time.Second

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	return newRootCommand().Run(ctx, args)
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "dashctl",
		Usage: "Dashboard client with CSRF bootstrap and session persistence",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json|otel|otlp-http|otlp-grpc)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "backend--base-url",
				Usage: "backend base URL",
				Value: app.DefaultConfigBackendBaseURL,
			},
			&cli.DurationFlag{
				Name:  "backend--timeout",
				Usage: "timeout for each backend request",
				Value: app.DefaultConfigBackendTimeout,
			},
			&cli.StringFlag{
				Name:  "session--storage",
				Usage: "session storage (file|env|keyring|memory)",
				Value: string(app.DefaultConfigSessionStorage),
			},
		},
		Commands: []*cli.Command{
			csrfCommand(),
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			todosCommand(),
			membershipCommand(),
			billingCommand(),
			proxyCommand(),
		},
	}
}

// cmdEnv is what a command action gets to work with.
type cmdEnv struct {
	cfg     *app.Config
	clients *app.Clients
	out     io.Writer
	in      io.Reader
}

// setup loads configuration and installs logging. The returned func flushes logs.
func setup(ctx context.Context, cmd *cli.Command) (*app.Config, func(), error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	shutdown, err := observability.Instrument(ctx, cfg.LogLevel, string(cfg.LogFormat))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	flush := func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			fmt.Fprintln(os.Stderr, "failed to flush logs:", err)
		}
	}
	return cfg, flush, nil
}

// withClients wraps an action that talks to the backend.
func withClients(action func(ctx context.Context, cmd *cli.Command, e *cmdEnv) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, flush, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		defer flush()

		clients, err := app.NewClients(cfg)
		if err != nil {
			return fmt.Errorf("failed to create clients: %w", err)
		}

		root := cmd.Root()
		err = action(ctx, cmd, &cmdEnv{cfg: cfg, clients: clients, out: root.Writer, in: root.Reader})
		if errors.Is(err, dashboard.ErrUnauthorized) {
			return fmt.Errorf("not logged in, run '%s login': %w", root.Name, err)
		}
		return err
	}
}
