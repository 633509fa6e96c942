package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/dashctl/internal/app"
)

func proxyCommand() *cli.Command {
	return &cli.Command{
		Name:  "proxy",
		Usage: "local proxy that attaches the stored session and CSRF token",
		Commands: []*cli.Command{
			{
				Name: "start",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "server--host",
						Usage: "server host",
						Value: app.DefaultConfigServerHost,
					},
					&cli.IntFlag{
						Name:  "server--port",
						Usage: "server port",
						Value: int(app.DefaultConfigServerPort),
					},
					&cli.DurationFlag{
						Name:  "shutdown--timeout",
						Usage: "graceful shutdown timeout",
						Value: app.DefaultConfigShutdownTimeout,
					},
				},
				Action: proxyStartAction,
			},
		},
	}
}

func proxyStartAction(ctx context.Context, cmd *cli.Command) error {
	cfg, flush, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer flush()

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting")

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed to start: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
