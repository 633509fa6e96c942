package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
)

func csrfCommand() *cli.Command {
	return &cli.Command{
		Name:  "csrf",
		Usage: "inspect the CSRF token",
		Commands: []*cli.Command{
			{
				Name:  "token",
				Usage: "print the CSRF token, bootstrapping one if needed",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "ask the backend for a token even if one is stored",
					},
				},
				Action: withClients(csrfTokenAction),
			},
		},
	}
}

func csrfTokenAction(ctx context.Context, cmd *cli.Command, e *cmdEnv) error {
	if !cmd.Bool("refresh") {
		if token := e.clients.CSRF.ReadToken(); token != "" {
			_, err := fmt.Fprintln(e.out, token)
			return err
		}
	}

	result := e.clients.CSRF.Issue(ctx)
	if !result.Available() {
		if result.Err != nil {
			return fmt.Errorf("csrf bootstrap failed: %w", result.Err)
		}
		return errors.New("backend issued no csrf token")
	}

	_, err := fmt.Fprintln(e.out, result.Token)
	return err
}
