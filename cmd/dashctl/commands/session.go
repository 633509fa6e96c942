package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/dashctl/internal/dashboard"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "log in with email and password and store the session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Usage:    "account email",
				Required: true,
			},
		},
		Action: withClients(loginAction),
	}
}

func loginAction(ctx context.Context, cmd *cli.Command, e *cmdEnv) error {
	if !e.cfg.Session.Writable() {
		return fmt.Errorf("session storage %q is read-only", e.cfg.Session.Storage)
	}

	password, err := readPassword(e.in, e.out)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	creds := dashboard.Credentials{Email: cmd.String("email"), Password: password}
	if err := e.clients.Dashboard.Login(ctx, creds); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	_, err = fmt.Fprintf(e.out, "Logged in as %s\n", creds.Email)
	return err
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "end the session and forget stored cookies",
		Action: withClients(logoutAction),
	}
}

func logoutAction(ctx context.Context, _ *cli.Command, e *cmdEnv) error {
	if err := e.clients.Dashboard.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	e.clients.Jar.Clear()

	_, err := fmt.Fprintln(e.out, "Logged out")
	return err
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "show the logged-in user",
		Action: withClients(whoamiAction),
	}
}

func whoamiAction(ctx context.Context, _ *cli.Command, e *cmdEnv) error {
	user, err := e.clients.Dashboard.User(ctx)
	if err != nil {
		return err
	}

	membership := "none"
	switch {
	case user.MembershipPaused:
		membership = "paused"
	case user.HasMembership:
		membership = "active"
	}
	if s := user.Subscription; s != nil && s.CancelAtPeriodEnd && s.CurrentPeriodEnd != nil {
		membership += " (ends " + *s.CurrentPeriodEnd + ")"
	}

	_, err = fmt.Fprintf(e.out, "%s <%s>\nmembership: %s\n", user.Name, user.Email, membership)
	return err
}
