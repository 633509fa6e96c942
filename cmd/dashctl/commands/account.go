package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
)

func membershipCommand() *cli.Command {
	return &cli.Command{
		Name:  "membership",
		Usage: "manage the membership",
		Commands: []*cli.Command{
			{
				Name:   "cancel",
				Usage:  "cancel access at the end of the billing period",
				Action: withClients(membershipCancelAction),
			},
		},
	}
}

func membershipCancelAction(ctx context.Context, _ *cli.Command, e *cmdEnv) error {
	message, err := e.clients.Dashboard.CancelAccess(ctx)
	if err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}
	_, err = fmt.Fprintln(e.out, message)
	return err
}

func billingCommand() *cli.Command {
	return &cli.Command{
		Name:  "billing",
		Usage: "open billing pages",
		Commands: []*cli.Command{
			{
				Name:      "checkout",
				Usage:     "print the checkout URL for a price",
				ArgsUsage: "<price-id>",
				Action:    withClients(billingCheckoutAction),
			},
			{
				Name:   "portal",
				Usage:  "print the customer portal URL",
				Action: withClients(billingPortalAction),
			},
		},
	}
}

func billingCheckoutAction(ctx context.Context, cmd *cli.Command, e *cmdEnv) error {
	priceID := cmd.Args().First()
	if priceID == "" {
		return errors.New("missing price id")
	}

	target, err := e.clients.Dashboard.CheckoutURL(ctx, priceID)
	if err != nil {
		return fmt.Errorf("checkout failed: %w", err)
	}
	_, err = fmt.Fprintln(e.out, target)
	return err
}

func billingPortalAction(ctx context.Context, _ *cli.Command, e *cmdEnv) error {
	target, err := e.clients.Dashboard.PortalURL(ctx)
	if err != nil {
		return fmt.Errorf("portal failed: %w", err)
	}
	_, err = fmt.Fprintln(e.out, target)
	return err
}
