package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitline/internal/cli"
	"github.com/julianstephens/habitline/internal/notifier"
)

// NotifyCmd delivers due reminders once. It is meant to be run from cron or
// the tray app when the daemon is not used.
type NotifyCmd struct {
	DryRun bool `help:"Print notifications to stdout instead of sending them."`
}

func (c *NotifyCmd) Run(ctx *cli.Context) error {
	if c.DryRun {
		ctx.Sender = notifier.StdoutSender{}
	}
	if err := ctx.Open(); err != nil {
		return err
	}

	// Picks up habits whose day started since the last run.
	ctx.Policy.Refresh()

	n, err := ctx.Center.Dispatch(context.Background())
	if c.DryRun {
		fmt.Printf("%d notification(s) due.\n", n)
	}
	if err != nil {
		return fmt.Errorf("failed to send notifications: %w", err)
	}
	return nil
}
