package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/habitline/internal/cli"
	"github.com/julianstephens/habitline/internal/daemon"
	"github.com/julianstephens/habitline/internal/logger"
)

type DaemonCmd struct {
	Dispatch string `help:"Override the delivery schedule (cron syntax)."`
}

func (c *DaemonCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}

	opts := daemon.Options{
		DispatchSchedule: ctx.Config.Daemon.DispatchSchedule,
		RolloverSchedule: ctx.Config.Daemon.RolloverSchedule,
		Location:         ctx.Calendar.Location(),
		Reload:           ctx.Reload,
	}
	if c.Dispatch != "" {
		opts.DispatchSchedule = c.Dispatch
	}
	d := daemon.New(opts, ctx.Center, ctx.Policy, logger.With("daemon"))

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx.Policy.RescheduleAll()
	fmt.Printf("habitline daemon running (delivery %q, rollover %q). Press Ctrl+C to stop.\n",
		opts.DispatchSchedule, opts.RolloverSchedule)
	return d.Run(runCtx)
}
