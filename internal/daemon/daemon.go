// Package daemon runs the periodic jobs a long-lived habitline process
// needs: delivering due reminders and rebuilding them after midnight.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	applogger "github.com/julianstephens/habitline/internal/logger"
)

// jobTimeout bounds a single job run.
const jobTimeout = 2 * time.Minute

type Dispatcher interface {
	Dispatch(ctx context.Context) (int, error)
}

type Rescheduler interface {
	RescheduleAll()
}

type Options struct {
	DispatchSchedule string
	RolloverSchedule string
	Location         *time.Location
	// Reload is called before the rollover job so habits changed by other
	// processes are picked up. Optional.
	Reload func() error
}

type Daemon struct {
	cron       *cron.Cron
	opts       Options
	dispatcher Dispatcher
	policy     Rescheduler
	log        *log.Logger
}

func New(opts Options, dispatcher Dispatcher, policy Rescheduler, logger *log.Logger) *Daemon {
	if logger == nil {
		logger = applogger.Get()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	cl := cronLogger{logger}
	return &Daemon{
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		opts:       opts,
		dispatcher: dispatcher,
		policy:     policy,
		log:        logger,
	}
}

// Start registers the jobs and starts the scheduler.
func (d *Daemon) Start() error {
	if _, err := d.cron.AddFunc(d.opts.DispatchSchedule, func() { d.Tick(context.Background()) }); err != nil {
		return fmt.Errorf("failed to add dispatch job: %w", err)
	}
	if _, err := d.cron.AddFunc(d.opts.RolloverSchedule, func() { d.Rollover(context.Background()) }); err != nil {
		return fmt.Errorf("failed to add rollover job: %w", err)
	}
	d.cron.Start()
	d.log.Info("Daemon started", "dispatch", d.opts.DispatchSchedule, "rollover", d.opts.RolloverSchedule)
	return nil
}

// Stop waits for running jobs to finish.
func (d *Daemon) Stop() {
	<-d.cron.Stop().Done()
	d.log.Info("Daemon stopped")
}

// Run starts the daemon and blocks until ctx is done. Due reminders are
// delivered once right away so a restart does not wait a full interval.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(); err != nil {
		return err
	}
	d.Tick(ctx)
	<-ctx.Done()
	d.Stop()
	return nil
}

func (d *Daemon) reload() {
	if d.opts.Reload == nil {
		return
	}
	if err := d.opts.Reload(); err != nil {
		d.log.Warn("Failed to reload habits", "error", err)
	}
}

// Tick delivers due reminders and returns how many were sent.
func (d *Daemon) Tick(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	n, err := d.dispatcher.Dispatch(ctx)
	if err != nil {
		d.log.Warn("Reminder delivery failed", "error", err)
	}
	if n > 0 {
		d.log.Info("Delivered reminders", "count", n)
	}
	return n
}

// Rollover rebuilds every reminder for the new day.
func (d *Daemon) Rollover(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	d.reload()
	d.policy.RescheduleAll()
}

// cronLogger adapts charmbracelet/log to cron.Logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
