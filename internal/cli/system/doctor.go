package system

import (
	"fmt"

	"github.com/julianstephens/habitline/internal/backup"
	"github.com/julianstephens/habitline/internal/cli"
	"github.com/julianstephens/habitline/internal/config"
	"github.com/julianstephens/habitline/internal/notifier"
	"github.com/julianstephens/habitline/internal/storage"
	"github.com/julianstephens/habitline/internal/validation"
)

type DoctorCmd struct {
	Fix bool `help:"Repair duplicate and unsorted completions (a backup is taken first)."`
}

type check struct {
	name string
	run  func(ctx *cli.Context) error
	// warnOnly checks are reported but never fail the run.
	warnOnly bool
	needsDB  bool
}

// schemaReporter is implemented by the SQL backends.
type schemaReporter interface {
	SchemaStatus() (current, latest int, err error)
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	checks := []check{
		{name: "Store reachable", run: func(ctx *cli.Context) error { return ctx.Open() }},
		{name: "Schema version", run: checkSchemaVersion, needsDB: true},
		{name: "Habit data", run: cmd.checkHabits, needsDB: true},
		{name: "Backups present", run: checkBackupsPresent, warnOnly: true},
		{name: "Notifier", run: checkNotifier, warnOnly: true},
	}

	hasError := false
	dbReachable := true
	for _, c := range checks {
		if c.needsDB && !dbReachable {
			fmt.Printf("⊘ %s: SKIPPED (store not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
			if c.name == "Store reachable" {
				dbReachable = false
			}
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	fmt.Println("All diagnostics passed!")
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	kv, ok := ctx.Store.(interface{ Backend() storage.Backend })
	if !ok {
		return nil
	}
	reporter, ok := kv.Backend().(schemaReporter)
	if !ok {
		// JSON stores have no schema
		return nil
	}
	current, latest, err := reporter.SchemaStatus()
	if err != nil {
		return err
	}
	if current > latest {
		return fmt.Errorf("store schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

// checkHabits validates the stored habits, which may differ from what the
// repository loaded because Load drops duplicate ids.
func (cmd *DoctorCmd) checkHabits(ctx *cli.Context) error {
	habits, err := ctx.Store.LoadHabits()
	if err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}
	v := validation.New(ctx.Calendar)
	result := v.ValidateHabits(habits)
	if !result.HasConflicts() {
		return nil
	}
	fmt.Print(result.FormatReport())

	if cmd.Fix {
		fixed, actions := v.AutoFix(habits, result)
		if len(actions) > 0 {
			ctx.PerformAutomaticBackup()
			if err := ctx.Repo.ReplaceAll(fixed); err != nil {
				return fmt.Errorf("failed to save repaired habits: %w", err)
			}
			for _, a := range actions {
				fmt.Printf("   fixed: %s\n", a.Action)
			}
			result = v.ValidateHabits(fixed)
		}
	}

	if result.HasErrors() {
		return fmt.Errorf("%d conflict(s) found", len(result.Conflicts))
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if ctx.Config != nil && ctx.Config.Storage.Driver == config.DriverPostgres {
		return nil
	}
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'habitline backup create'")
	}
	return nil
}

func checkNotifier(ctx *cli.Context) error {
	if ctx.Config != nil && ctx.Config.Notifier.DryRun {
		return nil
	}
	if ctx.Sender != nil {
		return nil
	}
	if err := notifier.NewTrayNotifier().Available(); err != nil {
		return fmt.Errorf("tray app not reachable, reminders will not be shown: %v", err)
	}
	return nil
}
