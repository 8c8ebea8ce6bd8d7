package habits

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/habitline/internal/calendar"
	"github.com/julianstephens/habitline/internal/cli"
	"github.com/julianstephens/habitline/internal/config"
	"github.com/julianstephens/habitline/internal/constants"
	"github.com/julianstephens/habitline/internal/models"
	"github.com/julianstephens/habitline/internal/notifier"
	"github.com/julianstephens/habitline/internal/reminders"
	"github.com/julianstephens/habitline/internal/storage"
)

// Sunday 2024-03-10 09:00 UTC.
var testNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func setupTestContext(t *testing.T) (*cli.Context, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Calendar.Timezone = "UTC"
	cfg.Calendar.FirstWeekday = "monday"

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := storage.NewSQLiteStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	return &cli.Context{
		Config: &cfg,
		Store:  store,
		Clock:  calendar.NewFixedClock(testNow),
		Sender: notifier.StdoutSender{W: io.Discard},
	}, dbPath
}

func pendingKeys(t *testing.T, ctx *cli.Context) map[string]bool {
	t.Helper()
	keys, err := ctx.Center.ListPending()
	if err != nil {
		t.Fatalf("failed to list pending: %v", err)
	}
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k] = true
	}
	return out
}

func TestHabitAddCmd(t *testing.T) {
	ctx, _ := setupTestContext(t)

	cmd := &HabitAddCmd{
		Title:     "Gym",
		Priority:  "high",
		Frequency: "every 2 days",
		Goal:      3,
		Period:    "week",
		Reminder:  "18:30",
	}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("add command failed: %v", err)
	}

	habits := ctx.Repo.List()
	if len(habits) != 1 {
		t.Fatalf("got %d habits, want 1", len(habits))
	}
	h := habits[0]
	if h.Priority != models.PriorityHigh || h.Frequency != models.Custom(2, models.UnitDays) {
		t.Errorf("habit = %+v", h)
	}
	if h.Goal != (models.Goal{Target: 3, Period: models.PeriodWeek}) || !h.HasReminder() {
		t.Errorf("habit goal/reminder = %+v / %v", h.Goal, cli.FormatReminder(h))
	}
	if !pendingKeys(t, ctx)[reminders.PreferredKey(h.ID)] {
		t.Error("adding a habit with a reminder should schedule it")
	}

	// Persisted through the store
	stored, err := ctx.Store.LoadHabits()
	if err != nil || len(stored) != 1 {
		t.Errorf("stored habits = %d, %v", len(stored), err)
	}
}

func TestHabitAddCmd_Rejects(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&HabitAddCmd{Title: "Read", Priority: "medium", Frequency: "daily", Goal: 1, Period: "day"}).Run(ctx); err != nil {
		t.Fatalf("add command failed: %v", err)
	}

	tests := []struct {
		name string
		cmd  HabitAddCmd
	}{
		{"duplicate title", HabitAddCmd{Title: "read", Priority: "medium", Frequency: "daily", Goal: 1, Period: "day"}},
		{"empty title", HabitAddCmd{Title: "  ", Priority: "medium", Frequency: "daily", Goal: 1, Period: "day"}},
		{"zero goal", HabitAddCmd{Title: "Walk", Priority: "medium", Frequency: "daily", Goal: 0, Period: "day"}},
		{"bad frequency", HabitAddCmd{Title: "Walk", Priority: "medium", Frequency: "hourly", Goal: 1, Period: "day"}},
		{"bad reminder", HabitAddCmd{Title: "Walk", Priority: "medium", Frequency: "daily", Goal: 1, Period: "day", Reminder: "7pm"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.Run(ctx); err == nil {
				t.Error("expected an error")
			}
		})
	}
	if n := len(ctx.Repo.List()); n != 1 {
		t.Errorf("got %d habits after rejected adds, want 1", n)
	}
}

func TestHabitToggleCmd(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&HabitAddCmd{Title: "Read", Priority: "medium", Frequency: "daily", Goal: 1, Period: "day", Reminder: "20:00"}).Run(ctx); err != nil {
		t.Fatalf("add command failed: %v", err)
	}
	h := ctx.Repo.List()[0]

	if err := (&HabitToggleCmd{Habit: "Read"}).Run(ctx); err != nil {
		t.Fatalf("toggle command failed: %v", err)
	}
	got, _ := ctx.Repo.Get(h.ID)
	if !got.IsCompletedToday(ctx.Calendar) {
		t.Error("habit should be completed after toggle")
	}
	if pendingKeys(t, ctx)[reminders.PreferredKey(h.ID)] {
		t.Error("completed habit should have no reminder")
	}

	if err := (&HabitToggleCmd{Habit: h.ID}).Run(ctx); err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	got, _ = ctx.Repo.Get(h.ID)
	if got.IsCompletedToday(ctx.Calendar) {
		t.Error("habit should not be completed after second toggle")
	}
	if !pendingKeys(t, ctx)[reminders.PreferredKey(h.ID)] {
		t.Error("reminder should be restored")
	}
}

func TestHabitEditCmd(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&HabitAddCmd{Title: "Read", Priority: "medium", Frequency: "daily", Goal: 1, Period: "day", Reminder: "20:00"}).Run(ctx); err != nil {
		t.Fatalf("add command failed: %v", err)
	}
	h := ctx.Repo.List()[0]

	title, goal, reminder := "Read more", 5, "none"
	if err := (&HabitEditCmd{Habit: "Read", Title: &title, Goal: &goal, Reminder: &reminder}).Run(ctx); err != nil {
		t.Fatalf("edit command failed: %v", err)
	}
	got, _ := ctx.Repo.Get(h.ID)
	if got.Title != title || got.Goal.Target != 5 || got.HasReminder() {
		t.Errorf("edited habit = %+v", got)
	}
	if pendingKeys(t, ctx)[reminders.PreferredKey(h.ID)] {
		t.Error("removing the reminder should cancel it")
	}

	bad := 0
	if err := (&HabitEditCmd{Habit: h.ID, Goal: &bad}).Run(ctx); err == nil {
		t.Error("edit should reject a zero goal")
	}
}

func TestHabitArchiveAndDeleteCmd(t *testing.T) {
	ctx, _ := setupTestContext(t)
	for _, title := range []string{"Read", "Walk"} {
		if err := (&HabitAddCmd{Title: title, Priority: "medium", Frequency: "daily", Goal: 1, Period: "day", Reminder: "20:00"}).Run(ctx); err != nil {
			t.Fatalf("add command failed: %v", err)
		}
	}
	read, _ := ctx.ResolveHabit("Read")
	walk, _ := ctx.ResolveHabit("Walk")

	if err := (&HabitArchiveCmd{Habit: "Read"}).Run(ctx); err != nil {
		t.Fatalf("archive command failed: %v", err)
	}
	if err := (&HabitArchiveCmd{Habit: "Read"}).Run(ctx); err == nil {
		t.Error("archiving twice should fail")
	}
	if err := (&HabitToggleCmd{Habit: "Read"}).Run(ctx); err == nil {
		t.Error("toggling an archived habit should fail")
	}

	if err := (&HabitDeleteCmd{Habit: "Walk", Yes: true}).Run(ctx); err != nil {
		t.Fatalf("delete command failed: %v", err)
	}
	if _, err := ctx.Repo.Get(walk.ID); err == nil {
		t.Error("deleted habit still present")
	}

	p := pendingKeys(t, ctx)
	if p[reminders.PreferredKey(read.ID)] || p[reminders.PreferredKey(walk.ID)] {
		t.Errorf("pending after archive/delete = %v", p)
	}
}

func TestHabitDeleteCmd_Cancelled(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&HabitAddCmd{Title: "Read", Priority: "medium", Frequency: "daily", Goal: 1, Period: "day"}).Run(ctx); err != nil {
		t.Fatalf("add command failed: %v", err)
	}
	ctx.In = strings.NewReader("n\n")
	if err := (&HabitDeleteCmd{Habit: "Read"}).Run(ctx); err != nil {
		t.Fatalf("delete command failed: %v", err)
	}
	if len(ctx.Repo.List()) != 1 {
		t.Error("habit deleted without confirmation")
	}
}

func TestHabitResetCmd(t *testing.T) {
	ctx, dbPath := setupTestContext(t)
	for _, title := range []string{"Read", "Walk"} {
		if err := (&HabitAddCmd{Title: title, Priority: "medium", Frequency: "daily", Goal: 1, Period: "day", Reminder: "20:00"}).Run(ctx); err != nil {
			t.Fatalf("add command failed: %v", err)
		}
	}

	if err := (&HabitResetCmd{Yes: true}).Run(ctx); err != nil {
		t.Fatalf("reset command failed: %v", err)
	}
	if n := len(ctx.Repo.List()); n != 0 {
		t.Errorf("got %d habits after reset", n)
	}
	if n := len(pendingKeys(t, ctx)); n != 0 {
		t.Errorf("got %d pending reminders after reset", n)
	}

	entries, err := os.ReadDir(filepath.Join(filepath.Dir(dbPath), constants.BackupDirName))
	if err != nil || len(entries) != 1 {
		t.Errorf("reset should leave exactly one backup, got %d (%v)", len(entries), err)
	}
}

func TestReadOnlyCommands(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&HabitAddCmd{Title: "Read", Priority: "medium", Frequency: "weekly", Goal: 2, Period: "week"}).Run(ctx); err != nil {
		t.Fatalf("add command failed: %v", err)
	}
	if err := (&HabitToggleCmd{Habit: "Read"}).Run(ctx); err != nil {
		t.Fatalf("toggle command failed: %v", err)
	}

	cmds := map[string]interface{ Run(*cli.Context) error }{
		"list":        &HabitListCmd{Archived: true},
		"show":        &HabitShowCmd{Habit: "Read"},
		"today":       &HabitTodayCmd{},
		"stats":       &HabitStatsCmd{},
		"stats habit": &HabitStatsCmd{Habit: "Read"},
	}
	for name, cmd := range cmds {
		if err := cmd.Run(ctx); err != nil {
			t.Errorf("%s command failed: %v", name, err)
		}
	}
	if err := (&HabitShowCmd{Habit: "Swim"}).Run(ctx); err == nil {
		t.Error("show should fail for an unknown habit")
	}
}
