package cli

import (
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/habitline/internal/calendar"
	"github.com/julianstephens/habitline/internal/config"
	"github.com/julianstephens/habitline/internal/models"
	"github.com/julianstephens/habitline/internal/notifier"
	"github.com/julianstephens/habitline/internal/storage"
)

func setupTestContext(t *testing.T) *Context {
	t.Helper()
	cfg := config.Default()
	cfg.Calendar.Timezone = "UTC"
	cfg.Calendar.FirstWeekday = "monday"

	store := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	ctx := &Context{
		Config: &cfg,
		Store:  store,
		Clock:  calendar.NewFixedClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)),
		Sender: notifier.StdoutSender{W: io.Discard},
	}
	if err := ctx.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return ctx
}

func addHabit(t *testing.T, ctx *Context, title string) models.Habit {
	t.Helper()
	h, err := models.NewHabit(title, ctx.Calendar.Now())
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}
	if err := ctx.Repo.Add(h); err != nil {
		t.Fatalf("failed to add habit: %v", err)
	}
	return h
}

func TestOpenIsIdempotent(t *testing.T) {
	ctx := setupTestContext(t)
	repo := ctx.Repo
	if err := ctx.Open(); err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	if ctx.Repo != repo {
		t.Error("Open() rebuilt the repository")
	}
}

func TestResolveHabit(t *testing.T) {
	ctx := setupTestContext(t)
	read := addHabit(t, ctx, "Read")
	addHabit(t, ctx, "Walk")

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr string
	}{
		{name: "id", ref: read.ID, want: read.ID},
		{name: "prefix", ref: read.ID[:6], want: read.ID},
		{name: "title", ref: "read", want: read.ID},
		{name: "missing", ref: "Swim", wantErr: "not found"},
		{name: "empty", ref: " ", wantErr: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ctx.ResolveHabit(tt.ref)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("ResolveHabit(%q) error = %v, want %q", tt.ref, err, tt.wantErr)
				}
				return
			}
			if err != nil || h.ID != tt.want {
				t.Errorf("ResolveHabit(%q) = %s, %v", tt.ref, h.ID, err)
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	ctx := setupTestContext(t)
	for in, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false} {
		ctx.In = strings.NewReader(in)
		if got := ctx.Confirm("Continue?"); got != want {
			t.Errorf("Confirm(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	ctx := setupTestContext(t)
	d, err := ctx.ParseDate("2024-03-12")
	if err != nil || !d.Equal(time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseDate() = %v, %v", d, err)
	}
	if now, _ := ctx.ParseDate(""); !now.Equal(ctx.Calendar.Now()) {
		t.Errorf("ParseDate(\"\") = %v", now)
	}
	if _, err := ctx.ParseDate("12/03/2024"); err == nil {
		t.Error("ParseDate() should reject other layouts")
	}
}

func TestFormatReminder(t *testing.T) {
	at := models.TimeOfDay{Hour: 7, Minute: 30}
	tests := []struct {
		habit models.Habit
		want  string
	}{
		{models.Habit{}, "none"},
		{models.Habit{NotificationTime: &at, NotificationsEnabled: true}, "07:30"},
		{models.Habit{NotificationTime: &at}, "07:30 (off)"},
	}
	for _, tt := range tests {
		if got := FormatReminder(tt.habit); got != tt.want {
			t.Errorf("FormatReminder() = %q, want %q", got, tt.want)
		}
	}
}
