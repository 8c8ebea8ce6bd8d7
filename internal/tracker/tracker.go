// Package tracker is the entry point for completion toggles. It applies the
// ledger change, persists it and then brings reminders in line.
package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/habitline/internal/calendar"
	apperrors "github.com/julianstephens/habitline/internal/errors"
	"github.com/julianstephens/habitline/internal/ledger"
	applogger "github.com/julianstephens/habitline/internal/logger"
	"github.com/julianstephens/habitline/internal/models"
	"github.com/julianstephens/habitline/internal/reminders"
)

type State int

const (
	NotCompleted State = iota
	Completed
)

func (s State) String() string {
	if s == Completed {
		return "completed"
	}
	return "not completed"
}

// Habits is the repository surface the tracker writes through.
type Habits interface {
	Modify(id string, fn func(*models.Habit) error) (models.Habit, error)
}

// Reminders is the policy surface the tracker drives.
type Reminders interface {
	OnHabitCompleted(h models.Habit)
	OnHabitUncompleted(h models.Habit)
	OnAllHabitsCheck()
	Refresh()
	CheckForMissedHabits() int
	Settings() reminders.Settings
}

type Tracker struct {
	habits    Habits
	reminders Reminders
	cal       *calendar.Calendar
	log       *log.Logger
}

func New(habits Habits, rem Reminders, cal *calendar.Calendar, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = applogger.Get()
	}
	return &Tracker{
		habits:    habits,
		reminders: rem,
		cal:       cal,
		log:       logger,
	}
}

// Toggle flips the completion of habit id for day, which must be today.
// The change is persisted before any reminder is touched. When the write
// fails the in-memory change stands, the persistence error is returned and
// reminders are left for the next recheck.
func (t *Tracker) Toggle(ctx context.Context, id string, day time.Time) (State, error) {
	if err := ctx.Err(); err != nil {
		return NotCompleted, err
	}

	var next State
	h, err := t.habits.Modify(id, func(h *models.Habit) error {
		if h.IsCompletedOn(t.cal, day) {
			next = NotCompleted
			return ledger.UnmarkCompleted(t.cal, h, day)
		}
		next = Completed
		return ledger.MarkCompleted(t.cal, h, day)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrPersistenceUnavailable) {
			t.log.Error("Completion change not persisted", "habit_id", id, "error", err)
			return next, err
		}
		if h.ID != "" && h.IsCompletedOn(t.cal, day) {
			return Completed, err
		}
		return NotCompleted, err
	}

	if next == Completed {
		t.reminders.OnHabitCompleted(h)
	} else {
		t.reminders.OnHabitUncompleted(h)
	}
	t.reminders.OnAllHabitsCheck()

	t.log.Debug("Toggled habit", "habit_id", id, "state", next.String())
	return next, nil
}

// Foreground is the recheck run when the user comes back to the app. It
// re-derives reminders and, when the aggregate reminder is enabled, sends
// the one-shot missed habits alert. It returns the number of habits still
// pending today as reported by that alert.
func (t *Tracker) Foreground(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.reminders.Refresh()
	if !t.reminders.Settings().MissedEnabled {
		return 0, nil
	}
	return t.reminders.CheckForMissedHabits(), nil
}
