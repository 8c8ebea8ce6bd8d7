// Package ledger applies completion changes to a habit's completed-day set.
// It has no persistence or notification side effects.
package ledger

import (
	"fmt"
	"time"

	apperrors "github.com/julianstephens/habitline/internal/errors"
	"github.com/julianstephens/habitline/internal/models"
)

// Calendar is what the ledger needs to know about days.
type Calendar interface {
	models.DayCalendar
	IsToday(t time.Time) bool
}

func guard(cal Calendar, h *models.Habit, date time.Time) error {
	if !cal.IsToday(date) {
		return fmt.Errorf("completion for %s can only change today: %w",
			cal.StartOfDay(date).Format("2006-01-02"), apperrors.ErrInvalidOperation)
	}
	if h.IsArchived(cal.Now()) {
		return fmt.Errorf("habit %s is archived: %w", h.ID, apperrors.ErrInvalidOperation)
	}
	return nil
}

// MarkCompleted records a completion for the day of date. Marking an
// already-completed day is a no-op.
func MarkCompleted(cal Calendar, h *models.Habit, date time.Time) error {
	if err := guard(cal, h, date); err != nil {
		return err
	}
	if h.IsCompletedOn(cal, date) {
		return nil
	}
	h.CompletedDates = append(h.CompletedDates, cal.StartOfDay(date))
	h.SortCompletions()
	return nil
}

// UnmarkCompleted removes the completion for the day of date. Every stored
// entry falling on that day is removed, so duplicates written by older
// clients do not leave the day completed.
func UnmarkCompleted(cal Calendar, h *models.Habit, date time.Time) error {
	if err := guard(cal, h, date); err != nil {
		return err
	}
	for {
		stored, ok := h.FindCompletionDate(cal, date)
		if !ok {
			return nil
		}
		h.CompletedDates = removeExact(h.CompletedDates, stored)
	}
}

func removeExact(dates []time.Time, target time.Time) []time.Time {
	for i, d := range dates {
		if d.Equal(target) {
			return append(dates[:i:i], dates[i+1:]...)
		}
	}
	return dates
}
