package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/habitline/internal/errors"
)

// DayCalendar is the subset of calendar.Calendar the habit queries need.
type DayCalendar interface {
	Now() time.Time
	StartOfDay(t time.Time) time.Time
	IsSameDay(a, b time.Time) bool
}

// Habit represents a recurring practice to track
type Habit struct {
	ID                   string      `json:"id"`
	Title                string      `json:"title"`
	Description          string      `json:"description"`
	Priority             Priority    `json:"priority"`
	Frequency            Frequency   `json:"frequency"`
	Goal                 Goal        `json:"goal"`
	CompletedDates       []time.Time `json:"completed_dates"` // start-of-day timestamps, ascending
	EndDate              *time.Time  `json:"end_date,omitempty"`
	CreationDate         time.Time   `json:"creation_date"`
	NotificationTime     *TimeOfDay  `json:"notification_time,omitempty"`
	NotificationsEnabled bool        `json:"notifications_enabled"`
}

// HabitOption configures a habit built by NewHabit.
type HabitOption func(*Habit)

func WithDescription(d string) HabitOption {
	return func(h *Habit) { h.Description = d }
}

func WithPriority(p Priority) HabitOption {
	return func(h *Habit) { h.Priority = p }
}

func WithFrequency(f Frequency) HabitOption {
	return func(h *Habit) { h.Frequency = f }
}

func WithGoal(g Goal) HabitOption {
	return func(h *Habit) { h.Goal = g }
}

// WithReminder sets the preferred reminder time and enables notifications.
func WithReminder(t TimeOfDay) HabitOption {
	return func(h *Habit) {
		h.NotificationTime = &t
		h.NotificationsEnabled = true
	}
}

func WithEndDate(t time.Time) HabitOption {
	return func(h *Habit) { h.EndDate = &t }
}

// NewHabit builds a validated habit created at now with a fresh id.
func NewHabit(title string, now time.Time, opts ...HabitOption) (Habit, error) {
	h := Habit{
		ID:           uuid.New().String(),
		Title:        strings.TrimSpace(title),
		Priority:     PriorityMedium,
		Frequency:    Daily(),
		Goal:         DefaultGoal(),
		CreationDate: now,
	}
	for _, opt := range opts {
		opt(&h)
	}
	if err := ValidateHabit(h); err != nil {
		return Habit{}, err
	}
	return h, nil
}

// ValidateHabit checks the fields enforced at the create/edit boundary.
func ValidateHabit(h Habit) error {
	if h.ID == "" {
		return fmt.Errorf("habit id cannot be empty")
	}
	if strings.TrimSpace(h.Title) == "" {
		return fmt.Errorf("habit title cannot be empty")
	}
	if err := h.Frequency.Validate(); err != nil {
		return err
	}
	if h.Goal.Target < 1 {
		return fmt.Errorf("goal target must be at least 1, got %d: %w", h.Goal.Target, apperrors.ErrInvalidGoal)
	}
	if _, err := ParsePeriod(string(h.Goal.Period)); err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInvalidGoal)
	}
	if h.EndDate != nil && h.EndDate.Before(h.CreationDate) {
		return fmt.Errorf("end date cannot be before creation date")
	}
	return nil
}

// IsCompletedOn reports whether any stored completion falls on the day of date.
func (h *Habit) IsCompletedOn(cal DayCalendar, date time.Time) bool {
	_, ok := h.FindCompletionDate(cal, date)
	return ok
}

func (h *Habit) IsCompletedToday(cal DayCalendar) bool {
	return h.IsCompletedOn(cal, cal.Now())
}

// FindCompletionDate returns the exact stored timestamp for the day of date.
// Entries written by older clients may carry a time of day.
func (h *Habit) FindCompletionDate(cal DayCalendar, date time.Time) (time.Time, bool) {
	for _, d := range h.CompletedDates {
		if cal.IsSameDay(d, date) {
			return d, true
		}
	}
	return time.Time{}, false
}

// IsArchived reports whether the habit's end date has been reached.
func (h *Habit) IsArchived(now time.Time) bool {
	return h.EndDate != nil && !h.EndDate.After(now)
}

func (h *Habit) IsActive(now time.Time) bool {
	return !h.IsArchived(now)
}

// IsVisibleOn reports whether the habit belongs on the list for the day of
// date: created on or before that day and not ended before it.
func (h *Habit) IsVisibleOn(cal DayCalendar, date time.Time) bool {
	day := cal.StartOfDay(date)
	if cal.StartOfDay(h.CreationDate).After(day) {
		return false
	}
	if h.EndDate != nil && cal.StartOfDay(*h.EndDate).Before(day) {
		return false
	}
	return true
}

// HasReminder reports whether a preferred-time reminder applies.
func (h *Habit) HasReminder() bool {
	return h.NotificationsEnabled && h.NotificationTime != nil
}

// SortCompletions orders CompletedDates ascending.
func (h *Habit) SortCompletions() {
	sort.Slice(h.CompletedDates, func(i, j int) bool {
		return h.CompletedDates[i].Before(h.CompletedDates[j])
	})
}

// Clone returns a deep copy.
func (h Habit) Clone() Habit {
	c := h
	if h.CompletedDates != nil {
		c.CompletedDates = make([]time.Time, len(h.CompletedDates))
		copy(c.CompletedDates, h.CompletedDates)
	}
	if h.EndDate != nil {
		end := *h.EndDate
		c.EndDate = &end
	}
	if h.NotificationTime != nil {
		nt := *h.NotificationTime
		c.NotificationTime = &nt
	}
	return c
}
