// Package validation checks stored habits for data the core would not
// produce itself, such as duplicate completion days or completions dated
// before the habit existed.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/habitline/internal/calendar"
	"github.com/julianstephens/habitline/internal/constants"
	"github.com/julianstephens/habitline/internal/models"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictDuplicateID          ConflictType = "duplicate_id"
	ConflictDuplicateTitle       ConflictType = "duplicate_title"
	ConflictInvalidHabit         ConflictType = "invalid_habit"
	ConflictDuplicateCompletion  ConflictType = "duplicate_completion"
	ConflictCompletionBeforeOpen ConflictType = "completion_before_creation"
	ConflictFutureCompletion     ConflictType = "future_completion"
	ConflictUnsortedCompletions  ConflictType = "unsorted_completions"
	ConflictReminderWithoutTime  ConflictType = "reminder_without_time"
)

// Severity separates data the core cannot handle from data it tolerates.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Conflict represents a detected problem in the stored habits
type Conflict struct {
	Type        ConflictType
	Severity    Severity
	Description string
	HabitIDs    []string
	Date        string // YYYY-MM-DD, when the conflict concerns a day
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// HasErrors reports whether any conflict is an error rather than a warning.
func (vr *ValidationResult) HasErrors() bool {
	for _, c := range vr.Conflicts {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range vr.Conflicts {
		fmt.Fprintf(&b, "- [%s] %s\n", c.Severity, c.Description)
	}
	return b.String()
}

func (vr *ValidationResult) add(c Conflict) {
	vr.Conflicts = append(vr.Conflicts, c)
}

type Validator struct {
	cal *calendar.Calendar
}

func New(cal *calendar.Calendar) *Validator {
	return &Validator{cal: cal}
}

// ValidateHabits checks the collection as a whole and every habit in it.
func (v *Validator) ValidateHabits(habits []models.Habit) ValidationResult {
	var result ValidationResult

	ids := make(map[string]int)
	titles := make(map[string][]string)
	for _, h := range habits {
		ids[h.ID]++
		key := strings.ToLower(strings.TrimSpace(h.Title))
		if key != "" {
			titles[key] = append(titles[key], h.ID)
		}
	}

	dupIDs := make([]string, 0)
	for id, n := range ids {
		if n > 1 {
			dupIDs = append(dupIDs, id)
		}
	}
	sort.Strings(dupIDs)
	for _, id := range dupIDs {
		result.add(Conflict{
			Type:        ConflictDuplicateID,
			Severity:    SeverityError,
			Description: fmt.Sprintf("Habit id %s is used %d times", id, ids[id]),
			HabitIDs:    []string{id},
		})
	}

	dupTitles := make([]string, 0)
	for title, list := range titles {
		if len(list) > 1 {
			dupTitles = append(dupTitles, title)
		}
	}
	sort.Strings(dupTitles)
	for _, title := range dupTitles {
		result.add(Conflict{
			Type:        ConflictDuplicateTitle,
			Severity:    SeverityWarning,
			Description: fmt.Sprintf("%d habits are titled %q", len(titles[title]), title),
			HabitIDs:    titles[title],
		})
	}

	for _, h := range habits {
		v.validateHabit(&result, h)
	}
	return result
}

func (v *Validator) validateHabit(result *ValidationResult, h models.Habit) {
	if err := models.ValidateHabit(h); err != nil {
		result.add(Conflict{
			Type:        ConflictInvalidHabit,
			Severity:    SeverityError,
			Description: fmt.Sprintf("Habit %q is invalid: %v", h.Title, err),
			HabitIDs:    []string{h.ID},
		})
	}

	if h.NotificationsEnabled && h.NotificationTime == nil {
		result.add(Conflict{
			Type:        ConflictReminderWithoutTime,
			Severity:    SeverityWarning,
			Description: fmt.Sprintf("Habit %q has reminders enabled but no reminder time", h.Title),
			HabitIDs:    []string{h.ID},
		})
	}

	today := v.cal.Today()
	created := v.cal.StartOfDay(h.CreationDate)
	seen := make(map[string]bool)
	for i, d := range h.CompletedDates {
		day := v.cal.DayKey(d)
		if seen[day] {
			result.add(Conflict{
				Type:        ConflictDuplicateCompletion,
				Severity:    SeverityError,
				Description: fmt.Sprintf("Habit %q is completed more than once on %s", h.Title, day),
				HabitIDs:    []string{h.ID},
				Date:        day,
			})
		}
		seen[day] = true

		start := v.cal.StartOfDay(d)
		switch {
		case start.Before(created):
			result.add(Conflict{
				Type:        ConflictCompletionBeforeOpen,
				Severity:    SeverityWarning,
				Description: fmt.Sprintf("Habit %q has a completion on %s, before it was created on %s", h.Title, day, created.Format(constants.DateFormat)),
				HabitIDs:    []string{h.ID},
				Date:        day,
			})
		case start.After(today):
			result.add(Conflict{
				Type:        ConflictFutureCompletion,
				Severity:    SeverityError,
				Description: fmt.Sprintf("Habit %q has a completion in the future on %s", h.Title, day),
				HabitIDs:    []string{h.ID},
				Date:        day,
			})
		}

		if i > 0 && d.Before(h.CompletedDates[i-1]) {
			result.add(Conflict{
				Type:        ConflictUnsortedCompletions,
				Severity:    SeverityWarning,
				Description: fmt.Sprintf("Habit %q has completions out of order", h.Title),
				HabitIDs:    []string{h.ID},
			})
		}
	}
}

// FixAction represents an action taken during auto-fix
type FixAction struct {
	Action         string
	SourceConflict Conflict
}

// AutoFix repairs what can be repaired without losing history: duplicate
// completion days are collapsed to their first entry and completions are
// sorted. It returns the fixed habits and what was done.
func (v *Validator) AutoFix(habits []models.Habit, result ValidationResult) ([]models.Habit, []FixAction) {
	byID := make(map[string][]Conflict)
	for _, c := range result.Conflicts {
		if c.Type != ConflictDuplicateCompletion && c.Type != ConflictUnsortedCompletions {
			continue
		}
		for _, id := range c.HabitIDs {
			byID[id] = append(byID[id], c)
		}
	}

	var actions []FixAction
	fixed := make([]models.Habit, len(habits))
	for i, h := range habits {
		fixed[i] = h.Clone()
		conflicts := byID[h.ID]
		if len(conflicts) == 0 {
			continue
		}

		seen := make(map[string]bool)
		kept := fixed[i].CompletedDates[:0]
		for _, d := range fixed[i].CompletedDates {
			day := v.cal.DayKey(d)
			if seen[day] {
				continue
			}
			seen[day] = true
			kept = append(kept, d)
		}
		fixed[i].CompletedDates = kept
		fixed[i].SortCompletions()

		for _, c := range conflicts {
			action := fmt.Sprintf("Sorted completions of %q", h.Title)
			if c.Type == ConflictDuplicateCompletion {
				action = fmt.Sprintf("Removed duplicate completion of %q on %s", h.Title, c.Date)
			}
			actions = append(actions, FixAction{Action: action, SourceConflict: c})
		}
	}
	return fixed, actions
}
