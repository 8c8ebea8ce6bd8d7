package stats

import (
	"time"

	"github.com/julianstephens/habitline/internal/calendar"
	"github.com/julianstephens/habitline/internal/models"
)

// Summary aggregates the per-habit statistics shown by the stats command.
type Summary struct {
	TotalCompletions int
	CurrentStreak    int
	LongestStreak    int
	// DaysTracked counts days from creation through asOf, inclusive.
	DaysTracked int
	SuccessRate float64
}

func completedDays(cal *calendar.Calendar, h models.Habit) map[string]struct{} {
	days := make(map[string]struct{}, len(h.CompletedDates))
	for _, d := range h.CompletedDates {
		days[cal.DayKey(d)] = struct{}{}
	}
	return days
}

// Streak counts consecutive completed days ending on the day of asOf. A day
// that is not completed yet yields 0.
func Streak(cal *calendar.Calendar, h models.Habit, asOf time.Time) int {
	days := completedDays(cal, h)
	streak := 0
	for d := cal.StartOfDay(asOf); ; d = cal.AddDays(d, -1) {
		if _, ok := days[cal.DayKey(d)]; !ok {
			return streak
		}
		streak++
	}
}

// LongestStreak returns the longest run of consecutive completed days.
func LongestStreak(cal *calendar.Calendar, h models.Habit) int {
	days := completedDays(cal, h)
	longest := 0
	for key := range days {
		d, err := time.ParseInLocation("2006-01-02", key, cal.Location())
		if err != nil {
			continue
		}
		// Only count runs from their first day.
		if _, ok := days[cal.DayKey(cal.AddDays(d, -1))]; ok {
			continue
		}
		run := 0
		for ; ; d = cal.AddDays(d, 1) {
			if _, ok := days[cal.DayKey(d)]; !ok {
				break
			}
			run++
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// PeriodWindow returns the [start, end) window of the habit's goal period
// containing onDate.
func PeriodWindow(cal *calendar.Calendar, goal models.Goal, onDate time.Time) (time.Time, time.Time) {
	switch goal.Period {
	case models.PeriodWeek:
		return cal.WeekInterval(onDate)
	case models.PeriodMonth:
		return cal.MonthInterval(onDate)
	default:
		return cal.DayInterval(onDate)
	}
}

// PeriodCompletion returns the completed days inside the goal window
// containing onDate and the goal target.
func PeriodCompletion(cal *calendar.Calendar, h models.Habit, onDate time.Time) (completed, target int) {
	start, end := PeriodWindow(cal, h.Goal, onDate)
	seen := make(map[string]struct{})
	for _, d := range h.CompletedDates {
		if d.Before(start) || !d.Before(end) {
			continue
		}
		seen[cal.DayKey(d)] = struct{}{}
	}
	return len(seen), h.Goal.Target
}

// Progress is completions in the goal window divided by the target. It is not
// capped at 1. A non-positive target yields 0.
func Progress(cal *calendar.Calendar, h models.Habit, onDate time.Time) float64 {
	completed, target := PeriodCompletion(cal, h, onDate)
	if target <= 0 {
		return 0
	}
	return float64(completed) / float64(target)
}

// Summarize computes the statistics for h as of asOf.
func Summarize(cal *calendar.Calendar, h models.Habit, asOf time.Time) Summary {
	total := len(completedDays(cal, h))
	tracked := cal.DaysBetween(h.CreationDate, asOf) + 1
	if tracked < 1 {
		tracked = 1
	}
	return Summary{
		TotalCompletions: total,
		CurrentStreak:    Streak(cal, h, asOf),
		LongestStreak:    LongestStreak(cal, h),
		DaysTracked:      tracked,
		SuccessRate:      float64(total) / float64(tracked),
	}
}
