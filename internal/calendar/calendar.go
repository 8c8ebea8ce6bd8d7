package calendar

import (
	"sync"
	"time"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock returns a settable instant. Safe for concurrent use.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Calendar performs all day, week and month arithmetic for a single
// location and first weekday. Intervals are half-open: [start, end).
type Calendar struct {
	loc          *time.Location
	firstWeekday time.Weekday
	clock        Clock
}

// New creates a Calendar. A nil location means time.Local and a nil clock
// means the system clock.
func New(loc *time.Location, firstWeekday time.Weekday, clock Clock) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Calendar{
		loc:          loc,
		firstWeekday: firstWeekday,
		clock:        clock,
	}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

func (c *Calendar) FirstWeekday() time.Weekday {
	return c.firstWeekday
}

// Now returns the current instant in the calendar's location.
func (c *Calendar) Now() time.Time {
	return c.clock.Now().In(c.loc)
}

// Today returns the start of the current day.
func (c *Calendar) Today() time.Time {
	return c.StartOfDay(c.Now())
}

// StartOfDay returns midnight of the day containing t.
func (c *Calendar) StartOfDay(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

// IsSameDay reports whether a and b fall on the same calendar day.
func (c *Calendar) IsSameDay(a, b time.Time) bool {
	a, b = a.In(c.loc), b.In(c.loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// IsToday reports whether t falls on the current day.
func (c *Calendar) IsToday(t time.Time) bool {
	return c.IsSameDay(t, c.Now())
}

// AddDays returns the start of the day n calendar days after the day of t.
// It steps by calendar days, so days shortened or lengthened by DST still count once.
func (c *Calendar) AddDays(t time.Time, n int) time.Time {
	s := c.StartOfDay(t)
	return time.Date(s.Year(), s.Month(), s.Day()+n, 0, 0, 0, 0, c.loc)
}

// DayInterval returns [start of day, start of next day).
func (c *Calendar) DayInterval(t time.Time) (time.Time, time.Time) {
	start := c.StartOfDay(t)
	return start, c.AddDays(start, 1)
}

// WeekInterval returns the calendar week containing t, starting on the
// configured first weekday.
func (c *Calendar) WeekInterval(t time.Time) (time.Time, time.Time) {
	s := c.StartOfDay(t)
	offset := (int(s.Weekday()) - int(c.firstWeekday) + 7) % 7
	start := c.AddDays(s, -offset)
	return start, c.AddDays(start, 7)
}

// MonthInterval returns the calendar month containing t.
func (c *Calendar) MonthInterval(t time.Time) (time.Time, time.Time) {
	t = t.In(c.loc)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, c.loc)
	end := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, c.loc)
	return start, end
}

// DaysBetween counts calendar days from the day of a to the day of b.
// The result is negative when b is before a.
func (c *Calendar) DaysBetween(a, b time.Time) int {
	a, b = a.In(c.loc), b.In(c.loc)
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// DayKey returns the YYYY-MM-DD key of the day containing t.
func (c *Calendar) DayKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}
