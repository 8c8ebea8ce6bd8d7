package reminders

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/habitline/internal/calendar"
	"github.com/julianstephens/habitline/internal/constants"
	applogger "github.com/julianstephens/habitline/internal/logger"
	"github.com/julianstephens/habitline/internal/models"
	"github.com/julianstephens/habitline/internal/notifier"
	"github.com/julianstephens/habitline/internal/repository"
)

// HabitSource is the read side of the repository the policy derives from.
type HabitSource interface {
	List() []models.Habit
	ListForDate(date time.Time) []models.Habit
}

// Settings are the user preferences that gate reminders.
type Settings struct {
	// Enabled is the master switch for per-habit reminders.
	Enabled bool
	// MissedEnabled gates the daily aggregate reminder.
	MissedEnabled bool
	MissedTime    models.TimeOfDay
}

func SettingsFrom(s models.Settings) Settings {
	return Settings{
		Enabled:       s.NotificationsEnabled,
		MissedEnabled: s.MissedHabitNotificationsEnabled,
		MissedTime:    s.MissedTime(),
	}
}

// Reminder is one entry of the policy's bookkeeping. Applied is false when
// the last attempt to hand it to the notification service failed.
type Reminder struct {
	Key     string
	Time    models.TimeOfDay
	Content notifier.Content
	Applied bool
}

// requestSource is implemented by services that can report what they
// already hold, so a fresh policy does not reschedule unchanged reminders.
type requestSource interface {
	Requests() ([]notifier.Request, error)
}

// Policy decides which reminders should exist and keeps the notification
// service in line with that decision. Service failures are logged and
// never returned; the bookkeeping stays authoritative and unapplied entries
// are retried on the next evaluation.
type Policy struct {
	mu       sync.Mutex
	svc      notifier.Service
	habits   HabitSource
	cal      *calendar.Calendar
	log      *log.Logger
	settings Settings
	desired  map[string]Reminder
}

func NewPolicy(svc notifier.Service, habits HabitSource, cal *calendar.Calendar, settings Settings, logger *log.Logger) *Policy {
	if logger == nil {
		logger = applogger.Get()
	}
	p := &Policy{
		svc:      svc,
		habits:   habits,
		cal:      cal,
		log:      logger,
		settings: settings,
		desired:  make(map[string]Reminder),
	}
	if rs, ok := svc.(requestSource); ok {
		reqs, err := rs.Requests()
		if err != nil {
			p.log.Warn("Failed to read scheduled reminders", "error", err)
		}
		for _, req := range reqs {
			if req.Trigger != notifier.TriggerDaily || req.Time == nil {
				continue
			}
			p.desired[req.Key] = Reminder{Key: req.Key, Time: *req.Time, Content: req.Content, Applied: true}
		}
	}
	return p
}

// PreferredKey is the key of a habit's daily reminder.
func PreferredKey(habitID string) string {
	return habitID + constants.PreferredReminderSuffix
}

// habitKeys lists every key a habit may own, including ones older
// versions scheduled.
func habitKeys(habitID string) []string {
	return []string{
		habitID + constants.PreferredReminderSuffix,
		habitID + constants.EveningReminderSuffix,
		habitID + constants.MissedReminderSuffix,
	}
}

func habitContent(h models.Habit) notifier.Content {
	return notifier.Content{
		Title:   fmt.Sprintf("Time for: %s", h.Title),
		Body:    h.Description,
		HabitID: h.ID,
	}
}

func missedContent() notifier.Content {
	return notifier.Content{
		Title: "Uncompleted Habits",
		Body:  "You have habits that haven't been completed today. Tap to view them.",
	}
}

func (p *Policy) Settings() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// Desired returns the bookkeeping sorted by key.
func (p *Policy) Desired() []Reminder {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Reminder, 0, len(p.desired))
	for _, r := range p.desired {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// set records a reminder and schedules it with cancel-then-set. An
// unchanged, already applied reminder is left alone.
func (p *Policy) set(key string, at models.TimeOfDay, content notifier.Content) {
	if cur, ok := p.desired[key]; ok && cur.Applied && cur.Time == at && cur.Content == content {
		return
	}
	r := Reminder{Key: key, Time: at, Content: content}
	if err := p.svc.Cancel([]string{key}); err != nil {
		p.log.Warn("Failed to cancel reminder before scheduling", "key", key, "error", err)
	}
	if err := p.svc.Schedule(key, at, content); err != nil {
		p.log.Warn("Failed to schedule reminder", "key", key, "error", err)
	} else {
		r.Applied = true
		p.log.Debug("Scheduled reminder", "key", key, "time", at.String())
	}
	p.desired[key] = r
}

func (p *Policy) unset(keys ...string) {
	for _, k := range keys {
		delete(p.desired, k)
	}
	if err := p.svc.Cancel(keys); err != nil {
		p.log.Warn("Failed to cancel reminders", "keys", keys, "error", err)
	}
}

// cancelHabit removes every reminder belonging to a habit, including
// pending keys that merely contain its id.
func (p *Policy) cancelHabit(habitID string) {
	if habitID == "" {
		return
	}
	keys := habitKeys(habitID)
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	extra := func(k string) {
		if k == constants.MissedHabitsReminderKey || k == constants.MissedHabitsCheckKey {
			return
		}
		if !seen[k] && strings.Contains(k, habitID) {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	pending, err := p.svc.ListPending()
	if err != nil {
		p.log.Warn("Failed to list pending reminders", "error", err)
	}
	for _, k := range pending {
		extra(k)
	}
	for k := range p.desired {
		extra(k)
	}
	p.unset(keys...)
}

func (p *Policy) wantsReminder(h models.Habit) bool {
	now := p.cal.Now()
	return p.settings.Enabled &&
		h.HasReminder() &&
		h.IsActive(now) &&
		h.IsVisibleOn(p.cal, now) &&
		!h.IsCompletedToday(p.cal)
}

func (p *Policy) syncHabit(h models.Habit) {
	if !p.wantsReminder(h) {
		p.unset(habitKeys(h.ID)...)
		return
	}
	p.set(PreferredKey(h.ID), *h.NotificationTime, habitContent(h))
}

// pendingHabits returns the habits visible today that are neither archived
// nor completed today.
func (p *Policy) pendingHabits() []models.Habit {
	now := p.cal.Now()
	var out []models.Habit
	for _, h := range p.habits.ListForDate(now) {
		if h.IsArchived(now) || h.IsCompletedToday(p.cal) {
			continue
		}
		out = append(out, h)
	}
	return out
}

func (p *Policy) allHabitsCheck() {
	if p.settings.MissedEnabled && len(p.pendingHabits()) > 0 {
		p.set(constants.MissedHabitsReminderKey, p.settings.MissedTime, missedContent())
		return
	}
	p.unset(constants.MissedHabitsReminderKey, constants.MissedHabitsCheckKey)
}

// OnHabitCompleted cancels the habit's reminders for the rest of the day.
func (p *Policy) OnHabitCompleted(h models.Habit) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelHabit(h.ID)
}

// OnHabitUncompleted restores the habit's reminder if it still applies.
func (p *Policy) OnHabitUncompleted(h models.Habit) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncHabit(h)
}

func (p *Policy) OnHabitDeleted(habitID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelHabit(habitID)
}

// OnHabitEdited reschedules when the reminder time, content or flag changed.
func (p *Policy) OnHabitEdited(h models.Habit) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncHabit(h)
}

// OnAllHabitsCheck re-evaluates the aggregate reminder against today's
// habits. It cancels the reminder when nothing is pending, even if it was
// never scheduled.
func (p *Policy) OnAllHabitsCheck() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allHabitsCheck()
}

// Refresh re-derives every reminder without clearing the service first.
// Entries that are already applied and unchanged cause no service calls.
func (p *Policy) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()

	known := make(map[string]bool)
	for _, h := range p.habits.List() {
		known[PreferredKey(h.ID)] = true
		p.syncHabit(h)
	}
	for k := range p.desired {
		if strings.HasSuffix(k, constants.PreferredReminderSuffix) && !known[k] {
			p.unset(k)
		}
	}
	p.allHabitsCheck()
}

// RescheduleAll cancels everything pending and rebuilds the schedule from
// the repository.
func (p *Policy) RescheduleAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys, err := p.svc.ListPending()
	if err != nil {
		p.log.Warn("Failed to list pending reminders", "error", err)
	}
	for k := range p.desired {
		keys = append(keys, k)
	}
	if len(keys) > 0 {
		if err := p.svc.Cancel(keys); err != nil {
			p.log.Warn("Failed to cancel reminders", "error", err)
		}
	}
	p.desired = make(map[string]Reminder)

	for _, h := range p.habits.List() {
		if p.wantsReminder(h) {
			p.set(PreferredKey(h.ID), *h.NotificationTime, habitContent(h))
		}
	}
	p.allHabitsCheck()
	p.log.Info("Rescheduled reminders", "count", len(p.desired))
}

// CheckForMissedHabits sends a one-shot alert with the number of habits
// still pending today and returns that number. Nothing is sent when every
// habit is done.
func (p *Policy) CheckForMissedHabits() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.pendingHabits())
	if n == 0 {
		return 0
	}
	content := notifier.Content{
		Title: "Uncompleted Habits",
		Body:  fmt.Sprintf("You have %d uncompleted habits today", n),
	}
	if err := p.svc.ScheduleOnce(constants.MissedHabitsCheckKey, constants.MissedHabitsCheckDelay, content); err != nil {
		p.log.Warn("Failed to schedule missed habits check", "error", err)
	}
	return n
}

// ApplySettings swaps in new preferences and re-evaluates every reminder.
func (p *Policy) ApplySettings(s Settings) {
	p.mu.Lock()
	p.settings = s
	p.mu.Unlock()
	p.Refresh()
}

// HandleEvent is a repository observer. Toggles are ignored because the
// tracker drives the policy for them in a fixed order.
func (p *Policy) HandleEvent(ev repository.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Kind {
	case repository.EventAdded, repository.EventUpdated:
		p.syncHabit(ev.Habit)
	case repository.EventArchived, repository.EventDeleted:
		p.cancelHabit(ev.Habit.ID)
	default:
		return
	}
	p.allHabitsCheck()
}
