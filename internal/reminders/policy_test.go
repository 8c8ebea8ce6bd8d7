package reminders

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/julianstephens/habitline/internal/calendar"
	"github.com/julianstephens/habitline/internal/constants"
	"github.com/julianstephens/habitline/internal/models"
	"github.com/julianstephens/habitline/internal/notifier"
	"github.com/julianstephens/habitline/internal/repository"
)

// fakeService keeps pending keys in memory and counts calls.
type fakeService struct {
	pending   map[string]notifier.Content
	once      map[string]time.Duration
	schedules int
	cancels   int
	fail      bool
}

func newFakeService() *fakeService {
	return &fakeService{pending: map[string]notifier.Content{}, once: map[string]time.Duration{}}
}

var errUnavailable = errors.New("service unavailable")

func (f *fakeService) Schedule(key string, _ models.TimeOfDay, c notifier.Content) error {
	f.schedules++
	if f.fail {
		return errUnavailable
	}
	f.pending[key] = c
	return nil
}

func (f *fakeService) ScheduleOnce(key string, delay time.Duration, c notifier.Content) error {
	if f.fail {
		return errUnavailable
	}
	f.pending[key] = c
	f.once[key] = delay
	return nil
}

func (f *fakeService) Cancel(keys []string) error {
	f.cancels++
	if f.fail {
		return errUnavailable
	}
	for _, k := range keys {
		delete(f.pending, k)
	}
	return nil
}

func (f *fakeService) ListPending() ([]string, error) {
	if f.fail {
		return nil, errUnavailable
	}
	var keys []string
	for k := range f.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeService) ListDelivered() ([]string, error) { return nil, nil }

func (f *fakeService) has(key string) bool {
	_, ok := f.pending[key]
	return ok
}

type staticSource struct {
	cal    *calendar.Calendar
	habits []models.Habit
}

func (s *staticSource) List() []models.Habit { return s.habits }

func (s *staticSource) ListForDate(date time.Time) []models.Habit {
	var out []models.Habit
	for _, h := range s.habits {
		if h.IsVisibleOn(s.cal, date) {
			out = append(out, h)
		}
	}
	return out
}

var now = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func today() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) }

func reminderHabit(id string, completed bool) models.Habit {
	at := models.TimeOfDay{Hour: 18, Minute: 30}
	h := models.Habit{
		ID:                   id,
		Title:                "Habit " + id,
		Description:          "do it",
		Frequency:            models.Daily(),
		Goal:                 models.DefaultGoal(),
		CreationDate:         now.Add(-72 * time.Hour),
		NotificationTime:     &at,
		NotificationsEnabled: true,
	}
	if completed {
		h.CompletedDates = []time.Time{today()}
	}
	return h
}

func setupPolicy(t *testing.T, settings Settings, habits ...models.Habit) (*Policy, *fakeService, *staticSource) {
	t.Helper()
	cal := calendar.New(time.UTC, time.Monday, calendar.NewFixedClock(now))
	svc := newFakeService()
	src := &staticSource{cal: cal, habits: habits}
	return NewPolicy(svc, src, cal, settings, nil), svc, src
}

func allOn() Settings {
	return Settings{Enabled: true, MissedEnabled: true, MissedTime: models.TimeOfDay{Hour: 20}}
}

func TestRescheduleAll(t *testing.T) {
	archived := reminderHabit("archived", false)
	end := now.Add(-time.Hour)
	archived.EndDate = &end
	quiet := reminderHabit("quiet", false)
	quiet.NotificationsEnabled = false

	p, svc, _ := setupPolicy(t, allOn(),
		reminderHabit("h1", false),
		reminderHabit("done", true),
		archived,
		quiet,
	)
	svc.pending["stale-preferred"] = notifier.Content{}

	p.RescheduleAll()

	want := []string{"h1-preferred", constants.MissedHabitsReminderKey}
	got, _ := svc.ListPending()
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("pending = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pending[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if c := svc.pending["h1-preferred"]; c.Title != "Time for: Habit h1" || c.Body != "do it" || c.HabitID != "h1" {
		t.Errorf("content = %+v", c)
	}
	if len(p.Desired()) != 2 {
		t.Errorf("desired = %+v", p.Desired())
	}
}

func TestCompletionCancelsAndUncompletionRestores(t *testing.T) {
	h := reminderHabit("h1", false)
	p, svc, src := setupPolicy(t, allOn(), h)
	p.RescheduleAll()

	svc.pending["h1-evening"] = notifier.Content{}
	svc.pending["h1-missed"] = notifier.Content{}
	svc.pending["legacy-h1-extra"] = notifier.Content{}

	src.habits[0].CompletedDates = []time.Time{today()}
	p.OnHabitCompleted(src.habits[0])
	p.OnHabitCompleted(src.habits[0])
	for _, k := range []string{"h1-preferred", "h1-evening", "h1-missed", "legacy-h1-extra"} {
		if svc.has(k) {
			t.Errorf("%s still pending after completion", k)
		}
	}
	p.OnAllHabitsCheck()
	if svc.has(constants.MissedHabitsReminderKey) {
		t.Error("aggregate reminder should be cancelled once everything is done")
	}

	src.habits[0].CompletedDates = nil
	p.OnHabitUncompleted(src.habits[0])
	p.OnAllHabitsCheck()
	if !svc.has("h1-preferred") || !svc.has(constants.MissedHabitsReminderKey) {
		t.Errorf("reminders not restored: %v", svc.pending)
	}
}

func TestOnAllHabitsCheckCancelsWhenNeverScheduled(t *testing.T) {
	p, svc, _ := setupPolicy(t, allOn(), reminderHabit("h1", true))
	p.OnAllHabitsCheck()
	if svc.cancels != 1 {
		t.Errorf("cancels = %d, want 1", svc.cancels)
	}
	if svc.has(constants.MissedHabitsReminderKey) {
		t.Error("aggregate reminder scheduled with nothing pending")
	}
}

func TestAggregateRespectsSetting(t *testing.T) {
	s := allOn()
	s.MissedEnabled = false
	p, svc, _ := setupPolicy(t, s, reminderHabit("h1", false))
	p.OnAllHabitsCheck()
	if svc.has(constants.MissedHabitsReminderKey) {
		t.Error("aggregate reminder scheduled while disabled")
	}

	p.ApplySettings(allOn())
	if !svc.has(constants.MissedHabitsReminderKey) {
		t.Error("enabling the setting should schedule the aggregate reminder")
	}

	off := allOn()
	off.Enabled = false
	p.ApplySettings(off)
	if svc.has("h1-preferred") {
		t.Error("master switch off should cancel per-habit reminders")
	}
}

func TestMidnightRolloverPicksUpNewHabit(t *testing.T) {
	future := reminderHabit("new", false)
	future.CreationDate = now.Add(24 * time.Hour)

	clock := calendar.NewFixedClock(now)
	cal := calendar.New(time.UTC, time.Monday, clock)
	svc := newFakeService()
	src := &staticSource{cal: cal, habits: []models.Habit{reminderHabit("h1", true), future}}
	p := NewPolicy(svc, src, cal, allOn(), nil)

	p.RescheduleAll()
	if svc.has(constants.MissedHabitsReminderKey) || svc.has("new-preferred") {
		t.Fatalf("nothing should be scheduled before the habit starts: %v", svc.pending)
	}

	clock.Advance(24 * time.Hour)
	p.RescheduleAll()
	if !svc.has(constants.MissedHabitsReminderKey) || !svc.has("new-preferred") {
		t.Errorf("rollover should schedule new reminders: %v", svc.pending)
	}
}

func TestSchedulingIsIdempotent(t *testing.T) {
	h := reminderHabit("h1", false)
	p, svc, _ := setupPolicy(t, allOn(), h)

	p.OnHabitEdited(h)
	p.OnHabitEdited(h)
	if svc.schedules != 1 {
		t.Errorf("schedules = %d, want 1 for an unchanged reminder", svc.schedules)
	}

	changed := h.Clone()
	changed.NotificationTime = &models.TimeOfDay{Hour: 7}
	p.OnHabitEdited(changed)
	if svc.schedules != 2 {
		t.Errorf("schedules = %d, want 2 after time change", svc.schedules)
	}
	if r := p.Desired()[0]; r.Time.Hour != 7 || !r.Applied {
		t.Errorf("desired = %+v", r)
	}

	changed.NotificationsEnabled = false
	p.OnHabitEdited(changed)
	if svc.has("h1-preferred") || len(p.Desired()) != 0 {
		t.Error("disabling notifications should cancel the reminder")
	}
}

func TestServiceFailureIsSwallowedAndRetried(t *testing.T) {
	h := reminderHabit("h1", false)
	p, svc, _ := setupPolicy(t, allOn(), h)

	svc.fail = true
	p.OnHabitEdited(h)
	d := p.Desired()
	if len(d) != 1 || d[0].Applied {
		t.Fatalf("desired = %+v, want one unapplied entry", d)
	}

	svc.fail = false
	p.Refresh()
	if !svc.has("h1-preferred") {
		t.Error("refresh should retry unapplied reminders")
	}
	for _, r := range p.Desired() {
		if !r.Applied {
			t.Errorf("%s still unapplied", r.Key)
		}
	}
}

func TestCheckForMissedHabits(t *testing.T) {
	p, svc, src := setupPolicy(t, allOn(), reminderHabit("h1", false), reminderHabit("h2", false), reminderHabit("h3", true))

	if n := p.CheckForMissedHabits(); n != 2 {
		t.Errorf("CheckForMissedHabits() = %d, want 2", n)
	}
	c := svc.pending[constants.MissedHabitsCheckKey]
	if c.Title != "Uncompleted Habits" || c.Body != "You have 2 uncompleted habits today" {
		t.Errorf("content = %+v", c)
	}
	if svc.once[constants.MissedHabitsCheckKey] != constants.MissedHabitsCheckDelay {
		t.Errorf("delay = %v", svc.once[constants.MissedHabitsCheckKey])
	}

	delete(svc.pending, constants.MissedHabitsCheckKey)
	for i := range src.habits {
		src.habits[i].CompletedDates = []time.Time{today()}
	}
	if n := p.CheckForMissedHabits(); n != 0 || svc.has(constants.MissedHabitsCheckKey) {
		t.Errorf("nothing should be sent when all habits are done, got %d", n)
	}
}

func TestHandleEvent(t *testing.T) {
	h := reminderHabit("h1", false)
	p, svc, src := setupPolicy(t, allOn(), h)

	p.HandleEvent(repository.Event{Kind: repository.EventAdded, Habit: h})
	if !svc.has("h1-preferred") || !svc.has(constants.MissedHabitsReminderKey) {
		t.Fatalf("added habit not scheduled: %v", svc.pending)
	}

	schedules := svc.schedules
	p.HandleEvent(repository.Event{Kind: repository.EventToggled, Habit: h})
	if svc.schedules != schedules {
		t.Error("toggle events should be ignored")
	}

	src.habits = nil
	p.HandleEvent(repository.Event{Kind: repository.EventDeleted, Habit: models.Habit{ID: "h1"}})
	if svc.has("h1-preferred") || svc.has(constants.MissedHabitsReminderKey) {
		t.Errorf("delete should cancel reminders: %v", svc.pending)
	}
}

func TestPolicySeedsFromCenter(t *testing.T) {
	cal := calendar.New(time.UTC, time.Monday, calendar.NewFixedClock(now))
	center := notifier.NewCenter(&notifier.MemoryRegistry{}, notifier.StdoutSender{}, cal, nil)
	h := reminderHabit("h1", false)
	src := &staticSource{cal: cal, habits: []models.Habit{h}}

	first := NewPolicy(center, src, cal, allOn(), nil)
	first.Refresh()
	reqs, _ := center.Requests()
	if len(reqs) != 2 {
		t.Fatalf("requests = %+v", reqs)
	}
	created := reqs[0].CreatedAt

	later := calendar.New(time.UTC, time.Monday, calendar.NewFixedClock(now.Add(time.Hour)))
	second := NewPolicy(center, src, later, allOn(), nil)
	second.Refresh()
	reqs, _ = center.Requests()
	if !reqs[0].CreatedAt.Equal(created) {
		t.Error("a fresh policy should leave unchanged reminders in place")
	}
}
