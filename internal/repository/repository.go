package repository

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/habitline/internal/calendar"
	apperrors "github.com/julianstephens/habitline/internal/errors"
	applogger "github.com/julianstephens/habitline/internal/logger"
	"github.com/julianstephens/habitline/internal/models"
)

type EventKind string

const (
	EventAdded    EventKind = "added"
	EventUpdated  EventKind = "updated"
	EventDeleted  EventKind = "deleted"
	EventArchived EventKind = "archived"
	// EventToggled is emitted for completion changes made through Modify.
	EventToggled EventKind = "toggled"
)

// Event describes a persisted mutation. Previous is nil for additions.
type Event struct {
	Kind     EventKind
	Habit    models.Habit
	Previous *models.Habit
}

type Observer func(Event)

// Store is the persistence the repository writes through to.
type Store interface {
	LoadHabits() ([]models.Habit, error)
	SaveHabits([]models.Habit) error
}

// Repository owns the in-memory habit collection. Every mutation is written
// through to the store before it returns.
type Repository struct {
	mu        sync.Mutex
	store     Store
	cal       *calendar.Calendar
	log       *log.Logger
	habits    []models.Habit
	observers []Observer
}

func New(store Store, cal *calendar.Calendar, logger *log.Logger) *Repository {
	if logger == nil {
		logger = applogger.Get()
	}
	return &Repository{
		store: store,
		cal:   cal,
		log:   logger,
	}
}

// Load replaces the collection with the stored habits. A load failure is
// logged and leaves the collection empty.
func (r *Repository) Load() {
	r.mu.Lock()
	defer r.mu.Unlock()

	habits, err := r.store.LoadHabits()
	if err != nil {
		r.log.Warn("Failed to load habits, starting empty", "error", err)
		r.habits = nil
		return
	}
	r.habits = make([]models.Habit, 0, len(habits))
	seen := make(map[string]bool, len(habits))
	for _, h := range habits {
		if seen[h.ID] {
			r.log.Warn("Skipping duplicate habit id", "habit_id", h.ID)
			continue
		}
		seen[h.ID] = true
		r.habits = append(r.habits, h.Clone())
	}
}

// Subscribe registers fn to receive events after each persisted mutation.
func (r *Repository) Subscribe(fn Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// List returns copies of all habits in insertion order.
func (r *Repository) List() []models.Habit {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Habit, len(r.habits))
	for i, h := range r.habits {
		out[i] = h.Clone()
	}
	return out
}

// ListForDate returns the habits visible on the day of date: created on or
// before it and not ended before it.
func (r *Repository) ListForDate(date time.Time) []models.Habit {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Habit
	for _, h := range r.habits {
		if h.IsVisibleOn(r.cal, date) {
			out = append(out, h.Clone())
		}
	}
	return out
}

func (r *Repository) Get(id string) (models.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.Habit{}, fmt.Errorf("habit %s: %w", id, apperrors.ErrNotFound)
	}
	return r.habits[i].Clone(), nil
}

func (r *Repository) indexOf(id string) int {
	for i, h := range r.habits {
		if h.ID == id {
			return i
		}
	}
	return -1
}

// persist writes the collection and, on success, notifies observers. The
// caller must hold r.mu; observers run after it is released.
func (r *Repository) persist(events ...Event) (func(), error) {
	snapshot := make([]models.Habit, len(r.habits))
	for i, h := range r.habits {
		snapshot[i] = h.Clone()
	}
	if err := r.store.SaveHabits(snapshot); err != nil {
		r.log.Error("Failed to save habits", "error", err)
		return func() {}, fmt.Errorf("save habits: %w: %v", apperrors.ErrPersistenceUnavailable, err)
	}
	observers := append([]Observer(nil), r.observers...)
	return func() {
		for _, ev := range events {
			for _, fn := range observers {
				fn(ev)
			}
		}
	}, nil
}

// Add inserts a new habit. Duplicate ids and invalid goals are rejected.
func (r *Repository) Add(h models.Habit) error {
	if err := models.ValidateHabit(h); err != nil {
		return err
	}

	r.mu.Lock()
	if r.indexOf(h.ID) >= 0 {
		r.mu.Unlock()
		return fmt.Errorf("habit %s already exists: %w", h.ID, apperrors.ErrInvalidOperation)
	}
	h = h.Clone()
	h.SortCompletions()
	r.habits = append(r.habits, h)
	notify, err := r.persist(Event{Kind: EventAdded, Habit: h.Clone()})
	r.mu.Unlock()

	notify()
	return err
}

// Update replaces the editable fields of an existing habit. Id, creation
// date and completion history are kept from the stored habit.
func (r *Repository) Update(h models.Habit) error {
	r.mu.Lock()
	i := r.indexOf(h.ID)
	if i < 0 {
		r.mu.Unlock()
		return fmt.Errorf("habit %s: %w", h.ID, apperrors.ErrNotFound)
	}
	prev := r.habits[i].Clone()
	if prev.IsArchived(r.cal.Now()) {
		r.mu.Unlock()
		return fmt.Errorf("habit %s is archived: %w", h.ID, apperrors.ErrInvalidOperation)
	}

	next := h.Clone()
	next.CreationDate = prev.CreationDate
	next.CompletedDates = prev.CompletedDates
	if err := models.ValidateHabit(next); err != nil {
		r.mu.Unlock()
		return err
	}

	r.habits[i] = next
	notify, err := r.persist(Event{Kind: EventUpdated, Habit: next.Clone(), Previous: &prev})
	r.mu.Unlock()

	notify()
	return err
}

// Delete removes a habit. Deleting an unknown id succeeds and still emits
// a delete event so stale reminders get cleaned up.
func (r *Repository) Delete(id string) error {
	r.mu.Lock()
	ev := Event{Kind: EventDeleted, Habit: models.Habit{ID: id}}
	if i := r.indexOf(id); i >= 0 {
		prev := r.habits[i].Clone()
		ev.Habit = prev
		ev.Previous = &prev
		r.habits = append(r.habits[:i:i], r.habits[i+1:]...)
	}
	notify, err := r.persist(ev)
	r.mu.Unlock()

	notify()
	return err
}

// Archive ends a habit now. Archiving an archived habit is rejected.
func (r *Repository) Archive(id string) (models.Habit, error) {
	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mu.Unlock()
		return models.Habit{}, fmt.Errorf("habit %s: %w", id, apperrors.ErrNotFound)
	}
	now := r.cal.Now()
	prev := r.habits[i].Clone()
	if prev.IsArchived(now) {
		r.mu.Unlock()
		return models.Habit{}, fmt.Errorf("habit %s is already archived: %w", id, apperrors.ErrInvalidOperation)
	}

	r.habits[i].EndDate = &now
	archived := r.habits[i].Clone()
	notify, err := r.persist(Event{Kind: EventArchived, Habit: archived.Clone(), Previous: &prev})
	r.mu.Unlock()

	notify()
	return archived, err
}

// Modify applies fn to the stored habit and writes the result through. fn
// runs under the repository lock; if it returns an error nothing changes.
// The returned habit reflects the in-memory state even when the write fails.
func (r *Repository) Modify(id string, fn func(*models.Habit) error) (models.Habit, error) {
	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mu.Unlock()
		return models.Habit{}, fmt.Errorf("habit %s: %w", id, apperrors.ErrNotFound)
	}
	prev := r.habits[i].Clone()
	next := r.habits[i].Clone()
	if err := fn(&next); err != nil {
		r.mu.Unlock()
		return prev, err
	}
	next.ID = prev.ID

	r.habits[i] = next
	notify, err := r.persist(Event{Kind: EventToggled, Habit: next.Clone(), Previous: &prev})
	r.mu.Unlock()

	notify()
	return next.Clone(), err
}

// ReplaceAll swaps in a new collection, used when resetting data.
func (r *Repository) ReplaceAll(habits []models.Habit) error {
	r.mu.Lock()
	previous := make([]models.Habit, len(r.habits))
	copy(previous, r.habits)
	r.habits = make([]models.Habit, len(habits))
	for i, h := range habits {
		r.habits[i] = h.Clone()
	}

	var events []Event
	kept := make(map[string]bool, len(habits))
	for _, h := range habits {
		kept[h.ID] = true
	}
	for _, h := range previous {
		if !kept[h.ID] {
			prev := h.Clone()
			events = append(events, Event{Kind: EventDeleted, Habit: prev, Previous: &prev})
		}
	}
	notify, err := r.persist(events...)
	r.mu.Unlock()

	notify()
	return err
}
