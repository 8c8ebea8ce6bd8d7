package notifier

import (
	"context"
	"time"

	"github.com/julianstephens/habitline/internal/models"
)

type Trigger string

const (
	// TriggerDaily repeats every day at a wall-clock time.
	TriggerDaily Trigger = "daily"
	// TriggerOnce fires a single time at FireAt.
	TriggerOnce Trigger = "once"
)

// Content is what the user sees.
type Content struct {
	Title   string `json:"title"`
	Body    string `json:"body,omitempty"`
	HabitID string `json:"habit_id,omitempty"`
}

// Text renders the content as a single line for the tray webhook.
func (c Content) Text() string {
	if c.Body == "" {
		return c.Title
	}
	return c.Title + ": " + c.Body
}

// Request is one scheduled notification, identified by Key.
type Request struct {
	Key       string            `json:"key"`
	Trigger   Trigger           `json:"trigger"`
	Time      *models.TimeOfDay `json:"time,omitempty"`
	FireAt    *time.Time        `json:"fire_at,omitempty"`
	Content   Content           `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
}

// Delivery records a notification that was shown.
type Delivery struct {
	Key         string    `json:"key"`
	DeliveredAt time.Time `json:"delivered_at"`
	// Dismissed deliveries were cancelled afterwards and no longer listed.
	Dismissed bool `json:"dismissed,omitempty"`
}

// State is the persisted notification registry.
type State struct {
	Pending   []Request  `json:"pending"`
	Delivered []Delivery `json:"delivered"`
}

// Registry persists the notification state.
type Registry interface {
	LoadNotifications() (State, error)
	SaveNotifications(State) error
}

// Sender shows a notification to the user.
type Sender interface {
	Notify(ctx context.Context, content Content) error
}

// Service is the scheduling surface the reminder policy drives. Keys are
// unique; scheduling an existing key replaces it.
type Service interface {
	Schedule(key string, at models.TimeOfDay, content Content) error
	ScheduleOnce(key string, delay time.Duration, content Content) error
	Cancel(keys []string) error
	ListPending() ([]string, error)
	ListDelivered() ([]string, error)
}
