package storage

import (
	"github.com/julianstephens/habitline/internal/models"
	"github.com/julianstephens/habitline/internal/notifier"
)

// Provider is the durable store the application runs against.
type Provider interface {
	// Lifecycle
	Init() error
	Open() error
	Close() error

	// Habits are stored as one document and replaced on every write.
	LoadHabits() ([]models.Habit, error)
	SaveHabits([]models.Habit) error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Notification registry
	LoadNotifications() (notifier.State, error)
	SaveNotifications(notifier.State) error

	GetConfigPath() string
}

// Backend stores opaque documents by key.
type Backend interface {
	Init() error
	Open() error
	Close() error
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	GetConfigPath() string
}
