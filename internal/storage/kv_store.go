package storage

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/habitline/internal/constants"
	"github.com/julianstephens/habitline/internal/models"
	"github.com/julianstephens/habitline/internal/notifier"
	"github.com/julianstephens/habitline/internal/storage/postgres"
	"github.com/julianstephens/habitline/internal/storage/sqlite"
)

// KVStore implements Provider over any document Backend.
type KVStore struct {
	backend Backend
}

func NewKVStore(backend Backend) *KVStore {
	return &KVStore{backend: backend}
}

// NewSQLiteStore creates the default SQLite-backed provider.
func NewSQLiteStore(path string) *KVStore {
	return NewKVStore(sqlite.NewStore(path))
}

// NewPostgresStore creates a PostgreSQL-backed provider.
func NewPostgresStore(connStr string) *KVStore {
	return NewKVStore(postgres.New(connStr))
}

// NewJSONStore creates a provider backed by a single JSON file.
func NewJSONStore(path string) *KVStore {
	return NewKVStore(NewJSONFile(path))
}

// Backend returns the underlying document backend.
func (s *KVStore) Backend() Backend {
	return s.backend
}

// Init prepares the backend and writes default settings when none exist.
func (s *KVStore) Init() error {
	if err := s.backend.Init(); err != nil {
		return err
	}
	if _, ok, err := s.backend.Get(constants.StorageKeySettings); err != nil {
		return err
	} else if !ok {
		if err := s.SaveSettings(models.DefaultSettings()); err != nil {
			return fmt.Errorf("failed to save default settings: %w", err)
		}
	}
	return nil
}

func (s *KVStore) Open() error {
	return s.backend.Open()
}

func (s *KVStore) Close() error {
	return s.backend.Close()
}

func (s *KVStore) GetConfigPath() string {
	return s.backend.GetConfigPath()
}

// LoadHabits returns the stored habits. An absent document is an empty list.
func (s *KVStore) LoadHabits() ([]models.Habit, error) {
	data, ok, err := s.backend.Get(constants.StorageKeyHabits)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.Habit{}, nil
	}
	return DecodeHabits(data)
}

func (s *KVStore) SaveHabits(habits []models.Habit) error {
	data, err := EncodeHabits(habits)
	if err != nil {
		return err
	}
	return s.backend.Put(constants.StorageKeyHabits, data)
}

func (s *KVStore) GetSettings() (models.Settings, error) {
	settings := models.DefaultSettings()
	data, ok, err := s.backend.Get(constants.StorageKeySettings)
	if err != nil {
		return models.Settings{}, err
	}
	if !ok {
		return settings, nil
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return models.Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	models.ApplyDefaultSettings(&settings)
	return settings, nil
}

func (s *KVStore) SaveSettings(settings models.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return s.backend.Put(constants.StorageKeySettings, data)
}

func (s *KVStore) LoadNotifications() (notifier.State, error) {
	data, ok, err := s.backend.Get(constants.StorageKeyNotifications)
	if err != nil {
		return notifier.State{}, err
	}
	if !ok {
		return notifier.State{}, nil
	}
	var st notifier.State
	if err := json.Unmarshal(data, &st); err != nil {
		return notifier.State{}, fmt.Errorf("failed to parse notifications: %w", err)
	}
	return st, nil
}

func (s *KVStore) SaveNotifications(st notifier.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode notifications: %w", err)
	}
	return s.backend.Put(constants.StorageKeyNotifications, data)
}
