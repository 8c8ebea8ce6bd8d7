package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/habitline/internal/models"
)

// EncodeHabits renders habits as a JSON array of habit records.
func EncodeHabits(habits []models.Habit) ([]byte, error) {
	if habits == nil {
		habits = []models.Habit{}
	}
	data, err := json.Marshal(habits)
	if err != nil {
		return nil, fmt.Errorf("failed to encode habits: %w", err)
	}
	return data, nil
}

// DecodeHabits parses a JSON array of habit records. Completions are
// returned in ascending order and nil slices become empty.
func DecodeHabits(data []byte) ([]models.Habit, error) {
	var habits []models.Habit
	if err := json.Unmarshal(data, &habits); err != nil {
		return nil, fmt.Errorf("failed to decode habits: %w", err)
	}
	for i := range habits {
		if habits[i].CompletedDates == nil {
			habits[i].CompletedDates = []time.Time{}
		}
		habits[i].SortCompletions()
	}
	if habits == nil {
		habits = []models.Habit{}
	}
	return habits, nil
}
