package models

import (
	"github.com/julianstephens/habitline/internal/constants"
)

// Settings represents application-wide settings
type Settings struct {
	NotificationsEnabled            bool   `json:"notifications_enabled"`              // master switch for habit reminders
	MissedHabitNotificationsEnabled bool   `json:"missed_habit_notifications_enabled"` // whether the daily missed-habits reminder is scheduled
	MissedHabitNotificationTime     string `json:"missed_habit_notification_time"`     // HH:MM
	Timezone                        string `json:"timezone"`                           // IANA timezone name, or "Local"
}

// DefaultSettings returns the settings a fresh store starts with.
func DefaultSettings() Settings {
	return Settings{
		NotificationsEnabled:            constants.DefaultNotificationsEnabled,
		MissedHabitNotificationsEnabled: constants.DefaultMissedHabitNotificationsEnabled,
		MissedHabitNotificationTime:     constants.DefaultMissedHabitNotificationTime,
		Timezone:                        constants.DefaultTimezone,
	}
}

// ApplyDefaultSettings applies default values to missing settings.
func ApplyDefaultSettings(settings *Settings) {
	if settings.MissedHabitNotificationTime == "" {
		settings.MissedHabitNotificationTime = constants.DefaultMissedHabitNotificationTime
	}
	if settings.Timezone == "" {
		settings.Timezone = constants.DefaultTimezone
	}
}

// MissedTime parses MissedHabitNotificationTime, falling back to the default.
func (s Settings) MissedTime() TimeOfDay {
	t, err := ParseTimeOfDay(s.MissedHabitNotificationTime)
	if err != nil {
		t, _ = ParseTimeOfDay(constants.DefaultMissedHabitNotificationTime)
	}
	return t
}
