package constants

import "time"

const (
	// Reminder keys understood by the notification service.
	PreferredReminderSuffix = "-preferred"
	EveningReminderSuffix   = "-evening"
	MissedReminderSuffix    = "-missed"
	MissedHabitsReminderKey = "missed-habits-reminder"
	MissedHabitsCheckKey    = "missed-habits-check"

	// MissedHabitsCheckDelay is how long the one-shot aggregate alert waits before firing.
	MissedHabitsCheckDelay = 1 * time.Second

	// Default settings values
	DefaultNotificationsEnabled            = true
	DefaultMissedHabitNotificationsEnabled = false
	DefaultMissedHabitNotificationTime     = "20:00"
	DefaultTimezone                        = "Local"

	// Daemon schedules (robfig/cron syntax)
	DefaultDispatchSchedule = "@every 1m"
	DefaultRolloverSchedule = "0 0 * * *"
)
