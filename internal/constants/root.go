package constants

import "time"

const (
	AppName            = "habitline"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/habitline"
	DefaultConfigFile  = "config.yaml"
	DefaultDBFile      = "habitline.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Storage keys. Each key holds one JSON document and is replaced on write.
	StorageKeyHabits        = "habits"
	StorageKeySettings      = "settings"
	StorageKeyNotifications = "notifications"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "habitline-"
	BackupFileSuffix = ".db"

	// Notify constants
	NotifierLockfileName    = "habitline-notifier.lock"
	NotificationDurationMs  = 5000
	TrayAppIdentifier       = "com.julianstephens.habitline"
	TrayExecutablePrefix    = "habitline-tray"
	NotificationGracePeriod = 10 * time.Minute
)
