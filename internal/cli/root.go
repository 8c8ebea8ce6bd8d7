package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/habitline/internal/backup"
	"github.com/julianstephens/habitline/internal/calendar"
	"github.com/julianstephens/habitline/internal/config"
	"github.com/julianstephens/habitline/internal/constants"
	"github.com/julianstephens/habitline/internal/logger"
	"github.com/julianstephens/habitline/internal/models"
	"github.com/julianstephens/habitline/internal/notifier"
	"github.com/julianstephens/habitline/internal/reminders"
	"github.com/julianstephens/habitline/internal/repository"
	"github.com/julianstephens/habitline/internal/storage"
	"github.com/julianstephens/habitline/internal/tracker"
)

// Context is shared by every command. Store and Config are set by main;
// the rest is built by Open.
type Context struct {
	Config *config.Config
	Store  storage.Provider
	// Clock and Sender are optional. Tests set them; main leaves them nil.
	Clock  calendar.Clock
	Sender notifier.Sender
	In     io.Reader

	Calendar *calendar.Calendar
	Repo     *repository.Repository
	Center   *notifier.Center
	Policy   *reminders.Policy
	Tracker  *tracker.Tracker

	opened bool
}

// Open opens the store and wires the habit core on top of it. It is safe to
// call more than once.
func (c *Context) Open() error {
	if c.opened {
		return nil
	}
	if c.Config == nil {
		cfg := config.Default()
		c.Config = &cfg
	}
	if err := c.Store.Open(); err != nil {
		return err
	}

	settings, err := c.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cal, err := c.Config.NewCalendar(c.Clock)
	if err != nil {
		return err
	}
	c.Calendar = cal

	c.Repo = repository.New(c.Store, cal, logger.With("repository"))
	c.Repo.Load()

	c.Center = notifier.NewCenter(c.Store, c.sender(), cal, logger.With("notifier"))
	c.Center.SetGracePeriod(c.Config.Daemon.GracePeriod)

	c.Policy = reminders.NewPolicy(c.Center, c.Repo, cal, reminders.SettingsFrom(settings), logger.With("reminders"))
	c.Repo.Subscribe(c.Policy.HandleEvent)
	c.Tracker = tracker.New(c.Repo, c.Policy, cal, logger.With("tracker"))

	c.opened = true
	return nil
}

// Reload re-reads habits and settings written by other processes.
func (c *Context) Reload() error {
	if err := c.Open(); err != nil {
		return err
	}
	c.Repo.Load()
	settings, err := c.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	c.Policy.ApplySettings(reminders.SettingsFrom(settings))
	return nil
}

func (c *Context) sender() notifier.Sender {
	if c.Sender != nil {
		return c.Sender
	}
	if c.Config.Notifier.DryRun {
		return notifier.StdoutSender{}
	}
	return notifier.NewTrayNotifier()
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if c.Config != nil && c.Config.Storage.Driver == config.DriverPostgres {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.CreateBackup(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Confirm asks a yes/no question on In, defaulting to no.
func (c *Context) Confirm(prompt string) bool {
	in := c.In
	if in == nil {
		in = os.Stdin
	}
	fmt.Printf("%s [y/N]: ", prompt)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// ResolveHabit finds a habit by id, unique id prefix or case-insensitive
// title.
func (c *Context) ResolveHabit(ref string) (models.Habit, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Habit{}, fmt.Errorf("habit reference cannot be empty")
	}
	if h, err := c.Repo.Get(ref); err == nil {
		return h, nil
	}

	var matches []models.Habit
	for _, h := range c.Repo.List() {
		if strings.EqualFold(h.Title, ref) {
			return h, nil
		}
		if strings.HasPrefix(h.ID, ref) {
			matches = append(matches, h)
		}
	}
	switch len(matches) {
	case 0:
		return models.Habit{}, fmt.Errorf("habit %q not found", ref)
	case 1:
		return matches[0], nil
	default:
		return models.Habit{}, fmt.Errorf("habit reference %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// ParseDate parses a YYYY-MM-DD date in the calendar's time zone. An empty
// string means now.
func (c *Context) ParseDate(s string) (time.Time, error) {
	if s == "" {
		return c.Calendar.Now(), nil
	}
	t, err := time.ParseInLocation(constants.DateFormat, s, c.Calendar.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", s)
	}
	return t, nil
}

// FormatReminder renders a habit's reminder setting.
func FormatReminder(h models.Habit) string {
	if h.NotificationTime == nil {
		return "none"
	}
	if !h.NotificationsEnabled {
		return h.NotificationTime.String() + " (off)"
	}
	return h.NotificationTime.String()
}

// ShortID is the id prefix shown in listings.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
