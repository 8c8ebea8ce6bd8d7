package settings

import (
	"fmt"

	"github.com/julianstephens/habitline/internal/cli"
	"github.com/julianstephens/habitline/internal/constants"
	"github.com/julianstephens/habitline/internal/models"
	"github.com/julianstephens/habitline/internal/notifier"
	"github.com/julianstephens/habitline/internal/reminders"
)

type RemindersCmd struct {
	Show       RemindersShowCmd       `cmd:"" help:"Show reminder settings and the reminders that should exist." default:"1"`
	Set        RemindersSetCmd        `cmd:"" help:"Change reminder settings."`
	Reschedule RemindersRescheduleCmd `cmd:"" help:"Cancel and rebuild every reminder."`
	Pending    RemindersPendingCmd    `cmd:"" help:"List reminders held by the notification service."`
}

type RemindersShowCmd struct{}

func (c *RemindersShowCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	fmt.Println("Reminder Settings:")
	fmt.Printf("  Notifications Enabled:   %v\n", settings.NotificationsEnabled)
	fmt.Printf("  Missed Habits Reminder:  %v\n", settings.MissedHabitNotificationsEnabled)
	fmt.Printf("  Missed Habits Time:      %s\n", settings.MissedTime())
	fmt.Printf("  Timezone:                %s\n", ctx.Calendar.Location())

	desired := ctx.Policy.Desired()
	if len(desired) == 0 {
		fmt.Println("\nNo reminders scheduled for today.")
		return nil
	}
	fmt.Println("\nScheduled reminders:")
	for _, r := range desired {
		status := ""
		if !r.Applied {
			status = " (not delivered to notifier)"
		}
		fmt.Printf("  %s  %-40s %s%s\n", r.Time, r.Key, r.Content.Text(), status)
	}
	return nil
}

type RemindersSetCmd struct {
	NotificationsEnabled *bool   `help:"Enable or disable habit reminders."`
	MissedEnabled        *bool   `help:"Enable or disable the daily missed habits reminder."`
	MissedTime           *string `help:"Time of the missed habits reminder (HH:MM)."`
}

func (c *RemindersSetCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	updated := false
	if c.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *c.NotificationsEnabled
		updated = true
	}
	if c.MissedEnabled != nil {
		settings.MissedHabitNotificationsEnabled = *c.MissedEnabled
		updated = true
	}
	if c.MissedTime != nil {
		t, err := models.ParseTimeOfDay(*c.MissedTime)
		if err != nil {
			return err
		}
		settings.MissedHabitNotificationTime = t.String()
		updated = true
	}

	if !updated {
		fmt.Println("No changes specified. Use 'reminders show' to view settings or flags to update them.")
		return nil
	}
	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	ctx.Policy.ApplySettings(reminders.SettingsFrom(settings))
	fmt.Println("Settings updated successfully.")
	return nil
}

type RemindersRescheduleCmd struct{}

func (c *RemindersRescheduleCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}
	ctx.Policy.RescheduleAll()
	fmt.Printf("Rescheduled %d reminders.\n", len(ctx.Policy.Desired()))
	return nil
}

type RemindersPendingCmd struct{}

func (c *RemindersPendingCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}
	reqs, err := ctx.Center.Requests()
	if err != nil {
		return fmt.Errorf("failed to list pending reminders: %w", err)
	}
	if len(reqs) == 0 {
		fmt.Println("No pending reminders.")
		return nil
	}
	for _, r := range reqs {
		fmt.Printf("  %-8s %-40s %s\n", when(r, ctx), r.Key, r.Content.Text())
	}
	return nil
}

func when(r notifier.Request, ctx *cli.Context) string {
	switch {
	case r.Trigger == notifier.TriggerDaily && r.Time != nil:
		return r.Time.String()
	case r.FireAt != nil:
		return r.FireAt.In(ctx.Calendar.Location()).Format(constants.TimeFormat)
	default:
		return "?"
	}
}
