package habits

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/habitline/internal/cli"
	"github.com/julianstephens/habitline/internal/constants"
	"github.com/julianstephens/habitline/internal/models"
	"github.com/julianstephens/habitline/internal/stats"
)

type HabitCmd struct {
	Add     HabitAddCmd     `cmd:"" help:"Add a new habit."`
	List    HabitListCmd    `cmd:"" help:"List habits."`
	Show    HabitShowCmd    `cmd:"" help:"Show a habit in detail."`
	Edit    HabitEditCmd    `cmd:"" help:"Edit an existing habit."`
	Archive HabitArchiveCmd `cmd:"" help:"Archive a habit."`
	Delete  HabitDeleteCmd  `cmd:"" help:"Delete a habit permanently."`
	Toggle  HabitToggleCmd  `cmd:"" help:"Toggle today's completion of a habit."`
	Today   HabitTodayCmd   `cmd:"" help:"Show today's habit status."`
	Stats   HabitStatsCmd   `cmd:"" help:"Show streaks and progress."`
	Reset   HabitResetCmd   `cmd:"" help:"Delete all habits."`
}

type HabitAddCmd struct {
	Title       string `arg:"" help:"Habit title."`
	Description string `help:"Optional description."`
	Priority    string `help:"Priority: low, medium or high." default:"medium"`
	Frequency   string `help:"daily, weekly, monthly or \"every N days|weeks\"." default:"daily"`
	Goal        int    `help:"Completions needed per goal period." default:"1"`
	Period      string `help:"Goal period: day, week or month." default:"day"`
	Reminder    string `help:"Daily reminder time (HH:MM)."`
	EndDate     string `help:"Date the habit ends (YYYY-MM-DD)."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}

	for _, h := range ctx.Repo.List() {
		if strings.EqualFold(h.Title, strings.TrimSpace(c.Title)) {
			return fmt.Errorf("habit with title %q already exists", c.Title)
		}
	}

	priority, err := models.ParsePriority(c.Priority)
	if err != nil {
		return err
	}
	freq, err := models.ParseFrequency(c.Frequency)
	if err != nil {
		return err
	}
	period, err := models.ParsePeriod(c.Period)
	if err != nil {
		return err
	}

	opts := []models.HabitOption{
		models.WithDescription(c.Description),
		models.WithPriority(priority),
		models.WithFrequency(freq),
		models.WithGoal(models.Goal{Target: c.Goal, Period: period}),
	}
	if c.Reminder != "" {
		t, err := models.ParseTimeOfDay(c.Reminder)
		if err != nil {
			return err
		}
		opts = append(opts, models.WithReminder(t))
	}
	if c.EndDate != "" {
		end, err := ctx.ParseDate(c.EndDate)
		if err != nil {
			return err
		}
		opts = append(opts, models.WithEndDate(end))
	}

	habit, err := models.NewHabit(c.Title, ctx.Calendar.Now(), opts...)
	if err != nil {
		return err
	}
	if err := ctx.Repo.Add(habit); err != nil {
		return err
	}

	fmt.Printf("Added habit: %s (%s)\n", habit.Title, cli.ShortID(habit.ID))
	return nil
}

type HabitListCmd struct {
	Archived bool `help:"Include archived habits."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}

	now := ctx.Calendar.Now()
	shown := 0
	for _, h := range ctx.Repo.List() {
		status := ""
		if h.IsArchived(now) {
			if !c.Archived {
				continue
			}
			status = " [ARCHIVED]"
		}
		fmt.Printf("%s  %-24s %-10s %-12s reminder %s%s\n",
			cli.ShortID(h.ID), h.Title, h.Frequency, h.Goal, cli.FormatReminder(h), status)
		shown++
	}
	if shown == 0 {
		fmt.Println("No habits found.")
	}
	return nil
}

type HabitShowCmd struct {
	Habit string `arg:"" help:"Habit id, id prefix or title."`
}

func (c *HabitShowCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}
	h, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}

	now := ctx.Calendar.Now()
	fmt.Printf("ID:          %s\n", h.ID)
	fmt.Printf("Title:       %s\n", h.Title)
	if h.Description != "" {
		fmt.Printf("Description: %s\n", h.Description)
	}
	fmt.Printf("Priority:    %s\n", h.Priority)
	fmt.Printf("Frequency:   %s\n", h.Frequency)
	fmt.Printf("Goal:        %s\n", h.Goal)
	fmt.Printf("Reminder:    %s\n", cli.FormatReminder(h))
	fmt.Printf("Created:     %s\n", h.CreationDate.In(ctx.Calendar.Location()).Format(constants.DateFormat))
	if h.EndDate != nil {
		fmt.Printf("Ends:        %s\n", h.EndDate.In(ctx.Calendar.Location()).Format(constants.DateFormat))
	}
	state := "active"
	if h.IsArchived(now) {
		state = "archived"
	}
	fmt.Printf("State:       %s\n", state)
	fmt.Printf("Today:       %s\n", checkbox(h.IsCompletedToday(ctx.Calendar)))
	return nil
}

type HabitEditCmd struct {
	Habit         string  `arg:"" help:"Habit id, id prefix or title."`
	Title         *string `help:"New title."`
	Description   *string `help:"New description."`
	Priority      *string `help:"Priority: low, medium or high."`
	Frequency     *string `help:"daily, weekly, monthly or \"every N days|weeks\"."`
	Goal          *int    `help:"Completions needed per goal period."`
	Period        *string `help:"Goal period: day, week or month."`
	Reminder      *string `help:"Daily reminder time (HH:MM), or \"none\" to remove it."`
	Notifications *bool   `help:"Enable or disable the reminder for this habit."`
	EndDate       *string `help:"Date the habit ends (YYYY-MM-DD), or \"none\"."`
}

func (c *HabitEditCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}
	h, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	if err := c.apply(ctx, &h); err != nil {
		return err
	}
	if err := ctx.Repo.Update(h); err != nil {
		return err
	}
	fmt.Printf("Updated habit: %s\n", h.Title)
	return nil
}

func (c *HabitEditCmd) apply(ctx *cli.Context, h *models.Habit) error {
	if c.Title != nil {
		h.Title = strings.TrimSpace(*c.Title)
	}
	if c.Description != nil {
		h.Description = *c.Description
	}
	if c.Priority != nil {
		p, err := models.ParsePriority(*c.Priority)
		if err != nil {
			return err
		}
		h.Priority = p
	}
	if c.Frequency != nil {
		f, err := models.ParseFrequency(*c.Frequency)
		if err != nil {
			return err
		}
		h.Frequency = f
	}
	if c.Goal != nil {
		h.Goal.Target = *c.Goal
	}
	if c.Period != nil {
		p, err := models.ParsePeriod(*c.Period)
		if err != nil {
			return err
		}
		h.Goal.Period = p
	}
	if c.Reminder != nil {
		if strings.EqualFold(*c.Reminder, "none") {
			h.NotificationTime = nil
			h.NotificationsEnabled = false
		} else {
			t, err := models.ParseTimeOfDay(*c.Reminder)
			if err != nil {
				return err
			}
			h.NotificationTime = &t
			h.NotificationsEnabled = true
		}
	}
	if c.Notifications != nil {
		h.NotificationsEnabled = *c.Notifications
	}
	if c.EndDate != nil {
		if strings.EqualFold(*c.EndDate, "none") {
			h.EndDate = nil
		} else {
			end, err := ctx.ParseDate(*c.EndDate)
			if err != nil {
				return err
			}
			h.EndDate = &end
		}
	}
	return nil
}

type HabitArchiveCmd struct {
	Habit string `arg:"" help:"Habit id, id prefix or title."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}
	h, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	if _, err := ctx.Repo.Archive(h.ID); err != nil {
		return err
	}
	fmt.Printf("Archived habit: %s\n", h.Title)
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit id, id prefix or title."`
	Yes   bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}
	h, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	if !c.Yes && !ctx.Confirm(fmt.Sprintf("Delete habit %q and its history?", h.Title)) {
		fmt.Println("Delete cancelled.")
		return nil
	}
	if err := ctx.Repo.Delete(h.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted habit: %s\n", h.Title)
	return nil
}

type HabitToggleCmd struct {
	Habit string `arg:"" help:"Habit id, id prefix or title."`
}

func (c *HabitToggleCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}
	h, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	state, err := ctx.Tracker.Toggle(context.Background(), h.ID, ctx.Calendar.Now())
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", h.Title, state)
	return nil
}

type HabitTodayCmd struct{}

func (c *HabitTodayCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}

	now := ctx.Calendar.Now()
	var visible []models.Habit
	for _, h := range ctx.Repo.ListForDate(now) {
		if h.IsActive(now) {
			visible = append(visible, h)
		}
	}
	if len(visible) == 0 {
		fmt.Println("No habits for today.")
		return nil
	}

	fmt.Printf("Habits for %s:\n\n", now.Format(constants.DateFormat))
	done := 0
	for _, h := range visible {
		completed := h.IsCompletedToday(ctx.Calendar)
		if completed {
			done++
		}
		n, target := stats.PeriodCompletion(ctx.Calendar, h, now)
		fmt.Printf("%s %-24s %d/%d this %s\n", checkbox(completed), h.Title, n, target, h.Goal.Period)
	}
	fmt.Printf("\nCompleted: %d/%d\n", done, len(visible))
	return nil
}

type HabitStatsCmd struct {
	Habit string `arg:"" optional:"" help:"Limit to one habit (id, id prefix or title)."`
}

func (c *HabitStatsCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}

	habits := ctx.Repo.List()
	if c.Habit != "" {
		h, err := ctx.ResolveHabit(c.Habit)
		if err != nil {
			return err
		}
		habits = []models.Habit{h}
	}
	if len(habits) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	now := ctx.Calendar.Now()
	for _, h := range habits {
		s := stats.Summarize(ctx.Calendar, h, now)
		fmt.Printf("%s\n", h.Title)
		fmt.Printf("  Current streak:  %d\n", s.CurrentStreak)
		fmt.Printf("  Longest streak:  %d\n", s.LongestStreak)
		fmt.Printf("  Completions:     %d in %d days (%.0f%%)\n", s.TotalCompletions, s.DaysTracked, s.SuccessRate*100)
		fmt.Printf("  Goal progress:   %.0f%% of %s\n", stats.Progress(ctx.Calendar, h, now)*100, h.Goal)
	}
	return nil
}

type HabitResetCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

func (c *HabitResetCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}
	if !c.Yes && !ctx.Confirm("Delete ALL habits and their history?") {
		fmt.Println("Reset cancelled.")
		return nil
	}

	ctx.PerformAutomaticBackup()
	if err := ctx.Repo.ReplaceAll(nil); err != nil {
		return err
	}
	ctx.Policy.RescheduleAll()
	fmt.Println("All habits deleted.")
	return nil
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}
