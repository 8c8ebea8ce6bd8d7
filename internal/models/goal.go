package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	case "":
		return PriorityMedium, nil
	default:
		return "", fmt.Errorf("invalid priority: %q (expected low, medium or high)", s)
	}
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding priority: %w", err)
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		parsed = PriorityMedium
	}
	*p = parsed
	return nil
}

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "daily":
		return PeriodDay, nil
	case "week", "weekly":
		return PeriodWeek, nil
	case "month", "monthly":
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("invalid goal period: %q (expected day, week or month)", s)
	}
}

// UnmarshalJSON accepts both "week" and the older "Weekly" spelling.
func (p *Period) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding goal period: %w", err)
	}
	parsed, err := ParsePeriod(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Goal is a completion target per period, e.g. 3 per week.
type Goal struct {
	Target int    `json:"target"`
	Period Period `json:"period"`
}

func DefaultGoal() Goal {
	return Goal{Target: 1, Period: PeriodDay}
}

func (g Goal) String() string {
	return fmt.Sprintf("%d per %s", g.Target, g.Period)
}
