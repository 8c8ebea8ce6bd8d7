package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type FrequencyKind string

const (
	FrequencyDaily   FrequencyKind = "daily"
	FrequencyWeekly  FrequencyKind = "weekly"
	FrequencyMonthly FrequencyKind = "monthly"
	FrequencyCustom  FrequencyKind = "custom"
)

type TimeUnit string

const (
	UnitDays  TimeUnit = "days"
	UnitWeeks TimeUnit = "weeks"
)

// Frequency describes how often a habit recurs. Interval and Unit are only
// meaningful for FrequencyCustom and are zero otherwise, so two frequencies
// compare equal with == exactly when they describe the same recurrence.
type Frequency struct {
	Kind     FrequencyKind
	Interval int
	Unit     TimeUnit
}

func Daily() Frequency   { return Frequency{Kind: FrequencyDaily} }
func Weekly() Frequency  { return Frequency{Kind: FrequencyWeekly} }
func Monthly() Frequency { return Frequency{Kind: FrequencyMonthly} }

// Custom returns an "every n units" frequency.
func Custom(interval int, unit TimeUnit) Frequency {
	return Frequency{Kind: FrequencyCustom, Interval: interval, Unit: unit}
}

func (f Frequency) Validate() error {
	switch f.Kind {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return nil
	case FrequencyCustom:
		if f.Interval < 1 {
			return fmt.Errorf("custom frequency interval must be at least 1, got %d", f.Interval)
		}
		if f.Unit != UnitDays && f.Unit != UnitWeeks {
			return fmt.Errorf("invalid custom frequency unit: %q", f.Unit)
		}
		return nil
	default:
		return fmt.Errorf("invalid frequency: %q", f.Kind)
	}
}

func (f Frequency) String() string {
	if f.Kind != FrequencyCustom {
		return string(f.Kind)
	}
	unit := strings.TrimSuffix(string(f.Unit), "s")
	if f.Interval == 1 {
		return "every " + unit
	}
	return fmt.Sprintf("every %d %ss", f.Interval, unit)
}

// ParseFrequency accepts "daily", "weekly", "monthly" and "every N days|weeks".
func ParseFrequency(s string) (Frequency, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 1 {
		switch FrequencyKind(fields[0]) {
		case FrequencyDaily:
			return Daily(), nil
		case FrequencyWeekly:
			return Weekly(), nil
		case FrequencyMonthly:
			return Monthly(), nil
		}
	}

	if len(fields) < 2 || fields[0] != "every" {
		return Frequency{}, fmt.Errorf("invalid frequency: %q (expected daily, weekly, monthly or \"every N days|weeks\")", s)
	}

	interval := 1
	unitField := fields[1]
	if len(fields) == 3 {
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return Frequency{}, fmt.Errorf("invalid frequency interval: %q", fields[1])
		}
		interval = n
		unitField = fields[2]
	} else if len(fields) != 2 {
		return Frequency{}, fmt.Errorf("invalid frequency: %q", s)
	}

	unit, err := parseTimeUnit(unitField)
	if err != nil {
		return Frequency{}, err
	}
	f := Custom(interval, unit)
	if err := f.Validate(); err != nil {
		return Frequency{}, err
	}
	return f, nil
}

func parseTimeUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(s) {
	case "day", "days":
		return UnitDays, nil
	case "week", "weeks":
		return UnitWeeks, nil
	default:
		return "", fmt.Errorf("invalid time unit: %q", s)
	}
}

type frequencyJSON struct {
	Type     string `json:"type"`
	Interval int    `json:"interval,omitempty"`
	Unit     string `json:"unit,omitempty"`
}

func (f Frequency) MarshalJSON() ([]byte, error) {
	v := frequencyJSON{Type: string(f.Kind)}
	if f.Kind == FrequencyCustom {
		v.Interval = f.Interval
		v.Unit = string(f.Unit)
	}
	return json.Marshal(v)
}

// UnmarshalJSON decodes the tagged form. Unknown types decode as daily;
// capitalised values written by older clients ("Daily", "Weeks") are accepted.
func (f *Frequency) UnmarshalJSON(data []byte) error {
	var v frequencyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decoding frequency: %w", err)
	}

	switch FrequencyKind(strings.ToLower(v.Type)) {
	case FrequencyWeekly:
		*f = Weekly()
	case FrequencyMonthly:
		*f = Monthly()
	case FrequencyCustom:
		unit, err := parseTimeUnit(v.Unit)
		if err != nil {
			return fmt.Errorf("decoding custom frequency: %w", err)
		}
		interval := v.Interval
		if interval < 1 {
			interval = 1
		}
		*f = Custom(interval, unit)
	default:
		*f = Daily()
	}
	return nil
}
