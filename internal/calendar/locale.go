package calendar

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Regions whose weeks do not start on Monday (CLDR weekData firstDay).
var (
	sundayFirstRegions = map[string]bool{
		"AG": true, "AS": true, "BD": true, "BR": true, "BS": true, "BT": true,
		"BW": true, "BZ": true, "CA": true, "CN": true, "CO": true, "DM": true,
		"DO": true, "ET": true, "GT": true, "GU": true, "HK": true, "HN": true,
		"ID": true, "IL": true, "IN": true, "JM": true, "JP": true, "KE": true,
		"KH": true, "KR": true, "LA": true, "MH": true, "MM": true, "MO": true,
		"MT": true, "MX": true, "MZ": true, "NI": true, "NP": true, "PA": true,
		"PE": true, "PH": true, "PK": true, "PR": true, "PT": true, "PY": true,
		"SA": true, "SG": true, "SV": true, "TH": true, "TT": true, "TW": true,
		"UM": true, "US": true, "VE": true, "VI": true, "WS": true, "YE": true,
		"ZA": true, "ZW": true,
	}
	saturdayFirstRegions = map[string]bool{
		"AE": true, "AF": true, "BH": true, "DJ": true, "DZ": true, "EG": true,
		"IQ": true, "IR": true, "JO": true, "KW": true, "LY": true, "OM": true,
		"QA": true, "SD": true, "SY": true,
	}
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return loc, nil
}

// FirstWeekdayFromEnv derives the first day of the week from the POSIX
// locale variables, falling back to Monday.
func FirstWeekdayFromEnv() time.Weekday {
	for _, key := range []string{"LC_ALL", "LC_TIME", "LANG"} {
		v := os.Getenv(key)
		if v == "" || v == "C" || v == "POSIX" || strings.HasPrefix(v, "C.") {
			continue
		}
		return FirstWeekdayForLocale(v)
	}
	return time.Monday
}

// FirstWeekdayForLocale maps a locale such as "en_US.UTF-8" or "de-DE" to
// the first day of its week.
func FirstWeekdayForLocale(locale string) time.Weekday {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "_", "-")

	tag, err := language.Parse(locale)
	if err != nil {
		return time.Monday
	}
	region, confidence := tag.Region()
	if confidence == language.No {
		return time.Monday
	}

	switch code := region.String(); {
	case sundayFirstRegions[code]:
		return time.Sunday
	case saturdayFirstRegions[code]:
		return time.Saturday
	default:
		return time.Monday
	}
}

// ParseWeekday parses a weekday name. "auto" and "" defer to the environment.
func ParseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FirstWeekdayFromEnv(), nil
	case "sun", "sunday":
		return time.Sunday, nil
	case "mon", "monday":
		return time.Monday, nil
	case "tue", "tuesday":
		return time.Tuesday, nil
	case "wed", "wednesday":
		return time.Wednesday, nil
	case "thu", "thursday":
		return time.Thursday, nil
	case "fri", "friday":
		return time.Friday, nil
	case "sat", "saturday":
		return time.Saturday, nil
	default:
		return time.Monday, fmt.Errorf("invalid weekday: %s", s)
	}
}
