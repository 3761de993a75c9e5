package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	durationPattern = regexp.MustCompile(`^(\d+)\s*([smhd])$`)
	datePattern     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	clockPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// ParseDuration reads tokens like 30s, 5m, 2h, 1d.
func ParseDuration(token string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(token)))
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q, use a number followed by s, m, h or d (e.g. 30m, 2h, 1d)", token)
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid duration %q, the amount must be positive", token)
	}

	var unit time.Duration
	switch m[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}

	// Keep the product within time.Duration range.
	if time.Duration(n) > (1<<63-1)/unit {
		return 0, fmt.Errorf("duration %q is too large", token)
	}
	return time.Duration(n) * unit, nil
}

// ParseDateTime combines a DD/MM/YYYY date and an optional HH:MM time in loc.
// An empty clock means midnight.
func ParseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	dm := datePattern.FindStringSubmatch(strings.TrimSpace(date))
	if dm == nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use DD/MM/YYYY", date)
	}
	day, _ := strconv.Atoi(dm[1])
	month, _ := strconv.Atoi(dm[2])
	year, _ := strconv.Atoi(dm[3])

	hour, minute := 0, 0
	if clock = strings.TrimSpace(clock); clock != "" {
		cm := clockPattern.FindStringSubmatch(clock)
		if cm == nil {
			return time.Time{}, fmt.Errorf("invalid time %q, use HH:MM", clock)
		}
		hour, _ = strconv.Atoi(cm[1])
		minute, _ = strconv.Atoi(cm[2])
		if hour > 23 || minute > 59 {
			return time.Time{}, fmt.Errorf("invalid time %q, use HH:MM", clock)
		}
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	// time.Date normalizes 31/02 into March; reject instead.
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, fmt.Errorf("invalid date %q", date)
	}
	return t, nil
}

// SplitOptions splits a poll option list on '|' and drops empty entries.
func SplitOptions(raw string) []string {
	parts := strings.Split(raw, "|")
	options := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			options = append(options, p)
		}
	}
	return options
}
