package utils

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatRemaining renders the time left until target. Minutes are only shown
// when less than a day remains.
func FormatRemaining(now, target time.Time) string {
	if !target.After(now) {
		return "Event reached!"
	}

	d := target.Sub(now)
	days := int(d / (24 * time.Hour))
	hours := int(d%(24*time.Hour)) / int(time.Hour)
	minutes := int(d%time.Hour) / int(time.Minute)

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 && days == 0 {
		parts = append(parts, plural(minutes, "minute"))
	}

	if len(parts) == 0 {
		return "less than 1 minute"
	}
	return strings.Join(parts, " and ")
}

// FormatDuration renders d in its largest whole unit.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return plural(int(d/time.Second), "second")
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d/(24*time.Hour)), "day")
	}
}

// ProgressBar renders ratio (clamped to [0,1]) as size cells.
func ProgressBar(ratio float64, size int) string {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(size))
	return strings.Repeat("█", filled) + strings.Repeat("░", size-filled)
}

// CountdownProgress is the fraction of window already elapsed before target.
func CountdownProgress(now, target time.Time, window time.Duration) float64 {
	left := target.Sub(now)
	if left <= 0 {
		return 1
	}
	p := 1 - float64(left)/float64(window)
	if p < 0 {
		return 0
	}
	return p
}

// Percent returns count/total as a percentage, 0 when total is 0.
func Percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// Timestamp renders a Discord timestamp tag.
func Timestamp(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

// Truncate shortens s to max runes, ending with "...".
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}
