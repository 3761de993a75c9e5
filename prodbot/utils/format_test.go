package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRemaining(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		target time.Time
		want   string
	}{
		{"reached", now, "Event reached!"},
		{"seconds", now.Add(30 * time.Second), "less than 1 minute"},
		{"minutes", now.Add(45 * time.Minute), "45 minutes"},
		{"hours and minutes", now.Add(time.Hour + time.Minute), "1 hour and 1 minute"},
		{"days hide minutes", now.Add(2*24*time.Hour + 3*time.Hour + 15*time.Minute), "2 days and 3 hours"},
		{"one day", now.Add(24*time.Hour + 10*time.Minute), "1 day"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRemaining(now, tt.target))
		})
	}
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "░░░░░░░░░░", ProgressBar(0, 10))
	assert.Equal(t, "█████░░░░░", ProgressBar(0.5, 10))
	assert.Equal(t, "██████████", ProgressBar(1.7, 10))
	assert.Equal(t, "░░░░░░░░░░", ProgressBar(-1, 10))
}

func TestCountdownProgress(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour

	assert.Equal(t, 0.0, CountdownProgress(now, now.Add(2*week), week))
	assert.InDelta(t, 0.5, CountdownProgress(now, now.Add(week/2), week), 1e-9)
	assert.Equal(t, 1.0, CountdownProgress(now, now.Add(-time.Minute), week))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(0, 0))
	assert.Equal(t, 25.0, Percent(1, 4))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
	assert.Equal(t, "ééé...", Truncate("éééééééé", 6))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "30 seconds", FormatDuration(30*time.Second))
	assert.Equal(t, "1 minute", FormatDuration(time.Minute))
	assert.Equal(t, "2 hours", FormatDuration(2*time.Hour+5*time.Minute))
	assert.Equal(t, "3 days", FormatDuration(72*time.Hour))
}
