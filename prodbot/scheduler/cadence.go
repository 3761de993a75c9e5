package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrEmptyCadence = errors.New("cadence is empty")

// ParseCadence accepts either a Go duration ("60s", "5m"), which runs at a
// fixed interval, or a standard cron expression / descriptor
// ("*/5 * * * *", "@every 1m", "@hourly").
func ParseCadence(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, ErrEmptyCadence
	}

	if d, err := time.ParseDuration(spec); err == nil {
		if d < time.Second {
			return nil, fmt.Errorf("cadence %q is shorter than one second", spec)
		}
		return cron.Every(d), nil
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cadence %q: %w", spec, err)
	}
	return schedule, nil
}
