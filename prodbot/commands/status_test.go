package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/productivity-bot/prodbot"
	"github.com/disgoorg/productivity-bot/prodbot/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepLines(t *testing.T) {
	b := prodbot.New(prodbot.Config{}, "test", "abc123")
	assert.Equal(t, "No sweeps registered.", sweepLines(b, time.Now()))

	require.NoError(t, b.Scheduler.RegisterSpec(dispatch.FamilyReminders, "60s", func(context.Context) (dispatch.PassResult, error) {
		return dispatch.PassResult{Family: dispatch.FamilyReminders, Processed: 2}, nil
	}))
	require.NoError(t, b.Scheduler.RegisterSpec(dispatch.FamilyPolls, "5m", func(context.Context) (dispatch.PassResult, error) {
		return dispatch.PassResult{Family: dispatch.FamilyPolls, Failed: 1}, errors.New("store unavailable")
	}))

	out := sweepLines(b, time.Now())
	assert.Contains(t, out, "every 60s • last never • 0 runs")
	assert.Contains(t, out, "every 5m • last never")

	_, err := b.Scheduler.RunNow(context.Background(), dispatch.FamilyReminders)
	require.NoError(t, err)
	_, err = b.Scheduler.RunNow(context.Background(), dispatch.FamilyPolls)
	require.Error(t, err)

	out = sweepLines(b, time.Now())
	assert.Contains(t, out, "1 runs • 2 sent")
	assert.Contains(t, out, "1 failed • 0 orphaned")
	assert.Contains(t, out, "store unavailable")
	assert.NotContains(t, out, "never")
}
