package prodbot

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_DefaultsAndFile(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	path := writeConfig(t, `
[log]
level = "debug"

[bot]
token = "file-token"
dev_guilds = ["123456789012345678"]

[db]
driver = "sqlite"
path = "test.db"

[scheduler]
reminders = "30s"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Bot.Token)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "test.db", cfg.DB.Path)
	assert.Equal(t, "30s", cfg.Scheduler.Reminders)
	assert.Equal(t, "5m", cfg.Scheduler.Countdowns)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.ItemTimeout)
	assert.Equal(t, 50, cfg.Limits.MaxTasksPerUser)
	assert.Equal(t, time.Hour, cfg.DB.MaxLifetime)
	assert.Equal(t, "UTC", cfg.Bot.Timezone)

	ids, err := cfg.Bot.DevGuildIDs()
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "123456789012345678", ids[0].String())

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[bot]
token = "file-token"
`)
	t.Setenv("PRODBOT_BOT__TOKEN", "env-token")
	t.Setenv("PRODBOT_DB__HOST", "db.internal")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Bot.Token)
	assert.Equal(t, "db.internal", cfg.DB.Host)
}

func TestLoadConfig_LegacyTokenAndMissingFile(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "legacy-token")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", cfg.Bot.Token)
	assert.Equal(t, "postgres", cfg.DB.Driver)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Bot: BotConfig{Token: "token"},
			DB:  DBConfig{Driver: "sqlite", Path: "bot.db"},
			Scheduler: SchedulerConfig{
				Countdowns:        "5m",
				Reminders:         "60s",
				ScheduledMessages: "@every 1m",
				Polls:             "*/1 * * * *",
				ItemTimeout:       time.Second,
				DrainTimeout:      time.Second,
			},
			Limits: LimitsConfig{MaxPollOptions: 10, MaxReminderDays: 365, MaxTasksPerUser: 50, MaxMessageLength: 2000},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Bot.Token = "" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.DB.Driver = "mysql" }, wantErr: true},
		{name: "postgres without database", mutate: func(c *Config) { c.DB.Driver = "postgres" }, wantErr: true},
		{name: "bad cadence", mutate: func(c *Config) { c.Scheduler.Reminders = "soon" }, wantErr: true},
		{name: "too many poll options", mutate: func(c *Config) { c.Limits.MaxPollOptions = 11 }, wantErr: true},
		{name: "bad dev guild", mutate: func(c *Config) { c.Bot.DevGuilds = []string{"abc"} }, wantErr: true},
		{name: "named timezone", mutate: func(c *Config) { c.Bot.Timezone = "America/Sao_Paulo" }},
		{name: "bad timezone", mutate: func(c *Config) { c.Bot.Timezone = "Mars/Olympus" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
