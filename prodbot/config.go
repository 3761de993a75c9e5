package prodbot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/scheduler"
	"github.com/disgoorg/snowflake/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pelletier/go-toml/v2"
)

const envPrefix = "PRODBOT_"

// tomlParser lets koanf read TOML through go-toml.
type tomlParser struct{}

func (tomlParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (tomlParser) Marshal(o map[string]interface{}) ([]byte, error) {
	return toml.Marshal(o)
}

func defaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"log": map[string]interface{}{
			"level":      "info",
			"format":     "text",
			"add_source": false,
		},
		"bot": map[string]interface{}{
			"timezone": "UTC",
		},
		"db": map[string]interface{}{
			"driver":         "postgres",
			"host":           "localhost",
			"port":           5432,
			"pool_size":      10,
			"max_idle_conns": 5,
			"max_lifetime":   "1h",
			"path":           "bot_database.db",
		},
		"scheduler": map[string]interface{}{
			"countdowns":         config.DefaultCountdownCadence,
			"reminders":          config.DefaultReminderCadence,
			"scheduled_messages": config.DefaultMessageCadence,
			"polls":              config.DefaultPollCadence,
			"item_timeout":       config.DefaultItemTimeout.String(),
			"drain_timeout":      config.DefaultDrainTimeout.String(),
		},
		"limits": map[string]interface{}{
			"max_poll_options":   config.MaxPollOptions,
			"max_reminder_days":  config.MaxReminderDays,
			"max_tasks_per_user": config.MaxTasksPerUser,
			"max_message_length": config.MaxMessageLength,
		},
	}
}

// LoadConfig layers defaults, the TOML file at path and PRODBOT_ environment
// variables, in that order. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultConfig(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err = k.Load(file.Provider(path), tomlParser{}); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
	}

	// PRODBOT_DB__HOST -> db.host
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Bot.Token == "" {
		cfg.Bot.Token = os.Getenv("DISCORD_BOT_TOKEN")
	}

	return &cfg, nil
}

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Bot       BotConfig       `koanf:"bot"`
	DB        DBConfig        `koanf:"db"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Limits    LimitsConfig    `koanf:"limits"`
}

type BotConfig struct {
	DevGuilds []string `koanf:"dev_guilds"`
	Token     string   `koanf:"token"`
	// Timezone is used to read dates and times typed into commands.
	Timezone string `koanf:"timezone"`
}

func (c BotConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// DevGuildIDs parses the configured dev guilds.
func (c BotConfig) DevGuildIDs() ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(c.DevGuilds))
	for _, raw := range c.DevGuilds {
		id, err := snowflake.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid dev guild %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type LogConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	AddSource bool   `koanf:"add_source"`
}

func (c LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type DBConfig struct {
	Driver       string        `koanf:"driver"`
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	User         string        `koanf:"user"`
	Password     string        `koanf:"password"`
	Database     string        `koanf:"database"`
	PoolSize     int           `koanf:"pool_size"`
	MaxIdleConns int           `koanf:"max_idle_conns"`
	MaxLifetime  time.Duration `koanf:"max_lifetime"`
	Path         string        `koanf:"path"`
}

type SchedulerConfig struct {
	Countdowns        string        `koanf:"countdowns"`
	Reminders         string        `koanf:"reminders"`
	ScheduledMessages string        `koanf:"scheduled_messages"`
	Polls             string        `koanf:"polls"`
	ItemTimeout       time.Duration `koanf:"item_timeout"`
	DrainTimeout      time.Duration `koanf:"drain_timeout"`
}

// Cadences maps each family to its configured cadence spec.
func (c SchedulerConfig) Cadences() map[string]string {
	return map[string]string{
		scheduler.FamilyCountdowns:        c.Countdowns,
		scheduler.FamilyReminders:         c.Reminders,
		scheduler.FamilyScheduledMessages: c.ScheduledMessages,
		scheduler.FamilyPolls:             c.Polls,
	}
}

type LimitsConfig struct {
	MaxPollOptions   int `koanf:"max_poll_options"`
	MaxReminderDays  int `koanf:"max_reminder_days"`
	MaxTasksPerUser  int `koanf:"max_tasks_per_user"`
	MaxMessageLength int `koanf:"max_message_length"`
}

func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return errors.New("bot token is required (bot.token, PRODBOT_BOT__TOKEN or DISCORD_BOT_TOKEN)")
	}

	switch c.DB.Driver {
	case "postgres":
		if c.DB.Database == "" {
			return errors.New("db.database is required for the postgres driver")
		}
	case "sqlite":
		if c.DB.Path == "" {
			return errors.New("db.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported db driver %q (want postgres or sqlite)", c.DB.Driver)
	}

	for family, spec := range c.Scheduler.Cadences() {
		if _, err := scheduler.ParseCadence(spec); err != nil {
			return fmt.Errorf("invalid cadence for %s: %w", family, err)
		}
	}

	if c.Scheduler.ItemTimeout <= 0 || c.Scheduler.DrainTimeout <= 0 {
		return errors.New("scheduler timeouts must be positive")
	}

	if c.Limits.MaxPollOptions < config.MinPollOptions || c.Limits.MaxPollOptions > config.MaxPollOptions {
		return fmt.Errorf("limits.max_poll_options must be between %d and %d", config.MinPollOptions, config.MaxPollOptions)
	}

	if c.Limits.MaxReminderDays <= 0 || c.Limits.MaxTasksPerUser <= 0 || c.Limits.MaxMessageLength <= 0 {
		return errors.New("limits must be positive")
	}

	if _, err := c.Bot.DevGuildIDs(); err != nil {
		return err
	}

	if _, err := c.Bot.Location(); err != nil {
		return fmt.Errorf("invalid bot.timezone: %w", err)
	}

	return nil
}
