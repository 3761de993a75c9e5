package config

import "time"

// Application-wide constants organized by domain

// UI and Display Constants
const (
	// Pagination
	ItemsPerPage = 10

	// Colors
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFFF00
	GoldColor    = 0xFFD700

	// Discord UI Colors
	BackgroundColor   = 0x2B2D31
	EmbedDefaultColor = 0x00FF00

	// Progress bars
	CountdownBarSize = 20
	PollBarSize      = 10
	CountdownWindow  = 7 * 24 * time.Hour
)

// Emojis used across commands and notifications
const (
	EmojiCheck     = "✅"
	EmojiCross     = "❌"
	EmojiWarning   = "⚠️"
	EmojiInfo      = "ℹ️"
	EmojiClock     = "⏰"
	EmojiCalendar  = "📅"
	EmojiTask      = "📝"
	EmojiPoll      = "📊"
	EmojiReminder  = "🔔"
	EmojiCountdown = "⏳"
	EmojiMessage   = "💬"
	EmojiParty     = "🎉"
)

// NumberEmojis are the reaction markers for poll options, in option order.
var NumberEmojis = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

// Limits
const (
	MaxPollOptions   = 10
	MinPollOptions   = 2
	MaxReminderDays  = 365
	MaxTasksPerUser  = 50
	MaxMessageLength = 2000
	MaxTitleLength   = 256
	MaxAutocomplete  = 25
)

// Database and Performance Constants
const (
	// Timeouts
	DefaultQueryTimeout     = 30 * time.Second
	CommandExecutionTimeout = 10 * time.Second
	SlowCommandThreshold    = 2 * time.Second
	SlowQueryThreshold      = 500 * time.Millisecond
	AutocompleteTimeout     = 2 * time.Second
	NetworkDialTimeout      = 5 * time.Second

	// Cache settings
	PollCacheSize = 1024
)

// Scheduler defaults
const (
	DefaultCountdownCadence = "5m"
	DefaultReminderCadence  = "60s"
	DefaultMessageCadence   = "60s"
	DefaultPollCadence      = "60s"
	DefaultItemTimeout      = 30 * time.Second
	DefaultDrainTimeout     = 30 * time.Second
)
