package prodbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"
	"github.com/disgoorg/productivity-bot/internal/domain/tasks"
	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/database"
	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
	"github.com/disgoorg/productivity-bot/prodbot/dispatch"
	"github.com/disgoorg/productivity-bot/prodbot/handlers"
	"github.com/disgoorg/productivity-bot/prodbot/logger"
	"github.com/disgoorg/productivity-bot/prodbot/notify"
	"github.com/disgoorg/productivity-bot/prodbot/scheduler"
	lru "github.com/hashicorp/golang-lru"
)

func New(cfg Config, version string, commit string) *Bot {
	loc, err := cfg.Bot.Location()
	if err != nil {
		loc = time.UTC
	}
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
		Location:  loc,
		Scheduler: scheduler.New(),
		StartedAt: time.Now(),
	}
}

type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string
	Location  *time.Location
	StartedAt time.Time
	DB        *database.DB

	CountdownRepository        repositories.CountdownRepository
	ReminderRepository         repositories.ReminderRepository
	ScheduledMessageRepository repositories.ScheduledMessageRepository
	PollRepository             repositories.PollRepository
	TaskRepository             repositories.TaskRepository
	TaskService                tasks.Service

	Sink       notify.Sink
	Dispatcher *dispatch.Dispatcher
	Scheduler  *scheduler.Scheduler
	// PollCache maps a message ID to its poll ID; 0 marks a message that
	// is not an open poll.
	PollCache *lru.Cache
	PollVoter *handlers.PollVoter

	startOnce sync.Once
}

// InitRepositories wires the store into the bot.
func (b *Bot) InitRepositories(db *database.DB) error {
	b.DB = db
	bunDB := db.BunDB()

	b.CountdownRepository = repositories.NewCountdownRepository(bunDB)
	b.ReminderRepository = repositories.NewReminderRepository(bunDB)
	b.ScheduledMessageRepository = repositories.NewScheduledMessageRepository(bunDB)
	b.PollRepository = repositories.NewPollRepository(bunDB)
	b.TaskRepository = repositories.NewTaskRepository(bunDB)
	b.TaskService = tasks.NewService(b.TaskRepository, b.Cfg.Limits.MaxTasksPerUser)

	pollCache, err := lru.New(config.PollCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create poll cache: %w", err)
	}
	b.PollCache = pollCache
	return nil
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	if b.DB == nil {
		return errors.New("repositories must be initialized before the client")
	}

	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(
			gateway.IntentGuilds,
			gateway.IntentGuildMessages,
			gateway.IntentGuildMessageReactions,
		)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds, cache.FlagChannels)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}
	b.Client = client

	b.Sink = notify.NewRestSink(client.Rest())
	b.Dispatcher = dispatch.New(dispatch.Repositories{
		Countdowns:        b.CountdownRepository,
		Reminders:         b.ReminderRepository,
		ScheduledMessages: b.ScheduledMessageRepository,
		Polls:             b.PollRepository,
	}, b.Sink, dispatch.WithItemTimeout(b.Cfg.Scheduler.ItemTimeout))

	b.PollVoter = handlers.NewPollVoter(b.PollRepository, b.Sink, b.PollCache)
	client.AddEventListeners(handlers.PollReactionListener(b.PollVoter))

	passes := b.Dispatcher.Passes()
	for family, spec := range b.Cfg.Scheduler.Cadences() {
		if err = b.Scheduler.RegisterSpec(family, spec, scheduler.Pass(passes[family])); err != nil {
			return err
		}
	}
	return nil
}

// OnReady starts the sweep loops on the first Ready; reconnects only refresh
// the presence.
func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("Productivity bot is now ready",
		slog.String("type", "sys"),
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("your deadlines"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}

	b.startOnce.Do(func() {
		b.Scheduler.Start(context.Background())
	})
}

// Shutdown drains the scheduler before closing the gateway and the store,
// so in-flight items can still persist their outcome.
func (b *Bot) Shutdown(ctx context.Context) {
	if err := b.Scheduler.Shutdown(b.Cfg.Scheduler.DrainTimeout); err != nil {
		logger.LogError("Scheduler did not drain in time", err)
	}
	if b.Client != nil {
		b.Client.Close(ctx)
	}
	if b.DB != nil {
		b.DB.Close()
	}
	logger.LogSystem("Shutdown complete")
}
