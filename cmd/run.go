package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/productivity-bot/internal/domain/tasks"
	"github.com/disgoorg/productivity-bot/prodbot"
	"github.com/disgoorg/productivity-bot/prodbot/commands"
	"github.com/disgoorg/productivity-bot/prodbot/handlers"
	"github.com/spf13/cobra"
)

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.Info("Starting productivity bot",
		slog.String("type", "sys"),
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	db, err := openDatabase(ctx, cfg)
	cancel()
	if err != nil {
		return err
	}

	b := prodbot.New(*cfg, version, commit)
	if err = b.InitRepositories(db); err != nil {
		db.Close()
		return err
	}

	h := handler.New()

	h.Command("/remind", handlers.WrapWithLogging("remind", commands.RemindHandler(b)))
	h.Command("/reminders", handlers.WrapWithLogging("reminders", commands.RemindersHandler(b)))
	h.Command("/reminder-cancel", handlers.WrapWithLogging("reminder-cancel", commands.ReminderCancelHandler(b)))

	h.Command("/countdown", handlers.WrapWithLogging("countdown", commands.CountdownHandler(b)))
	h.Command("/countdowns", handlers.WrapWithLogging("countdowns", commands.CountdownsHandler(b)))
	h.Command("/countdown-stop", handlers.WrapWithLogging("countdown-stop", commands.CountdownStopHandler(b)))

	h.Command("/schedule", handlers.WrapWithLogging("schedule", commands.ScheduleHandler(b)))
	h.Command("/scheduled", handlers.WrapWithLogging("scheduled", commands.ScheduledHandler(b)))
	h.Command("/schedule-cancel", handlers.WrapWithLogging("schedule-cancel", commands.ScheduleCancelHandler(b)))

	h.Command("/poll", handlers.WrapWithLogging("poll", commands.PollHandler(b)))
	h.Command("/poll-close", handlers.WrapWithLogging("poll-close", commands.PollCloseHandler(b)))

	h.Command("/status", handlers.WrapWithLogging("status", commands.StatusHandler(b)))

	tasks.NewCommands(b.TaskService, b.Paginator, b.Location).Register(h)

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		db.Close()
		return fmt.Errorf("failed to setup bot: %w", err)
	}

	if sync, _ := cmd.Flags().GetBool("sync-commands"); sync {
		if err = syncCommands(b); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
		}
	}

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	err = b.Client.OpenGateway(ctx)
	cancel()
	if err != nil {
		b.Shutdown(context.Background())
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.", slog.String("type", "sys"))
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...", slog.String("type", "sys"))

	ctx, cancel = context.WithTimeout(context.Background(), cfg.Scheduler.DrainTimeout+10*time.Second)
	defer cancel()
	b.Shutdown(ctx)
	return nil
}
