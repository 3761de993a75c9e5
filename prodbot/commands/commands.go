package commands

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/disgoorg/productivity-bot/internal/domain/tasks"
	"github.com/disgoorg/productivity-bot/prodbot"
	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
	"github.com/disgoorg/snowflake/v2"
)

var Commands = []discord.ApplicationCommandCreate{
	Remind,
	Reminders,
	ReminderCancel,
	Countdown,
	Countdowns,
	CountdownStop,
	Schedule,
	Scheduled,
	ScheduleCancel,
	Poll,
	PollClose,
	tasks.TaskCommand,
	Status,
}

var errGuildOnly = &repositories.ValidationError{Message: "This command only works inside a server."}

func guildOf(e *handler.CommandEvent) (snowflake.ID, error) {
	if id := e.GuildID(); id != nil {
		return *id, nil
	}
	return 0, errGuildOnly
}

// canManage reports whether the invoker is authorID or holds Manage Messages.
func canManage(e *handler.CommandEvent, authorID string) bool {
	if e.User().ID.String() == authorID {
		return true
	}
	member := e.Member()
	return member != nil && member.Permissions.Has(discord.PermissionManageMessages)
}

func idOption(name, description string) discord.ApplicationCommandOptionInt {
	return discord.ApplicationCommandOptionInt{
		Name:        name,
		Description: description,
		Required:    true,
		MinValue:    intPtr(1),
	}
}

func intPtr(i int) *int {
	return &i
}

// listPages shows lines in pages of config.ItemsPerPage.
func listPages(b *prodbot.Bot, e *handler.CommandEvent, title string, lines []string) error {
	pages := (len(lines) + config.ItemsPerPage - 1) / config.ItemsPerPage

	return b.Paginator.Create(e.Respond, paginator.Pages{
		ID:      e.ID().String(),
		Creator: e.User().ID,
		PageFunc: func(page int, embed *discord.EmbedBuilder) {
			start := page * config.ItemsPerPage
			end := min(start+config.ItemsPerPage, len(lines))

			embed.
				SetTitle(title).
				SetDescription(strings.Join(lines[start:end], "\n")).
				SetColor(config.BackgroundColor).
				SetFooter(fmt.Sprintf("Page %d/%d • Total: %d", page+1, pages, len(lines)), "")
		},
		Pages:      pages,
		ExpireMode: paginator.ExpireModeAfterLastUsage,
	}, false)
}
