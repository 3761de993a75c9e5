package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
	"github.com/disgoorg/productivity-bot/prodbot/handlers"
	"github.com/disgoorg/productivity-bot/prodbot/utils"
	"github.com/disgoorg/snowflake/v2"
)

var priorityChoices = []discord.ApplicationCommandOptionChoiceInt{
	{Name: "🔴 High", Value: int(models.PriorityHigh)},
	{Name: "🟡 Medium", Value: int(models.PriorityMedium)},
	{Name: "🟢 Low", Value: int(models.PriorityLow)},
}

func taskOption(description string) discord.ApplicationCommandOptionString {
	return discord.ApplicationCommandOptionString{
		Name:         "task",
		Description:  description,
		Required:     true,
		Autocomplete: true,
	}
}

var TaskCommand = discord.SlashCommandCreate{
	Name:        "task",
	Description: "Manage your personal task list",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "add",
			Description: "Add a task",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{Name: "title", Description: "What needs doing", Required: true, MaxLength: intPtr(config.MaxTitleLength)},
				discord.ApplicationCommandOptionString{Name: "description", Description: "Extra details"},
				discord.ApplicationCommandOptionInt{Name: "priority", Description: "Priority (default Medium)", Choices: priorityChoices},
				discord.ApplicationCommandOptionString{Name: "due", Description: "Due date (DD/MM/YYYY)"},
				discord.ApplicationCommandOptionString{Name: "due_time", Description: "Due time (HH:MM, default 00:00)"},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "List your tasks",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "status",
					Description: "Which tasks to show (default pending)",
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "Pending", Value: string(repositories.TaskFilterPending)},
						{Name: "Completed", Value: string(repositories.TaskFilterCompleted)},
						{Name: "All", Value: string(repositories.TaskFilterAll)},
					},
				},
				discord.ApplicationCommandOptionInt{Name: "priority", Description: "Only this priority", Choices: priorityChoices},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "complete",
			Description: "Mark a task as done",
			Options:     []discord.ApplicationCommandOption{taskOption("Task to complete")},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "edit",
			Description: "Edit an open task",
			Options: []discord.ApplicationCommandOption{
				taskOption("Task to edit"),
				discord.ApplicationCommandOptionString{Name: "title", Description: "New title", MaxLength: intPtr(config.MaxTitleLength)},
				discord.ApplicationCommandOptionString{Name: "description", Description: "New description"},
				discord.ApplicationCommandOptionInt{Name: "priority", Description: "New priority", Choices: priorityChoices},
				discord.ApplicationCommandOptionString{Name: "due", Description: "New due date (DD/MM/YYYY)"},
				discord.ApplicationCommandOptionString{Name: "due_time", Description: "New due time (HH:MM)"},
				discord.ApplicationCommandOptionBool{Name: "clear_due", Description: "Remove the due date"},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "remove",
			Description: "Delete a task",
			Options:     []discord.ApplicationCommandOption{taskOption("Task to delete")},
		},
	},
}

func intPtr(i int) *int {
	return &i
}

type Commands interface {
	Register(r handler.Router)
}

type commands struct {
	svc       Service
	paginator *paginator.Manager
	location  *time.Location
	now       func() time.Time
}

func NewCommands(svc Service, paginator *paginator.Manager, location *time.Location) *commands {
	if location == nil {
		location = time.UTC
	}
	return &commands{
		svc:       svc,
		paginator: paginator,
		location:  location,
		now:       time.Now,
	}
}

func (c *commands) Register(r handler.Router) {
	r.Route("/task", func(r handler.Router) {
		r.Command("/add", handlers.WrapWithLogging("task add", c.Add))
		r.Command("/list", handlers.WrapWithLogging("task list", c.List))
		r.Command("/complete", handlers.WrapWithLogging("task complete", c.Complete))
		r.Command("/edit", handlers.WrapWithLogging("task edit", c.Edit))
		r.Command("/remove", handlers.WrapWithLogging("task remove", c.Remove))
		r.Autocomplete("/complete", handlers.WrapAutocompleteWithLogging("task complete", c.Autocomplete))
		r.Autocomplete("/edit", handlers.WrapAutocompleteWithLogging("task edit", c.Autocomplete))
		r.Autocomplete("/remove", handlers.WrapAutocompleteWithLogging("task remove", c.Autocomplete))
	})
}

var errGuildOnly = &repositories.ValidationError{Message: "Tasks are only available inside a server."}

func ownerOf(user discord.User, guildID *snowflake.ID) (Owner, error) {
	if guildID == nil {
		return Owner{}, errGuildOnly
	}
	return Owner{UserID: user.ID.String(), GuildID: guildID.String()}, nil
}

// parseTaskRef reads "12", "#12" or an autocomplete value.
func parseTaskRef(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &repositories.ValidationError{Field: "task", Message: "pick a task from the list or type its number"}
	}
	return id, nil
}

func (c *commands) parseDue(date, clock string) (time.Time, error) {
	due, err := utils.ParseDateTime(date, clock, c.location)
	if err != nil {
		return time.Time{}, &repositories.ValidationError{Field: "due", Message: err.Error()}
	}
	return due, nil
}

func (c *commands) Add(e *handler.CommandEvent) error {
	owner, err := ownerOf(e.User(), e.GuildID())
	if err != nil {
		return utils.EH.HandleError(e, err)
	}

	data := e.SlashCommandInteractionData()
	draft := Draft{
		Title:       data.String("title"),
		Description: data.String("description"),
		Priority:    models.TaskPriority(data.Int("priority")),
	}
	if date, ok := data.OptString("due"); ok {
		if draft.DueAt, err = c.parseDue(date, data.String("due_time")); err != nil {
			return utils.EH.HandleError(e, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	task, err := c.svc.Add(ctx, owner, draft)
	if err != nil {
		return utils.EH.HandleError(e, err)
	}

	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{
			discord.NewEmbedBuilder().
				SetTitle(config.EmojiTask + " Task added").
				SetDescription(formatTaskLine(task, c.now())).
				SetColor(config.SuccessColor).
				Build(),
		},
		Flags: discord.MessageFlagEphemeral,
	})
}

func (c *commands) List(e *handler.CommandEvent) error {
	owner, err := ownerOf(e.User(), e.GuildID())
	if err != nil {
		return utils.EH.HandleError(e, err)
	}

	data := e.SlashCommandInteractionData()
	filter := repositories.TaskFilter{
		Status:   repositories.TaskStatusFilter(data.String("status")),
		Priority: models.TaskPriority(data.Int("priority")),
	}
	if filter.Status == "" {
		filter.Status = repositories.TaskFilterPending
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	tasks, pages, err := c.svc.List(ctx, owner, filter)
	if err != nil {
		return utils.EH.HandleError(e, err)
	}
	if len(tasks) == 0 {
		return utils.EH.CreateInfoEmbed(e, config.EmojiTask+" No tasks match. Add one with `/task add`.")
	}

	now := c.now()
	return c.paginator.Create(e.Respond, paginator.Pages{
		ID:      e.ID().String(),
		Creator: e.User().ID,
		PageFunc: func(page int, embed *discord.EmbedBuilder) {
			start := page * config.ItemsPerPage
			end := min(start+config.ItemsPerPage, len(tasks))

			lines := make([]string, 0, end-start)
			for _, task := range tasks[start:end] {
				lines = append(lines, formatTaskLine(task, now))
			}

			embed.
				SetTitle(fmt.Sprintf("%s %s's tasks", config.EmojiTask, e.User().EffectiveName())).
				SetDescription(strings.Join(lines, "\n")).
				SetColor(config.BackgroundColor).
				SetFooter(fmt.Sprintf("Page %d/%d • %d %s", page+1, pages, len(tasks), filter.Status), "")
		},
		Pages:      pages,
		ExpireMode: paginator.ExpireModeAfterLastUsage,
	}, true)
}

func (c *commands) Complete(e *handler.CommandEvent) error {
	owner, err := ownerOf(e.User(), e.GuildID())
	if err != nil {
		return utils.EH.HandleError(e, err)
	}
	id, err := parseTaskRef(e.SlashCommandInteractionData().String("task"))
	if err != nil {
		return utils.EH.HandleError(e, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	task, err := c.svc.Complete(ctx, owner, id)
	if err != nil {
		return utils.EH.HandleError(e, err)
	}
	return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Completed task `#%d` **%s**", task.ID, task.Title))
}

func (c *commands) Edit(e *handler.CommandEvent) error {
	owner, err := ownerOf(e.User(), e.GuildID())
	if err != nil {
		return utils.EH.HandleError(e, err)
	}

	data := e.SlashCommandInteractionData()
	id, err := parseTaskRef(data.String("task"))
	if err != nil {
		return utils.EH.HandleError(e, err)
	}

	var changes Changes
	if title, ok := data.OptString("title"); ok {
		changes.Title = &title
	}
	if description, ok := data.OptString("description"); ok {
		changes.Description = &description
	}
	if priority, ok := data.OptInt("priority"); ok {
		p := models.TaskPriority(priority)
		changes.Priority = &p
	}
	changes.ClearDue = data.Bool("clear_due")
	if date, ok := data.OptString("due"); ok && !changes.ClearDue {
		due, err := c.parseDue(date, data.String("due_time"))
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		changes.DueAt = &due
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	task, err := c.svc.Edit(ctx, owner, id, changes)
	if err != nil {
		return utils.EH.HandleError(e, err)
	}
	return utils.EH.CreateSuccessEmbed(e, "Task updated\n"+formatTaskLine(task, c.now()))
}

func (c *commands) Remove(e *handler.CommandEvent) error {
	owner, err := ownerOf(e.User(), e.GuildID())
	if err != nil {
		return utils.EH.HandleError(e, err)
	}
	id, err := parseTaskRef(e.SlashCommandInteractionData().String("task"))
	if err != nil {
		return utils.EH.HandleError(e, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	task, err := c.svc.Remove(ctx, owner, id)
	if err != nil {
		return utils.EH.HandleError(e, err)
	}
	return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Deleted task `#%d` **%s**", task.ID, task.Title))
}

func (c *commands) Autocomplete(e *handler.AutocompleteEvent) error {
	owner, err := ownerOf(e.User(), e.GuildID())
	if err != nil {
		return e.AutocompleteResult([]discord.AutocompleteChoice{})
	}

	focused := e.Data.Focused()
	query := ""
	if focused.Value != nil {
		var s string
		if err = json.Unmarshal(focused.Value, &s); err == nil {
			query = s
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.AutocompleteTimeout)
	defer cancel()

	tasks, err := c.svc.Suggest(ctx, owner, query, config.MaxAutocomplete)
	if err != nil {
		return e.AutocompleteResult([]discord.AutocompleteChoice{})
	}

	choices := make([]discord.AutocompleteChoice, 0, len(tasks))
	for _, task := range tasks {
		status := "⬜"
		if task.Completed {
			status = config.EmojiCheck
		}
		choices = append(choices, discord.AutocompleteChoiceString{
			Name:  utils.Truncate(fmt.Sprintf("%s #%d %s", status, task.ID, task.Title), 100),
			Value: strconv.FormatInt(task.ID, 10),
		})
	}
	return e.AutocompleteResult(choices)
}

func formatTaskLine(t Task, now time.Time) string {
	status := "⬜"
	if t.Completed {
		status = config.EmojiCheck
	}

	line := fmt.Sprintf("%s %s `#%d` **%s**", status, t.Priority.Emoji(), t.ID, utils.Truncate(t.Title, 80))
	if !t.DueAt.IsZero() {
		line += " • due " + utils.Timestamp(t.DueAt, "R")
		if t.Overdue(now) {
			line += " " + config.EmojiWarning
		}
	}
	if t.Description != "" {
		line += "\n> " + utils.Truncate(t.Description, 100)
	}
	return line
}
