package tasks

import (
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
)

func TestCommands_Register(t *testing.T) {
	r := handler.New()
	NewCommands(nil, nil, nil).Register(r)

	tests := []struct {
		path string
		kind discord.InteractionType
		want bool
	}{
		{"/task/add", discord.InteractionTypeApplicationCommand, true},
		{"/task/list", discord.InteractionTypeApplicationCommand, true},
		{"/task/complete", discord.InteractionTypeApplicationCommand, true},
		{"/task/edit", discord.InteractionTypeApplicationCommand, true},
		{"/task/remove", discord.InteractionTypeApplicationCommand, true},
		{"/task/complete", discord.InteractionTypeAutocomplete, true},
		{"/task/edit", discord.InteractionTypeAutocomplete, true},
		{"/task/remove", discord.InteractionTypeAutocomplete, true},
		{"/task/add", discord.InteractionTypeAutocomplete, false},
		{"/task/list", discord.InteractionTypeAutocomplete, false},
		{"/task/archive", discord.InteractionTypeApplicationCommand, false},
	}

	for _, tt := range tests {
		if got := r.Match(tt.path, tt.kind, int(discord.ApplicationCommandTypeSlash)); got != tt.want {
			t.Errorf("Match(%q, %d) = %v, want %v", tt.path, tt.kind, got, tt.want)
		}
	}
}
