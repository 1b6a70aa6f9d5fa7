// Package commands implements the Discord slash commands that configure a
// chat: language pair, dictionary, voice and translation mode.
//
// Each command type exposes its behaviour as plain methods returning the
// reply text, and thin discordgo handlers that call them.
package commands

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lingvox/internal/discord"
)

// commandTimeout bounds the store work behind one interaction.
const commandTimeout = 10 * time.Second

// maxChoices is the Discord limit for autocomplete results.
const maxChoices = 25

// maxMessage is the Discord limit for message content.
const maxMessage = 2000

const denied = "You need the manager role to change this chat's settings."

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// requireManager responds with a denial and returns false when the caller
// may not change settings.
func requireManager(perms *discord.PermissionChecker, s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if perms.CanManage(i) {
		return true
	}
	discord.RespondEphemeral(s, i, denied)
	return false
}

// choice builds an autocomplete choice, truncating the name to the 100
// character limit.
func choice(name, value string) *discordgo.ApplicationCommandOptionChoice {
	if r := []rune(name); len(r) > 100 {
		name = string(r[:99]) + "…"
	}
	return &discordgo.ApplicationCommandOptionChoice{Name: name, Value: value}
}

// matches reports whether any of fields starts with the typed prefix.
func matches(prefix string, fields ...string) bool {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return true
	}
	for _, f := range fields {
		if strings.HasPrefix(strings.ToLower(f), prefix) {
			return true
		}
	}
	return false
}
