package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lingvox/internal/discord"
	"github.com/MrWong99/lingvox/internal/store"
)

var modeReplies = map[store.Mode]string{
	store.ModeAuto:        "Auto mode: I will translate every message.",
	store.ModeInteractive: "Interactive mode: I will reply with a 'Translate' button instead of auto-translating.",
	store.ModeManual:      "Manual mode: I only translate on request.",
	store.ModeOff:         "Bot stopped. I will not translate anything until the mode is changed.",
}

// ModeCommands handles /mode.
type ModeCommands struct {
	perms    *discord.PermissionChecker
	settings *store.Guard
}

// NewModeCommands creates a ModeCommands handler.
func NewModeCommands(perms *discord.PermissionChecker, settings *store.Guard) *ModeCommands {
	return &ModeCommands{perms: perms, settings: settings}
}

// Register registers /mode with the router.
func (mc *ModeCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("mode", mc.Definition(), mc.handleMode)
}

// Definition returns the /mode ApplicationCommand for Discord registration.
func (mc *ModeCommands) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "mode",
		Description: "Show or change how the bot reacts to messages",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "mode",
				Description: "Translation mode",
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					choice("auto", string(store.ModeAuto)),
					choice("interactive", string(store.ModeInteractive)),
					choice("manual", string(store.ModeManual)),
					choice("off", string(store.ModeOff)),
				},
			},
		},
	}
}

// Set changes the chat's mode, or reports it when mode is empty.
func (mc *ModeCommands) Set(ctx context.Context, chatID, mode string) string {
	if mode == "" {
		return "Current mode: " + string(mc.settings.Mode(ctx, chatID))
	}
	m, ok := store.ParseMode(mode)
	if !ok {
		return "Invalid mode. Use: auto, interactive, manual or off"
	}
	if !mc.settings.SetMode(ctx, chatID, m) {
		return "Failed to change mode."
	}
	return modeReplies[m]
}

func (mc *ModeCommands) handleMode(s *discordgo.Session, i *discordgo.InteractionCreate) {
	mode := discord.StringOption(discord.SubcommandOptions(i), "mode")
	if mode != "" && !requireManager(mc.perms, s, i) {
		return
	}
	ctx, cancel := commandContext()
	defer cancel()
	discord.Respond(s, i, mc.Set(ctx, i.ChannelID, mode))
}
