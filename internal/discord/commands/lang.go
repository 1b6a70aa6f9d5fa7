package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lingvox/internal/discord"
	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/internal/store"
)

// LangCommands handles /lang.
type LangCommands struct {
	perms    *discord.PermissionChecker
	settings *store.Guard
}

// NewLangCommands creates a LangCommands handler.
func NewLangCommands(perms *discord.PermissionChecker, settings *store.Guard) *LangCommands {
	return &LangCommands{perms: perms, settings: settings}
}

// Register registers the /lang command group with the router.
func (lc *LangCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("lang", lc.Definition(), func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		discord.RespondEphemeral(s, i, "Please use a subcommand: `/lang set`, `/lang reset`, `/lang status` or `/lang list`.")
	})
	router.RegisterHandler("lang/set", lc.handleSet)
	router.RegisterHandler("lang/reset", lc.handleReset)
	router.RegisterHandler("lang/status", lc.handleStatus)
	router.RegisterHandler("lang/list", lc.handleList)
	router.RegisterAutocomplete("lang/set", lc.autocompleteLanguage)
}

// Definition returns the /lang ApplicationCommand for Discord registration.
func (lc *LangCommands) Definition() *discordgo.ApplicationCommand {
	langOpt := func(name, desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionString,
			Name:         name,
			Description:  desc,
			Required:     true,
			Autocomplete: true,
		}
	}
	return &discordgo.ApplicationCommand{
		Name:        "lang",
		Description: "Configure the chat's language pair",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Set the primary and secondary language",
				Options: []*discordgo.ApplicationCommandOption{
					langOpt("primary", "Primary language code or name"),
					langOpt("secondary", "Secondary language code or name"),
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "reset",
				Description: "Reset to Russian and English",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "status",
				Description: "Show the current language pair",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "List supported languages and their codes",
			},
		},
	}
}

// Set normalises both languages and stores them as the chat's pair.
func (lc *LangCommands) Set(ctx context.Context, chatID, primary, secondary string) string {
	l1, ok := lang.Normalize(primary)
	if !ok {
		return fmt.Sprintf("Error: Language '%s' is not supported.\nUse `/lang list` to see available codes.", primary)
	}
	l2, ok := lang.Normalize(secondary)
	if !ok {
		return fmt.Sprintf("Error: Language '%s' is not supported.\nUse `/lang list` to see available codes.", secondary)
	}
	if l1 == l2 {
		return "Error: Primary and secondary language must differ."
	}
	if !lc.settings.SetLanguages(ctx, chatID, lang.Pair{Primary: l1, Secondary: l2}) {
		return "Failed to set languages."
	}
	return fmt.Sprintf("Languages set: %s <-> %s", l1, l2)
}

// Reset restores the default pair.
func (lc *LangCommands) Reset(ctx context.Context, chatID string) string {
	p := lang.DefaultPair()
	if !lc.settings.SetLanguages(ctx, chatID, p) {
		return "Failed to reset languages."
	}
	return fmt.Sprintf("Languages reset to: %s <-> %s", p.Primary, p.Secondary)
}

// Status describes the chat's current pair.
func (lc *LangCommands) Status(ctx context.Context, chatID string) string {
	p := lc.settings.Languages(ctx, chatID)
	return fmt.Sprintf("Current languages: %s (%s) <-> %s (%s)", p.Primary, lang.Name(p.Primary), p.Secondary, lang.Name(p.Secondary))
}

// LanguageList renders every supported language as "Name: code" lines.
func LanguageList() string {
	var sb strings.Builder
	sb.WriteString("Supported Languages:\n\n")
	for _, l := range lang.Supported() {
		fmt.Fprintf(&sb, "%s: %s\n", l.Name, l.Code)
	}
	return sb.String()
}

// LanguageChoices returns autocomplete choices matching the typed prefix by
// code or name.
func LanguageChoices(prefix string) []*discordgo.ApplicationCommandOptionChoice {
	var out []*discordgo.ApplicationCommandOptionChoice
	for _, l := range lang.Supported() {
		if !matches(prefix, l.Code, l.Name) {
			continue
		}
		out = append(out, choice(fmt.Sprintf("%s (%s)", l.Name, l.Code), l.Code))
		if len(out) == maxChoices {
			break
		}
	}
	return out
}

func (lc *LangCommands) handleSet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !requireManager(lc.perms, s, i) {
		return
	}
	ctx, cancel := commandContext()
	defer cancel()
	opts := discord.SubcommandOptions(i)
	discord.Respond(s, i, lc.Set(ctx, i.ChannelID, discord.StringOption(opts, "primary"), discord.StringOption(opts, "secondary")))
}

func (lc *LangCommands) handleReset(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !requireManager(lc.perms, s, i) {
		return
	}
	ctx, cancel := commandContext()
	defer cancel()
	discord.Respond(s, i, lc.Reset(ctx, i.ChannelID))
}

func (lc *LangCommands) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := commandContext()
	defer cancel()
	discord.RespondEphemeral(s, i, lc.Status(ctx, i.ChannelID))
}

func (lc *LangCommands) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	discord.RespondFile(s, i, "List of supported languages and their codes.",
		"languages.txt", "text/plain; charset=utf-8", strings.NewReader(LanguageList()))
}

func (lc *LangCommands) autocompleteLanguage(s *discordgo.Session, i *discordgo.InteractionCreate) {
	prefix := ""
	if o := discord.FocusedOption(i); o != nil {
		prefix = o.StringValue()
	}
	discord.RespondChoices(s, i, LanguageChoices(prefix))
}
