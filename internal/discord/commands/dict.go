package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lingvox/internal/dictionary"
	"github.com/MrWong99/lingvox/internal/discord"
	"github.com/MrWong99/lingvox/internal/store"
)

// DictCommands handles /dict. Terms are stored under the chat's current
// language pair.
type DictCommands struct {
	perms    *discord.PermissionChecker
	settings *store.Guard
	dict     *dictionary.Manager
}

// NewDictCommands creates a DictCommands handler.
func NewDictCommands(perms *discord.PermissionChecker, settings *store.Guard, dict *dictionary.Manager) *DictCommands {
	return &DictCommands{perms: perms, settings: settings, dict: dict}
}

// Register registers the /dict command group with the router.
func (dc *DictCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("dict", dc.Definition(), func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		discord.RespondEphemeral(s, i, "Please use a subcommand: `/dict add`, `/dict remove`, `/dict list`, `/dict export` or `/dict import`.")
	})
	router.RegisterHandler("dict/add", dc.handleAdd)
	router.RegisterHandler("dict/remove", dc.handleRemove)
	router.RegisterHandler("dict/list", dc.handleList)
	router.RegisterHandler("dict/export", dc.handleExport)
	router.RegisterHandler("dict/import", dc.handleImport)
	router.RegisterAutocomplete("dict/remove", dc.autocompleteTerm)
}

// Definition returns the /dict ApplicationCommand for Discord registration.
func (dc *DictCommands) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "dict",
		Description: "Manage the chat's custom dictionary",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add",
				Description: "Always translate a word or phrase a fixed way",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "source",
						Description: "Word or phrase as written in chat",
						Required:    true,
						MaxLength:   200,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "target",
						Description: "Translation to use",
						Required:    true,
						MaxLength:   200,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Forget a dictionary entry",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:         discordgo.ApplicationCommandOptionString,
						Name:         "source",
						Description:  "Stored word or phrase",
						Required:     true,
						Autocomplete: true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "Show the dictionary for the current language pair",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "export",
				Description: "Get a code to copy the dictionary into another chat",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "import",
				Description: "Load a dictionary from an export code or JSON file",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "code",
						Description: "Export code, e.g. DICT-AB12CD",
					},
					{
						Type:        discordgo.ApplicationCommandOptionAttachment,
						Name:        "file",
						Description: "JSON file of [source, target] pairs",
					},
				},
			},
		},
	}
}

// Add stores source and its generated variants.
func (dc *DictCommands) Add(ctx context.Context, chatID, source, target string) string {
	p := dc.settings.Languages(ctx, chatID)
	n := dc.dict.Add(ctx, chatID, p.Key(), source, target)
	if n == 0 {
		return "Failed to add term."
	}
	msg := fmt.Sprintf("Added (%s-%s): '%s' -> '%s'", p.Primary, p.Secondary, source, target)
	if n > 1 {
		msg += fmt.Sprintf("\nAnd %d automatic variations (cases/forms).", n-1)
	}
	return msg
}

// Remove deletes source, suggesting similar terms when it is unknown.
func (dc *DictCommands) Remove(ctx context.Context, chatID, source string) string {
	p := dc.settings.Languages(ctx, chatID)
	removed, suggestions := dc.dict.Remove(ctx, chatID, p.Key(), source)
	if removed {
		return fmt.Sprintf("Removed (%s-%s): '%s'", p.Primary, p.Secondary, source)
	}
	msg := fmt.Sprintf("Term '%s' not found.", source)
	if len(suggestions) > 0 {
		msg += " Did you mean: " + strings.Join(suggestions, ", ") + "?"
	}
	return msg
}

// List renders the chat's dictionary.
func (dc *DictCommands) List(ctx context.Context, chatID string) string {
	p := dc.settings.Languages(ctx, chatID)
	terms := dc.dict.List(ctx, chatID, p.Key())
	if len(terms) == 0 {
		return fmt.Sprintf("Dictionary is empty for %s-%s.", p.Primary, p.Secondary)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Custom Dictionary (%s-%s):\n", p.Primary, p.Secondary)
	for _, t := range terms {
		fmt.Fprintf(&sb, "- %s -> %s\n", t.Source, t.Target)
	}
	return sb.String()
}

// Export stores the dictionary under a new code.
func (dc *DictCommands) Export(ctx context.Context, chatID string) string {
	p := dc.settings.Languages(ctx, chatID)
	code, n, err := dc.dict.Export(ctx, chatID, p.Key())
	switch {
	case errors.Is(err, dictionary.ErrEmptyDictionary):
		return "Dictionary is empty, nothing to export."
	case err != nil:
		slog.Warn("discord: dictionary export failed", "chat_id", chatID, "err", err)
		return "Failed to create export."
	}
	return fmt.Sprintf("Dictionary exported (%d terms)! Code: `%s`\nValid for 24 hours. Use `/dict import` to load it in another chat.", n, code)
}

// Import loads the dictionary stored under code.
func (dc *DictCommands) Import(ctx context.Context, chatID, code string) string {
	p := dc.settings.Languages(ctx, chatID)
	n, err := dc.dict.Import(ctx, chatID, p.Key(), code)
	switch {
	case errors.Is(err, dictionary.ErrUnknownCode):
		return "Invalid or expired code."
	case err != nil:
		slog.Warn("discord: dictionary import failed", "chat_id", chatID, "err", err)
		return "Error importing dictionary data."
	}
	return fmt.Sprintf("Successfully imported %d terms to %s-%s dictionary.", n, p.Primary, p.Secondary)
}

// ImportFile loads a JSON list of [source, target] pairs.
func (dc *DictCommands) ImportFile(ctx context.Context, chatID string, data []byte) string {
	p := dc.settings.Languages(ctx, chatID)
	n, err := dc.dict.ImportJSON(ctx, chatID, p.Key(), bytes.NewReader(data))
	if err != nil {
		return "Error importing dictionary data: the file must be a JSON list of [source, target] pairs."
	}
	return fmt.Sprintf("Successfully imported %d terms to %s-%s dictionary.", n, p.Primary, p.Secondary)
}

// TermChoices returns the chat's stored sources matching prefix.
func (dc *DictCommands) TermChoices(ctx context.Context, chatID, prefix string) []*discordgo.ApplicationCommandOptionChoice {
	p := dc.settings.Languages(ctx, chatID)
	var out []*discordgo.ApplicationCommandOptionChoice
	for _, t := range dc.dict.List(ctx, chatID, p.Key()) {
		if !matches(prefix, t.Source) {
			continue
		}
		out = append(out, choice(t.Source+" -> "+t.Target, t.Source))
		if len(out) == maxChoices {
			break
		}
	}
	return out
}

func (dc *DictCommands) handleAdd(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !requireManager(dc.perms, s, i) {
		return
	}
	ctx, cancel := commandContext()
	defer cancel()
	opts := discord.SubcommandOptions(i)
	discord.Respond(s, i, dc.Add(ctx, i.ChannelID, discord.StringOption(opts, "source"), discord.StringOption(opts, "target")))
}

func (dc *DictCommands) handleRemove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !requireManager(dc.perms, s, i) {
		return
	}
	ctx, cancel := commandContext()
	defer cancel()
	opts := discord.SubcommandOptions(i)
	discord.Respond(s, i, dc.Remove(ctx, i.ChannelID, discord.StringOption(opts, "source")))
}

func (dc *DictCommands) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := commandContext()
	defer cancel()
	text := dc.List(ctx, i.ChannelID)
	if len(text) > maxMessage {
		discord.RespondFile(s, i, "The dictionary is too long for one message.",
			"dictionary.txt", "text/plain; charset=utf-8", strings.NewReader(text))
		return
	}
	discord.RespondEphemeral(s, i, text)
}

func (dc *DictCommands) handleExport(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := commandContext()
	defer cancel()
	discord.RespondEphemeral(s, i, dc.Export(ctx, i.ChannelID))
}

func (dc *DictCommands) handleImport(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !requireManager(dc.perms, s, i) {
		return
	}
	opts := discord.SubcommandOptions(i)
	code := discord.StringOption(opts, "code")
	att := FirstAttachment(i)
	if code == "" && att == nil {
		discord.RespondEphemeral(s, i, "Provide an export `code` or attach a JSON `file`.")
		return
	}

	discord.DeferReply(s, i)
	ctx, cancel := commandContext()
	defer cancel()

	if att == nil {
		discord.FollowUp(s, i, dc.Import(ctx, i.ChannelID, code))
		return
	}
	data, err := ReadJSONAttachment(ctx, att)
	if err != nil {
		slog.Warn("discord: read dictionary file", "chat_id", i.ChannelID, "err", err)
		discord.FollowUp(s, i, fmt.Sprintf("Could not read the file: %v", err))
		return
	}
	discord.FollowUp(s, i, dc.ImportFile(ctx, i.ChannelID, data))
}

func (dc *DictCommands) autocompleteTerm(s *discordgo.Session, i *discordgo.InteractionCreate) {
	prefix := ""
	if o := discord.FocusedOption(i); o != nil {
		prefix = o.StringValue()
	}
	ctx, cancel := commandContext()
	defer cancel()
	discord.RespondChoices(s, i, dc.TermChoices(ctx, i.ChannelID, prefix))
}
