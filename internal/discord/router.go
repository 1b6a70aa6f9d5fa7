package discord

import (
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc handles one interaction.
type HandlerFunc func(s *discordgo.Session, i *discordgo.InteractionCreate)

// CommandRouter dispatches interactions by key. Slash commands and their
// autocompletion are keyed "command" or "command/subcommand", buttons by
// custom ID.
type CommandRouter struct {
	mu       sync.RWMutex
	defs     []*discordgo.ApplicationCommand
	commands map[string]HandlerFunc
	complete map[string]HandlerFunc
	buttons  map[string]HandlerFunc
}

// NewCommandRouter returns an empty router.
func NewCommandRouter() *CommandRouter {
	return &CommandRouter{
		commands: make(map[string]HandlerFunc),
		complete: make(map[string]HandlerFunc),
		buttons:  make(map[string]HandlerFunc),
	}
}

// RegisterCommand routes key to handler and records cmd for
// [CommandRouter.ApplicationCommands]. Subcommands of one command pass the
// same definition; it is registered once.
func (r *CommandRouter) RegisterCommand(key string, cmd *discordgo.ApplicationCommand, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[key] = handler
	for _, d := range r.defs {
		if d.Name == cmd.Name {
			return
		}
	}
	r.defs = append(r.defs, cmd)
}

// RegisterHandler routes key to handler without a command definition.
func (r *CommandRouter) RegisterHandler(key string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[key] = handler
}

// RegisterAutocomplete routes autocompletion of key to handler.
func (r *CommandRouter) RegisterAutocomplete(key string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete[key] = handler
}

// RegisterComponent routes clicks on the button with customID to handler.
func (r *CommandRouter) RegisterComponent(customID string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buttons[customID] = handler
}

// ApplicationCommands returns the top-level command definitions in
// registration order.
func (r *CommandRouter) ApplicationCommands() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*discordgo.ApplicationCommand(nil), r.defs...)
}

// Handle dispatches i to its handler. Unknown commands and buttons get an
// ephemeral notice, unknown autocompletions an empty choice list.
func (r *CommandRouter) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var (
		table map[string]HandlerFunc
		key   string
	)
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		table, key = r.commands, commandKey(i.ApplicationCommandData())
	case discordgo.InteractionApplicationCommandAutocomplete:
		table, key = r.complete, commandKey(i.ApplicationCommandData())
	case discordgo.InteractionMessageComponent:
		table, key = r.buttons, i.MessageComponentData().CustomID
	default:
		slog.Warn("discord: unhandled interaction type", "type", i.Type)
		return
	}

	r.mu.RLock()
	h, ok := table[key]
	r.mu.RUnlock()
	if ok {
		h(s, i)
		return
	}

	slog.Warn("discord: no handler", "type", i.Type.String(), "key", key)
	if i.Type == discordgo.InteractionApplicationCommandAutocomplete {
		RespondChoices(s, i, nil)
		return
	}
	RespondEphemeral(s, i, "This action is no longer available.")
}

func commandKey(data discordgo.ApplicationCommandInteractionData) string {
	if len(data.Options) > 0 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return data.Name + "/" + data.Options[0].Name
	}
	return data.Name
}

// SubcommandOptions returns the options of the invoked subcommand, or of the
// command itself when it has no subcommands, keyed by name.
func SubcommandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	if len(opts) > 0 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		opts = opts[0].Options
	}
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

// StringOption returns the string value of option name, or "".
func StringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if o, ok := opts[name]; ok && o.Type == discordgo.ApplicationCommandOptionString {
		return o.StringValue()
	}
	return ""
}

// FocusedOption returns the option being autocompleted, or nil.
func FocusedOption(i *discordgo.InteractionCreate) *discordgo.ApplicationCommandInteractionDataOption {
	for _, o := range SubcommandOptions(i) {
		if o.Focused {
			return o
		}
	}
	return nil
}
