package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func commandInteraction(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func subcommand(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:    name,
		Type:    discordgo.ApplicationCommandOptionSubCommand,
		Options: opts,
	}
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func TestPermissionChecker_CanManage(t *testing.T) {
	t.Parallel()

	member := func(perms int64, roles ...string) *discordgo.InteractionCreate {
		return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Member: &discordgo.Member{Roles: roles, Permissions: perms},
		}}
	}

	tests := []struct {
		name  string
		role  string
		inter *discordgo.InteractionCreate
		want  bool
	}{
		{"no role configured", "", member(0, "other"), true},
		{"member has role", "mgr", member(0, "a", "mgr"), true},
		{"member lacks role", "mgr", member(0, "a"), false},
		{"manage channels permission", "mgr", member(discordgo.PermissionManageChannels), true},
		{"no member", "mgr", &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NewPermissionChecker(tt.role).CanManage(tt.inter); got != tt.want {
				t.Errorf("CanManage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommandRouter_ApplicationCommands_Dedup(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	cmd := &discordgo.ApplicationCommand{Name: "dict"}
	noop := func(*discordgo.Session, *discordgo.InteractionCreate) {}
	r.RegisterCommand("dict", cmd, noop)
	r.RegisterCommand("dict/add", cmd, noop)
	r.RegisterHandler("dict/list", noop)

	cmds := r.ApplicationCommands()
	if len(cmds) != 1 || cmds[0].Name != "dict" {
		t.Fatalf("ApplicationCommands() = %v, want only dict", cmds)
	}
}

func TestCommandRouter_DispatchesSubcommand(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	var got string
	r.RegisterHandler("dict/add", func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		got = StringOption(SubcommandOptions(i), "source")
	})

	r.Handle(nil, commandInteraction("dict", subcommand("add", stringOpt("source", "Ян"), stringOpt("target", "Ian"))))
	if got != "Ян" {
		t.Errorf("source = %q, want %q", got, "Ян")
	}
}

func TestCommandRouter_DispatchesComponents(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	var speak, translate int
	r.RegisterComponent(ButtonSpeak, func(*discordgo.Session, *discordgo.InteractionCreate) { speak++ })
	r.RegisterComponent(ButtonTranslate, func(*discordgo.Session, *discordgo.InteractionCreate) { translate++ })

	component := func(id string) *discordgo.InteractionCreate {
		return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionMessageComponent,
			Data: discordgo.MessageComponentInteractionData{CustomID: id},
		}}
	}
	r.Handle(nil, component(ButtonSpeak))
	r.Handle(nil, component(ButtonSpeak))
	r.Handle(nil, component(ButtonTranslate))

	if speak != 2 || translate != 1 {
		t.Errorf("speak = %d, translate = %d, want 2 and 1", speak, translate)
	}
}

func TestCommandRouter_ApplicationCommands_Order(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	noop := func(*discordgo.Session, *discordgo.InteractionCreate) {}
	for _, name := range []string{"lang", "dict", "voice", "mode", "help"} {
		r.RegisterCommand(name, &discordgo.ApplicationCommand{Name: name}, noop)
	}

	var got []string
	for _, c := range r.ApplicationCommands() {
		got = append(got, c.Name)
	}
	want := []string{"lang", "dict", "voice", "mode", "help"}
	if len(got) != len(want) {
		t.Fatalf("ApplicationCommands() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSubcommandOptions(t *testing.T) {
	t.Parallel()

	flat := commandInteraction("mode", stringOpt("mode", "auto"))
	if got := StringOption(SubcommandOptions(flat), "mode"); got != "auto" {
		t.Errorf("flat option = %q, want auto", got)
	}

	nested := commandInteraction("voice", subcommand("preset", stringOpt("language", "ru"), stringOpt("speaker", "baya")))
	opts := SubcommandOptions(nested)
	if StringOption(opts, "language") != "ru" || StringOption(opts, "speaker") != "baya" {
		t.Errorf("nested options = %v", opts)
	}
	if StringOption(opts, "missing") != "" {
		t.Error("missing option should be empty")
	}
}

func TestFocusedOption(t *testing.T) {
	t.Parallel()

	focused := stringOpt("primary", "ru")
	focused.Focused = true
	i := commandInteraction("lang", subcommand("set", focused, stringOpt("secondary", "")))
	i.Type = discordgo.InteractionApplicationCommandAutocomplete

	if got := FocusedOption(i); got == nil || got.Name != "primary" {
		t.Errorf("FocusedOption() = %v, want primary", got)
	}
}
