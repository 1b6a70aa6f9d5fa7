package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lingvox/internal/dictionary"
	"github.com/MrWong99/lingvox/internal/discord"
	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/internal/store"
	"github.com/MrWong99/lingvox/internal/store/memory"
	"github.com/MrWong99/lingvox/pkg/provider/tts"
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

type fixture struct {
	guard *store.Guard
	perms *discord.PermissionChecker
	lang  *LangCommands
	dict  *DictCommands
	voice *VoiceCommands
	mode  *ModeCommands
}

func newFixture() *fixture {
	g := store.NewGuard(memory.New())
	perms := discord.NewPermissionChecker("")
	return &fixture{
		guard: g,
		perms: perms,
		lang:  NewLangCommands(perms, g),
		dict:  NewDictCommands(perms, g, dictionary.NewManager(g)),
		voice: NewVoiceCommands(perms, g, tts.DefaultSpeakers()),
		mode:  NewModeCommands(perms, g),
	}
}

func TestRegister_AllCommands(t *testing.T) {
	t.Parallel()

	f := newFixture()
	r := discord.NewCommandRouter()
	f.lang.Register(r)
	f.dict.Register(r)
	f.voice.Register(r)
	f.mode.Register(r)
	HelpCommand{}.Register(r)

	got := map[string]bool{}
	for _, c := range r.ApplicationCommands() {
		got[c.Name] = true
	}
	for _, want := range []string{"lang", "dict", "voice", "mode", "help"} {
		if !got[want] {
			t.Errorf("command %q not registered", want)
		}
	}
	if len(got) != 5 {
		t.Errorf("registered %d commands, want 5", len(got))
	}
}

func TestDefinitions_Subcommands(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tests := []struct {
		def  *discordgo.ApplicationCommand
		want []string
	}{
		{f.lang.Definition(), []string{"set", "reset", "status", "list"}},
		{f.dict.Definition(), []string{"add", "remove", "list", "export", "import"}},
		{f.voice.Definition(), []string{"gender", "preset"}},
	}
	for _, tt := range tests {
		if len(tt.def.Options) != len(tt.want) {
			t.Fatalf("/%s: %d subcommands, want %d", tt.def.Name, len(tt.def.Options), len(tt.want))
		}
		for i, want := range tt.want {
			if got := tt.def.Options[i].Name; got != want {
				t.Errorf("/%s subcommand[%d] = %q, want %q", tt.def.Name, i, got, want)
			}
		}
	}

	mode := f.mode.Definition()
	if len(mode.Options) != 1 || len(mode.Options[0].Choices) != 4 {
		t.Errorf("/mode should offer 4 choices, got %+v", mode.Options)
	}
}

func TestLangCommands(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if got := f.lang.Set(ctx, "c1", "Russian", "de"); got != "Languages set: ru <-> de" {
		t.Errorf("Set = %q", got)
	}
	if p := f.guard.Languages(ctx, "c1"); p != (lang.Pair{Primary: "ru", Secondary: "de"}) {
		t.Errorf("stored pair = %+v", p)
	}
	if got := f.lang.Status(ctx, "c1"); got != "Current languages: ru (Russian) <-> de (German)" {
		t.Errorf("Status = %q", got)
	}

	tests := []struct {
		name, primary, secondary, want string
	}{
		{"unknown primary", "klingon", "en", "'klingon' is not supported"},
		{"unknown secondary", "ru", "zz", "'zz' is not supported"},
		{"same language", "ua", "uk", "must differ"},
	}
	for _, tt := range tests {
		if got := f.lang.Set(ctx, "c1", tt.primary, tt.secondary); !strings.Contains(got, tt.want) {
			t.Errorf("%s: Set = %q, want mention of %q", tt.name, got, tt.want)
		}
	}

	if got := f.lang.Reset(ctx, "c1"); got != "Languages reset to: ru <-> en" {
		t.Errorf("Reset = %q", got)
	}
	if p := f.guard.Languages(ctx, "c1"); p != lang.DefaultPair() {
		t.Errorf("pair after reset = %+v", p)
	}
}

func TestLanguageList(t *testing.T) {
	t.Parallel()

	list := LanguageList()
	for _, want := range []string{"Supported Languages:", "Russian: ru", "Ukrainian: uk", "Chinese (Simplified): zh-CN"} {
		if !strings.Contains(list, want) {
			t.Errorf("LanguageList() missing %q", want)
		}
	}
}

func TestLanguageChoices(t *testing.T) {
	t.Parallel()

	if got := LanguageChoices(""); len(got) != maxChoices {
		t.Errorf("empty prefix: %d choices, want %d", len(got), maxChoices)
	}

	found := false
	for _, c := range LanguageChoices("rus") {
		if c.Value == "ru" {
			found = true
		}
	}
	if !found {
		t.Error(`LanguageChoices("rus") should offer ru`)
	}
	if got := LanguageChoices("qqq"); len(got) != 0 {
		t.Errorf(`LanguageChoices("qqq") = %v, want none`, got)
	}
}

func TestDictCommands_Lifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if got := f.dict.List(ctx, "c1"); got != "Dictionary is empty for ru-en." {
		t.Errorf("List(empty) = %q", got)
	}
	if got := f.dict.Export(ctx, "c1"); got != "Dictionary is empty, nothing to export." {
		t.Errorf("Export(empty) = %q", got)
	}

	if got := f.dict.Add(ctx, "c1", "Ян", "Ian"); !strings.HasPrefix(got, "Added (ru-en): 'Ян' -> 'Ian'") {
		t.Errorf("Add = %q", got)
	}
	if got := f.dict.List(ctx, "c1"); !strings.Contains(got, "- ян -> Ian") {
		t.Errorf("List = %q, want the added term", got)
	}

	choices := f.dict.TermChoices(ctx, "c1", "я")
	if len(choices) == 0 {
		t.Error("TermChoices should offer stored terms")
	}

	if got := f.dict.Remove(ctx, "c1", "янн"); !strings.Contains(got, "not found") || !strings.Contains(got, "Did you mean") {
		t.Errorf("Remove(unknown) = %q, want suggestions", got)
	}
	if got := f.dict.Remove(ctx, "c1", "ян"); got != "Removed (ru-en): 'ян'" {
		t.Errorf("Remove = %q", got)
	}
}

func TestDictCommands_ExportImport(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.dict.Add(ctx, "src", "кот", "cat")

	msg := f.dict.Export(ctx, "src")
	_, rest, ok := strings.Cut(msg, "Code: `")
	code, _, ok2 := strings.Cut(rest, "`")
	if !ok || !ok2 {
		t.Fatalf("Export = %q, want a code in backticks", msg)
	}
	if !strings.HasPrefix(code, "DICT-") {
		t.Fatalf("code = %q", code)
	}

	if got := f.dict.Import(ctx, "dst", strings.ToLower(code)); !strings.HasPrefix(got, "Successfully imported") {
		t.Errorf("Import = %q", got)
	}
	if got := f.dict.List(ctx, "dst"); !strings.Contains(got, "кот -> cat") {
		t.Errorf("imported dictionary = %q", got)
	}
	if got := f.dict.Import(ctx, "dst", "DICT-NOPE00"); got != "Invalid or expired code." {
		t.Errorf("Import(unknown) = %q", got)
	}
}

func TestDictCommands_ImportFile(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	got := f.dict.ImportFile(ctx, "c1", []byte(`[["пёс","dog"],["кот","cat"]]`))
	if got != "Successfully imported 2 terms to ru-en dictionary." {
		t.Errorf("ImportFile = %q", got)
	}
	if got := f.dict.ImportFile(ctx, "c1", []byte(`{"bad":true}`)); !strings.HasPrefix(got, "Error importing") {
		t.Errorf("ImportFile(malformed) = %q", got)
	}
}

func TestVoiceCommands_Gender(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if got := f.voice.Gender(ctx, "c1", ""); got != "Current voice: male" {
		t.Errorf("Gender(status) = %q", got)
	}
	if got := f.voice.Gender(ctx, "c1", "Female"); got != "Voice set to: female" {
		t.Errorf("Gender(set) = %q", got)
	}
	if g := f.guard.VoiceGender(ctx, "c1"); g != store.Female {
		t.Errorf("stored gender = %q", g)
	}
	if got := f.voice.Gender(ctx, "c1", "robot"); !strings.HasPrefix(got, "Invalid gender") {
		t.Errorf("Gender(invalid) = %q", got)
	}
}

func TestVoiceCommands_Preset(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if got := f.voice.Preset(ctx, "c1", "Russian", "eugene"); got != "Voice for Russian (male): eugene" {
		t.Errorf("Preset = %q", got)
	}
	if s := f.guard.VoicePreset(ctx, "c1", "ru", store.Male); s != "eugene" {
		t.Errorf("stored preset = %q", s)
	}

	tests := []struct {
		name, language, speaker, want string
	}{
		{"unsupported language", "zz", "x", "not supported"},
		{"no voices", "ja", "x", "No voices"},
		{"unknown speaker", "ru", "nobody", "Unknown speaker"},
	}
	for _, tt := range tests {
		if got := f.voice.Preset(ctx, "c1", tt.language, tt.speaker); !strings.Contains(got, tt.want) {
			t.Errorf("%s: Preset = %q, want mention of %q", tt.name, got, tt.want)
		}
	}
}

func TestVoiceCommands_PresetChoices(t *testing.T) {
	t.Parallel()

	f := newFixture()

	langs := f.voice.PresetChoices("language", "", "")
	if len(langs) != 6 {
		t.Errorf("language choices = %d, want 6", len(langs))
	}

	speakers := f.voice.PresetChoices("speaker", "k", "ru")
	if len(speakers) != 1 || speakers[0].Value != "kseniya" {
		t.Errorf("speaker choices = %v, want kseniya", speakers)
	}
	if got := f.voice.PresetChoices("speaker", "", "ua"); len(got) != 1 || got[0].Value != "mykyta" {
		t.Errorf("ua speaker choices = %v, want mykyta", got)
	}
	if got := f.voice.PresetChoices("speaker", "", "en"); len(got) != maxChoices {
		t.Errorf("en speaker choices = %d, want %d", len(got), maxChoices)
	}
}

func TestModeCommands_Set(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if got := f.mode.Set(ctx, "c1", ""); got != "Current mode: auto" {
		t.Errorf("Set(status) = %q", got)
	}
	for _, m := range []store.Mode{store.ModeInteractive, store.ModeManual, store.ModeOff, store.ModeAuto} {
		if got := f.mode.Set(ctx, "c1", string(m)); got != modeReplies[m] {
			t.Errorf("Set(%s) = %q", m, got)
		}
		if stored := f.guard.Mode(ctx, "c1"); stored != m {
			t.Errorf("stored mode = %q, want %q", stored, m)
		}
	}
	if got := f.mode.Set(ctx, "c1", "loud"); !strings.HasPrefix(got, "Invalid mode") {
		t.Errorf("Set(invalid) = %q", got)
	}
}

func TestChoice_TruncatesName(t *testing.T) {
	t.Parallel()

	c := choice(strings.Repeat("я", 150), "v")
	if n := len([]rune(c.Name)); n != 100 {
		t.Errorf("name length = %d, want 100", n)
	}
}
