package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lingvox/internal/discord"
	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/internal/store"
	"github.com/MrWong99/lingvox/pkg/provider/tts"
)

// VoiceCommands handles /voice.
type VoiceCommands struct {
	perms    *discord.PermissionChecker
	settings *store.Guard
	speakers *tts.SpeakerTable
}

// NewVoiceCommands creates a VoiceCommands handler. speakers lists the
// voices a preset may name.
func NewVoiceCommands(perms *discord.PermissionChecker, settings *store.Guard, speakers *tts.SpeakerTable) *VoiceCommands {
	return &VoiceCommands{perms: perms, settings: settings, speakers: speakers}
}

// Register registers the /voice command group with the router.
func (vc *VoiceCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("voice", vc.Definition(), func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		discord.RespondEphemeral(s, i, "Please use a subcommand: `/voice gender` or `/voice preset`.")
	})
	router.RegisterHandler("voice/gender", vc.handleGender)
	router.RegisterHandler("voice/preset", vc.handlePreset)
	router.RegisterAutocomplete("voice/preset", vc.autocompletePreset)
}

// Definition returns the /voice ApplicationCommand for Discord registration.
func (vc *VoiceCommands) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "voice",
		Description: "Configure speech synthesis",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "gender",
				Description: "Show or set the voice gender",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "gender",
						Description: "Voice gender",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							choice("male", string(store.Male)),
							choice("female", string(store.Female)),
						},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "preset",
				Description: "Pick the speaker for a language at the current gender",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:         discordgo.ApplicationCommandOptionString,
						Name:         "language",
						Description:  "Language code",
						Required:     true,
						Autocomplete: true,
					},
					{
						Type:         discordgo.ApplicationCommandOptionString,
						Name:         "speaker",
						Description:  "Speaker name",
						Required:     true,
						Autocomplete: true,
					},
				},
			},
		},
	}
}

// Gender sets the chat's voice gender, or reports it when gender is empty.
func (vc *VoiceCommands) Gender(ctx context.Context, chatID, gender string) string {
	if strings.TrimSpace(gender) == "" {
		return fmt.Sprintf("Current voice: %s", vc.settings.VoiceGender(ctx, chatID))
	}
	g, ok := store.ParseGender(gender)
	if !ok {
		return "Invalid gender. Use: male or female"
	}
	if !vc.settings.SetVoiceGender(ctx, chatID, g) {
		return "Failed to set voice."
	}
	return fmt.Sprintf("Voice set to: %s", g)
}

// Preset stores speaker as the chat's voice for language at the current
// gender.
func (vc *VoiceCommands) Preset(ctx context.Context, chatID, language, speaker string) string {
	code, ok := lang.Normalize(language)
	if !ok {
		return fmt.Sprintf("Error: Language '%s' is not supported.", language)
	}
	voices, ok := vc.speakers.Voices(code)
	if !ok {
		return fmt.Sprintf("No voices are available for %s.", lang.Name(code))
	}
	speaker = strings.TrimSpace(speaker)
	found := false
	for _, v := range voices {
		if v.Name == speaker {
			found = true
			break
		}
	}
	if !found {
		return fmt.Sprintf("Unknown speaker '%s' for %s.", speaker, lang.Name(code))
	}
	g := vc.settings.VoiceGender(ctx, chatID)
	if !vc.settings.SetVoicePreset(ctx, chatID, code, g, speaker) {
		return "Failed to save voice preset."
	}
	return fmt.Sprintf("Voice for %s (%s): %s", lang.Name(code), g, speaker)
}

// PresetChoices returns autocomplete choices for the focused preset option.
// Languages are limited to those with voices; speakers to the voices of the
// language already entered.
func (vc *VoiceCommands) PresetChoices(focused, prefix, language string) []*discordgo.ApplicationCommandOptionChoice {
	var out []*discordgo.ApplicationCommandOptionChoice
	switch focused {
	case "language":
		for _, l := range lang.Supported() {
			if _, ok := vc.speakers.Voices(l.Code); !ok || !matches(prefix, l.Code, l.Name) {
				continue
			}
			out = append(out, choice(fmt.Sprintf("%s (%s)", l.Name, l.Code), l.Code))
		}
	case "speaker":
		code, _ := lang.Normalize(language)
		voices, _ := vc.speakers.Voices(code)
		for _, v := range voices {
			if !matches(prefix, v.Name) {
				continue
			}
			out = append(out, choice(fmt.Sprintf("%s (%s)", v.Name, v.Gender), v.Name))
			if len(out) == maxChoices {
				break
			}
		}
	}
	return out
}

func (vc *VoiceCommands) handleGender(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := discord.SubcommandOptions(i)
	gender := discord.StringOption(opts, "gender")
	if gender != "" && !requireManager(vc.perms, s, i) {
		return
	}
	ctx, cancel := commandContext()
	defer cancel()
	discord.Respond(s, i, vc.Gender(ctx, i.ChannelID, gender))
}

func (vc *VoiceCommands) handlePreset(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !requireManager(vc.perms, s, i) {
		return
	}
	ctx, cancel := commandContext()
	defer cancel()
	opts := discord.SubcommandOptions(i)
	discord.Respond(s, i, vc.Preset(ctx, i.ChannelID, discord.StringOption(opts, "language"), discord.StringOption(opts, "speaker")))
}

func (vc *VoiceCommands) autocompletePreset(s *discordgo.Session, i *discordgo.InteractionCreate) {
	o := discord.FocusedOption(i)
	if o == nil {
		discord.RespondChoices(s, i, nil)
		return
	}
	language := discord.StringOption(discord.SubcommandOptions(i), "language")
	discord.RespondChoices(s, i, vc.PresetChoices(o.Name, o.StringValue(), language))
}
