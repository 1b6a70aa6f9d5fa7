package discord

import (
	"io"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

const ephemeral = discordgo.MessageFlagsEphemeral

// Respond answers i with a message the whole channel sees.
func Respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	reply(s, i, discordgo.InteractionResponseChannelMessageWithSource,
		&discordgo.InteractionResponseData{Content: content})
}

// RespondEphemeral answers i with a message only the invoking member sees.
func RespondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	reply(s, i, discordgo.InteractionResponseChannelMessageWithSource,
		&discordgo.InteractionResponseData{Content: content, Flags: ephemeral})
}

// RespondEmbed answers i with an ephemeral embed.
func RespondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	reply(s, i, discordgo.InteractionResponseChannelMessageWithSource,
		&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}, Flags: ephemeral})
}

// RespondFile answers i with an ephemeral message carrying one attachment.
func RespondFile(s *discordgo.Session, i *discordgo.InteractionCreate, content, name, contentType string, r io.Reader) {
	reply(s, i, discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{
		Content: content,
		Files:   []*discordgo.File{{Name: name, ContentType: contentType, Reader: r}},
		Flags:   ephemeral,
	})
}

// RespondChoices answers an autocomplete interaction.
func RespondChoices(s *discordgo.Session, i *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) {
	reply(s, i, discordgo.InteractionApplicationCommandAutocompleteResult,
		&discordgo.InteractionResponseData{Choices: choices})
}

// DeferReply acknowledges i with an ephemeral "thinking" state. Finish it
// with [FollowUp].
func DeferReply(s *discordgo.Session, i *discordgo.InteractionCreate) {
	reply(s, i, discordgo.InteractionResponseDeferredChannelMessageWithSource,
		&discordgo.InteractionResponseData{Flags: ephemeral})
}

// FollowUp completes a deferred interaction.
func FollowUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   ephemeral,
	}); err != nil {
		slog.Warn("discord: follow-up failed", "interaction_id", i.ID, "err", err)
	}
}

func reply(s *discordgo.Session, i *discordgo.InteractionCreate, typ discordgo.InteractionResponseType, data *discordgo.InteractionResponseData) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{Type: typ, Data: data}); err != nil {
		slog.Warn("discord: interaction response failed", "interaction_id", i.ID, "type", int(typ), "err", err)
	}
}
