package discord

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lingvox/pkg/audio"
)

// sessionMessenger implements [Messenger] over a discordgo session.
type sessionMessenger struct {
	s *discordgo.Session
}

var _ Messenger = sessionMessenger{}

func (m sessionMessenger) Reply(ctx context.Context, chatID, messageID, content, button string) (string, error) {
	msg := &discordgo.MessageSend{
		Content:         content,
		Reference:       &discordgo.MessageReference{MessageID: messageID, ChannelID: chatID},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
		Components:      buttonRow(button),
	}
	sent, err := m.s.ChannelMessageSendComplex(chatID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return sent.ID, nil
}

// buttonRow returns the component row for a button custom ID, or nil.
func buttonRow(button string) []discordgo.MessageComponent {
	var b discordgo.Button
	switch button {
	case ButtonTranslate:
		b = discordgo.Button{Label: "🌐 Translate", Style: discordgo.PrimaryButton, CustomID: ButtonTranslate}
	case ButtonSpeak:
		b = discordgo.Button{Label: "🔊 Speak", Style: discordgo.SecondaryButton, CustomID: ButtonSpeak}
	default:
		return nil
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{b}}}
}

// fromDiscord converts a gateway message.
func fromDiscord(m *discordgo.Message) Message {
	out := Message{
		ChatID:  m.ChannelID,
		ID:      m.ID,
		Content: m.Content,
		FromBot: m.Author != nil && m.Author.Bot,
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, Attachment{
			URL:         a.URL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        int64(a.Size),
		})
	}
	return out
}

func (b *Bot) onTranslateButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Message == nil {
		return
	}
	ctx := b.ctx
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		slog.Warn("discord: defer translate button", "err", err)
		return
	}

	referenced := ""
	if rm := i.Message.ReferencedMessage; rm != nil {
		referenced = rm.Content
	} else if ref := i.Message.MessageReference; ref != nil {
		if orig, err := s.ChannelMessage(i.ChannelID, ref.MessageID, discordgo.WithContext(ctx)); err == nil {
			referenced = orig.Content
		}
	}

	content, err := b.handler.TranslateButton(ctx, i.ChannelID, i.Message.ID, i.Message.Content, referenced)
	components := buttonRow(ButtonSpeak)
	switch {
	case errors.Is(err, ErrNotFound):
		content, components = "❌ Content expired or not found.", []discordgo.MessageComponent{}
	case err != nil:
		content, components = "❌ Translation failed.", []discordgo.MessageComponent{}
	}
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Components: &components,
	}); err != nil {
		slog.Warn("discord: edit translated message", "chat_id", i.ChannelID, "err", err)
	}
}

func (b *Bot) onSpeakButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Message == nil {
		return
	}
	ctx := b.ctx
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		slog.Warn("discord: defer speak button", "err", err)
		return
	}

	path, err := b.handler.SpeakButton(ctx, i.ChannelID, i.Message.Content)
	if err != nil {
		FollowUp(s, i, "❌ Could not generate audio.")
		return
	}
	defer audio.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		slog.Warn("discord: open synthesized audio", "err", err)
		FollowUp(s, i, "❌ Could not generate audio.")
		return
	}
	defer f.Close()

	format := b.handler.Format()
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Files: []*discordgo.File{{
			Name:        "speech." + format,
			ContentType: audio.MIMEType(format),
			Reader:      f,
		}},
	}); err != nil {
		slog.Warn("discord: send synthesized audio", "chat_id", i.ChannelID, "err", err)
	}
}
