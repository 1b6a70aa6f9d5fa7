// Package discord is the Discord front end of the translator. It owns the
// discordgo.Session lifecycle, translates channel messages according to each
// channel's mode, serves the translate and speak buttons and routes slash
// command interactions to registered handlers.
//
// Every channel is a chat: its ID keys languages, dictionary and voice
// settings in the store.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Config holds Discord bot configuration.
type Config struct {
	// Token is the bot token without the "Bot " prefix.
	Token string

	// GuildID registers commands in one guild. Empty registers them
	// globally.
	GuildID string

	// ManagerRoleID restricts settings commands to members with this role.
	ManagerRoleID string
}

// Bot owns the Discord gateway connection.
type Bot struct {
	session *discordgo.Session
	router  *CommandRouter
	perms   *PermissionChecker
	handler *Handler
	guildID string
	ctx     context.Context

	mu         sync.Mutex
	registered []*discordgo.ApplicationCommand
	closed     bool
}

// New connects to Discord and installs the message and interaction
// handlers. ctx scopes the work started by incoming events.
func New(ctx context.Context, cfg Config, handler *Handler) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		session: session,
		router:  NewCommandRouter(),
		perms:   NewPermissionChecker(cfg.ManagerRoleID),
		handler: handler,
		guildID: cfg.GuildID,
		ctx:     ctx,
	}
	b.router.RegisterComponent(ButtonTranslate, b.onTranslateButton)
	b.router.RegisterComponent(ButtonSpeak, b.onSpeakButton)
	session.AddHandler(b.router.Handle)
	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.handler.HandleMessage(b.ctx, fromDiscord(m.Message), sessionMessenger{s})
	})

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord: open session: %w", err)
	}
	slog.Info("discord connected", "guild_id", cfg.GuildID)
	return b, nil
}

// Router returns the router slash commands are registered on.
func (b *Bot) Router() *CommandRouter { return b.router }

// Permissions returns the checker guarding settings commands.
func (b *Bot) Permissions() *PermissionChecker { return b.perms }

// Run publishes the router's slash commands and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.publish(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (b *Bot) publish(ctx context.Context) error {
	cmds := b.router.ApplicationCommands()
	if len(cmds) == 0 {
		return nil
	}
	got, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.guildID, cmds, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: register commands: %w", err)
	}
	b.mu.Lock()
	b.registered = got
	b.mu.Unlock()
	slog.Info("discord commands registered", "count", len(got), "guild_id", b.guildID)
	return nil
}

// Close disconnects from Discord. Guild commands are removed again; global
// commands stay because Discord takes up to an hour to propagate them.
func (b *Bot) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	if b.guildID != "" {
		appID := b.session.State.User.ID
		for _, cmd := range b.registered {
			if err := b.session.ApplicationCommandDelete(appID, b.guildID, cmd.ID); err != nil {
				slog.Warn("discord: failed to delete command", "name", cmd.Name, "err", err)
			}
		}
	}
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("discord: close session: %w", err)
	}
	slog.Info("discord bot closed")
	return nil
}
