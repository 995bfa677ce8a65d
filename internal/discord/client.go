package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/mr-karan/abode/internal/core"
)

// Client is the gateway connection feeding the archive.
type Client struct {
	session  *discordgo.Session
	archiver *core.Archiver
	log      *slog.Logger

	// ctx bounds handler-initiated work; set by Run.
	ctx context.Context
}

// Options holds configuration for creating a Client.
type Options struct {
	Token    string
	Logger   *slog.Logger
	Archiver *core.Archiver
}

// New creates a gateway client and registers the event handlers.
func New(opts Options) (*Client, error) {
	session, err := discordgo.New(opts.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsAll
	session.StateEnabled = true

	c := &Client{
		session:  session,
		archiver: opts.Archiver,
		log:      opts.Logger.With("component", "discord"),
		ctx:      context.Background(),
	}

	session.AddHandler(c.onReady)
	session.AddHandler(c.onGuildCreate)
	session.AddHandler(c.onGuildUpdate)
	session.AddHandler(c.onGuildDelete)
	session.AddHandler(c.onChannelCreate)
	session.AddHandler(c.onChannelUpdate)
	session.AddHandler(c.onGuildEmojisUpdate)
	session.AddHandler(c.onMessageCreate)
	session.AddHandler(c.onMessageUpdate)
	session.AddHandler(c.onMessageDelete)

	return c, nil
}

// Run opens the gateway connection and blocks until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	c.ctx = ctx
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("error opening gateway connection: %w", err)
	}
	c.log.Info("gateway connected")

	<-ctx.Done()
	c.log.Info("closing gateway connection")
	return c.session.Close()
}

func (c *Client) onReady(_ *discordgo.Session, e *discordgo.Ready) {
	c.log.Info("connected", "user", e.User.Username, "guilds", len(e.Guilds))

	for _, ch := range e.PrivateChannels {
		if err := c.archiver.UpsertChannel(c.ctx, convertChannel(ch)); err != nil {
			c.log.Error("failed to archive private channel", "channel_id", ch.ID, "error", err)
		}
	}
}

func (c *Client) onGuildCreate(_ *discordgo.Session, e *discordgo.GuildCreate) {
	if err := c.archiver.UpsertGuild(c.ctx, convertGuild(e.Guild, true)); err != nil {
		c.log.Error("failed to archive guild", "guild_id", e.ID, "error", err)
		return
	}
	for _, ch := range e.Channels {
		if err := c.archiver.UpsertChannel(c.ctx, convertChannel(ch)); err != nil {
			c.log.Error("failed to archive channel", "channel_id", ch.ID, "error", err)
		}
	}
	for _, emoji := range e.Emojis {
		if err := c.archiver.UpsertEmoji(c.ctx, convertEmoji(e.ID, emoji)); err != nil {
			c.log.Error("failed to archive emoji", "emoji_id", emoji.ID, "error", err)
		}
	}
}

func (c *Client) onGuildUpdate(_ *discordgo.Session, e *discordgo.GuildUpdate) {
	if err := c.archiver.UpsertGuild(c.ctx, convertGuild(e.Guild, true)); err != nil {
		c.log.Error("failed to archive guild update", "guild_id", e.ID, "error", err)
	}
}

func (c *Client) onGuildDelete(_ *discordgo.Session, e *discordgo.GuildDelete) {
	// Unavailable means an outage, not a removal.
	if e.Unavailable {
		return
	}
	guild := e.BeforeDelete
	if guild == nil {
		guild = e.Guild
	}
	if err := c.archiver.UpsertGuild(c.ctx, convertGuild(guild, false)); err != nil {
		c.log.Error("failed to archive guild removal", "guild_id", e.ID, "error", err)
	}
}

func (c *Client) onChannelCreate(_ *discordgo.Session, e *discordgo.ChannelCreate) {
	if err := c.archiver.UpsertChannel(c.ctx, convertChannel(e.Channel)); err != nil {
		c.log.Error("failed to archive channel", "channel_id", e.ID, "error", err)
	}
}

func (c *Client) onChannelUpdate(_ *discordgo.Session, e *discordgo.ChannelUpdate) {
	if err := c.archiver.UpsertChannel(c.ctx, convertChannel(e.Channel)); err != nil {
		c.log.Error("failed to archive channel update", "channel_id", e.ID, "error", err)
	}
}

func (c *Client) onGuildEmojisUpdate(_ *discordgo.Session, e *discordgo.GuildEmojisUpdate) {
	for _, emoji := range e.Emojis {
		if err := c.archiver.UpsertEmoji(c.ctx, convertEmoji(e.GuildID, emoji)); err != nil {
			c.log.Error("failed to archive emoji", "emoji_id", emoji.ID, "error", err)
		}
	}
}

func (c *Client) onMessageCreate(s *discordgo.Session, e *discordgo.MessageCreate) {
	if err := c.archiver.InsertMessage(c.ctx, convertMessage(e.Message, false), convertUser(e.Author)); err != nil {
		c.log.Error("failed to archive message", "message_id", e.ID, "error", err)
	}

	// Commands issued by the archiving account itself.
	if s.State.User != nil && e.Author != nil && e.Author.ID == s.State.User.ID {
		c.handleSelfCommand(e.Message)
	}
}

func (c *Client) onMessageUpdate(_ *discordgo.Session, e *discordgo.MessageUpdate) {
	if err := c.archiver.UpdateMessage(c.ctx, convertMessage(e.Message, false)); err != nil {
		c.log.Error("failed to archive message edit", "message_id", e.ID, "error", err)
	}
}

func (c *Client) onMessageDelete(_ *discordgo.Session, e *discordgo.MessageDelete) {
	if err := c.archiver.DeleteMessage(c.ctx, parseID(e.ID)); err != nil {
		c.log.Error("failed to archive message delete", "message_id", e.ID, "error", err)
	}
}

// handleSelfCommand runs the ;backfill family of owner commands.
func (c *Client) handleSelfCommand(m *discordgo.Message) {
	if !strings.HasPrefix(m.Content, ";") {
		return
	}
	command, args, _ := strings.Cut(strings.TrimPrefix(m.Content, ";"), " ")

	run := func(fn func(context.Context) error) {
		go func() {
			if err := fn(c.ctx); err != nil {
				c.log.Error("backfill command failed", "command", command, "error", err)
			}
		}()
	}

	switch command {
	case "backfill":
		run(func(ctx context.Context) error { return c.BackfillChannel(ctx, args) })
	case "backfillg":
		run(func(ctx context.Context) error { return c.BackfillGuild(ctx, args) })
	case "backfilldms":
		run(c.BackfillDMs)
	}
}
