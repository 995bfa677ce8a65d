package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// historyPageSize is the REST API's maximum messages per history page.
const historyPageSize = 100

// BackfillChannel replays a channel's full history into the archive,
// oldest first. Messages the archive already holds are skipped;
// per-message failures are logged and do not stop the run.
func (c *Client) BackfillChannel(ctx context.Context, channelID string) error {
	log := c.log.With("channel_id", channelID)
	log.Info("backfilling channel")

	channel, err := c.session.Channel(channelID)
	if err != nil {
		return fmt.Errorf("error fetching channel %s: %w", channelID, err)
	}
	if err := c.archiver.UpsertChannel(ctx, convertChannel(channel)); err != nil {
		return fmt.Errorf("error archiving channel %s: %w", channelID, err)
	}

	scanned := 0
	afterID := "0"
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := c.session.ChannelMessages(channelID, historyPageSize, "", afterID, "")
		if err != nil {
			return fmt.Errorf("error fetching history for %s: %w", channelID, err)
		}
		if len(page) == 0 {
			break
		}

		// Pages arrive newest-first; advance the cursor past the
		// newest id seen and archive the batch.
		cursor := afterID
		for _, m := range page {
			if snowflakeGreater(m.ID, cursor) {
				cursor = m.ID
			}
			scanned++
			if _, err := c.archiver.BackfillMessage(ctx, convertMessage(m, false)); err != nil {
				log.Warn("failed to backfill message", "message_id", m.ID, "error", err)
			}
		}
		afterID = cursor

		if scanned%5000 < historyPageSize && scanned >= 5000 {
			log.Info("backfill progress", "scanned", scanned)
		}
	}

	log.Info("done backfilling channel", "scanned", scanned)
	return nil
}

// snowflakeGreater compares two decimal-string ids numerically.
func snowflakeGreater(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}

// BackfillGuild backfills every text channel of a guild.
func (c *Client) BackfillGuild(ctx context.Context, guildID string) error {
	log := c.log.With("guild_id", guildID)
	log.Info("backfilling guild")

	channels, err := c.session.GuildChannels(guildID)
	if err != nil {
		return fmt.Errorf("error listing channels for guild %s: %w", guildID, err)
	}

	for _, channel := range channels {
		if channel.Type != discordgo.ChannelTypeGuildText && channel.Type != discordgo.ChannelTypeGuildNews {
			continue
		}
		if err := c.BackfillChannel(ctx, channel.ID); err != nil {
			log.Error("failed to backfill channel", "channel_id", channel.ID, "error", err)
		}
	}
	return nil
}

// BackfillDMs backfills every open private channel.
func (c *Client) BackfillDMs(ctx context.Context) error {
	channels, err := c.session.UserChannels()
	if err != nil {
		return fmt.Errorf("error listing private channels: %w", err)
	}

	for _, channel := range channels {
		if err := c.BackfillChannel(ctx, channel.ID); err != nil {
			c.log.Error("failed to backfill private channel", "channel_id", channel.ID, "error", err)
		}
	}
	return nil
}
