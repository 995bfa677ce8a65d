// Package discord runs the gateway client that feeds the archive:
// event handlers, converters to the archive models, and history
// backfills.
package discord

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mr-karan/abode/pkg/models"
)

// discordEpoch is the millisecond origin of Discord snowflakes.
const discordEpoch = 1420070400000

// parseID converts a gateway string id, tolerating the empty ids the
// API uses for absent references.
func parseID(s string) models.Snowflake {
	if s == "" {
		return 0
	}
	id, err := models.ParseSnowflake(s)
	if err != nil {
		return 0
	}
	return id
}

func optionalID(s string) *models.Snowflake {
	if s == "" {
		return nil
	}
	id := parseID(s)
	return &id
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// snowflakeTime recovers the creation time embedded in an id.
func snowflakeTime(id models.Snowflake) time.Time {
	ms := (id.Int64() >> 22) + discordEpoch
	return time.UnixMilli(ms).UTC()
}

func marshalJSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func convertUser(u *discordgo.User) *models.User {
	if u == nil {
		return nil
	}
	discriminator := 0
	if u.Discriminator != "" {
		discriminator = int(parseID(u.Discriminator).Int64())
	}
	return &models.User{
		ID:            parseID(u.ID),
		Name:          u.Username,
		Discriminator: discriminator,
		Avatar:        optionalString(u.Avatar),
		Bot:           u.Bot,
		System:        u.System,
	}
}

func convertGuild(g *discordgo.Guild, currentlyJoined bool) *models.Guild {
	return &models.Guild{
		ID:                parseID(g.ID),
		OwnerID:           parseID(g.OwnerID),
		Name:              g.Name,
		Icon:              optionalString(g.Icon),
		IsCurrentlyJoined: currentlyJoined,
	}
}

func convertChannel(ch *discordgo.Channel) *models.Channel {
	out := &models.Channel{
		ID:    parseID(ch.ID),
		Type:  int(ch.Type),
		Name:  optionalString(ch.Name),
		Topic: optionalString(ch.Topic),
	}

	switch ch.Type {
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		recipients := make([]string, 0, len(ch.Recipients))
		for _, u := range ch.Recipients {
			recipients = append(recipients, u.ID)
		}
		out.Recipients = marshalJSON(recipients)
		out.OwnerID = optionalID(ch.OwnerID)
		out.Icon = optionalString(ch.Icon)

	default:
		out.GuildID = optionalID(ch.GuildID)
		out.CategoryID = optionalID(ch.ParentID)
		position := ch.Position
		out.Position = &position
		if len(ch.PermissionOverwrites) > 0 {
			out.Overwrites = marshalJSON(ch.PermissionOverwrites)
		}

		if ch.Type == discordgo.ChannelTypeGuildText || ch.Type == discordgo.ChannelTypeGuildNews {
			slowmode := ch.RateLimitPerUser
			out.SlowmodeDelay = &slowmode
		}
		if ch.Type == discordgo.ChannelTypeGuildVoice {
			bitrate := ch.Bitrate
			userLimit := ch.UserLimit
			out.Bitrate = &bitrate
			out.UserLimit = &userLimit
		}
	}

	return out
}

func convertMessage(m *discordgo.Message, deleted bool) *models.Message {
	embeds := marshalJSON(m.Embeds)
	if embeds == nil {
		embeds = json.RawMessage(`[]`)
	}

	out := &models.Message{
		ID:              parseID(m.ID),
		GuildID:         parseID(m.GuildID),
		ChannelID:       parseID(m.ChannelID),
		WebhookID:       optionalID(m.WebhookID),
		TTS:             m.TTS,
		Type:            int(m.Type),
		Content:         m.Content,
		Embeds:          embeds,
		MentionEveryone: m.MentionEveryone,
		Flags:           int(m.Flags),
		CreatedAt:       m.Timestamp.UTC(),
		EditedAt:        m.EditedTimestamp,
		Deleted:         deleted,
	}
	if m.Author != nil {
		id := parseID(m.Author.ID)
		out.AuthorID = &id
	}
	if m.Activity != nil {
		out.Activity = marshalJSON(m.Activity)
	}
	if m.Application != nil {
		out.Application = marshalJSON(m.Application)
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = snowflakeTime(out.ID)
	}
	return out
}

func convertEmoji(guildID string, e *discordgo.Emoji) *models.Emoji {
	id := parseID(e.ID)
	out := &models.Emoji{
		ID:            id,
		GuildID:       parseID(guildID),
		Name:          e.Name,
		RequireColons: e.RequireColons,
		Animated:      e.Animated,
		Managed:       e.Managed,
		Roles:         marshalJSON(e.Roles),
		CreatedAt:     snowflakeTime(id),
	}
	if e.User != nil {
		authorID := parseID(e.User.ID)
		out.AuthorID = &authorID
	}
	return out
}
