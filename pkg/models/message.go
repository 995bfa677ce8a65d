package models

import (
	"encoding/json"
	"time"

	"github.com/mr-karan/abode/internal/abodeql"
)

// Message is an archived Discord message. Deleted messages are kept
// as tombstones with Deleted set rather than removed.
type Message struct {
	ID              Snowflake       `json:"id"`
	GuildID         Snowflake       `json:"guild_id"`
	ChannelID       Snowflake       `json:"channel_id"`
	AuthorID        *Snowflake      `json:"author_id"`
	WebhookID       *Snowflake      `json:"webhook_id"`
	TTS             bool            `json:"tts"`
	Type            int             `json:"type"`
	Content         string          `json:"content"`
	Embeds          json.RawMessage `json:"embeds"`
	MentionEveryone bool            `json:"mention_everyone"`
	Flags           int             `json:"flags"`
	Activity        json.RawMessage `json:"activity"`
	Application     json.RawMessage `json:"application"`
	CreatedAt       time.Time       `json:"created_at"`
	EditedAt        *time.Time      `json:"edited_at"`
	Deleted         bool            `json:"deleted"`
}

// MessageModel is the search descriptor for the messages table.
// Content is matched through full-text search; guild and author are
// joined whenever foreign data is requested.
var MessageModel = abodeql.NewModel("message", "messages", "id").
	Field("id", abodeql.TypeSnowflake).
	Field("guild_id", abodeql.TypeSnowflake).
	Field("channel_id", abodeql.TypeSnowflake).
	Field("author_id", abodeql.Optional(abodeql.TypeSnowflake)).
	Field("webhook_id", abodeql.Optional(abodeql.TypeSnowflake)).
	Field("tts", abodeql.TypeBoolean).
	Field("type", abodeql.TypeInteger).
	Field("content", abodeql.TypeString).
	Field("embeds", abodeql.TypeJSONB).
	Field("mention_everyone", abodeql.TypeBoolean).
	Field("flags", abodeql.TypeInteger).
	Field("activity", abodeql.Optional(abodeql.TypeJSONB)).
	Field("application", abodeql.Optional(abodeql.TypeJSONB)).
	Field("created_at", abodeql.TypeTimestamp).
	Field("edited_at", abodeql.Optional(abodeql.TypeTimestamp)).
	Field("deleted", abodeql.TypeBoolean).
	FTS("content").
	Ref("guild", GuildModel, "guild_id", "id", true).
	Ref("author", UserModel, "author_id", "id", true).
	Ref("channel", ChannelModel, "channel_id", "id", false)

// Record returns the row values in descriptor field order.
func (m *Message) Record() []any {
	return []any{
		m.ID.Int64(),
		m.GuildID.Int64(),
		m.ChannelID.Int64(),
		nullableID(m.AuthorID),
		nullableID(m.WebhookID),
		m.TTS,
		m.Type,
		m.Content,
		rawJSON(m.Embeds),
		m.MentionEveryone,
		m.Flags,
		rawJSON(m.Activity),
		rawJSON(m.Application),
		m.CreatedAt,
		m.EditedAt,
		m.Deleted,
	}
}
