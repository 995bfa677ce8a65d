package models

import (
	"encoding/json"

	"github.com/mr-karan/abode/internal/abodeql"
)

// Channel is an archived Discord channel of any kind. Guild, voice,
// and DM specific attributes are nullable; overwrites and recipients
// are stored as jsonb.
type Channel struct {
	ID   Snowflake `json:"id"`
	Type int       `json:"type"`

	Name  *string `json:"name"`
	Topic *string `json:"topic"`

	// Guild specific.
	GuildID       *Snowflake      `json:"guild_id"`
	CategoryID    *Snowflake      `json:"category_id"`
	Position      *int            `json:"position"`
	SlowmodeDelay *int            `json:"slowmode_delay"`
	Overwrites    json.RawMessage `json:"overwrites"`

	// Voice specific.
	Bitrate   *int `json:"bitrate"`
	UserLimit *int `json:"user_limit"`

	// DMs.
	Recipients json.RawMessage `json:"recipients"`
	OwnerID    *Snowflake      `json:"owner_id"`
	Icon       *string         `json:"icon"`
}

// ChannelModel is the search descriptor for the channels table.
var ChannelModel = abodeql.NewModel("channel", "channels", "id").
	Field("id", abodeql.TypeSnowflake).
	Field("type", abodeql.TypeInteger).
	Field("name", abodeql.Optional(abodeql.TypeString)).
	Field("topic", abodeql.Optional(abodeql.TypeString)).
	Field("guild_id", abodeql.Optional(abodeql.TypeSnowflake)).
	Field("category_id", abodeql.Optional(abodeql.TypeSnowflake)).
	Field("position", abodeql.Optional(abodeql.TypeInteger)).
	Field("slowmode_delay", abodeql.Optional(abodeql.TypeInteger)).
	Field("overwrites", abodeql.Optional(abodeql.TypeJSONB)).
	Field("bitrate", abodeql.Optional(abodeql.TypeInteger)).
	Field("user_limit", abodeql.Optional(abodeql.TypeInteger)).
	Field("recipients", abodeql.Optional(abodeql.TypeJSONB)).
	Field("owner_id", abodeql.Optional(abodeql.TypeSnowflake)).
	Field("icon", abodeql.Optional(abodeql.TypeString)).
	Ref("guild", GuildModel, "guild_id", "id", false).
	Ref("owner", UserModel, "owner_id", "id", false)

// Record returns the row values in descriptor field order.
func (c *Channel) Record() []any {
	return []any{
		c.ID.Int64(),
		c.Type,
		c.Name,
		c.Topic,
		nullableID(c.GuildID),
		nullableID(c.CategoryID),
		c.Position,
		c.SlowmodeDelay,
		rawJSON(c.Overwrites),
		c.Bitrate,
		c.UserLimit,
		rawJSON(c.Recipients),
		nullableID(c.OwnerID),
		c.Icon,
	}
}

// rawJSON passes jsonb payloads through, mapping empty to NULL.
func rawJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
