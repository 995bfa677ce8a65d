package models

import (
	"encoding/json"
	"time"

	"github.com/mr-karan/abode/internal/abodeql"
)

// Emoji is an archived custom guild emoji.
type Emoji struct {
	ID            Snowflake       `json:"id"`
	GuildID       Snowflake       `json:"guild_id"`
	AuthorID      *Snowflake      `json:"author_id"`
	Name          string          `json:"name"`
	RequireColons bool            `json:"require_colons"`
	Animated      bool            `json:"animated"`
	Managed       bool            `json:"managed"`
	Roles         json.RawMessage `json:"roles"`
	CreatedAt     time.Time       `json:"created_at"`
	Deleted       bool            `json:"deleted"`
}

// EmojiModel is the search descriptor for the emoji table.
var EmojiModel = abodeql.NewModel("emoji", "emoji", "id").
	Field("id", abodeql.TypeSnowflake).
	Field("guild_id", abodeql.TypeSnowflake).
	Field("author_id", abodeql.Optional(abodeql.TypeSnowflake)).
	Field("name", abodeql.TypeString).
	Field("require_colons", abodeql.TypeBoolean).
	Field("animated", abodeql.TypeBoolean).
	Field("managed", abodeql.TypeBoolean).
	Field("roles", abodeql.Optional(abodeql.TypeJSONB)).
	Field("created_at", abodeql.TypeTimestamp).
	Field("deleted", abodeql.TypeBoolean).
	Ref("guild", GuildModel, "guild_id", "id", true)

// Record returns the row values in descriptor field order.
func (e *Emoji) Record() []any {
	return []any{
		e.ID.Int64(),
		e.GuildID.Int64(),
		nullableID(e.AuthorID),
		e.Name,
		e.RequireColons,
		e.Animated,
		e.Managed,
		rawJSON(e.Roles),
		e.CreatedAt,
		e.Deleted,
	}
}
