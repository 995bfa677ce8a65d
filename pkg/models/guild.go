package models

import "github.com/mr-karan/abode/internal/abodeql"

// Guild is an archived Discord guild. IsCurrentlyJoined tracks
// whether the archiving account is still a member.
type Guild struct {
	ID                Snowflake `json:"id"`
	OwnerID           Snowflake `json:"owner_id"`
	Name              string    `json:"name"`
	Icon              *string   `json:"icon"`
	IsCurrentlyJoined bool      `json:"is_currently_joined"`
}

// GuildModel is the search descriptor for the guilds table.
var GuildModel = abodeql.NewModel("guild", "guilds", "id").
	Field("id", abodeql.TypeSnowflake).
	Field("owner_id", abodeql.TypeSnowflake).
	Field("name", abodeql.TypeString).
	Field("icon", abodeql.Optional(abodeql.TypeString)).
	Field("is_currently_joined", abodeql.TypeBoolean).
	Ref("owner", UserModel, "owner_id", "id", true)

// Record returns the row values in descriptor field order.
func (g *Guild) Record() []any {
	return []any{
		g.ID.Int64(),
		g.OwnerID.Int64(),
		g.Name,
		g.Icon,
		g.IsCurrentlyJoined,
	}
}
