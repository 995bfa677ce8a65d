package models

import "github.com/mr-karan/abode/internal/abodeql"

// User is an archived Discord account.
type User struct {
	ID            Snowflake `json:"id"`
	Name          string    `json:"name"`
	Discriminator int       `json:"discriminator"`
	Avatar        *string   `json:"avatar"`
	Bot           bool      `json:"bot"`
	System        bool      `json:"system"`
}

// UserModel is the search descriptor for the users table.
var UserModel = abodeql.NewModel("user", "users", "id").
	Field("id", abodeql.TypeSnowflake).
	Field("name", abodeql.TypeString).
	Field("discriminator", abodeql.TypeInteger).
	Field("avatar", abodeql.Optional(abodeql.TypeString)).
	Field("bot", abodeql.TypeBoolean).
	Field("system", abodeql.TypeBoolean)

// Record returns the row values in descriptor field order.
func (u *User) Record() []any {
	return []any{
		u.ID.Int64(),
		u.Name,
		u.Discriminator,
		u.Avatar,
		u.Bot,
		u.System,
	}
}
