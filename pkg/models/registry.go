package models

import "github.com/mr-karan/abode/internal/abodeql"

// registry maps the public model names accepted by the search API
// and CLI to their descriptors.
var registry = map[string]*abodeql.Model{
	"guild":   GuildModel,
	"message": MessageModel,
	"user":    UserModel,
	"channel": ChannelModel,
	"emoji":   EmojiModel,
}

// Lookup resolves a public model name to its descriptor.
func Lookup(name string) (*abodeql.Model, bool) {
	m, ok := registry[name]
	return m, ok
}

// Names returns the supported model names in a stable order.
func Names() []string {
	return []string{"guild", "message", "user", "channel", "emoji"}
}

// All returns the descriptors in the same order as Names.
func All() []*abodeql.Model {
	return []*abodeql.Model{GuildModel, MessageModel, UserModel, ChannelModel, EmojiModel}
}
