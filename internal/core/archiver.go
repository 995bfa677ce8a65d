package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/VictoriaMetrics/metrics"

	"github.com/mr-karan/abode/internal/postgres"
	"github.com/mr-karan/abode/pkg/models"
)

// Archiver applies upstream chat events to the archive. It is the
// single write surface the gateway client and backfills go through.
type Archiver struct {
	store *postgres.Store
	log   *slog.Logger
}

// NewArchiver creates an Archiver backed by the given store.
func NewArchiver(store *postgres.Store, log *slog.Logger) *Archiver {
	return &Archiver{store: store, log: log.With("component", "archiver")}
}

func countEvent(kind string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`abode_events_total{type=%q}`, kind)).Inc()
}

// UpsertGuild records a guild create/update.
func (a *Archiver) UpsertGuild(ctx context.Context, g *models.Guild) error {
	countEvent("guild")
	return a.store.UpsertGuild(ctx, g)
}

// UpsertUser records a user sighting.
func (a *Archiver) UpsertUser(ctx context.Context, u *models.User) error {
	countEvent("user")
	return a.store.UpsertUser(ctx, u)
}

// UpsertChannel records a channel create/update.
func (a *Archiver) UpsertChannel(ctx context.Context, c *models.Channel) error {
	countEvent("channel")
	return a.store.UpsertChannel(ctx, c)
}

// UpsertEmoji records a guild emoji.
func (a *Archiver) UpsertEmoji(ctx context.Context, e *models.Emoji) error {
	countEvent("emoji")
	return a.store.UpsertEmoji(ctx, e)
}

// InsertMessage records a newly created message. The author is
// upserted first so author joins always resolve.
func (a *Archiver) InsertMessage(ctx context.Context, m *models.Message, author *models.User) error {
	countEvent("message")
	if author != nil {
		if err := a.store.UpsertUser(ctx, author); err != nil {
			a.log.Warn("failed to upsert message author", "author_id", author.ID, "error", err)
		}
	}
	return a.store.InsertMessage(ctx, m)
}

// BackfillMessage records a message replayed from history, skipping
// rows already archived. Reports whether the row was new.
func (a *Archiver) BackfillMessage(ctx context.Context, m *models.Message) (bool, error) {
	inserted, err := a.store.InsertMessageIgnoreExisting(ctx, m)
	if err != nil {
		return false, err
	}
	if inserted {
		metrics.GetOrCreateCounter(`abode_backfilled_messages_total`).Inc()
	}
	return inserted, nil
}

// UpdateMessage applies an edit event.
func (a *Archiver) UpdateMessage(ctx context.Context, m *models.Message) error {
	countEvent("message_update")
	return a.store.UpdateMessageContent(ctx, m)
}

// DeleteMessage tombstones a deleted message. Unknown ids are logged
// and ignored; deletes routinely arrive for messages that predate
// the archive.
func (a *Archiver) DeleteMessage(ctx context.Context, id models.Snowflake) error {
	countEvent("message_delete")
	if err := a.store.MarkMessageDeleted(ctx, id); err != nil {
		a.log.Debug("delete for unarchived message", "id", id, "error", err)
	}
	return nil
}
