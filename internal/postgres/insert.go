package postgres

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/mr-karan/abode/internal/abodeql"
	"github.com/mr-karan/abode/pkg/models"
)

// psql builds statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// buildUpsert builds an insert for one descriptor-ordered record that
// replaces the row on primary-key conflict.
func buildUpsert(model *abodeql.Model, record []any) (string, []any, error) {
	columns := model.FieldNames()

	updates := make([]string, 0, len(columns))
	for _, col := range columns {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	return psql.Insert(model.Table).
		Columns(columns...).
		Values(record...).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
			model.PrimaryKey, strings.Join(updates, ", "))).
		ToSql()
}

// buildInsertIgnore builds an insert that leaves existing rows alone.
// Used by backfills replaying history the live client already saw.
func buildInsertIgnore(model *abodeql.Model, record []any) (string, []any, error) {
	return psql.Insert(model.Table).
		Columns(model.FieldNames()...).
		Values(record...).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", model.PrimaryKey)).
		ToSql()
}

// upsert writes one record, logging a field-level diff when the row
// already existed with different values.
func (s *Store) upsert(ctx context.Context, model *abodeql.Model, id int64, record []any) error {
	existing, found, err := s.fetchRecord(ctx, model, id)
	if err != nil {
		return err
	}

	query, args, err := buildUpsert(model, record)
	if err != nil {
		return fmt.Errorf("error building %s upsert: %w", model.Name, err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("error upserting %s %d: %w", model.Name, id, err)
	}

	if found {
		if changed := diffRecord(model, record, existing); len(changed) > 0 {
			s.log.Info("record changed", "model", model.Name, "id", id, "fields", changed)
		}
	}
	return nil
}

func (s *Store) fetchRecord(ctx context.Context, model *abodeql.Model, id int64) ([]any, bool, error) {
	query, args, err := psql.Select(model.FieldNames()...).
		From(model.Table).
		Where(sq.Eq{model.PrimaryKey: id}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("error building %s select: %w", model.Name, err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("error fetching %s %d: %w", model.Name, id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, false, rows.Err()
	}
	values, err := rows.Values()
	if err != nil {
		return nil, false, err
	}
	return values, true, nil
}

// diffRecord returns the names of fields whose stored value differs
// from the incoming record. Comparison is loose: both sides pass
// through fmt so driver-level representation changes do not register.
func diffRecord(model *abodeql.Model, record, existing []any) []string {
	if len(record) != len(existing) {
		return nil
	}
	var changed []string
	for i, f := range model.Fields {
		if !looseEqual(record[i], existing[i]) {
			changed = append(changed, f.Name)
		}
	}
	return changed
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// UpsertUser writes a user, replacing any existing row.
func (s *Store) UpsertUser(ctx context.Context, u *models.User) error {
	return s.upsert(ctx, models.UserModel, u.ID.Int64(), u.Record())
}

// UpsertGuild writes a guild, replacing any existing row.
func (s *Store) UpsertGuild(ctx context.Context, g *models.Guild) error {
	return s.upsert(ctx, models.GuildModel, g.ID.Int64(), g.Record())
}

// UpsertChannel writes a channel, replacing any existing row.
func (s *Store) UpsertChannel(ctx context.Context, c *models.Channel) error {
	return s.upsert(ctx, models.ChannelModel, c.ID.Int64(), c.Record())
}

// UpsertEmoji writes an emoji, replacing any existing row.
func (s *Store) UpsertEmoji(ctx context.Context, e *models.Emoji) error {
	return s.upsert(ctx, models.EmojiModel, e.ID.Int64(), e.Record())
}

// InsertMessage writes a message. Messages are immutable events; a
// duplicate id is an error for the live path.
func (s *Store) InsertMessage(ctx context.Context, m *models.Message) error {
	query, args, err := psql.Insert(models.MessageModel.Table).
		Columns(models.MessageModel.FieldNames()...).
		Values(m.Record()...).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building message insert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("error inserting message %s: %w", m.ID, err)
	}
	return nil
}

// InsertMessageIgnoreExisting writes a message, skipping rows the
// archive already holds. Used by backfills.
func (s *Store) InsertMessageIgnoreExisting(ctx context.Context, m *models.Message) (bool, error) {
	query, args, err := buildInsertIgnore(models.MessageModel, m.Record())
	if err != nil {
		return false, fmt.Errorf("error building message insert: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("error inserting message %s: %w", m.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkMessageDeleted tombstones a message instead of removing it.
func (s *Store) MarkMessageDeleted(ctx context.Context, id models.Snowflake) error {
	query, args, err := psql.Update(models.MessageModel.Table).
		Set("deleted", true).
		Where(sq.Eq{"id": id.Int64()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building message tombstone: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error tombstoning message %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateMessageContent applies an edit to an archived message.
func (s *Store) UpdateMessageContent(ctx context.Context, m *models.Message) error {
	query, args, err := psql.Update(models.MessageModel.Table).
		Set("content", m.Content).
		Set("embeds", []byte(m.Embeds)).
		Set("edited_at", m.EditedAt).
		Set("flags", m.Flags).
		Set("mention_everyone", m.MentionEveryone).
		Where(sq.Eq{"id": m.ID.Int64()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building message update: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("error updating message %s: %w", m.ID, err)
	}
	return nil
}
