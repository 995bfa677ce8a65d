package abodeql

import (
	"reflect"
	"testing"
	"time"
)

func TestDecodeRootModel(t *testing.T) {
	rows := [][]any{
		{int64(1), int64(2), "blob emoji"},
		{int64(3), int64(4), "discord api"},
	}

	results, fields, err := DecodeResults([]*Model{testGuild}, nil, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := []string{"id", "owner_id", "name"}; !reflect.DeepEqual(fields, want) {
		t.Errorf("fields: got %v, want %v", fields, want)
	}

	want := map[string]any{"id": "1", "owner_id": "2", "name": "blob emoji"}
	if !reflect.DeepEqual(results[0], want) {
		t.Errorf("row 0: got %#v, want %#v", results[0], want)
	}
}

func TestDecodeForeignModels(t *testing.T) {
	created := time.Date(2020, 3, 14, 9, 26, 53, 0, time.UTC)
	row := []any{
		// messages
		int64(10), int64(20), int64(30), "yeet", created,
		// guilds
		int64(20), int64(30), "discord api",
		// users
		int64(30), "Danny", false,
	}

	results, _, err := DecodeResults([]*Model{testMessage, testGuild, testUser}, nil, [][]any{row})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := results[0]
	if got["id"] != "10" || got["content"] != "yeet" {
		t.Errorf("root fields wrong: %#v", got)
	}
	if got["created_at"] != "2020-03-14T09:26:53Z" {
		t.Errorf("timestamp egress: got %v", got["created_at"])
	}

	guild, ok := got["guild"].(map[string]any)
	if !ok || guild["name"] != "discord api" {
		t.Errorf("nested guild wrong: %#v", got["guild"])
	}
	author, ok := got["author"].(map[string]any)
	if !ok || author["name"] != "Danny" {
		t.Errorf("nested author wrong: %#v", got["author"])
	}
}

func TestDecodeProjection(t *testing.T) {
	row := []any{
		int64(10), int64(20), int64(30), "yeet", time.Now(),
		int64(20), int64(30), "discord api",
		int64(30), "Danny", false,
	}
	models := []*Model{testMessage, testGuild, testUser}
	returnFields := []string{"id", "guild.name", "author.name"}

	results, fields, err := DecodeResults(models, returnFields, [][]any{row})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(fields, returnFields) {
		t.Errorf("fields: got %v, want %v", fields, returnFields)
	}
	want := map[string]any{"id": "10", "guild.name": "discord api", "author.name": "Danny"}
	if !reflect.DeepEqual(results[0], want) {
		t.Errorf("got %#v, want %#v", results[0], want)
	}
}

func TestDecodeProjectionNeedsModel(t *testing.T) {
	row := []any{int64(10), int64(20), int64(30), "yeet", time.Now()}
	_, _, err := DecodeResults([]*Model{testMessage}, []string{"guild.name"}, [][]any{row})
	if err == nil {
		t.Fatal("expected an error for a projection outside the model list")
	}
}

func TestDecodeFlatReturnFieldsActAsDefault(t *testing.T) {
	rows := [][]any{{int64(1), int64(2), "blob"}}

	// A returns list identical to the root's field list is the
	// default projection, not a narrowed one.
	results, fields, err := DecodeResults([]*Model{testGuild}, []string{"id", "owner_id", "name"}, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"id", "owner_id", "name"}; !reflect.DeepEqual(fields, want) {
		t.Errorf("fields: got %v, want %v", fields, want)
	}
	if results[0]["name"] != "blob" {
		t.Errorf("got %#v", results[0])
	}
}

func TestDecodeRowWidthMismatch(t *testing.T) {
	if _, _, err := DecodeResults([]*Model{testGuild}, nil, [][]any{{int64(1)}}); err == nil {
		t.Fatal("expected an error for a short row")
	}
}
