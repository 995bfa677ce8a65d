package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestResultsJSON(t *testing.T) {
	var buf bytes.Buffer
	results := []map[string]any{{"id": "1", "name": "blob"}}

	if err := Results(&buf, "json", []string{"id", "name"}, results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if decoded[0]["name"] != "blob" {
		t.Errorf("got %#v", decoded)
	}
}

func TestResultsJSONL(t *testing.T) {
	var buf bytes.Buffer
	results := []map[string]any{{"id": "1"}, {"id": "2"}}

	if err := Results(&buf, "jsonl", []string{"id"}, results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Errorf("got %d lines, want 2", len(lines))
	}
}

func TestResultsTable(t *testing.T) {
	var buf bytes.Buffer
	results := []map[string]any{
		{"id": "1", "name": "blob"},
		{"id": "2", "name": strings.Repeat("x", 200)},
	}

	if err := Results(&buf, "table", []string{"id", "name"}, results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "blob") {
		t.Errorf("missing row value:\n%s", out)
	}
	if !strings.Contains(out, "2 results") {
		t.Errorf("missing footer:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if len(line) > 200 {
			t.Errorf("cell not truncated: %q", line)
		}
	}
}

func TestResultsUnknownFormat(t *testing.T) {
	if err := Results(&bytes.Buffer{}, "yaml", nil, nil); err == nil {
		t.Fatal("expected an error")
	}
}
