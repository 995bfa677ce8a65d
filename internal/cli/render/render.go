// Package render formats search results for the terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles for table output.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// maxCellWidth bounds table cells so message content stays readable.
const maxCellWidth = 60

// Results writes rows in the requested format: table, json, or jsonl.
func Results(w io.Writer, format string, fields []string, results []map[string]any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)

	case "jsonl":
		enc := json.NewEncoder(w)
		for _, row := range results {
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		return nil

	case "", "table":
		return table(w, fields, results)

	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func table(w io.Writer, fields []string, results []map[string]any) error {
	if len(results) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no results"))
		return nil
	}

	widths := make([]int, len(fields))
	rows := make([][]string, 0, len(results))
	for i, f := range fields {
		widths[i] = len(f)
	}
	for _, result := range results {
		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = cell(result[f])
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
		rows = append(rows, row)
	}

	var header strings.Builder
	for i, f := range fields {
		fmt.Fprintf(&header, "%-*s  ", widths[i], f)
	}
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(header.String(), " ")))

	for _, row := range rows {
		var line strings.Builder
		for i, value := range row {
			fmt.Fprintf(&line, "%-*s  ", widths[i], value)
		}
		fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d results", len(results))))
	return nil
}

func cell(v any) string {
	var out string
	switch value := v.(type) {
	case nil:
		out = ""
	case string:
		out = value
	case map[string]any, []any, json.RawMessage:
		raw, err := json.Marshal(value)
		if err != nil {
			out = fmt.Sprintf("%v", value)
		} else {
			out = string(raw)
		}
	default:
		out = fmt.Sprintf("%v", value)
	}

	out = strings.ReplaceAll(out, "\n", "\\n")
	if len(out) > maxCellWidth {
		out = out[:maxCellWidth-1] + "…"
	}
	return out
}
