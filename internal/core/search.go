// Package core implements the application's use cases: searching the
// archive and applying gateway events to it.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/mr-karan/abode/internal/abodeql"
	"github.com/mr-karan/abode/internal/postgres"
	"github.com/mr-karan/abode/pkg/models"
)

// ErrUnknownModel is returned when a search names a model outside
// the registry.
var ErrUnknownModel = fmt.Errorf("unsupported model")

// SearchRequest is one archive search.
type SearchRequest struct {
	Model       string `json:"model"`
	Query       string `json:"query"`
	Limit       int    `json:"limit"`
	Page        int    `json:"page"`
	OrderBy     string `json:"order_by"`
	OrderDir    string `json:"order_dir"`
	ForeignData *bool  `json:"foreign_data"`
}

// SearchDebug echoes what was executed, for the query UI.
type SearchDebug struct {
	SQL        string   `json:"sql"`
	Args       []any    `json:"args"`
	Models     []string `json:"models"`
	DurationMs int64    `json:"ms"`
}

// SearchResponse is the decoded result set plus execution metadata.
type SearchResponse struct {
	Results []map[string]any `json:"results"`
	Fields  []string         `json:"fields"`
	Debug   SearchDebug      `json:"_debug"`
}

// Compile turns a search request into a compiled query without
// executing it. Compilation errors are returned unwrapped so callers
// can inspect the abodeql error kinds.
func Compile(req SearchRequest) (*abodeql.CompileResult, *abodeql.Model, error) {
	model, ok := models.Lookup(req.Model)
	if !ok {
		return nil, nil, ErrUnknownModel
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	foreign := true
	if req.ForeignData != nil {
		foreign = *req.ForeignData
	}

	compiled, err := abodeql.CompileQuery(req.Query, model, abodeql.CompileOptions{
		Limit:              limit,
		Offset:             limit * (page - 1),
		OrderBy:            req.OrderBy,
		OrderDir:           req.OrderDir,
		IncludeForeignData: foreign,
		Returns:            true,
	})
	if err != nil {
		return nil, nil, err
	}
	return compiled, model, nil
}

// Search compiles, executes, and decodes one search request.
func Search(ctx context.Context, store *postgres.Store, log *slog.Logger, req SearchRequest) (*SearchResponse, error) {
	compiled, _, err := Compile(req)
	if err != nil {
		return nil, err
	}

	metrics.GetOrCreateCounter(fmt.Sprintf(`abode_searches_total{model=%q}`, req.Model)).Inc()

	start := time.Now()
	rows, err := store.Search(ctx, compiled)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	metrics.GetOrCreateHistogram(`abode_search_duration_seconds`).UpdateDuration(start)

	results, fields, err := abodeql.DecodeResults(compiled.Models, compiled.ReturnFields, rows)
	if err != nil {
		return nil, fmt.Errorf("error decoding results: %w", err)
	}

	log.Debug("search executed",
		"model", req.Model,
		"query", req.Query,
		"rows", len(results),
		"duration_ms", elapsed.Milliseconds())

	names := make([]string, len(compiled.Models))
	for i, m := range compiled.Models {
		names[i] = m.Name
	}

	return &SearchResponse{
		Results: results,
		Fields:  fields,
		Debug: SearchDebug{
			SQL:        compiled.SQL,
			Args:       compiled.Args,
			Models:     names,
			DurationMs: elapsed.Milliseconds(),
		},
	}, nil
}
