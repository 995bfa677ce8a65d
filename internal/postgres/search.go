package postgres

import (
	"context"
	"fmt"

	"github.com/mr-karan/abode/internal/abodeql"
)

// Search executes a compiled query and returns the raw value rows
// for the record decoder.
func (s *Store) Search(ctx context.Context, compiled *abodeql.CompileResult) ([][]any, error) {
	rows, err := s.pool.Query(ctx, compiled.SQL, compiled.Args...)
	if err != nil {
		return nil, fmt.Errorf("error executing search: %w", err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("error reading search row: %w", err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search rows: %w", err)
	}
	return out, nil
}
