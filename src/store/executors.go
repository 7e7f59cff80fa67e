package store

import (
	"context"
	"fmt"
)

// Row is a single result record: a mapping from column name to value.
type Row map[string]any

// Query executes a read-only statement with optional bind parameters and
// returns the matching rows as field-addressable records. A query that
// matches nothing returns an empty slice, not nil; a query that fails returns
// a classified error (see KindOf) after logging the statement, its parameters
// and the underlying cause. Callers can therefore distinguish "no rows" from
// "query failed".
func (s *Store) Query(ctx context.Context, statement string, params ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, statement, params...)
	if err != nil {
		s.logger.Error("Error executing query", "query", statement, "params", params, "error", err)
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		s.logger.Error("Error reading result columns", "query", statement, "error", err)
		return nil, fmt.Errorf("read columns: %w", err)
	}

	results := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			s.logger.Error("Error scanning result row", "query", statement, "error", err)
			return nil, fmt.Errorf("scan row: %w", err)
		}

		record := make(Row, len(columns))
		for i, column := range columns {
			// The driver hands TEXT columns back as []byte; keep records
			// comparable and JSON-friendly by normalizing to string.
			if b, ok := values[i].([]byte); ok {
				record[column] = string(b)
			} else {
				record[column] = values[i]
			}
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("Error iterating result rows", "query", statement, "params", params, "error", err)
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return results, nil
}

// Exec executes a mutating statement (INSERT or UPDATE) with optional bind
// parameters. A single SQLite statement is atomic: on any returned error the
// store is guaranteed to be in its pre-call state. Failures are logged with
// full statement and parameter context and returned classified (see KindOf).
// Affected-row counts and generated ids are deliberately not exposed; callers
// needing the inserted row should look it up by its source_id.
func (s *Store) Exec(ctx context.Context, statement string, params ...any) error {
	if _, err := s.db.ExecContext(ctx, statement, params...); err != nil {
		s.logger.Error("Error executing update", "query", statement, "params", params, "error", err)
		return fmt.Errorf("execute update: %w", err)
	}
	return nil
}
