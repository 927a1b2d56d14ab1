package record

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/valedate/internal/diag"
)

// Run is one recorded lint or scenario execution.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Label     string    `json:"label"`
	Source    string    `json:"source"`
	Pass      bool      `json:"pass"`
	Findings  int       `json:"findings"`
}

// ListRuns returns the most recent runs, newest first, up to limit
// (limit <= 0 means no limit). Returns an empty slice when the store holds
// no runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT r.id, r.created_at, r.label, r.source, r.pass, COUNT(f.run_id)
		FROM runs r
		LEFT JOIN findings f ON f.run_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at DESC, r.id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		var createdAt string
		var pass int
		if err := rows.Scan(&run.ID, &createdAt, &run.Label, &run.Source, &pass, &run.Findings); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp: %w", err)
		}
		run.Pass = pass != 0
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// FindingsForRun returns a run's diagnostics grouped by reported path, in
// the order they were recorded. Returns an empty map for an unknown run ID.
func (s *Store) FindingsForRun(ctx context.Context, runID string) (map[string][]diag.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, check_id, severity, line, span_start, span_end, message
		FROM findings
		WHERE run_id = ?
		ORDER BY path ASC, seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	byPath := map[string][]diag.Diagnostic{}
	for rows.Next() {
		var path string
		var d diag.Diagnostic
		if err := rows.Scan(&path, &d.Check, &d.Severity, &d.Line, &d.Span[0], &d.Span[1], &d.Message); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		byPath[path] = append(byPath[path], d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate findings: %w", err)
	}
	return byPath, nil
}
