package record

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/valedate/internal/diag"
)

// WriteRun inserts one run and its findings in a single transaction and
// returns the generated run ID. Findings are stored in deterministic order:
// paths sorted, then alert order within each path as Vale reported it.
func (s *Store) WriteRun(ctx context.Context, label, source string, pass bool, byPath map[string][]diag.Diagnostic) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, label, source, pass)
		VALUES (?, ?, ?, ?, ?)
	`,
		runID,
		time.Now().UTC().Format(time.RFC3339),
		label,
		source,
		boolToInt(pass),
	)
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}

	paths := make([]string, 0, len(byPath))
	for path := range byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		for seq, d := range byPath[path] {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO findings
				(run_id, path, seq, check_id, severity, line, span_start, span_end, message)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				runID,
				path,
				seq,
				d.Check,
				d.Severity,
				d.Line,
				d.Span[0],
				d.Span[1],
				d.Message,
			)
			if err != nil {
				return "", fmt.Errorf("write finding %s[%d]: %w", path, seq, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}
	return runID, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
