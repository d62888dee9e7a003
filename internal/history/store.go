package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"depwatch/internal/deprecated"
)

// Store persists one row per completed analysis run.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := EnsureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun writes a run snapshot and returns its generated id.
func (s *Store) RecordRun(ctx context.Context, filesScanned int, counts map[deprecated.Kind]int, duration time.Duration) (string, error) {
	id := uuid.NewString()
	total := 0
	for _, n := range counts {
		total += n
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (schema_version, id, ts_utc, files_scanned, method_count, argument_count, module_count, class_count, total_count, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		SchemaVersion,
		id,
		time.Now().UTC().Format(time.RFC3339Nano),
		filesScanned,
		counts[deprecated.DeprecatedMethod],
		counts[deprecated.DeprecatedArgument],
		counts[deprecated.DeprecatedModule],
		counts[deprecated.DeprecatedClass],
		total,
		duration.Milliseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT schema_version, id, ts_utc, files_scanned, method_count, argument_count, module_count, class_count, total_count, duration_ms
FROM runs ORDER BY ts_utc DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var ts string
		if err := rows.Scan(&r.SchemaVersion, &r.ID, &ts, &r.FilesScanned, &r.MethodCount, &r.ArgumentCount, &r.ModuleCount, &r.ClassCount, &r.TotalCount, &r.DurationMS); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			r.Timestamp = parsed
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
