package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/sqlite"

	"orbitalvault/core/types"
)

// ErrPathRequired is returned when Open is called without a database path.
var ErrPathRequired = errors.New("auditd: storage path must be configured")

const schema = `
CREATE TABLE IF NOT EXISTS vault_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL,
    attributes TEXT NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vault_events_recorded ON vault_events(recorded_at);
CREATE INDEX IF NOT EXISTS idx_vault_events_type ON vault_events(type, recorded_at);
`

// Storage persists the vault event trail consumed by audit runs.
type Storage struct {
	db *sql.DB
}

// Open initialises the sqlite-backed audit trail at path.
func Open(path string) (*Storage, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record is one stored vault event.
type Record struct {
	ID         int64
	Type       string
	Attributes map[string]string
	RecordedAt time.Time
}

// RecordEvent appends one event to the trail.
func (s *Storage) RecordEvent(ctx context.Context, evt *types.Event, recorded time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage not configured")
	}
	if evt == nil || strings.TrimSpace(evt.Type) == "" {
		return fmt.Errorf("event type required")
	}
	attrs := evt.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO vault_events (type, attributes, recorded_at)
        VALUES (?, ?, ?)
    `, evt.Type, string(encoded), recorded.UTC())
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// EventsBetween returns events recorded in [start, end), oldest first.
func (s *Storage) EventsBetween(ctx context.Context, start, end time.Time) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage not configured")
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, type, attributes, recorded_at
        FROM vault_events
        WHERE recorded_at >= ? AND recorded_at < ?
        ORDER BY id ASC
    `, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec     Record
			encoded string
		)
		if err := rows.Scan(&rec.ID, &rec.Type, &encoded, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &rec.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes for event %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return records, nil
}

// CountByType summarises the stored trail per event type.
func (s *Storage) CountByType(ctx context.Context) (map[string]int64, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage not configured")
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT type, COUNT(*) FROM vault_events GROUP BY type
    `)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			typ   string
			count int64
		)
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[typ] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

// PruneBefore removes events recorded before the cutoff and reports how many
// rows were deleted.
func (s *Storage) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("storage not configured")
	}
	res, err := s.db.ExecContext(ctx, `
        DELETE FROM vault_events WHERE recorded_at < ?
    `, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned rows: %w", err)
	}
	return deleted, nil
}
