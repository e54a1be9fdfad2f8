// Package audit holds the immutable dispatch trail. The only write path is
// Append; there are no update or delete operations.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRecordNotFound is returned by GetByID for unknown record IDs.
var ErrRecordNotFound = errors.New("audit record not found")

// Store is the SQLite-backed Sink plus read access for operators.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an already-migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts one record. Append-only by construction: plain INSERT, the
// primary key rejects re-use of an ID.
func (s *Store) Append(ctx context.Context, rec *Record) error {
	args := rec.Args
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	result := rec.Result
	if len(result) == 0 {
		result = json.RawMessage(`null`)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_record (id, actor, tool, args, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Actor,
		rec.Tool,
		string(args),
		string(result),
		rec.CreatedAt.Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("audit: append %s: %w", rec.ID, err)
	}
	return nil
}

// GetByID retrieves a single record.
func (s *Store) GetByID(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, actor, tool, args, result, created_at
		FROM audit_record
		WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("audit: get %s: %w", id, err)
	}
	return rec, nil
}

// List returns records ordered oldest-first (creation order), paginated,
// plus the total row count.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*Record, int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, tool, args, result, created_at
		FROM audit_record
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	out := make([]*Record, 0, limit)
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("audit: list scan: %w", scanErr)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("audit: list rows: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_record").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("audit: count: %w", err)
	}

	return out, total, nil
}

type recordScanner interface {
	Scan(dest ...any) error
}

func scanRecord(scan recordScanner) (*Record, error) {
	var (
		rec       Record
		args      string
		result    string
		createdAt string
	)
	if err := scan.Scan(&rec.ID, &rec.Actor, &rec.Tool, &args, &result, &createdAt); err != nil {
		return nil, err
	}

	rec.Args = json.RawMessage(args)
	rec.Result = json.RawMessage(result)

	ts, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	rec.CreatedAt = ts

	return &rec, nil
}
