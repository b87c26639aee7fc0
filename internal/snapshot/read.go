package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// List returns all snapshot records without payloads, ordered by
// revision then insertion order. Returns an empty slice, not nil, when
// the database holds no snapshots.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, revision, label, content_hash, taken_at
		FROM snapshots
		ORDER BY revision ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	if records == nil {
		records = []Record{}
	}

	return records, nil
}

// Read retrieves a single snapshot, payload included, by content hash.
// Returns sql.ErrNoRows if no snapshot has that hash.
func (s *Store) Read(ctx context.Context, contentHash string) (Record, error) {
	var (
		rec     Record
		doc     string
		takenAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, revision, label, content_hash, doc_json, taken_at
		FROM snapshots
		WHERE content_hash = ?
	`, contentHash).Scan(&rec.ID, &rec.Revision, &rec.Label, &rec.ContentHash, &doc, &takenAt)
	if err != nil {
		return Record{}, err
	}

	rec.DocJSON = []byte(doc)
	rec.TakenAt, err = parseTakenAt(takenAt)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// LatestHash returns the content hash of the most recently written
// snapshot, or "" when the database is empty. The versioning plugin
// compares against it to skip redundant writes after a restart.
func (s *Store) LatestHash(ctx context.Context) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT content_hash FROM snapshots ORDER BY id DESC LIMIT 1
	`).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest hash: %w", err)
	}
	return hash, nil
}

// Count returns the number of stored snapshots.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

// scanRecord scans a listing row (no payload column).
func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec     Record
		takenAt string
	)
	if err := rows.Scan(&rec.ID, &rec.Revision, &rec.Label, &rec.ContentHash, &takenAt); err != nil {
		return Record{}, fmt.Errorf("scan snapshot: %w", err)
	}

	var err error
	rec.TakenAt, err = parseTakenAt(takenAt)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func parseTakenAt(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse taken_at %q: %w", value, err)
	}
	return t, nil
}
