package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quire/internal/doc"
)

// Capture turns a document export into a writable Record: the content
// hash is computed over the canonical form, the payload is plain JSON.
func Capture(export doc.Export, label string, takenAt time.Time) (Record, error) {
	hash, err := ContentHash(export)
	if err != nil {
		return Record{}, fmt.Errorf("capture: %w", err)
	}

	payload, err := json.Marshal(export)
	if err != nil {
		return Record{}, fmt.Errorf("capture: %w", err)
	}

	return Record{
		Revision:    export.Revision,
		Label:       label,
		ContentHash: hash,
		DocJSON:     payload,
		TakenAt:     takenAt,
	}, nil
}

// Write inserts a snapshot record and reports whether a new row was
// created. Uses ON CONFLICT(content_hash) DO NOTHING: writing content
// that is already stored returns the existing row's id and inserted=false.
func (s *Store) Write(ctx context.Context, rec Record) (id int64, inserted bool, err error) {
	// Insert-or-select must be atomic so two writers racing on the same
	// content both resolve to the same row.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots
		(revision, label, content_hash, doc_json, taken_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO NOTHING
	`,
		rec.Revision,
		rec.Label,
		rec.ContentHash,
		string(rec.DocJSON),
		rec.TakenAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, false, fmt.Errorf("write snapshot: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write snapshot: rows affected: %w", err)
	}

	if rowsAffected > 0 {
		id, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("write snapshot: last insert id: %w", err)
		}
		inserted = true
	} else {
		// Conflict: the content is already stored, fetch the existing id.
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM snapshots WHERE content_hash = ?
		`, rec.ContentHash).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("write snapshot: select existing: %w", err)
		}
		inserted = false
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write snapshot: commit: %w", err)
	}

	return id, inserted, nil
}
