package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/wsm/internal/ir"
	"github.com/roach88/wsm/internal/workspace"
)

// SaveSnapshot persists a snapshot and returns its ID.
// The snapshot row and all entity rows are written in one transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snap *workspace.Snapshot) (string, error) {
	id, err := s.ids.Generate()
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM snapshots`).Scan(&seq); err != nil {
		return "", fmt.Errorf("save snapshot: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots
		(id, seq, clock, last_id, entity_count, storage_version)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		id,
		seq,
		snap.Clock(),
		int64(snap.LastID()),
		snap.Len(),
		ir.StorageVersion,
	)
	if err != nil {
		return "", fmt.Errorf("save snapshot: insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entities
		(snapshot_id, entity_id, entity_type, schema_version, schema_hash, version, source, fields, record_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("save snapshot: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range snap.Records() {
		fields := rec.Fields()
		fieldsJSON, err := marshalFields(fields)
		if err != nil {
			return "", fmt.Errorf("save snapshot: entity %d: %w", rec.ID(), err)
		}
		hash, err := rec.Hash()
		if err != nil {
			return "", fmt.Errorf("save snapshot: entity %d: %w", rec.ID(), err)
		}
		d := rec.Descriptor()
		_, err = stmt.ExecContext(ctx,
			id,
			int64(rec.ID()),
			d.Name(),
			d.Version(),
			d.Hash(),
			rec.Version(),
			string(rec.Source()),
			fieldsJSON,
			hash,
		)
		if err != nil {
			return "", fmt.Errorf("save snapshot: entity %d: %w", rec.ID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save snapshot: commit: %w", err)
	}
	return id, nil
}

// DeleteSnapshot removes a snapshot and its entity rows.
func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete snapshot %s: %w", id, sql.ErrNoRows)
	}
	return nil
}
