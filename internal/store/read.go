package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
	"github.com/roach88/wsm/internal/workspace"
)

// ErrCorruptRecord is returned when a stored row's fields do not match its
// record hash.
var ErrCorruptRecord = errors.New("record hash mismatch")

// SnapshotInfo describes a persisted snapshot.
type SnapshotInfo struct {
	ID             string    `json:"id"`
	Seq            int64     `json:"seq"`
	Clock          int64     `json:"clock"`
	LastID         entity.ID `json:"last_id"`
	EntityCount    int       `json:"entity_count"`
	StorageVersion string    `json:"storage_version"`
}

// EntityRow is one persisted record as stored, before decoding against the
// current schema.
type EntityRow struct {
	EntityID      entity.ID           `json:"entity_id"`
	EntityType    string              `json:"entity_type"`
	SchemaVersion int                 `json:"schema_version"`
	SchemaHash    string              `json:"schema_hash"`
	Version       int64               `json:"version"`
	Source        entity.EntitySource `json:"source"`
	Fields        ir.Object           `json:"fields"`
	RecordHash    string              `json:"record_hash"`
}

const snapshotColumns = `id, seq, clock, last_id, entity_count, storage_version`

func scanSnapshot(scan func(dest ...any) error) (SnapshotInfo, error) {
	var info SnapshotInfo
	var lastID int64
	if err := scan(&info.ID, &info.Seq, &info.Clock, &lastID, &info.EntityCount, &info.StorageVersion); err != nil {
		return SnapshotInfo{}, err
	}
	info.LastID = entity.ID(lastID)
	return info, nil
}

// ListSnapshots returns all snapshots in save order.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	infos := []SnapshotInfo{}
	for rows.Next() {
		info, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return infos, nil
}

// ReadSnapshot returns a single snapshot's metadata.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSnapshot(ctx context.Context, id string) (SnapshotInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE id = ?
	`, id)
	return scanSnapshot(row.Scan)
}

// LatestSnapshot returns the most recently saved snapshot.
// Returns sql.ErrNoRows if the store is empty.
func (s *Store) LatestSnapshot(ctx context.Context) (SnapshotInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		ORDER BY seq DESC
		LIMIT 1
	`)
	return scanSnapshot(row.Scan)
}

// ReadEntities returns the stored rows of a snapshot ordered by entity ID.
// Each row's fields are checked against its record hash.
func (s *Store) ReadEntities(ctx context.Context, snapshotID string) ([]EntityRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, entity_type, schema_version, schema_hash, version, source, fields, record_hash
		FROM entities
		WHERE snapshot_id = ?
		ORDER BY entity_id ASC
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	out := []EntityRow{}
	for rows.Next() {
		var (
			row        EntityRow
			id         int64
			source     string
			fieldsJSON string
		)
		if err := rows.Scan(&id, &row.EntityType, &row.SchemaVersion, &row.SchemaHash,
			&row.Version, &source, &fieldsJSON, &row.RecordHash); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		row.EntityID = entity.ID(id)
		row.Source = entity.EntitySource(source)

		row.Fields, err = unmarshalFields(fieldsJSON)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", id, err)
		}
		hash, err := ir.RecordHash(row.EntityType, source, row.Fields)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", id, err)
		}
		if hash != row.RecordHash {
			return nil, fmt.Errorf("entity %d: %w", id, ErrCorruptRecord)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return out, nil
}

// LoadSnapshot rebuilds a mutable storage from a persisted snapshot.
// Every row is decoded against the descriptor currently registered for its
// type; a row whose type is not registered, or whose values no longer fit
// the schema, fails the whole load with a schema-mismatch error.
// Returns sql.ErrNoRows if the snapshot does not exist.
func (s *Store) LoadSnapshot(ctx context.Context, id string, reg *entity.Registry, opts ...workspace.Option) (*workspace.MutableStorage, error) {
	info, err := s.ReadSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	rows, err := s.ReadEntities(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}

	records := make([]*entity.Record, 0, len(rows))
	for _, row := range rows {
		d, ok := reg.Lookup(row.EntityType)
		if !ok {
			err := &entity.Error{
				Code:       entity.CodeSchemaMismatch,
				Message:    "entity type is not registered",
				EntityType: row.EntityType,
				EntityID:   row.EntityID,
			}
			return nil, fmt.Errorf("load snapshot %s: %w", id, err)
		}
		rec, err := entity.Decode(d, row.EntityID, row.Version, row.Source, row.Fields)
		if err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", id, err)
		}
		records = append(records, rec)
	}

	ws, err := workspace.FromRecords(records, info.LastID, info.Clock, opts...)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	return ws, nil
}
