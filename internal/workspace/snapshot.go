package workspace

import (
	"github.com/roach88/wsm/internal/entity"
)

// Snapshot is a frozen view of a storage at one point in time.
// It is immutable and safe for concurrent use.
type Snapshot struct {
	records table
	lastID  entity.ID
	clock   int64
}

// Resolve returns the entity with the given ID as of the snapshot.
func (s *Snapshot) Resolve(id entity.ID) (entity.Entity, bool) {
	return s.records.resolve(id)
}

// Entities returns the entities of type d ordered by ID, or all entities if
// d is nil.
func (s *Snapshot) Entities(d *entity.Descriptor) []entity.Entity {
	return s.records.entities(ofType(d))
}

// EntitiesBySource returns the entities carrying src ordered by ID.
func (s *Snapshot) EntitiesBySource(src entity.EntitySource) []entity.Entity {
	return s.records.entities(fromSource(src))
}

// Records returns all records ordered by ID.
func (s *Snapshot) Records() []*entity.Record {
	return s.records.records(nil)
}

// Len returns the number of entities.
func (s *Snapshot) Len() int { return len(s.records) }

// LastID returns the highest ID the storage had allocated.
func (s *Snapshot) LastID() entity.ID { return s.lastID }

// Clock returns the logical clock value at the time of the snapshot.
func (s *Snapshot) Clock() int64 { return s.clock }
