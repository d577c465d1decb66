package workspace

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
)

// MutableStorage is the live entity storage. Every write replaces the
// current record of one ID with a new immutable record; earlier records
// and the snapshots holding them are never modified.
//
// A MutableStorage has a single writer. It is not safe for concurrent use;
// hand readers a Snapshot instead.
type MutableStorage struct {
	records table
	shared  bool // records is referenced by a snapshot
	lastID  entity.ID
	clock   Clock
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a MutableStorage.
type Option func(*MutableStorage)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *MutableStorage) {
		s.logger = l
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *MutableStorage) {
		s.metrics = m
	}
}

// WithClock replaces the logical clock. The clock must already be past
// every version in the storage.
func WithClock(c Clock) Option {
	return func(s *MutableStorage) {
		s.clock = c
	}
}

// New creates an empty storage.
func New(opts ...Option) *MutableStorage {
	return newStorage(make(table), false, 0, 0, opts)
}

// From creates a storage seeded with the contents of a snapshot. Records are
// shared with the snapshot; the snapshot is unaffected by writes to the new
// storage.
func From(snap *Snapshot, opts ...Option) *MutableStorage {
	return newStorage(snap.records, true, snap.lastID, snap.clock, opts)
}

// FromRecords creates a storage holding the given records, as loaded from
// persistence. ID allocation resumes after the larger of lastID and the
// highest record ID; the clock resumes after the larger of clock and the
// highest record version.
func FromRecords(records []*entity.Record, lastID entity.ID, clock int64, opts ...Option) (*MutableStorage, error) {
	t := make(table, len(records))
	for _, rec := range records {
		if _, dup := t[rec.ID()]; dup {
			return nil, entity.NewDuplicateIdentityError(rec.Descriptor().Name(), rec.ID())
		}
		t[rec.ID()] = rec
		lastID = max(lastID, rec.ID())
		clock = max(clock, rec.Version())
	}
	return newStorage(t, false, lastID, clock, opts), nil
}

func newStorage(t table, shared bool, lastID entity.ID, clock int64, opts []Option) *MutableStorage {
	s := &MutableStorage{
		records: t,
		shared:  shared,
		lastID:  lastID,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = NewClockAt(clock)
	}
	s.metrics.setLive(len(s.records))
	return s
}

// writable returns the record table, copying it first if a snapshot holds it.
func (s *MutableStorage) writable() table {
	if s.shared {
		s.records = maps.Clone(s.records)
		s.shared = false
	}
	return s.records
}

// AddOption configures AddEntity.
type AddOption func(*addConfig)

type addConfig struct {
	id entity.ID
}

// WithID commits the entity under an explicit ID instead of allocating one.
func WithID(id entity.ID) AddOption {
	return func(c *addConfig) {
		c.id = id
	}
}

// Create builds a new entity through the generic factory and commits it.
func (s *MutableStorage) Create(d *entity.Descriptor, source entity.EntitySource, values ir.Object, init func(*entity.Builder) error) (entity.Entity, error) {
	b, err := entity.Create(d, source, values, init)
	if err != nil {
		s.reject("create", d.Name(), 0, err)
		return entity.Entity{}, err
	}
	return s.AddEntity(b)
}

// AddEntity commits the builder as a new entity. The ID is allocated unless
// WithID is given. An explicit ID at or below LastID, whether live, removed
// or skipped, fails with a duplicate-identity error, so no ID is ever handed
// out twice. On error the storage is unchanged.
func (s *MutableStorage) AddEntity(b *entity.Builder, opts ...AddOption) (entity.Entity, error) {
	var cfg addConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	typ := b.Descriptor().Name()

	if cfg.id < 0 {
		err := fmt.Errorf("AddEntity: explicit id must be positive, got %d", cfg.id)
		s.reject("add", typ, cfg.id, err)
		return entity.Entity{}, err
	}
	if cfg.id != 0 && cfg.id <= s.lastID {
		err := entity.NewDuplicateIdentityError(typ, cfg.id)
		s.reject("add", typ, cfg.id, err)
		return entity.Entity{}, err
	}
	if err := b.Validate(); err != nil {
		s.reject("add", typ, cfg.id, err)
		return entity.Entity{}, err
	}

	id := cfg.id
	if id == 0 {
		id = s.lastID + 1
	}
	rec, err := entity.Commit(b, id, s.clock.Next())
	if err != nil {
		return entity.Entity{}, err
	}
	s.writable()[id] = rec
	s.lastID = max(s.lastID, id)

	s.logger.Debug("entity created",
		"type", typ,
		"id", int64(id),
		"version", rec.Version(),
		"source", string(rec.Source()))
	s.metrics.commit(typ, "create")
	s.metrics.setLive(len(s.records))
	return rec.Entity(), nil
}

// ModifyEntity opens a copy-on-write builder over the current record of e's
// ID, applies fn, and commits the result under a newer version. The ID is
// resolved against the storage, so e may be an older version of the entity.
//
// If e is not a version of an entity live in this storage (never created
// here, or removed) the result is a stale-entity error. If fn fails, or the
// staged record is invalid, nothing changes. If fn changes nothing, the
// current entity is returned and no version is consumed.
func (s *MutableStorage) ModifyEntity(e entity.Entity, fn func(*entity.Builder) error) (entity.Entity, error) {
	if e.IsZero() {
		return entity.Entity{}, fmt.Errorf("ModifyEntity: zero entity")
	}
	if fn == nil {
		return entity.Entity{}, fmt.Errorf("ModifyEntity: nil modify function")
	}
	cur, err := s.current("modify", e)
	if err != nil {
		return entity.Entity{}, err
	}

	b := cur.Builder()
	if err := fn(b); err != nil {
		s.reject("modify", e.Type(), e.ID(), err)
		return entity.Entity{}, err
	}
	if !b.Dirty() {
		return cur.Entity(), nil
	}
	if err := b.Validate(); err != nil {
		s.reject("modify", e.Type(), e.ID(), err)
		return entity.Entity{}, err
	}

	rec, err := entity.Revise(b, s.clock.Next())
	if err != nil {
		return entity.Entity{}, err
	}
	s.writable()[rec.ID()] = rec

	s.logger.Debug("entity modified",
		"type", e.Type(),
		"id", int64(rec.ID()),
		"version", rec.Version(),
		"changed", b.Changed())
	s.metrics.commit(e.Type(), "modify")
	return rec.Entity(), nil
}

// RemoveEntity removes e's ID from the storage. The ID is never reused.
// Snapshots taken earlier still hold the entity.
func (s *MutableStorage) RemoveEntity(e entity.Entity) error {
	if e.IsZero() {
		return fmt.Errorf("RemoveEntity: zero entity")
	}
	if _, err := s.current("remove", e); err != nil {
		return err
	}
	delete(s.writable(), e.ID())

	s.logger.Debug("entity removed", "type", e.Type(), "id", int64(e.ID()))
	s.metrics.remove(e.Type())
	s.metrics.setLive(len(s.records))
	return nil
}

// current returns the live record e is a version of.
func (s *MutableStorage) current(op string, e entity.Entity) (*entity.Record, error) {
	cur, ok := s.records[e.ID()]
	if !ok || !cur.SameEntity(e.Record()) {
		err := entity.NewStaleEntityError(e.Type(), e.ID())
		s.reject(op, e.Type(), e.ID(), err)
		return nil, err
	}
	return cur, nil
}

// Snapshot freezes the current contents. It costs O(1): the record table is
// shared until the next write.
func (s *MutableStorage) Snapshot() *Snapshot {
	s.shared = true
	snap := &Snapshot{
		records: s.records,
		lastID:  s.lastID,
		clock:   s.clock.Current(),
	}
	s.logger.Info("snapshot published",
		"entities", len(snap.records),
		"clock", snap.clock)
	s.metrics.snapshot()
	return snap
}

// Resolve returns the current version of the entity with the given ID.
func (s *MutableStorage) Resolve(id entity.ID) (entity.Entity, bool) {
	return s.records.resolve(id)
}

// Entities returns the current entities of type d ordered by ID, or all
// entities if d is nil.
func (s *MutableStorage) Entities(d *entity.Descriptor) []entity.Entity {
	return s.records.entities(ofType(d))
}

// EntitiesBySource returns the current entities carrying src ordered by ID.
func (s *MutableStorage) EntitiesBySource(src entity.EntitySource) []entity.Entity {
	return s.records.entities(fromSource(src))
}

// Len returns the number of live entities.
func (s *MutableStorage) Len() int { return len(s.records) }

// LastID returns the highest ID allocated so far.
func (s *MutableStorage) LastID() entity.ID { return s.lastID }

func (s *MutableStorage) reject(op, typ string, id entity.ID, err error) {
	s.logger.Warn("storage operation rejected",
		"op", op,
		"type", typ,
		"id", int64(id),
		"error", err)
	s.metrics.reject(err)
}
