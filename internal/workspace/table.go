package workspace

import (
	"slices"

	"github.com/roach88/wsm/internal/entity"
)

// table is the ID-indexed arena of current records. A table referenced by a
// snapshot is never written again.
type table map[entity.ID]*entity.Record

func (t table) resolve(id entity.ID) (entity.Entity, bool) {
	rec, ok := t[id]
	if !ok {
		return entity.Entity{}, false
	}
	return rec.Entity(), true
}

// records returns the records matching keep, ordered by ID.
func (t table) records(keep func(*entity.Record) bool) []*entity.Record {
	out := make([]*entity.Record, 0, len(t))
	for _, rec := range t {
		if keep == nil || keep(rec) {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b *entity.Record) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return out
}

func (t table) entities(keep func(*entity.Record) bool) []entity.Entity {
	recs := t.records(keep)
	out := make([]entity.Entity, len(recs))
	for i, rec := range recs {
		out[i] = rec.Entity()
	}
	return out
}

func ofType(d *entity.Descriptor) func(*entity.Record) bool {
	if d == nil {
		return nil
	}
	return func(r *entity.Record) bool { return r.Descriptor().Name() == d.Name() }
}

func fromSource(src entity.EntitySource) func(*entity.Record) bool {
	return func(r *entity.Record) bool { return r.Source() == src }
}
