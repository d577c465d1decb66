package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
)

// view is the read surface shared by the storage and its snapshots.
type view interface {
	Resolve(id entity.ID) (entity.Entity, bool)
	Entities(d *entity.Descriptor) []entity.Entity
}

// check evaluates one assertion. Failures are plain errors; references to
// unknown aliases, snapshots or entity types wrap ErrInvalidScenario.
func (h *Harness) check(a Assertion) error {
	v, err := h.view(a.Snapshot)
	if err != nil {
		return err
	}

	switch a.Type {
	case AssertField:
		return h.assertField(v, a)
	case AssertCount:
		return h.assertCount(v, a)
	case AssertAbsent:
		e, err := h.alias(a.Target)
		if err != nil {
			return err
		}
		if found, ok := v.Resolve(e.ID()); ok {
			return fmt.Errorf("expected %s to be absent, found %s@%d", a.Target, found.Type(), found.Version())
		}
		return nil
	case AssertVersionNewer:
		return h.assertVersionNewer(v, a)
	default:
		return fmt.Errorf("%w: unknown assertion type %q", ErrInvalidScenario, a.Type)
	}
}

func (h *Harness) view(snapshot string) (view, error) {
	if snapshot == "" {
		return h.storage, nil
	}
	snap, ok := h.snapshots[snapshot]
	if !ok {
		return nil, fmt.Errorf("%w: unknown snapshot %q", ErrInvalidScenario, snapshot)
	}
	return snap, nil
}

func (h *Harness) alias(name string) (entity.Entity, error) {
	e, ok := h.aliases[name]
	if !ok {
		return entity.Entity{}, fmt.Errorf("%w: unknown alias %q", ErrInvalidScenario, name)
	}
	return e, nil
}

func (h *Harness) assertField(v view, a Assertion) error {
	want, err := ir.FromGo(a.Equals)
	if err != nil {
		return fmt.Errorf("%w: equals: %v", ErrInvalidScenario, err)
	}
	handle, err := h.alias(a.Target)
	if err != nil {
		return err
	}
	e, ok := v.Resolve(handle.ID())
	if !ok {
		return fmt.Errorf("%s (id %d) not found", a.Target, handle.ID())
	}
	f, ok := e.Descriptor().Field(a.Field)
	if !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrInvalidScenario, e.Type(), a.Field)
	}

	got, _ := e.Get(a.Field)
	if f.Kind == ir.KindSet {
		got, want = sortedArray(got), sortedArray(want)
	}
	if !ir.Equal(got, want) {
		return fmt.Errorf("%s.%s: expected %s, got %s", a.Target, a.Field, ir.Key(want), ir.Key(got))
	}
	return nil
}

func (h *Harness) assertCount(v view, a Assertion) error {
	var d *entity.Descriptor
	if a.Entity != "" {
		var ok bool
		d, ok = h.registry.Lookup(a.Entity)
		if !ok {
			return fmt.Errorf("%w: unknown entity type %q", ErrInvalidScenario, a.Entity)
		}
	}

	n := 0
	for _, e := range v.Entities(d) {
		if a.Source == "" || string(e.Source()) == a.Source {
			n++
		}
	}
	if n != *a.Count {
		return fmt.Errorf("expected %d entities, got %d", *a.Count, n)
	}
	return nil
}

func (h *Harness) assertVersionNewer(v view, a Assertion) error {
	handle, err := h.alias(a.Target)
	if err != nil {
		return err
	}
	older, err := h.view(a.Than)
	if err != nil {
		return err
	}

	cur, ok := v.Resolve(handle.ID())
	if !ok {
		return fmt.Errorf("%s (id %d) not found", a.Target, handle.ID())
	}
	prev, ok := older.Resolve(handle.ID())
	if !ok {
		return fmt.Errorf("%s (id %d) not found in snapshot %s", a.Target, handle.ID(), a.Than)
	}
	if cur.Version() <= prev.Version() {
		return fmt.Errorf("%s: version %d is not newer than %d in snapshot %s",
			a.Target, cur.Version(), prev.Version(), a.Than)
	}
	return nil
}

// sortedArray orders an array by canonical key, so set values compare
// regardless of insertion order.
func sortedArray(v ir.Value) ir.Value {
	arr, ok := v.(ir.Array)
	if !ok {
		return v
	}
	out := slices.Clone(arr)
	slices.SortFunc(out, func(x, y ir.Value) int {
		return strings.Compare(ir.Key(x), ir.Key(y))
	})
	return out
}
