package harness

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/wsm/internal/compiler"
	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
	"github.com/roach88/wsm/internal/workspace"
)

// ErrInvalidScenario marks errors in the scenario itself (unknown aliases,
// entity types or snapshots) as opposed to storage failures.
var ErrInvalidScenario = errors.New("invalid scenario")

// errorCodeOther is reported for failures that carry no storage error code.
const errorCodeOther = "ERROR"

// Harness executes one scenario against a fresh storage.
type Harness struct {
	registry  *entity.Registry
	storage   *workspace.MutableStorage
	aliases   map[string]entity.Entity
	snapshots map[string]*workspace.Snapshot
	logger    *slog.Logger
}

// Option configures a run.
type Option func(*Harness)

// WithLogger sets the logger handed to the storage. Runs are silent by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns its result.
//
// Step failures and failed assertions are reported in the result. An error
// is returned only when the scenario cannot be run: its schemas fail to
// compile, or a step refers to something that does not exist.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	reg, err := LoadRegistry(scenario.Schemas)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		registry:  reg,
		aliases:   make(map[string]entity.Entity),
		snapshots: make(map[string]*workspace.Snapshot),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.storage = workspace.New(
		workspace.WithClock(workspace.NewClock()),
		workspace.WithLogger(h.logger),
	)

	result := NewResult()
	result.Storage = h.storage
	for i, step := range scenario.Steps {
		if err := h.execute(i, step, result); err != nil {
			return nil, err
		}
	}
	for i, a := range scenario.Assertions {
		if err := h.check(a); err != nil {
			if errors.Is(err, ErrInvalidScenario) {
				return nil, fmt.Errorf("assertions[%d]: %w", i, err)
			}
			result.AddError(fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	return result, nil
}

// LoadRegistry compiles the entity declarations of the given CUE files into
// a registry. Each file is compiled on its own.
func LoadRegistry(paths []string) (*entity.Registry, error) {
	ctx := cuecontext.New()
	var schemas []ir.EntitySchema
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file: %w", err)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		compiled, err := compiler.CompileEntities(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		schemas = append(schemas, compiled...)
	}
	return compiler.BuildRegistry(schemas)
}

// execute runs one step and appends its trace event.
func (h *Harness) execute(i int, st Step, result *Result) error {
	ev := TraceEvent{
		"step": ir.Int(i + 1),
		"op":   ir.String(st.Op),
	}

	var err error
	switch st.Op {
	case OpCreate:
		err = h.create(st, ev)
	case OpModify:
		err = h.modify(st, ev)
	case OpRemove:
		err = h.remove(st, ev)
	case OpSnapshot:
		h.snapshot(st, ev)
	default:
		err = fmt.Errorf("%w: unknown op %q", ErrInvalidScenario, st.Op)
	}
	if errors.Is(err, ErrInvalidScenario) {
		return fmt.Errorf("steps[%d]: %w", i, err)
	}
	result.addTrace(ev)

	switch {
	case err != nil && st.ExpectError == "":
		result.AddError(fmt.Sprintf("steps[%d] (%s): unexpected error: %v", i, st.Op, err))
	case err != nil && errorCode(err) != st.ExpectError:
		result.AddError(fmt.Sprintf("steps[%d] (%s): expected error %s, got %v", i, st.Op, st.ExpectError, err))
	case err == nil && st.ExpectError != "":
		result.AddError(fmt.Sprintf("steps[%d] (%s): expected error %s, got success", i, st.Op, st.ExpectError))
	}
	return nil
}

func (h *Harness) create(st Step, ev TraceEvent) error {
	if st.As != "" {
		ev["as"] = ir.String(st.As)
	}
	d, ok := h.registry.Lookup(st.Entity)
	if !ok {
		return fmt.Errorf("%w: unknown entity type %q", ErrInvalidScenario, st.Entity)
	}
	ev["entity"] = ir.String(d.Name())

	values, err := toObject(st.Values)
	if err != nil {
		return fmt.Errorf("%w: values: %v", ErrInvalidScenario, err)
	}

	src := entity.EntitySource(st.Source)
	var e entity.Entity
	if st.ID == 0 {
		e, err = h.storage.Create(d, src, values, nil)
	} else {
		var b *entity.Builder
		b, err = entity.Create(d, src, values, nil)
		if err == nil {
			e, err = h.storage.AddEntity(b, workspace.WithID(entity.ID(st.ID)))
		}
	}
	if err != nil {
		return recordError(ev, err)
	}

	if st.As != "" {
		h.aliases[st.As] = e
	}
	describe(ev, e)
	return nil
}

func (h *Harness) modify(st Step, ev TraceEvent) error {
	ev["target"] = ir.String(st.Target)
	e, ok := h.aliases[st.Target]
	if !ok {
		return fmt.Errorf("%w: unknown alias %q", ErrInvalidScenario, st.Target)
	}

	set, err := toObject(st.Set)
	if err != nil {
		return fmt.Errorf("%w: set: %v", ErrInvalidScenario, err)
	}
	add, err := toArrays(st.Add)
	if err != nil {
		return fmt.Errorf("%w: add: %v", ErrInvalidScenario, err)
	}
	remove, err := toArrays(st.Remove)
	if err != nil {
		return fmt.Errorf("%w: remove: %v", ErrInvalidScenario, err)
	}

	updated, err := h.storage.ModifyEntity(e, func(b *entity.Builder) error {
		if st.Source != "" {
			b.SetSource(entity.EntitySource(st.Source))
		}
		for _, name := range set.SortedKeys() {
			if err := b.Set(name, set[name]); err != nil {
				return err
			}
		}
		for _, name := range sortedKeys(add) {
			if err := editCollection(b, name, add[name], true); err != nil {
				return err
			}
		}
		for _, name := range sortedKeys(remove) {
			if err := editCollection(b, name, remove[name], false); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return recordError(ev, err)
	}

	h.aliases[st.Target] = updated
	describe(ev, updated)
	return nil
}

func (h *Harness) remove(st Step, ev TraceEvent) error {
	ev["target"] = ir.String(st.Target)
	e, ok := h.aliases[st.Target]
	if !ok {
		return fmt.Errorf("%w: unknown alias %q", ErrInvalidScenario, st.Target)
	}
	if err := h.storage.RemoveEntity(e); err != nil {
		return recordError(ev, err)
	}
	ev["entity"] = ir.String(e.Type())
	ev["id"] = ir.Int(e.ID())
	return nil
}

func (h *Harness) snapshot(st Step, ev TraceEvent) {
	snap := h.storage.Snapshot()
	h.snapshots[st.As] = snap
	ev["as"] = ir.String(st.As)
	ev["entities"] = ir.Int(snap.Len())
	ev["clock"] = ir.Int(snap.Clock())
}

// editCollection adds or removes elements of a list or set field.
func editCollection(b *entity.Builder, name string, vals ir.Array, add bool) error {
	typ := b.Descriptor().Name()
	f, ok := b.Descriptor().Field(name)
	if !ok || f.Kind == ir.KindScalar || f.Kind == ir.KindSource {
		// ListField reports the unknown field or the kind mismatch.
		_, err := b.ListField(name)
		return err
	}

	if f.Kind == ir.KindList {
		l, err := b.ListField(name)
		if err != nil {
			return err
		}
		if add {
			if err := l.AddAll(vals...); err != nil {
				return entity.NewSchemaMismatchError(typ, name, err)
			}
			return nil
		}
		for _, v := range vals {
			l.Remove(v)
		}
		return nil
	}

	s, err := b.SetField(name)
	if err != nil {
		return err
	}
	for _, v := range vals {
		if add {
			if _, err := s.Add(v); err != nil {
				return entity.NewSchemaMismatchError(typ, name, err)
			}
		} else {
			s.Remove(v)
		}
	}
	return nil
}

// describe fills ev with the committed state of e.
func describe(ev TraceEvent, e entity.Entity) {
	ev["entity"] = ir.String(e.Type())
	ev["id"] = ir.Int(e.ID())
	ev["version"] = ir.Int(e.Version())
	if e.Source() != "" {
		ev["source"] = ir.String(e.Source())
	}
	ev["fields"] = e.Fields()
}

func recordError(ev TraceEvent, err error) error {
	ev["error"] = ir.String(errorCode(err))
	return err
}

// errorCode returns the storage error code of err.
func errorCode(err error) string {
	var e *entity.Error
	if errors.As(err, &e) {
		return string(e.Code)
	}
	return errorCodeOther
}

func toObject(m map[string]any) (ir.Object, error) {
	obj := make(ir.Object, len(m))
	for k, raw := range m {
		v, err := ir.FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		obj[k] = v
	}
	return obj, nil
}

func toArrays(m map[string][]any) (map[string]ir.Array, error) {
	out := make(map[string]ir.Array, len(m))
	for k, raw := range m {
		v, err := ir.FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = v.(ir.Array)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
