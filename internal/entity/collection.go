package entity

import (
	"fmt"
	"slices"

	"github.com/roach88/wsm/internal/ir"
)

// MutableList is an ordered, duplicate-allowing collection adapter.
// It owns its elements: construction copies the input and Values copies
// the output, so no caller ever aliases the adapter's backing storage.
type MutableList struct {
	elem     ir.ElemType
	items    []ir.Value
	onChange func()
}

// NewMutableList copies vals into a new list adapter for elements of type elem.
func NewMutableList(elem ir.ElemType, vals ir.Array) (*MutableList, error) {
	l := &MutableList{elem: elem, items: make([]ir.Value, 0, len(vals))}
	for i, v := range vals {
		if err := l.check(v); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		l.items = append(l.items, ir.Clone(v))
	}
	return l, nil
}

func (l *MutableList) check(v ir.Value) error {
	if !l.elem.Accepts(v) {
		return fmt.Errorf("expected %s element, got %s", l.elem, ir.TypeName(v))
	}
	return nil
}

func (l *MutableList) changed() {
	if l.onChange != nil {
		l.onChange()
	}
}

// ElemType returns the element type the list accepts.
func (l *MutableList) ElemType() ir.ElemType { return l.elem }

// Len returns the number of elements.
func (l *MutableList) Len() int { return len(l.items) }

// At returns a copy of the element at index i. It panics if i is out of range.
func (l *MutableList) At(i int) ir.Value { return ir.Clone(l.items[i]) }

// Add appends v.
func (l *MutableList) Add(v ir.Value) error {
	if err := l.check(v); err != nil {
		return err
	}
	l.items = append(l.items, ir.Clone(v))
	l.changed()
	return nil
}

// AddAll appends vs in order. Either all elements are appended or none.
func (l *MutableList) AddAll(vs ...ir.Value) error {
	for i, v := range vs {
		if err := l.check(v); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	if len(vs) == 0 {
		return nil
	}
	for _, v := range vs {
		l.items = append(l.items, ir.Clone(v))
	}
	l.changed()
	return nil
}

// Insert places v at index i, shifting later elements. i may equal Len.
func (l *MutableList) Insert(i int, v ir.Value) error {
	if i < 0 || i > len(l.items) {
		return fmt.Errorf("index %d out of range [0,%d]", i, len(l.items))
	}
	if err := l.check(v); err != nil {
		return err
	}
	l.items = slices.Insert(l.items, i, ir.Clone(v))
	l.changed()
	return nil
}

// SetAt replaces the element at index i.
func (l *MutableList) SetAt(i int, v ir.Value) error {
	if i < 0 || i >= len(l.items) {
		return fmt.Errorf("index %d out of range [0,%d)", i, len(l.items))
	}
	if err := l.check(v); err != nil {
		return err
	}
	l.items[i] = ir.Clone(v)
	l.changed()
	return nil
}

// RemoveAt deletes the element at index i.
func (l *MutableList) RemoveAt(i int) error {
	if i < 0 || i >= len(l.items) {
		return fmt.Errorf("index %d out of range [0,%d)", i, len(l.items))
	}
	l.items = slices.Delete(l.items, i, i+1)
	l.changed()
	return nil
}

// Remove deletes the first element equal to v and reports whether one was found.
func (l *MutableList) Remove(v ir.Value) bool {
	i := l.IndexOf(v)
	if i < 0 {
		return false
	}
	l.items = slices.Delete(l.items, i, i+1)
	l.changed()
	return true
}

// IndexOf returns the index of the first element equal to v, or -1.
func (l *MutableList) IndexOf(v ir.Value) int {
	return slices.IndexFunc(l.items, func(x ir.Value) bool { return ir.Equal(x, v) })
}

// Contains reports whether an element equal to v is present.
func (l *MutableList) Contains(v ir.Value) bool { return l.IndexOf(v) >= 0 }

// Clear removes all elements.
func (l *MutableList) Clear() {
	if len(l.items) == 0 {
		return
	}
	l.items = l.items[:0]
	l.changed()
}

// Values returns a copy of the elements in order.
func (l *MutableList) Values() ir.Array {
	out := make(ir.Array, len(l.items))
	for i, v := range l.items {
		out[i] = ir.Clone(v)
	}
	return out
}

// MutableSet is a collection adapter with unique elements. Uniqueness is by
// value equality. Iteration order is unspecified; this implementation keeps
// insertion order so that persisted output is stable.
type MutableSet struct {
	elem     ir.ElemType
	items    []ir.Value
	index    map[string]int
	onChange func()
}

// NewMutableSet copies vals into a new set adapter. Duplicates in vals
// collapse to one element.
func NewMutableSet(elem ir.ElemType, vals ir.Array) (*MutableSet, error) {
	s := &MutableSet{
		elem:  elem,
		items: make([]ir.Value, 0, len(vals)),
		index: make(map[string]int, len(vals)),
	}
	for i, v := range vals {
		if err := s.check(v); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		s.insert(v)
	}
	return s, nil
}

func (s *MutableSet) check(v ir.Value) error {
	if !s.elem.Accepts(v) {
		return fmt.Errorf("expected %s element, got %s", s.elem, ir.TypeName(v))
	}
	return nil
}

func (s *MutableSet) insert(v ir.Value) bool {
	k := ir.Key(v)
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, ir.Clone(v))
	return true
}

func (s *MutableSet) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// ElemType returns the element type the set accepts.
func (s *MutableSet) ElemType() ir.ElemType { return s.elem }

// Len returns the number of elements.
func (s *MutableSet) Len() int { return len(s.items) }

// Add inserts v and reports whether it was not already present.
// Adding an existing element is a no-op and does not mark the set changed.
func (s *MutableSet) Add(v ir.Value) (bool, error) {
	if err := s.check(v); err != nil {
		return false, err
	}
	if !s.insert(v) {
		return false, nil
	}
	s.changed()
	return true, nil
}

// Remove deletes v and reports whether it was present.
func (s *MutableSet) Remove(v ir.Value) bool {
	if v == nil {
		return false
	}
	k := ir.Key(v)
	i, ok := s.index[k]
	if !ok {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	delete(s.index, k)
	for j := i; j < len(s.items); j++ {
		s.index[ir.Key(s.items[j])] = j
	}
	s.changed()
	return true
}

// Contains reports whether v is present.
func (s *MutableSet) Contains(v ir.Value) bool {
	if v == nil {
		return false
	}
	_, ok := s.index[ir.Key(v)]
	return ok
}

// Clear removes all elements.
func (s *MutableSet) Clear() {
	if len(s.items) == 0 {
		return
	}
	s.items = s.items[:0]
	clear(s.index)
	s.changed()
}

// Values returns a copy of the elements.
func (s *MutableSet) Values() ir.Array {
	out := make(ir.Array, len(s.items))
	for i, v := range s.items {
		out[i] = ir.Clone(v)
	}
	return out
}
