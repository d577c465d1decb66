package entity

import (
	"fmt"
	"reflect"

	"github.com/roach88/wsm/internal/ir"
)

// Scalar is the set of Go types a typed collection may hold.
type Scalar interface {
	~string | ~int64 | ~bool
}

func elemTypeOf[T Scalar]() ir.ElemType {
	var zero T
	switch reflect.TypeOf(zero).Kind() {
	case reflect.String:
		return ir.TypeString
	case reflect.Int64:
		return ir.TypeInt
	default:
		return ir.TypeBool
	}
}

// ScalarValue converts a typed scalar to an ir.Value.
func ScalarValue[T Scalar](v T) ir.Value {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return ir.String(rv.String())
	case reflect.Int64:
		return ir.Int(rv.Int())
	default:
		return ir.Bool(rv.Bool())
	}
}

// ScalarOf converts an ir.Value to T, reporting false on a type mismatch.
func ScalarOf[T Scalar](v ir.Value) (T, bool) {
	var out T
	rv := reflect.ValueOf(&out).Elem()
	switch x := v.(type) {
	case ir.String:
		if rv.Kind() != reflect.String {
			return out, false
		}
		rv.SetString(string(x))
	case ir.Int:
		if rv.Kind() != reflect.Int64 {
			return out, false
		}
		rv.SetInt(int64(x))
	case ir.Bool:
		if rv.Kind() != reflect.Bool {
			return out, false
		}
		rv.SetBool(bool(x))
	default:
		return out, false
	}
	return out, true
}

// ArrayOf converts typed elements to an ir.Array.
func ArrayOf[T Scalar](vals ...T) ir.Array {
	arr := make(ir.Array, len(vals))
	for i, v := range vals {
		arr[i] = ScalarValue(v)
	}
	return arr
}

// ValuesOf converts an ir.Array to typed elements, skipping elements of
// another type.
func ValuesOf[T Scalar](arr ir.Array) []T {
	out := make([]T, 0, len(arr))
	for _, v := range arr {
		if x, ok := ScalarOf[T](v); ok {
			out = append(out, x)
		}
	}
	return out
}

func checkElem[T Scalar](d *Descriptor, name string, elem ir.ElemType) error {
	want := elemTypeOf[T]()
	if elem != want && elem != ir.TypeAny {
		return NewSchemaMismatchError(d.name, name, fmt.Errorf("field holds %s, not %s", elem, want))
	}
	return nil
}

// List is a typed view over a list field's adapter.
type List[T Scalar] struct {
	l *MutableList
}

// ListOf returns the typed adapter of a list field.
func ListOf[T Scalar](b *Builder, name string) (List[T], error) {
	l, err := b.ListField(name)
	if err != nil {
		return List[T]{}, err
	}
	if err := checkElem[T](b.desc, name, l.elem); err != nil {
		return List[T]{}, err
	}
	return List[T]{l: l}, nil
}

// Len returns the number of elements.
func (l List[T]) Len() int { return l.l.Len() }

// At returns the element at index i.
func (l List[T]) At(i int) T {
	// ListOf matched T to the element type, so the conversion cannot fail.
	v, _ := ScalarOf[T](l.l.items[i])
	return v
}

// Add appends v. ListOf already checked T against the element type, which
// is the only way the underlying Add can fail.
func (l List[T]) Add(v T) { _ = l.l.Add(ScalarValue(v)) }

// AddAll appends vs in order. As with Add, the element check ran in ListOf.
func (l List[T]) AddAll(vs ...T) { _ = l.l.AddAll(ArrayOf(vs...)...) }

// Insert places v at index i.
func (l List[T]) Insert(i int, v T) error { return l.l.Insert(i, ScalarValue(v)) }

// SetAt replaces the element at index i.
func (l List[T]) SetAt(i int, v T) error { return l.l.SetAt(i, ScalarValue(v)) }

// RemoveAt deletes the element at index i.
func (l List[T]) RemoveAt(i int) error { return l.l.RemoveAt(i) }

// Remove deletes the first occurrence of v.
func (l List[T]) Remove(v T) bool { return l.l.Remove(ScalarValue(v)) }

// Contains reports whether v is present.
func (l List[T]) Contains(v T) bool { return l.l.Contains(ScalarValue(v)) }

// Clear removes all elements.
func (l List[T]) Clear() { l.l.Clear() }

// Values returns a copy of the elements.
func (l List[T]) Values() []T { return ValuesOf[T](l.l.items) }

// Set is a typed view over a set field's adapter.
type Set[T Scalar] struct {
	s *MutableSet
}

// SetOf returns the typed adapter of a set field.
func SetOf[T Scalar](b *Builder, name string) (Set[T], error) {
	s, err := b.SetField(name)
	if err != nil {
		return Set[T]{}, err
	}
	if err := checkElem[T](b.desc, name, s.elem); err != nil {
		return Set[T]{}, err
	}
	return Set[T]{s: s}, nil
}

// Len returns the number of elements.
func (s Set[T]) Len() int { return s.s.Len() }

// Add inserts v and reports whether it was new.
func (s Set[T]) Add(v T) bool {
	// SetOf checked T against the element type; Add fails on nothing else.
	added, _ := s.s.Add(ScalarValue(v))
	return added
}

// Remove deletes v and reports whether it was present.
func (s Set[T]) Remove(v T) bool { return s.s.Remove(ScalarValue(v)) }

// Contains reports whether v is present.
func (s Set[T]) Contains(v T) bool { return s.s.Contains(ScalarValue(v)) }

// Clear removes all elements.
func (s Set[T]) Clear() { s.s.Clear() }

// Values returns a copy of the elements.
func (s Set[T]) Values() []T { return ValuesOf[T](s.s.items) }
