package entities

import (
	"fmt"

	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
)

// The typed accessors only pass values whose Go type matches the field, so
// a failure here means the descriptor and the wrapper disagree.

func mustSet(b *entity.Builder, name string, v ir.Value) {
	if err := b.Set(name, v); err != nil {
		panic(fmt.Sprintf("entities: %v", err))
	}
}

func mustList[T entity.Scalar](b *entity.Builder, name string) entity.List[T] {
	l, err := entity.ListOf[T](b, name)
	if err != nil {
		panic(fmt.Sprintf("entities: %v", err))
	}
	return l
}

func mustSetField[T entity.Scalar](b *entity.Builder, name string) entity.Set[T] {
	s, err := entity.SetOf[T](b, name)
	if err != nil {
		panic(fmt.Sprintf("entities: %v", err))
	}
	return s
}
