package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable IDs "<prefix>-1", "<prefix>-2", ...
// for golden files and store tests.
//
// Thread-safety: Generate is safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix defaults to "snap".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "snap"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID. It never fails.
func (g *SequentialIDs) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n), nil
}
