package store

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/wsm/internal/testutil"
	"github.com/roach88/wsm/internal/workspace"
)

// createTestStore creates a new store in a temp directory. Snapshot IDs are
// snap-1, snap-2, ...
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequentialIDs("snap")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func quietLogger() workspace.Option {
	return workspace.WithLogger(slog.New(slog.DiscardHandler))
}
