package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wsm/internal/entities"
	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
	"github.com/roach88/wsm/internal/store"
	"github.com/roach88/wsm/internal/testutil"
	"github.com/roach88/wsm/internal/workspace"
)

// seedDB saves one snapshot holding a DefaultProp and a CollectionField,
// plus any extra entities created by extra. The snapshot ID is "snap-1".
func seedDB(t *testing.T, extra func(ws *workspace.MutableStorage)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ws.db")
	st, err := store.Open(path, store.WithIDGenerator(testutil.NewSequentialIDs("snap")))
	require.NoError(t, err)
	defer st.Close()

	ws := workspace.New()
	_, err = entities.CreateDefaultProp(ws, "a", []int64{1, 2}, 5, "S1", nil)
	require.NoError(t, err)
	_, err = entities.CreateCollectionField(ws, []int64{7}, []string{"x"}, "", nil)
	require.NoError(t, err)
	if extra != nil {
		extra(ws)
	}

	id, err := st.SaveSnapshot(context.Background(), ws.Snapshot())
	require.NoError(t, err)
	require.Equal(t, "snap-1", id)
	return path
}

func runInspectCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewInspectCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestInspectListSnapshots(t *testing.T) {
	db := seedDB(t, nil)

	out, err := runInspectCmd(t, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "snap-1  seq=1 clock=2 entities=2")
}

func TestInspectListEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := runInspectCmd(t, "text", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No snapshots.")
}

func TestInspectRawRows(t *testing.T) {
	db := seedDB(t, nil)

	out, err := runInspectCmd(t, "text", "--db", db, "snap-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Snapshot snap-1 (seq 1, clock 2, 2 entities)")
	assert.Contains(t, out, `#1 DefaultProp@1 source=S1 {"constInt":5,"someList":[1,2],"someString":"a"}`)
	assert.Contains(t, out, `#2 CollectionField@2 {"names":["x"],"versions":[7]}`)
}

func TestInspectLatestDecoded(t *testing.T) {
	db := seedDB(t, nil)

	out, err := runInspectCmd(t, "json", "--db", db, "--schemas", schemasDir, "latest")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   InspectResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Decoded)
	assert.Equal(t, "snap-1", resp.Data.Snapshot.ID)
	require.Len(t, resp.Data.Entities, 2)
	assert.Equal(t, "DefaultProp", resp.Data.Entities[0].Type)
	assert.Equal(t, entity.EntitySource("S1"), resp.Data.Entities[0].Source)
	assert.Equal(t, "CollectionField", resp.Data.Entities[1].Type)
}

func TestInspectSnapshotNotFound(t *testing.T) {
	db := seedDB(t, nil)

	out, err := runInspectCmd(t, "text", "--db", db, "snap-9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "snapshot not found: snap-9")
}

func TestInspectLatestEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := runInspectCmd(t, "text", "--db", path, "latest")
	require.Error(t, err)
	assert.Contains(t, out, "snapshot not found: latest")
}

func TestInspectMissingDB(t *testing.T) {
	_, err := runInspectCmd(t, "text")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--db is required")

	out, err := runInspectCmd(t, "text", "--db", filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.Contains(t, out, "database not found")
}

func TestInspectUnregisteredType(t *testing.T) {
	ghost := entity.MustDescriptor(ir.EntitySchema{
		Name:    "Ghost",
		Version: 1,
		Fields:  []ir.FieldSchema{{Name: "name", Kind: ir.KindScalar, Type: ir.TypeString}},
	})
	db := seedDB(t, func(ws *workspace.MutableStorage) {
		_, err := ws.Create(ghost, "", ir.Object{"name": ir.String("boo")}, nil)
		require.NoError(t, err)
	})

	out, err := runInspectCmd(t, "json", "--db", db, "--schemas", schemasDir, "snap-1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Error CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, string(entity.CodeSchemaMismatch), resp.Error.Code)
}
