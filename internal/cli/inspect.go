package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
	"github.com/roach88/wsm/internal/store"
)

// latestSnapshot selects the most recently saved snapshot.
const latestSnapshot = "latest"

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	DB      string
	Schemas string
}

// EntityView is one entity as printed by inspect.
type EntityView struct {
	ID      entity.ID           `json:"id"`
	Type    string              `json:"type"`
	Version int64               `json:"version"`
	Source  entity.EntitySource `json:"source"`
	Fields  ir.Object           `json:"fields"`
}

// InspectResult is the output of inspect for one snapshot.
type InspectResult struct {
	Snapshot store.SnapshotInfo `json:"snapshot"`
	Decoded  bool               `json:"decoded"`
	Entities []EntityView       `json:"entities"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect [snapshot-id|latest]",
		Short: "Inspect persisted snapshots",
		Long: `List the snapshots in a database, or print the entities of one.

Without --schemas the stored rows are printed as saved. With --schemas
every row is decoded against the current schemas first, so fields added
since the snapshot was saved show their defaults and rows that no longer
fit fail with SCHEMA_MISMATCH.

Examples:
  wsm inspect --db ws.db
  wsm inspect --db ws.db latest
  wsm inspect --db ws.db --schemas ./schemas 0192f0c4-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), opts, firstArg(args), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "database path")
	cmd.Flags().StringVar(&opts.Schemas, "schemas", "", "schemas directory to decode against")

	return cmd
}

func runInspect(ctx context.Context, opts *InspectOptions, id string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	dbPath := opts.DB
	if dbPath == "" {
		dbPath = opts.RootOptions.DB
	}
	if dbPath == "" {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "--db is required")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath))
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("opening database: %v", err))
	}
	defer st.Close()

	if id == "" {
		infos, err := st.ListSnapshots(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
		}
		return outputSnapshotList(formatter, infos)
	}

	info, err := resolveSnapshot(ctx, st, id)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("snapshot not found: %s", id))
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
	}

	schemas := opts.Schemas
	if schemas == "" {
		schemas = opts.RootOptions.Schemas
	}

	result := &InspectResult{Snapshot: info, Entities: []EntityView{}}
	if schemas == "" {
		rows, err := st.ReadEntities(ctx, info.ID)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
		}
		for _, row := range rows {
			result.Entities = append(result.Entities, EntityView{
				ID:      row.EntityID,
				Type:    row.EntityType,
				Version: row.Version,
				Source:  row.Source,
				Fields:  row.Fields,
			})
		}
		return outputInspect(formatter, result)
	}

	reg, err := LoadRegistry(schemas)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, err.Error())
	}
	ws, err := st.LoadSnapshot(ctx, info.ID, reg, opts.storageLogger(formatter))
	if err != nil {
		code := ErrCodeStore
		var entErr *entity.Error
		if errors.As(err, &entErr) {
			code = string(entErr.Code)
		}
		return formatter.Fail(ExitFailure, code, err.Error())
	}
	result.Decoded = true
	for _, e := range ws.Entities(nil) {
		result.Entities = append(result.Entities, EntityView{
			ID:      e.ID(),
			Type:    e.Type(),
			Version: e.Version(),
			Source:  e.Source(),
			Fields:  e.Fields(),
		})
	}
	return outputInspect(formatter, result)
}

func resolveSnapshot(ctx context.Context, st *store.Store, id string) (store.SnapshotInfo, error) {
	if id == latestSnapshot {
		return st.LatestSnapshot(ctx)
	}
	return st.ReadSnapshot(ctx, id)
}

func outputSnapshotList(formatter *OutputFormatter, infos []store.SnapshotInfo) error {
	if formatter.IsJSON() {
		return formatter.Success(infos)
	}
	w := formatter.Writer
	if len(infos) == 0 {
		fmt.Fprintln(w, "No snapshots.")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(w, "%s  seq=%d clock=%d entities=%d\n", info.ID, info.Seq, info.Clock, info.EntityCount)
	}
	return nil
}

func outputInspect(formatter *OutputFormatter, result *InspectResult) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Snapshot %s (seq %d, clock %d, %d entities)\n",
		result.Snapshot.ID, result.Snapshot.Seq, result.Snapshot.Clock, len(result.Entities))
	for _, e := range result.Entities {
		fields, err := ir.MarshalCanonical(e.Fields)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  #%d %s@%d", e.ID, e.Type, e.Version)
		if e.Source != "" {
			fmt.Fprintf(w, " source=%s", e.Source)
		}
		fmt.Fprintf(w, " %s\n", fields)
	}
	return nil
}
