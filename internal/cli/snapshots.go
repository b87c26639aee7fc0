package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"quire/internal/snapshot"
)

// SnapshotsOptions holds flags for the snapshots subcommands.
type SnapshotsOptions struct {
	*RootOptions
	Database string
}

// SnapshotView is one listing row in JSON output.
type SnapshotView struct {
	Revision    int64     `json:"revision"`
	Label       string    `json:"label,omitempty"`
	ContentHash string    `json:"content_hash"`
	TakenAt     time.Time `json:"taken_at"`
}

// SnapshotDetail is the show payload: listing row plus the document.
type SnapshotDetail struct {
	SnapshotView
	Doc json.RawMessage `json:"doc"`
}

// NewSnapshotsCommand creates the snapshots command group.
func NewSnapshotsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect a snapshot database",
	}

	cmd.AddCommand(newSnapshotsListCommand(rootOpts))
	cmd.AddCommand(newSnapshotsShowCommand(rootOpts))

	return cmd
}

func newSnapshotsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Long: `List every snapshot in a database, newest first.

Examples:
  quire snapshots list --db ./quire.db
  quire snapshots list --db ./quire.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotsList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite snapshot database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSnapshotsList(opts *SnapshotsOptions, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	ctx := context.Background()

	st, err := openSnapshotDB(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.List(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list snapshots", err)
	}

	if opts.Format == "json" {
		views := make([]SnapshotView, 0, len(records))
		for _, rec := range records {
			views = append(views, snapshotView(rec))
		}
		formatter := &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		}
		return formatter.Success(views)
	}

	w := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintf(w, "No snapshots in %s\n", opts.Database)
		return nil
	}

	fmt.Fprintf(w, "Snapshots: %d\n\n", len(records))
	for _, rec := range records {
		fmt.Fprintf(w, "  [%d] %s  %s\n", rec.Revision, rec.TakenAt.UTC().Format(time.RFC3339), rec.ContentHash)
		if rec.Label != "" {
			fmt.Fprintf(w, "      label: %s\n", rec.Label)
		}
	}
	return nil
}

func newSnapshotsShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <content-hash>",
		Short: "Print one snapshot with its document",
		Long: `Print a snapshot's metadata and the canonical document JSON it
captured, addressed by content hash.

Examples:
  quire snapshots show 4f2a... --db ./quire.db
  quire snapshots show 4f2a... --db ./quire.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotsShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite snapshot database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSnapshotsShow(opts *SnapshotsOptions, contentHash string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	ctx := context.Background()

	st, err := openSnapshotDB(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Read(ctx, contentHash)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("no snapshot with content hash %s", contentHash))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		}
		return formatter.Success(SnapshotDetail{
			SnapshotView: snapshotView(rec),
			Doc:          json.RawMessage(rec.DocJSON),
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "revision:     %d\n", rec.Revision)
	if rec.Label != "" {
		fmt.Fprintf(w, "label:        %s\n", rec.Label)
	}
	fmt.Fprintf(w, "content_hash: %s\n", rec.ContentHash)
	fmt.Fprintf(w, "taken_at:     %s\n", rec.TakenAt.UTC().Format(time.RFC3339))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s\n", rec.DocJSON)
	return nil
}

// openSnapshotDB opens an existing snapshot database. Open creates
// missing databases, so absent paths are rejected first.
func openSnapshotDB(path string) (*snapshot.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("snapshot database not found: %s", path))
	}

	st, err := snapshot.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func snapshotView(rec snapshot.Record) SnapshotView {
	return SnapshotView{
		Revision:    rec.Revision,
		Label:       rec.Label,
		ContentHash: rec.ContentHash,
		TakenAt:     rec.TakenAt.UTC(),
	}
}
