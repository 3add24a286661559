package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/fossil-import/internal/core"
	"github.com/JonMunkholm/fossil-import/internal/store"
)

var (
	ownerID      string
	dryRun       bool
	batchSize    int
	hideProgress bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import the valid rows of a spreadsheet",
	Long: `Map, validate and import a spreadsheet for one collection owner.

Rows with blocking errors are skipped. Rows whose inventory id already
exists for the owner fail without stopping the run. Ctrl-C cancels the
run; rows imported so far are kept and reported.

With --dry-run the rows go to an in-memory store, so the whole run can
be rehearsed without a database.

Examples:
  fossil-import import collection.csv --owner alice
  fossil-import import collection.csv --owner alice --dry-run
  fossil-import import collection.csv --owner alice --mapping-file museum.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&ownerID, "owner", "o", "", "collection owner the records belong to (required)")
	importCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "import into memory instead of the database")
	importCmd.Flags().IntVar(&batchSize, "batch-size", 0, "rows between progress updates (default IMPORT_BATCH_SIZE)")
	importCmd.Flags().BoolVarP(&hideProgress, "quiet", "q", false, "do not print progress")
}

// importStore is what a run writes to.
type importStore interface {
	core.SpecimenStore
	core.HistoryStore
}

func runImport(cmd *cobra.Command, args []string) error {
	if ownerID == "" {
		return errors.New("--owner is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	mapping, err := loadMapping(cmd, args[0])
	if err != nil {
		return err
	}
	if err := requireMapped(mapping); err != nil {
		return err
	}

	drafts := core.BuildDraftsParallel(mapping, cfg.Import.DraftWorkers)
	stats := core.SummarizeDrafts(drafts)
	if stats.Importable == 0 {
		return core.ErrNoImportableRows
	}

	db, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	size := batchSize
	if size <= 0 {
		size = cfg.Import.BatchSize
	}

	if cfg.Import.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Import.Timeout)
		defer cancel()
	}

	importer := core.NewImporter(db, core.WithBatchSize(size), core.WithLogger(logger))
	run := importer.ImportSelected(ctx, drafts, ownerID, mapping.Source.SourceName)

	progressOut := cmd.ErrOrStderr()
	if hideProgress {
		progressOut = io.Discard
	}
	for p := range run.Progress() {
		printProgress(progressOut, p)
	}

	sum, runErr := run.Summary()
	if sum == nil {
		return runErr
	}

	// The run context may be cancelled already; the record must still land
	if err := db.RecordImport(context.WithoutCancel(ctx), *sum); err != nil {
		logger.Warn("failed to record import history", "import_id", sum.ImportID, "error", err)
	}

	printSummary(cmd.OutOrStdout(), sum)
	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "\nDry run: nothing was written to the database.")
	}
	return runErr
}

// openStore returns the in-memory store for dry runs and Postgres otherwise.
func openStore(ctx context.Context) (importStore, func(), error) {
	if dryRun {
		return store.NewMemory(), func() {}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if cfg.Database.Migrate {
		if err := store.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return store.NewPostgres(pool), pool.Close, nil
}

func printProgress(out io.Writer, p core.ImportProgress) {
	switch {
	case p.Completed:
		fmt.Fprintf(out, "[%3d%%] %d/%d done\n", p.Percent(), p.Processed(), p.TotalSpecimens)
	case p.Cancelled:
		fmt.Fprintf(out, "[%3d%%] %d/%d cancelled\n", p.Percent(), p.Processed(), p.TotalSpecimens)
	default:
		fmt.Fprintf(out, "[%3d%%] %d/%d %s\n", p.Percent(), p.Processed(), p.TotalSpecimens, p.CurrentSpecimenLabel)
	}
}

func printSummary(out io.Writer, sum *core.ImportSummary) {
	verb := "Imported"
	if sum.Cancelled {
		verb = "Cancelled after importing"
	}
	fmt.Fprintf(out, "%s %d of %d rows from %s in %s\n",
		verb, sum.SuccessCount, sum.TotalProcessed, sum.SourceName,
		(time.Duration(sum.DurationMs) * time.Millisecond).String())
	fmt.Fprintf(out, "Import ID: %s\n", sum.ImportID)
	fmt.Fprintf(out, "  succeeded: %d\n  failed:    %d\n  skipped:   %d\n",
		sum.SuccessCount, sum.FailedCount, sum.SkippedCount)

	if len(sum.FailedRows) > 0 {
		fmt.Fprintln(out, "\nFailed rows:")
		for _, f := range sum.FailedRows {
			fmt.Fprintf(out, "  Row %d (%s): %s\n", f.RowNumber, f.DisplayName, f.Message)
		}
	}
	if len(sum.Warnings) > 0 {
		fmt.Fprintln(out, "\nWarnings:")
		for _, w := range sum.Warnings {
			fmt.Fprintf(out, "  Row %d (%s), %s: %s\n", w.RowNumber, w.DisplayName, displayName(w.Field), w.Message)
		}
	}
}
