package core

// importer.go runs a batch import of drafts into a SpecimenStore.
//
// A run processes importable drafts strictly in row order, in batches of
// BatchSize, one row at a time: duplicate detection must see earlier rows
// of the same run. Each row ends in a rowResult; a failing row is counted
// and the run moves on.
//
// Progress is delivered on an unbuffered channel, so the run only advances
// once the consumer has taken the previous snapshot. Cancelling the context
// (or calling ImportRun.Cancel) stops the run before its next store call; a
// cancelled run never emits a Completed snapshot.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultBatchSize is the number of rows processed per batch.
const DefaultBatchSize = 10

// Importer converts drafts to specimens and persists them.
type Importer struct {
	store     SpecimenStore
	batchSize int
	logger    *slog.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithBatchSize sets the batch size. Non-positive values keep the default.
func WithBatchSize(n int) ImporterOption {
	return func(im *Importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

// WithLogger sets the logger used for run events.
func WithLogger(l *slog.Logger) ImporterOption {
	return func(im *Importer) {
		if l != nil {
			im.logger = l
		}
	}
}

// NewImporter creates an importer writing to store.
func NewImporter(store SpecimenStore, opts ...ImporterOption) *Importer {
	im := &Importer{
		store:     store,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// BatchSize returns the configured batch size.
func (im *Importer) BatchSize() int {
	return im.batchSize
}

// ImportRun is one batch import in flight.
type ImportRun struct {
	id       string
	progress chan ImportProgress
	done     chan struct{}
	cancel   context.CancelFunc

	summary *ImportSummary
	err     error
}

// ID returns the import id, also used as ImportSummary.ImportID.
func (r *ImportRun) ID() string { return r.id }

// Progress returns the snapshot stream. It is closed when the run ends.
func (r *ImportRun) Progress() <-chan ImportProgress { return r.progress }

// Done is closed once the summary is available.
func (r *ImportRun) Done() <-chan struct{} { return r.done }

// Cancel stops the run before its next row.
func (r *ImportRun) Cancel() { r.cancel() }

// Summary waits for the run to end and returns its summary. Any snapshots
// not yet taken from Progress are discarded. A cancelled run returns the
// partial summary together with ErrImportCancelled.
func (r *ImportRun) Summary() (*ImportSummary, error) {
	for range r.progress {
	}
	<-r.done
	return r.summary, r.err
}

// rowResult is the outcome of importing one draft: a record id or an error.
type rowResult struct {
	recordID string
	err      *ImportRowError
}

// ImportSelected starts importing the importable drafts on behalf of ownerID.
// The returned run must be drained through Progress or Summary.
func (im *Importer) ImportSelected(ctx context.Context, drafts []SpecimenDraft, ownerID, sourceName string) *ImportRun {
	return im.ImportSelectedWithID(ctx, uuid.New().String(), drafts, ownerID, sourceName)
}

// ImportSelectedWithID is ImportSelected with a caller-chosen import id.
func (im *Importer) ImportSelectedWithID(ctx context.Context, importID string, drafts []SpecimenDraft, ownerID, sourceName string) *ImportRun {
	runCtx, cancel := context.WithCancel(ctx)
	run := &ImportRun{
		id:       importID,
		progress: make(chan ImportProgress),
		done:     make(chan struct{}),
		cancel:   cancel,
	}

	go func() {
		defer close(run.done)
		defer cancel()
		defer close(run.progress)
		run.summary, run.err = im.run(runCtx, run, drafts, ownerID, sourceName)
	}()

	return run
}

func (im *Importer) run(ctx context.Context, run *ImportRun, drafts []SpecimenDraft, ownerID, sourceName string) (*ImportSummary, error) {
	startTime := time.Now()
	log := im.logger.With("import_id", run.id, "source", sourceName)

	var importable []SpecimenDraft
	selectedBlocked := 0
	for _, d := range drafts {
		switch {
		case d.Importable():
			importable = append(importable, d)
		case d.Selected:
			selectedBlocked++
		}
	}

	summary := &ImportSummary{
		ImportID:          run.id,
		SourceName:        sourceName,
		OwnerID:           ownerID,
		Warnings:          []ImportWarning{},
		FailedRows:        []ImportRowError{},
		ImportedRecordIDs: []string{},
		ImportedRows:      []int{},
		StartedAt:         startTime.UTC(),
	}
	state := ImportProgress{ImportID: run.id, TotalSpecimens: len(importable)}

	finish := func(cancelled bool) (*ImportSummary, error) {
		total := len(importable)
		summary.SuccessCount = state.ImportedCount
		summary.FailedCount = state.FailedCount
		summary.SkippedCount = selectedBlocked + (total - state.Processed())
		summary.TotalProcessed = total + selectedBlocked
		summary.CompletedAt = time.Now().UTC()
		summary.DurationMs = time.Since(startTime).Milliseconds()
		summary.Cancelled = cancelled

		if cancelled {
			log.Info("import cancelled",
				"imported", summary.SuccessCount,
				"failed", summary.FailedCount,
				"skipped", summary.SkippedCount,
			)
			state.Cancelled = true
			state.CurrentSpecimenLabel = ""
			run.tryEmit(state)
			return summary, ErrImportCancelled
		}

		log.Info("import completed",
			"imported", summary.SuccessCount,
			"failed", summary.FailedCount,
			"skipped", summary.SkippedCount,
			"duration_ms", summary.DurationMs,
		)
		return summary, nil
	}

	log.Info("import started", "rows", len(importable), "blocked", selectedBlocked, "batch_size", im.batchSize)

	if !run.emit(ctx, state) {
		return finish(true)
	}

	seen := make(map[string]string)
	for start := 0; start < len(importable); start += im.batchSize {
		end := min(start+im.batchSize, len(importable))

		for _, d := range importable[start:end] {
			if ctx.Err() != nil {
				return finish(true)
			}

			state.CurrentSpecimenLabel = d.DisplayName()
			res := im.importRow(ctx, d, ownerID, run.id, seen)

			if res.err != nil {
				// A store call interrupted by cancellation is not a row failure
				if ctx.Err() != nil {
					return finish(true)
				}
				state.FailedCount++
				state.LastError = res.err.Message
				summary.FailedRows = append(summary.FailedRows, *res.err)
				log.Warn("row import failed",
					"row", res.err.RowNumber,
					"kind", res.err.Kind,
					"error", res.err.Message,
				)
			} else {
				state.ImportedCount++
				state.LastError = ""
				summary.ImportedRecordIDs = append(summary.ImportedRecordIDs, res.recordID)
				summary.ImportedRows = append(summary.ImportedRows, d.RowIndex)
				for _, w := range d.Warnings {
					summary.Warnings = append(summary.Warnings, ImportWarning{
						RowNumber:   d.RowIndex + 1,
						DisplayName: d.DisplayName(),
						Field:       w.Field,
						Message:     w.Message,
					})
				}
			}

			if !run.emit(ctx, state) {
				return finish(true)
			}
		}

		log.Debug("batch processed",
			"batch", start/im.batchSize+1,
			"processed", state.Processed(),
			"total", state.TotalSpecimens,
		)
	}

	state.Completed = true
	state.CurrentSpecimenLabel = ""
	run.emit(ctx, state)

	return finish(false)
}

// importRow converts, checks and saves one draft. Panics become row errors.
func (im *Importer) importRow(ctx context.Context, d SpecimenDraft, ownerID, importID string, seen map[string]string) (res rowResult) {
	inventoryID := d.Value(FieldInventoryID)

	defer func() {
		if r := recover(); r != nil {
			im.logger.Error("panic importing row", "import_id", importID, "row", d.RowIndex+1, "panic", r)
			res = rowResult{err: newRowError(d, inventoryID, fmt.Errorf("internal error: %v", r))}
		}
	}()

	specimen, err := BuildSpecimen(d, ownerID, importID)
	if err != nil {
		return rowResult{err: newRowError(d, inventoryID, err)}
	}

	if inventoryID != "" {
		if existing, ok := seen[inventoryID]; ok {
			return rowResult{err: newRowError(d, inventoryID,
				fmt.Errorf("%w: %q was already imported in this run (record %s)", ErrDuplicateInventoryID, inventoryID, existing))}
		}

		existing, found, err := im.store.FindByInventoryID(ctx, ownerID, inventoryID)
		if err != nil {
			return rowResult{err: newRowError(d, inventoryID, err)}
		}
		if found {
			return rowResult{err: newRowError(d, inventoryID,
				fmt.Errorf("%w: %q already exists (record %s)", ErrDuplicateInventoryID, inventoryID, existing))}
		}
	}

	id, err := im.store.Save(ctx, specimen)
	if err != nil {
		return rowResult{err: newRowError(d, inventoryID, err)}
	}
	if inventoryID != "" {
		seen[inventoryID] = id
	}
	return rowResult{recordID: id}
}

// emit delivers a snapshot, waiting for the consumer. It returns false if
// the run was cancelled first.
func (r *ImportRun) emit(ctx context.Context, p ImportProgress) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case r.progress <- p:
		return true
	case <-ctx.Done():
		return false
	}
}

// tryEmit delivers a snapshot only if a consumer is already waiting.
func (r *ImportRun) tryEmit(p ImportProgress) {
	select {
	case r.progress <- p:
	default:
	}
}

// ReselectFailed returns a copy of drafts where only the rows that failed
// in summary are selected, ready for a second run.
func ReselectFailed(drafts []SpecimenDraft, summary *ImportSummary) []SpecimenDraft {
	failed := make(map[int]bool, len(summary.FailedRows))
	for _, fr := range summary.FailedRows {
		failed[fr.RowIndex] = true
	}

	out := make([]SpecimenDraft, len(drafts))
	copy(out, drafts)
	for i := range out {
		out[i].Selected = failed[out[i].RowIndex]
	}
	return out
}

// ReselectRemaining returns a copy of drafts with the rows imported in
// summary deselected. Used to resume a cancelled run.
func ReselectRemaining(drafts []SpecimenDraft, summary *ImportSummary) []SpecimenDraft {
	imported := make(map[int]bool, len(summary.ImportedRows))
	for _, row := range summary.ImportedRows {
		imported[row] = true
	}

	out := make([]SpecimenDraft, len(drafts))
	copy(out, drafts)
	for i := range out {
		if imported[out[i].RowIndex] {
			out[i].Selected = false
		}
	}
	return out
}
