package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory SpecimenStore with failure injection.
type fakeStore struct {
	mu           sync.Mutex
	saved        []*Specimen
	existing     map[string]string // inventory id -> record id
	failSpecies  map[string]error
	panicSpecies string
	saveCalls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{existing: map[string]string{}, failSpecies: map[string]error{}}
}

func (f *fakeStore) FindByInventoryID(_ context.Context, _ string, inventoryID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.existing[inventoryID]
	return id, ok, nil
}

func (f *fakeStore) Save(_ context.Context, s *Specimen) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if s.Species == f.panicSpecies {
		panic("boom")
	}
	if err, ok := f.failSpecies[s.Species]; ok {
		return "", err
	}
	f.saved = append(f.saved, s)
	if s.InventoryID != "" {
		f.existing[s.InventoryID] = s.ID
	}
	return s.ID, nil
}

func (f *fakeStore) saves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveCalls
}

func speciesDrafts(n int) []SpecimenDraft {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("Species %d", i+1), fmt.Sprintf("INV-%03d", i+1)}
	}
	return draftsFor([]string{"Species", "Inventory ID"}, rows...)
}

func collect(run *ImportRun) []ImportProgress {
	var snaps []ImportProgress
	for p := range run.Progress() {
		snaps = append(snaps, p)
	}
	return snaps
}

func TestImportSelected_ProgressSequence(t *testing.T) {
	store := newFakeStore()
	im := NewImporter(store, WithBatchSize(10))

	run := im.ImportSelected(context.Background(), speciesDrafts(12), "owner-1", "fossils.csv")
	snaps := collect(run)
	summary, err := run.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if len(snaps) != 14 {
		t.Fatalf("got %d snapshots, want initial + 12 rows + terminal", len(snaps))
	}
	if snaps[0].Processed() != 0 || snaps[0].TotalSpecimens != 12 {
		t.Errorf("initial snapshot = %+v", snaps[0])
	}

	completed := 0
	for i, p := range snaps {
		if p.Completed {
			completed++
			if i != len(snaps)-1 {
				t.Errorf("completed snapshot at position %d, want last", i)
			}
			continue
		}
		if i > 0 && p.Processed() <= snaps[i-1].Processed() {
			t.Errorf("snapshot %d processed %d, not above %d", i, p.Processed(), snaps[i-1].Processed())
		}
	}
	if completed != 1 {
		t.Errorf("got %d completed snapshots, want exactly 1", completed)
	}
	last := snaps[len(snaps)-1]
	if last.Processed() != 12 || last.Percent() != 100 {
		t.Errorf("terminal snapshot = %+v", last)
	}

	if summary.SuccessCount != 12 || len(summary.ImportedRecordIDs) != 12 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.ImportID != run.ID() || summary.SourceName != "fossils.csv" {
		t.Errorf("summary identity = %q %q", summary.ImportID, summary.SourceName)
	}

	// Rows are saved in row order
	for i, s := range store.saved {
		if want := fmt.Sprintf("Species %d", i+1); s.Species != want {
			t.Fatalf("save %d = %q, want %q", i, s.Species, want)
		}
		if s.OwnerID != "owner-1" || s.ImportID != run.ID() {
			t.Errorf("record ownership = %q/%q", s.OwnerID, s.ImportID)
		}
	}
}

func TestImportSelected_DuplicateWithinRun(t *testing.T) {
	drafts := draftsFor([]string{"Species", "Inventory ID"},
		[]string{"Ammonites", "DUP-1"},
		[]string{"Trilobita", "DUP-1"},
		[]string{"Crinoid", ""},
		[]string{"Orthoceras", ""},
	)
	store := newFakeStore()
	run := NewImporter(store).ImportSelected(context.Background(), drafts, "owner", "dups.csv")
	summary, err := run.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if summary.SuccessCount != 3 || summary.FailedCount != 1 {
		t.Fatalf("success=%d failed=%d, want 3 and 1", summary.SuccessCount, summary.FailedCount)
	}
	fr := summary.FailedRows[0]
	if fr.RowIndex != 1 || fr.Kind != RowErrorDuplicate || fr.DisplayName != "Trilobita" {
		t.Errorf("failed row = %+v", fr)
	}
	if !errors.Is(fr.Err, ErrDuplicateInventoryID) {
		t.Errorf("failed row error = %v, want ErrDuplicateInventoryID", fr.Err)
	}
	if store.saves() != 3 {
		t.Errorf("store saves = %d, duplicate must not be persisted", store.saves())
	}
}

func TestImportSelected_DuplicateOfExistingRecord(t *testing.T) {
	store := newFakeStore()
	store.existing["INV-002"] = "existing-record"

	run := NewImporter(store).ImportSelected(context.Background(), speciesDrafts(3), "owner", "x.csv")
	snaps := collect(run)
	summary, _ := run.Summary()

	if summary.FailedCount != 1 || summary.FailedRows[0].InventoryID != "INV-002" {
		t.Fatalf("summary = %+v", summary)
	}

	var sawError bool
	for _, p := range snaps {
		if strings.Contains(p.LastError, "INV-002") {
			sawError = true
		}
	}
	if !sawError {
		t.Error("no progress snapshot carried the duplicate error")
	}
}

func TestImportSelected_PersistenceFailureIsIsolated(t *testing.T) {
	store := newFakeStore()
	store.failSpecies["Species 2"] = &PersistenceError{Message: "disk quota exceeded"}

	run := NewImporter(store).ImportSelected(context.Background(), speciesDrafts(4), "owner", "x.csv")
	snaps := collect(run)
	summary, err := run.Summary()
	if err != nil {
		t.Fatalf("row failures must not fail the run: %v", err)
	}

	if summary.SuccessCount != 3 || summary.FailedCount != 1 {
		t.Errorf("success=%d failed=%d", summary.SuccessCount, summary.FailedCount)
	}
	if got := summary.FailedRows[0].Message; got != "disk quota exceeded" {
		t.Errorf("failure message = %q, want verbatim store message", got)
	}
	if summary.FailedRows[0].Kind != RowErrorPersistence {
		t.Errorf("kind = %s", summary.FailedRows[0].Kind)
	}

	var carried bool
	for _, p := range snaps {
		if p.LastError == "disk quota exceeded" {
			carried = true
		}
	}
	if !carried {
		t.Error("progress never carried the failure message")
	}
}

func TestImportSelected_PanicBecomesRowError(t *testing.T) {
	store := newFakeStore()
	store.panicSpecies = "Species 1"

	run := NewImporter(store).ImportSelected(context.Background(), speciesDrafts(2), "owner", "x.csv")
	summary, err := run.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.FailedCount != 1 || summary.SuccessCount != 1 {
		t.Errorf("success=%d failed=%d", summary.SuccessCount, summary.FailedCount)
	}
	if !strings.Contains(summary.FailedRows[0].Message, "internal error") {
		t.Errorf("message = %q", summary.FailedRows[0].Message)
	}
}

func TestImportSelected_SummaryCounts(t *testing.T) {
	drafts := draftsFor([]string{"Species", "Weight"},
		[]string{"Ammonites", "heavy"}, // imported with a warning
		[]string{"", "12"},             // selected but blocked
		[]string{"Trilobita", "1 kg"},  // deselected
		[]string{"Crinoid", "3 g"},     // fails in store
		[]string{"", ""},               // blocked and deselected
	)
	drafts = SetSelected(drafts, 2, false)
	drafts = SetSelected(drafts, 4, false)

	store := newFakeStore()
	store.failSpecies["Crinoid"] = errors.New("constraint violated")

	summary, err := NewImporter(store).ImportSelected(context.Background(), drafts, "owner", "x.csv").Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if summary.SuccessCount != 1 || summary.FailedCount != 1 || summary.SkippedCount != 1 {
		t.Errorf("success=%d failed=%d skipped=%d, want 1/1/1",
			summary.SuccessCount, summary.FailedCount, summary.SkippedCount)
	}
	if summary.TotalProcessed != summary.SuccessCount+summary.FailedCount+summary.SkippedCount {
		t.Errorf("TotalProcessed %d != %d+%d+%d", summary.TotalProcessed,
			summary.SuccessCount, summary.FailedCount, summary.SkippedCount)
	}

	if len(summary.Warnings) != 1 {
		t.Fatalf("warnings = %+v, want the imported row's warning only", summary.Warnings)
	}
	w := summary.Warnings[0]
	if w.RowNumber != 1 || w.DisplayName != "Ammonites" || w.Field != FieldWeight {
		t.Errorf("warning = %+v", w)
	}
	if summary.DurationMs < 0 || summary.CompletedAt.Before(summary.StartedAt) {
		t.Errorf("timing = %d ms, %v..%v", summary.DurationMs, summary.StartedAt, summary.CompletedAt)
	}
}

func TestImportSelected_NothingImportable(t *testing.T) {
	drafts := draftsFor([]string{"Species"}, []string{""})
	run := NewImporter(newFakeStore()).ImportSelected(context.Background(), drafts, "owner", "x.csv")
	snaps := collect(run)
	summary, err := run.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if len(snaps) != 2 || !snaps[1].Completed {
		t.Errorf("snapshots = %+v, want initial and completed", snaps)
	}
	if summary.TotalProcessed != 1 || summary.SkippedCount != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestImportSelected_CancelStopsPersistence(t *testing.T) {
	store := newFakeStore()
	run := NewImporter(store, WithBatchSize(3)).ImportSelected(context.Background(), speciesDrafts(20), "owner", "x.csv")

	// Initial snapshot plus two rows, then stop
	for i := 0; i < 3; i++ {
		<-run.Progress()
	}
	run.Cancel()

	for p := range run.Progress() {
		if p.Completed {
			t.Fatal("cancelled run emitted a completed snapshot")
		}
	}

	summary, err := run.Summary()
	if !errors.Is(err, ErrImportCancelled) {
		t.Fatalf("Summary error = %v, want ErrImportCancelled", err)
	}
	if !summary.Cancelled {
		t.Error("summary should be marked cancelled")
	}

	saves := store.saves()
	if saves > 3 {
		t.Errorf("store saves = %d after cancelling at row 2", saves)
	}
	if summary.SuccessCount != saves {
		t.Errorf("SuccessCount = %d, store saves = %d", summary.SuccessCount, saves)
	}
	if summary.TotalProcessed != summary.SuccessCount+summary.FailedCount+summary.SkippedCount {
		t.Errorf("summary counts do not add up: %+v", summary)
	}

	time.Sleep(20 * time.Millisecond)
	if store.saves() != saves {
		t.Error("store was called after the run ended")
	}
}

func TestImportSelected_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newFakeStore()
	summary, err := NewImporter(store).ImportSelected(ctx, speciesDrafts(5), "owner", "x.csv").Summary()
	if !errors.Is(err, ErrImportCancelled) {
		t.Fatalf("err = %v, want ErrImportCancelled", err)
	}
	if store.saves() != 0 {
		t.Errorf("saves = %d, want none", store.saves())
	}
	if summary.SkippedCount != 5 {
		t.Errorf("skipped = %d, want 5", summary.SkippedCount)
	}
}

func TestReselectFailedAndRemaining(t *testing.T) {
	drafts := speciesDrafts(4)
	summary := &ImportSummary{
		FailedRows:   []ImportRowError{{RowIndex: 2}},
		ImportedRows: []int{0, 1},
	}

	retry := ReselectFailed(drafts, summary)
	for _, d := range retry {
		if d.Selected != (d.RowIndex == 2) {
			t.Errorf("ReselectFailed row %d selected=%v", d.RowIndex, d.Selected)
		}
	}

	resume := ReselectRemaining(drafts, summary)
	for _, d := range resume {
		want := d.RowIndex >= 2
		if d.Selected != want {
			t.Errorf("ReselectRemaining row %d selected=%v, want %v", d.RowIndex, d.Selected, want)
		}
	}

	if !drafts[0].Selected {
		t.Error("input drafts were modified")
	}
}
