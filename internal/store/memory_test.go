package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/fossil-import/internal/core"
)

func specimen(owner, importID, species, inventory string) *core.Specimen {
	return &core.Specimen{
		ID:          newID(),
		OwnerID:     owner,
		ImportID:    importID,
		Species:     species,
		InventoryID: inventory,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestMemory_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Save(ctx, specimen("alice", "", "Ammonites", "A-1"))
	require.NoError(t, err)

	found, ok, err := m.FindByInventoryID(ctx, "alice", "A-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, found)

	_, ok, _ = m.FindByInventoryID(ctx, "bob", "A-1")
	assert.False(t, ok, "inventory ids are scoped per owner")

	got, err := m.Specimen(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, "Ammonites", got.Species)

	_, err = m.Specimen(ctx, "bob", id)
	assert.Error(t, err)
}

func TestMemory_SaveDuplicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Save(ctx, specimen("alice", "", "Ammonites", "A-1"))
	require.NoError(t, err)

	_, err = m.Save(ctx, specimen("alice", "", "Trilobita", "A-1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDuplicateInventoryID))

	var pe *core.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Message, "A-1")

	_, err = m.Save(ctx, specimen("bob", "", "Trilobita", "A-1"))
	assert.NoError(t, err)

	assert.Len(t, m.Specimens("alice"), 1)
}

func TestMemory_SaveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().Save(ctx, specimen("alice", "", "Ammonites", ""))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMemory_ImportHistoryAndRollback(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, s := range []*core.Specimen{
		specimen("alice", "imp-1", "Ammonites", "A-1"),
		specimen("alice", "imp-1", "Trilobita", "A-2"),
		specimen("alice", "imp-2", "Crinoid", "A-3"),
	} {
		_, err := m.Save(ctx, s)
		require.NoError(t, err)
	}

	now := time.Now().UTC()
	require.NoError(t, m.RecordImport(ctx, core.ImportSummary{ImportID: "imp-1", OwnerID: "alice", SuccessCount: 2, CompletedAt: now.Add(-time.Hour)}))
	require.NoError(t, m.RecordImport(ctx, core.ImportSummary{ImportID: "imp-2", OwnerID: "alice", SuccessCount: 1, CompletedAt: now}))
	assert.Error(t, m.RecordImport(ctx, core.ImportSummary{ImportID: "imp-2", OwnerID: "alice"}))

	list, err := m.ListImports(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "imp-2", list[0].ImportID, "newest first")

	list, _ = m.ListImports(ctx, "alice", 1)
	assert.Len(t, list, 1)

	_, err = m.GetImport(ctx, "bob", "imp-1")
	assert.True(t, errors.Is(err, core.ErrImportNotFound))

	deleted, err := m.DeleteImportRecords(ctx, "alice", "imp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Len(t, m.Specimens("alice"), 1)

	// The inventory ids are free again
	_, ok, _ := m.FindByInventoryID(ctx, "alice", "A-1")
	assert.False(t, ok)

	_, err = m.GetImport(ctx, "alice", "imp-1")
	assert.True(t, errors.Is(err, core.ErrImportNotFound), "rolled back imports are hidden")
	_, err = m.DeleteImportRecords(ctx, "alice", "imp-1")
	assert.True(t, errors.Is(err, core.ErrImportNotFound), "rollback happens once")
}

func TestMemory_PruneImports(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	require.NoError(t, m.RecordImport(ctx, core.ImportSummary{ImportID: "old", OwnerID: "alice", CompletedAt: now.AddDate(-2, 0, 0)}))
	require.NoError(t, m.RecordImport(ctx, core.ImportSummary{ImportID: "new", OwnerID: "alice", CompletedAt: now}))

	pruned, err := m.PruneImports(ctx, now.AddDate(-1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	list, _ := m.ListImports(ctx, "alice", 0)
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].ImportID)
}

func TestMemory_Presets(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}

	first, err := m.SavePreset(ctx, core.MappingPreset{OwnerID: "alice", Name: "dealer", Headers: []string{"Nom"}})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = m.SavePreset(ctx, core.MappingPreset{OwnerID: "alice", Name: "museum", Headers: []string{"Taxon"}})
	require.NoError(t, err)

	replaced, err := m.SavePreset(ctx, core.MappingPreset{OwnerID: "alice", Name: "dealer", Headers: []string{"Nom", "Ref"}})
	require.NoError(t, err)
	assert.Equal(t, first.ID, replaced.ID, "same name replaces the preset")

	list, err := m.ListPresets(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "museum", list[0].Name)
	assert.Equal(t, []string{"Nom", "Ref"}, list[1].Headers)

	list, _ = m.ListPresets(ctx, "bob")
	assert.Empty(t, list)
}

// TestMemory_WithImporter runs a real import against the store.
func TestMemory_WithImporter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.Save(ctx, specimen("alice", "", "Existing", "A-2"))
	require.NoError(t, err)

	config := core.GenerateMapping(core.TabularResult{
		Headers: []string{"Species", "Inventory ID"},
		Rows: [][]string{
			{"Ammonites", "A-1"},
			{"Trilobita", "A-2"},
			{"Crinoid", "A-1"},
			{"Orthoceras", ""},
		},
		RowCount: 4,
	})
	drafts := core.BuildDrafts(config)

	run := core.NewImporter(m).ImportSelected(ctx, drafts, "alice", "fossils.csv")
	summary, err := run.Summary()
	require.NoError(t, err)

	assert.Equal(t, 2, summary.SuccessCount)
	assert.Equal(t, 2, summary.FailedCount)
	for _, fr := range summary.FailedRows {
		assert.Equal(t, core.RowErrorDuplicate, fr.Kind, "row %d", fr.RowNumber)
	}

	saved := m.Specimens("alice")
	require.Len(t, saved, 3)
	require.NoError(t, m.RecordImport(ctx, *summary))

	deleted, err := m.DeleteImportRecords(ctx, "alice", summary.ImportID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}
