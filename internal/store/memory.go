package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/fossil-import/internal/core"
)

var (
	_ core.SpecimenStore = (*Postgres)(nil)
	_ core.HistoryStore  = (*Postgres)(nil)
	_ core.PresetStore   = (*Postgres)(nil)
	_ core.HistoryPruner = (*Postgres)(nil)

	_ core.SpecimenStore = (*Memory)(nil)
	_ core.HistoryStore  = (*Memory)(nil)
	_ core.PresetStore   = (*Memory)(nil)
	_ core.HistoryPruner = (*Memory)(nil)
)

func newID() string {
	return uuid.New().String()
}

// Memory is an in-process store with the same semantics as Postgres.
// It is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	specimens map[string]core.Specimen
	inventory map[inventoryKey]string
	history   map[string]*historyEntry
	presets   map[string]core.MappingPreset
	now       func() time.Time
}

type inventoryKey struct {
	owner, inventoryID string
}

type historyEntry struct {
	summary    core.ImportSummary
	rolledBack bool
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		specimens: make(map[string]core.Specimen),
		inventory: make(map[inventoryKey]string),
		history:   make(map[string]*historyEntry),
		presets:   make(map[string]core.MappingPreset),
		now:       time.Now,
	}
}

// FindByInventoryID returns the id of the owner's record with inventoryID.
func (m *Memory) FindByInventoryID(_ context.Context, ownerID, inventoryID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.inventory[inventoryKey{ownerID, inventoryID}]
	return id, ok, nil
}

// Save stores a copy of s.
func (m *Memory) Save(ctx context.Context, s *core.Specimen) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &core.PersistenceError{Message: "save specimen: " + err.Error(), Err: err}
	}

	rec := *s
	if rec.ID == "" {
		rec.ID = newID()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.InventoryID != "" {
		key := inventoryKey{rec.OwnerID, rec.InventoryID}
		if _, exists := m.inventory[key]; exists {
			return "", &core.PersistenceError{
				Message: fmt.Sprintf("inventory id %q already exists", rec.InventoryID),
				Err:     core.ErrDuplicateInventoryID,
			}
		}
		m.inventory[key] = rec.ID
	}

	m.specimens[rec.ID] = rec
	return rec.ID, nil
}

// Specimen returns one of the owner's records by id.
func (m *Memory) Specimen(_ context.Context, ownerID, id string) (*core.Specimen, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.specimens[id]
	if !ok || s.OwnerID != ownerID {
		return nil, fmt.Errorf("specimen %s not found", id)
	}
	return &s, nil
}

// Specimens returns the owner's records ordered by creation time.
func (m *Memory) Specimens(ownerID string) []core.Specimen {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []core.Specimen
	for _, s := range m.specimens {
		if s.OwnerID == ownerID {
			result = append(result, s)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// RecordImport stores a finished import summary.
func (m *Memory) RecordImport(_ context.Context, sum core.ImportSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.history[sum.ImportID]; exists {
		return fmt.Errorf("import %s already recorded", sum.ImportID)
	}
	m.history[sum.ImportID] = &historyEntry{summary: sum}
	return nil
}

// ListImports returns the owner's imports that were not rolled back, newest first.
func (m *Memory) ListImports(_ context.Context, ownerID string, limit int) ([]core.ImportSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []core.ImportSummary
	for _, e := range m.history {
		if e.summary.OwnerID == ownerID && !e.rolledBack {
			result = append(result, e.summary)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CompletedAt.After(result[j].CompletedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetImport returns one import, or core.ErrImportNotFound.
func (m *Memory) GetImport(_ context.Context, ownerID, importID string) (*core.ImportSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.history[importID]
	if !ok || e.rolledBack || e.summary.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: %s", core.ErrImportNotFound, importID)
	}
	sum := e.summary
	return &sum, nil
}

// DeleteImportRecords removes the records of an import and marks it rolled back.
func (m *Memory) DeleteImportRecords(_ context.Context, ownerID, importID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.history[importID]
	if !ok || e.rolledBack || e.summary.OwnerID != ownerID {
		return 0, fmt.Errorf("%w: %s", core.ErrImportNotFound, importID)
	}

	var deleted int64
	for id, s := range m.specimens {
		if s.OwnerID == ownerID && s.ImportID == importID {
			delete(m.specimens, id)
			if s.InventoryID != "" {
				delete(m.inventory, inventoryKey{ownerID, s.InventoryID})
			}
			deleted++
		}
	}
	e.rolledBack = true
	return deleted, nil
}

// PruneImports deletes history entries completed before cutoff.
func (m *Memory) PruneImports(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pruned int64
	for id, e := range m.history {
		if e.summary.CompletedAt.Before(cutoff) {
			delete(m.history, id)
			pruned++
		}
	}
	return pruned, nil
}

// SavePreset stores a preset, replacing the owner's preset of the same name.
func (m *Memory) SavePreset(_ context.Context, preset core.MappingPreset) (core.MappingPreset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, existing := range m.presets {
		if existing.OwnerID == preset.OwnerID && existing.Name == preset.Name {
			preset.ID = id
			preset.CreatedAt = existing.CreatedAt
			m.presets[id] = preset
			return preset, nil
		}
	}

	if preset.ID == "" {
		preset.ID = newID()
	}
	preset.CreatedAt = m.now().UTC()
	m.presets[preset.ID] = preset
	return preset, nil
}

// ListPresets returns the owner's presets, newest first.
func (m *Memory) ListPresets(_ context.Context, ownerID string) ([]core.MappingPreset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []core.MappingPreset
	for _, p := range m.presets {
		if p.OwnerID == ownerID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].Name < result[j].Name
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
