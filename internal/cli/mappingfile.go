package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/fossil-import/internal/core"
)

// readMappingFile loads a mapping override. The file has the shape of a
// saved preset:
//
//	name: museum export
//	columns:
//	  species: [Taxon]
//	  inventoryId: [Inv. Nr.]
//	  locality: [Site, Site detail]
//	  genus: []
//
// An empty list unmaps the field. Fields the file does not name keep their
// generated mapping.
func readMappingFile(path string) (core.MappingPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.MappingPreset{}, fmt.Errorf("read mapping file: %w", err)
	}

	var preset core.MappingPreset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&preset); err != nil {
		if errors.Is(err, io.EOF) {
			return core.MappingPreset{}, fmt.Errorf("mapping file %s is empty", path)
		}
		return core.MappingPreset{}, fmt.Errorf("parse mapping file %s: %w", path, err)
	}

	if len(preset.Columns) == 0 {
		return core.MappingPreset{}, fmt.Errorf("mapping file %s maps no fields", path)
	}
	for _, key := range sortedKeys(preset.Columns) {
		if _, ok := core.Field(key); !ok {
			return core.MappingPreset{}, fmt.Errorf("mapping file %s: %w: %s", path, core.ErrUnknownField, key)
		}
	}
	return preset, nil
}

// absentColumns lists columns the preset names that headers lack.
func absentColumns(preset core.MappingPreset, headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	var absent []string
	for _, key := range sortedKeys(preset.Columns) {
		for _, col := range preset.Columns[key] {
			if !present[col] {
				absent = append(absent, col)
			}
		}
	}
	return absent
}

func sortedKeys(columns map[core.FieldKey][]string) []core.FieldKey {
	keys := make([]core.FieldKey, 0, len(columns))
	for k := range columns {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
