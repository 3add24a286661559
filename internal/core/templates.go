package core

import (
	"sort"
	"strings"
	"time"
)

// PresetMatchThreshold is the minimum header overlap for a preset to be offered.
const PresetMatchThreshold = 0.7

// MappingPreset is a saved mapping for a recurring spreadsheet layout.
type MappingPreset struct {
	ID        string                `json:"id" yaml:"id,omitempty"`
	OwnerID   string                `json:"ownerId" yaml:"ownerId,omitempty"`
	Name      string                `json:"name" yaml:"name"`
	Headers   []string              `json:"headers" yaml:"headers"`
	Columns   map[FieldKey][]string `json:"columns" yaml:"columns"`
	CreatedAt time.Time             `json:"createdAt" yaml:"-"`
}

// PresetMatch is a preset whose headers overlap the current source.
type PresetMatch struct {
	Preset     MappingPreset `json:"preset"`
	MatchScore float64       `json:"matchScore"`
}

// PresetFromMapping captures the mapped fields of config as a preset.
func PresetFromMapping(name string, config MappingConfiguration) MappingPreset {
	columns := make(map[FieldKey][]string)
	for _, m := range config.Mappings {
		if m.Mapped() {
			columns[m.Field] = append([]string(nil), m.SourceColumns...)
		}
	}
	return MappingPreset{
		Name:    name,
		Headers: append([]string(nil), config.Source.Headers...),
		Columns: columns,
	}
}

// ApplyPreset replaces the columns of every field the preset names.
// Columns missing from the current source are dropped. Fields the preset
// does not name keep their generated mapping.
func ApplyPreset(config MappingConfiguration, preset MappingPreset) MappingConfiguration {
	present := make(map[string]bool, len(config.Source.Headers))
	for _, h := range config.Source.Headers {
		present[h] = true
	}

	updated := config
	for _, m := range config.Mappings {
		cols, ok := preset.Columns[m.Field]
		if !ok {
			continue
		}
		var kept []string
		for _, c := range cols {
			if present[c] {
				kept = append(kept, c)
			}
		}
		updated = UpdateMapping(updated, m.Field, kept)
	}
	return updated
}

// MatchPresets returns presets whose header overlap reaches PresetMatchThreshold,
// best first.
func MatchPresets(headers []string, presets []MappingPreset) []PresetMatch {
	var matches []PresetMatch
	for _, p := range presets {
		score := matchPresetHeaders(headers, p.Headers)
		if score >= PresetMatchThreshold {
			matches = append(matches, PresetMatch{Preset: p, MatchScore: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})

	return matches
}

// matchPresetHeaders returns the share of preset headers present in the source.
func matchPresetHeaders(csvHeaders, presetHeaders []string) float64 {
	if len(presetHeaders) == 0 {
		return 0
	}

	csvSet := make(map[string]bool)
	for _, h := range csvHeaders {
		csvSet[strings.ToLower(strings.TrimSpace(h))] = true
	}

	matched := 0
	for _, h := range presetHeaders {
		if csvSet[strings.ToLower(strings.TrimSpace(h))] {
			matched++
		}
	}

	return float64(matched) / float64(len(presetHeaders))
}
