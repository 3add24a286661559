package core

// mapping.go assigns CSV headers to catalog fields.
//
// Every header is scored against every field (display name plus synonyms).
// A header goes to its single best field when the score clears
// CandidateFloor; equal scores go to the field declared first in the
// catalog. Several headers may feed one field, in header order.

// CandidateFloor is the score a header must exceed to be auto-assigned.
const CandidateFloor = 0.6

// GenerateMapping builds a best-effort mapping for a parsed table.
// The result has one unconfirmed FieldMapping per catalog field, in catalog order.
func GenerateMapping(result TabularResult) MappingConfiguration {
	fields := catalogFields
	mappings := make([]FieldMapping, len(fields))
	for i, f := range fields {
		mappings[i] = FieldMapping{Field: f.Key}
	}

	seen := make(map[string]bool, len(result.Headers))
	for _, header := range result.Headers {
		if header == "" || seen[header] {
			continue
		}
		seen[header] = true

		bestIdx := -1
		bestScore := 0.0
		for i, f := range fields {
			// Strict comparison keeps the earliest field on ties
			if s := bestNameScore(header, f); s > bestScore {
				bestIdx, bestScore = i, s
			}
		}
		if bestIdx < 0 || bestScore <= CandidateFloor {
			continue
		}

		m := &mappings[bestIdx]
		m.SourceColumns = append(m.SourceColumns, header)
		if bestScore > m.Confidence {
			m.Confidence = bestScore
		}
	}

	return MappingConfiguration{Mappings: mappings, Source: result}
}

// UpdateMapping returns a copy of config with one field's columns replaced
// and marked confirmed. Other fields keep their columns even if they claim
// the same header; see ColumnConflicts.
func UpdateMapping(config MappingConfiguration, field FieldKey, columns []string) MappingConfiguration {
	updated := config.clone()
	for i := range updated.Mappings {
		if updated.Mappings[i].Field != field {
			continue
		}
		cols := make([]string, len(columns))
		copy(cols, columns)
		updated.Mappings[i].SourceColumns = cols
		updated.Mappings[i].Confirmed = true
		if len(cols) == 0 {
			updated.Mappings[i].Confidence = 0
		}
		break
	}
	return updated
}

// ConfirmAll marks every field confirmed without changing columns.
func ConfirmAll(config MappingConfiguration) MappingConfiguration {
	updated := config.clone()
	for i := range updated.Mappings {
		updated.Mappings[i].Confirmed = true
	}
	return updated
}

func (c MappingConfiguration) clone() MappingConfiguration {
	mappings := make([]FieldMapping, len(c.Mappings))
	for i, m := range c.Mappings {
		mappings[i] = m
		if m.SourceColumns != nil {
			mappings[i].SourceColumns = append([]string(nil), m.SourceColumns...)
		}
	}
	return MappingConfiguration{Mappings: mappings, Source: c.Source}
}

// Mapping returns the mapping for a field.
func (c MappingConfiguration) Mapping(field FieldKey) (FieldMapping, bool) {
	for _, m := range c.Mappings {
		if m.Field == field {
			return m, true
		}
	}
	return FieldMapping{}, false
}

// AllRequiredMapped reports whether every required field has at least one column.
func (c MappingConfiguration) AllRequiredMapped() bool {
	return len(c.MissingRequired()) == 0
}

// MissingRequired lists required fields with no columns.
func (c MappingConfiguration) MissingRequired() []FieldKey {
	var missing []FieldKey
	for _, key := range RequiredFields() {
		m, ok := c.Mapping(key)
		if !ok || !m.Mapped() {
			missing = append(missing, key)
		}
	}
	return missing
}

// UnmappedHeaders returns headers no field uses, in header order.
func (c MappingConfiguration) UnmappedHeaders() []string {
	used := make(map[string]bool)
	for _, m := range c.Mappings {
		for _, col := range m.SourceColumns {
			used[col] = true
		}
	}
	var result []string
	for _, h := range c.Source.Headers {
		if !used[h] {
			result = append(result, h)
		}
	}
	return result
}

// ColumnConflict is a header claimed by more than one field.
type ColumnConflict struct {
	Column string     `json:"column"`
	Fields []FieldKey `json:"fields"`
}

// ColumnConflicts lists headers claimed by several fields, which can only
// happen after manual edits. Conflicts are reported, never resolved here.
// Ordered by header position, then by catalog order within a conflict.
func (c MappingConfiguration) ColumnConflicts() []ColumnConflict {
	claims := make(map[string][]FieldKey)
	for _, m := range c.Mappings {
		for _, col := range m.SourceColumns {
			claims[col] = appendUniqueKey(claims[col], m.Field)
		}
	}

	var conflicts []ColumnConflict
	emitted := make(map[string]bool)
	emit := func(col string) {
		if emitted[col] || len(claims[col]) < 2 {
			return
		}
		emitted[col] = true
		conflicts = append(conflicts, ColumnConflict{Column: col, Fields: claims[col]})
	}
	for _, h := range c.Source.Headers {
		emit(h)
	}
	// Columns not present in the source headers still count
	for _, m := range c.Mappings {
		for _, col := range m.SourceColumns {
			emit(col)
		}
	}
	return conflicts
}

func appendUniqueKey(keys []FieldKey, key FieldKey) []FieldKey {
	for _, k := range keys {
		if k == key {
			return keys
		}
	}
	return append(keys, key)
}
