package core

// validation.go turns mapped rows into drafts.
//
// Every catalog field of every row is checked against its kind and yields
// one of three outcomes: parsed (no remark), warned (importable, with an
// optional correction) or blocked (row not importable). Only a missing
// required field blocks. Validation is pure and performs no I/O.

import (
	"fmt"
	"strings"
	"sync"
)

// fieldOutcome is the result of validating one field of one row.
type fieldOutcome interface {
	outcome()
}

type parsedOutcome struct{}

type warnedOutcome struct {
	warning ValidationWarning
}

type blockedOutcome struct {
	err ValidationError
}

func (parsedOutcome) outcome()  {}
func (warnedOutcome) outcome()  {}
func (blockedOutcome) outcome() {}

func warn(field FieldKey, raw, message string) warnedOutcome {
	return warnedOutcome{warning: ValidationWarning{Field: field, OriginalValue: raw, Message: message}}
}

// validateField checks one field's joined text.
func validateField(field TargetField, raw string) fieldOutcome {
	if raw == "" {
		if field.Required {
			return blockedOutcome{err: ValidationError{
				Field:    field.Key,
				Message:  fmt.Sprintf("%s is required", field.DisplayName),
				Severity: SeverityBlocking,
			}}
		}
		return parsedOutcome{}
	}

	switch field.Kind {
	case KindNumeric:
		if _, ok := ParseNumber(raw); !ok {
			return warn(field.Key, raw, "not a number, value will be left empty")
		}

	case KindDimension:
		if field.Key == FieldWidth && HasDimensionSeparator(raw) {
			d := ParseDimensions(raw)
			if d.Width == nil || len(d.Bad) > 0 {
				return warn(field.Key, raw, "could not read all dimensions, unreadable parts will be left empty")
			}
			break
		}
		if _, _, ok := ParseMeasure(raw); !ok {
			return warn(field.Key, raw, "not a measurement, value will be left empty")
		}

	case KindWeight:
		if _, _, ok := ParseWeight(raw); !ok {
			return warn(field.Key, raw, "not a weight, value will be left empty")
		}

	case KindCurrencyAmount:
		if _, _, ok := ParseCurrencyAmount(raw); !ok {
			return warn(field.Key, raw, "not an amount, value will be left empty")
		}

	case KindCoordinate:
		limit := coordinateLimit(field.Key)
		_, ok, inRange := ParseCoordinate(raw, limit)
		if !ok {
			return warn(field.Key, raw, "not a coordinate, value will be left empty")
		}
		if !inRange {
			return warn(field.Key, raw, fmt.Sprintf("must be between -%g and %g", limit, limit))
		}

	case KindDate:
		if _, ok := ParseDate(raw); !ok {
			return warn(field.Key, raw, "unrecognized date, value will be left empty")
		}

	case KindEnum:
		if _, ok := field.Enum.Resolve(raw); !ok {
			fallback := field.Enum.Fallback
			w := warn(field.Key, raw, fmt.Sprintf("unrecognized %s, %q will be used", field.Enum.Name, fallback))
			w.warning.CorrectedValue = &fallback
			return w
		}
	}

	return parsedOutcome{}
}

// columnIndexes resolves each mapping's columns to positions in the source.
// Columns missing from the source are ignored.
func columnIndexes(config MappingConfiguration) map[FieldKey][]int {
	idx := make(map[FieldKey][]int, len(config.Mappings))
	for _, m := range config.Mappings {
		for _, col := range m.SourceColumns {
			if pos := config.Source.ColumnIndex(col); pos >= 0 {
				idx[m.Field] = append(idx[m.Field], pos)
			}
		}
	}
	return idx
}

// joinValues gathers a row's values for a field: trimmed, blanks dropped,
// joined with ", ".
func joinValues(source TabularResult, row int, positions []int) string {
	var parts []string
	for _, pos := range positions {
		if v := CleanCell(source.Cell(row, pos)); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// buildDraft builds the draft for one row.
func buildDraft(config MappingConfiguration, idx map[FieldKey][]int, row int) SpecimenDraft {
	d := SpecimenDraft{
		RowIndex:     row,
		Selected:     true,
		ParsedValues: make(map[FieldKey]string),
	}

	for _, field := range catalogFields {
		raw := joinValues(config.Source, row, idx[field.Key])
		if raw != "" {
			d.ParsedValues[field.Key] = raw
		}

		switch o := validateField(field, raw).(type) {
		case blockedOutcome:
			d.BlockingErrors = append(d.BlockingErrors, o.err)
		case warnedOutcome:
			d.Warnings = append(d.Warnings, o.warning)
		}
	}
	return d
}

// BuildDrafts produces one draft per source row, in row order.
// Calling it twice on the same configuration yields equal results.
func BuildDrafts(config MappingConfiguration) []SpecimenDraft {
	idx := columnIndexes(config)
	drafts := make([]SpecimenDraft, len(config.Source.Rows))
	for row := range config.Source.Rows {
		drafts[row] = buildDraft(config, idx, row)
	}
	return drafts
}

// BuildDraftsParallel is BuildDrafts spread over a fixed number of workers.
// Results are returned in row order.
func BuildDraftsParallel(config MappingConfiguration, workers int) []SpecimenDraft {
	rows := len(config.Source.Rows)
	if workers <= 1 || rows < workers*2 {
		return BuildDrafts(config)
	}

	idx := columnIndexes(config)
	drafts := make([]SpecimenDraft, rows)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range jobs {
				drafts[row] = buildDraft(config, idx, row)
			}
		}()
	}

	for row := 0; row < rows; row++ {
		jobs <- row
	}
	close(jobs)
	wg.Wait()

	return drafts
}

// SetSelected returns a copy of drafts with one row's selection changed.
// Unknown rows leave the drafts unchanged.
func SetSelected(drafts []SpecimenDraft, rowIndex int, selected bool) []SpecimenDraft {
	out := make([]SpecimenDraft, len(drafts))
	copy(out, drafts)
	for i := range out {
		if out[i].RowIndex == rowIndex {
			out[i].Selected = selected
		}
	}
	return out
}

// CountImportable returns the number of drafts that will be imported.
func CountImportable(drafts []SpecimenDraft) int {
	n := 0
	for _, d := range drafts {
		if d.Importable() {
			n++
		}
	}
	return n
}

// DraftStats summarizes a draft set for display.
type DraftStats struct {
	Total      int `json:"total"`
	Importable int `json:"importable"`
	Blocked    int `json:"blocked"`
	Deselected int `json:"deselected"`
	Warnings   int `json:"warnings"`
}

// SummarizeDrafts counts drafts by state.
func SummarizeDrafts(drafts []SpecimenDraft) DraftStats {
	s := DraftStats{Total: len(drafts)}
	for _, d := range drafts {
		switch {
		case !d.Selected:
			s.Deselected++
		case len(d.BlockingErrors) > 0:
			s.Blocked++
		default:
			s.Importable++
		}
		s.Warnings += len(d.Warnings)
	}
	return s
}
