// Package core provides the business logic for fossil collection CSV imports.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"context"
	"time"
)

// TabularResult is the parsed table produced by a tabular source.
// It is created once per import session and never mutated afterwards.
type TabularResult struct {
	Headers    []string
	Rows       [][]string
	SourceName string
	Delimiter  string
	RowCount   int
}

// Cell returns the value at (row, col). Short rows read as empty strings.
func (t TabularResult) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// ColumnIndex returns the position of a header, or -1 if absent.
// Duplicate headers resolve to their first occurrence.
func (t TabularResult) ColumnIndex(header string) int {
	for i, h := range t.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

// FieldKey is the stable identifier of a catalog field.
type FieldKey string

// Category groups catalog fields for display.
type Category string

const (
	CategoryTaxonomy       Category = "Taxonomy"
	CategoryIdentity       Category = "Identity"
	CategoryGeologicalTime Category = "GeologicalTime"
	CategoryLocation       Category = "Location"
	CategoryDimensions     Category = "Dimensions"
	CategoryAcquisition    Category = "Acquisition"
	CategoryFinancial      Category = "Financial"
	CategoryMetadata       Category = "Metadata"
)

// FieldKind selects how a field's raw text is validated and converted.
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumeric
	KindDimension
	KindWeight
	KindCurrencyAmount
	KindCoordinate
	KindDate
	KindEnum
	KindTags
)

var kindNames = [...]string{"text", "numeric", "dimension", "weight", "currency_amount", "coordinate", "date", "enum", "tags"}

func (k FieldKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// TargetField is one importable attribute of a specimen record.
type TargetField struct {
	Key         FieldKey
	DisplayName string
	Category    Category
	Required    bool
	Kind        FieldKind
	Synonyms    []string // Alternative header spellings used by the mapping engine
	Enum        *EnumSet // Non-nil for KindEnum
}

// ConfidenceLevel buckets a mapping confidence for display.
type ConfidenceLevel string

const (
	ConfidenceNone   ConfidenceLevel = "none"
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// LevelFor returns the confidence bucket for a score in [0,1].
func LevelFor(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 0.9:
		return ConfidenceHigh
	case confidence >= 0.7:
		return ConfidenceMedium
	case confidence > 0:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// FieldMapping assigns zero or more source columns to a target field.
// Column order matters: values are concatenated in this order.
type FieldMapping struct {
	Field         FieldKey `json:"field"`
	SourceColumns []string `json:"sourceColumns"`
	Confirmed     bool     `json:"confirmed"`
	Confidence    float64  `json:"confidence"`
}

// Mapped reports whether at least one column feeds the field.
func (m FieldMapping) Mapped() bool {
	return len(m.SourceColumns) > 0
}

// Level returns the display confidence bucket.
func (m FieldMapping) Level() ConfidenceLevel {
	return LevelFor(m.Confidence)
}

// MappingConfiguration holds one FieldMapping per catalog field, in catalog
// order, plus the table it was derived from.
type MappingConfiguration struct {
	Mappings []FieldMapping
	Source   TabularResult
}

// Severity distinguishes row-blocking problems from recoverable ones.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityWarning  Severity = "warning"
)

// ValidationError is a row-level problem found while building drafts.
type ValidationError struct {
	Field         FieldKey `json:"field"`
	OriginalValue string   `json:"originalValue"`
	Message       string   `json:"message"`
	Severity      Severity `json:"severity"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return string(e.Field) + ": " + e.Message
	}
	return e.Message
}

// ValidationWarning is a recoverable problem. CorrectedValue, when set, is
// the normalization the import applies automatically.
type ValidationWarning struct {
	Field          FieldKey `json:"field"`
	OriginalValue  string   `json:"originalValue"`
	Message        string   `json:"message"`
	CorrectedValue *string  `json:"correctedValue,omitempty"`
}

// SpecimenDraft is one source row after mapping and validation.
type SpecimenDraft struct {
	RowIndex       int                 `json:"rowIndex"`
	Selected       bool                `json:"selected"`
	ParsedValues   map[FieldKey]string `json:"parsedValues"`
	BlockingErrors []ValidationError   `json:"blockingErrors"`
	Warnings       []ValidationWarning `json:"warnings"`
}

// Importable reports whether the draft will be sent to the importer.
func (d SpecimenDraft) Importable() bool {
	return d.Selected && len(d.BlockingErrors) == 0
}

// Value returns the parsed text for a field ("" when absent).
func (d SpecimenDraft) Value(key FieldKey) string {
	return d.ParsedValues[key]
}

// DisplayName labels the draft in progress and summary messages.
func (d SpecimenDraft) DisplayName() string {
	if s := d.ParsedValues[FieldSpecies]; s != "" {
		return s
	}
	return rowLabel(d.RowIndex)
}

// ImportProgress is a snapshot emitted during a batch run.
type ImportProgress struct {
	ImportID             string `json:"importId"`
	TotalSpecimens       int    `json:"totalSpecimens"`
	ImportedCount        int    `json:"importedCount"`
	FailedCount          int    `json:"failedCount"`
	CurrentSpecimenLabel string `json:"currentSpecimenLabel,omitempty"`
	Completed            bool   `json:"completed"`
	Cancelled            bool   `json:"cancelled"`
	LastError            string `json:"lastError,omitempty"`
}

// Processed returns the number of rows attempted so far.
func (p ImportProgress) Processed() int {
	return p.ImportedCount + p.FailedCount
}

// Percent returns the progress as a percentage (0-100).
func (p ImportProgress) Percent() int {
	if p.TotalSpecimens <= 0 {
		if p.Completed {
			return 100
		}
		return 0
	}
	return (p.Processed() * 100) / p.TotalSpecimens
}

// ImportWarning is a draft warning carried into the summary of a row that
// was imported successfully.
type ImportWarning struct {
	RowNumber   int      `json:"rowNumber"` // 1-based
	DisplayName string   `json:"displayName"`
	Field       FieldKey `json:"field"`
	Message     string   `json:"message"`
}

// ImportSummary is the terminal artifact of a batch run.
type ImportSummary struct {
	ImportID          string           `json:"importId"`
	SourceName        string           `json:"sourceName"`
	OwnerID           string           `json:"ownerId"`
	TotalProcessed    int              `json:"totalProcessed"`
	SuccessCount      int              `json:"successCount"`
	FailedCount       int              `json:"failedCount"`
	SkippedCount      int              `json:"skippedCount"`
	Warnings          []ImportWarning  `json:"warnings"`
	FailedRows        []ImportRowError `json:"failedRows"`
	DurationMs        int64            `json:"durationMs"`
	ImportedRecordIDs []string         `json:"importedRecordIds"`
	ImportedRows      []int            `json:"importedRows"` // RowIndex of each imported draft
	Cancelled         bool             `json:"cancelled"`
	StartedAt         time.Time        `json:"startedAt"`
	CompletedAt       time.Time        `json:"completedAt"`
}

// SpecimenStore is the persistence collaborator used by the importer.
// Both calls may block on I/O.
type SpecimenStore interface {
	// FindByInventoryID returns the id of an existing record owned by ownerID
	// with the given inventory id.
	FindByInventoryID(ctx context.Context, ownerID, inventoryID string) (id string, found bool, err error)
	// Save persists a new record and returns its id.
	Save(ctx context.Context, s *Specimen) (string, error)
}
