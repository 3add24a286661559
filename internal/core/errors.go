package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateInventoryID marks a row whose inventory id already exists for the owner.
	ErrDuplicateInventoryID = errors.New("duplicate inventory id")

	// ErrImportCancelled is returned by ImportRun.Summary when the run was cancelled.
	ErrImportCancelled = errors.New("import cancelled")

	// ErrSessionNotFound is returned for unknown or expired import sessions.
	ErrSessionNotFound = errors.New("import session not found")

	// ErrImportInProgress is returned when a session already has a running import.
	ErrImportInProgress = errors.New("import already in progress")

	// ErrNoImportableRows is returned when a run is started with nothing to import.
	ErrNoImportableRows = errors.New("no importable rows selected")
)

// SourceReadError reports that a tabular source could not be opened or decoded.
// It is fatal to the import session.
type SourceReadError struct {
	Source string
	Err    error
}

func (e *SourceReadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("read source: %v", e.Err)
	}
	return fmt.Sprintf("read source %q: %v", e.Source, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// PersistenceError is a storage failure whose Message is shown to users verbatim.
type PersistenceError struct {
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "persistence error"
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RowErrorKind classifies a row-level import failure.
type RowErrorKind string

const (
	RowErrorDuplicate   RowErrorKind = "duplicate"
	RowErrorPersistence RowErrorKind = "persistence"
	RowErrorConversion  RowErrorKind = "conversion"
)

// ImportRowError is the failure of one draft during a batch run.
// It is data, not control flow: the run continues after it.
type ImportRowError struct {
	RowIndex    int          `json:"rowIndex"`
	RowNumber   int          `json:"rowNumber"` // 1-based
	DisplayName string       `json:"displayName"`
	InventoryID string       `json:"inventoryId,omitempty"`
	Kind        RowErrorKind `json:"kind"`
	Message     string       `json:"message"`
	Err         error        `json:"-"`
}

func (e *ImportRowError) Error() string {
	return fmt.Sprintf("%s: %s", e.DisplayName, e.Message)
}

func (e *ImportRowError) Unwrap() error { return e.Err }

// newRowError builds an ImportRowError for a draft, classifying err.
func newRowError(d SpecimenDraft, inventoryID string, err error) *ImportRowError {
	kind := RowErrorPersistence
	var convErr *conversionError
	switch {
	case errors.Is(err, ErrDuplicateInventoryID):
		kind = RowErrorDuplicate
	case errors.As(err, &convErr):
		kind = RowErrorConversion
	}
	return &ImportRowError{
		RowIndex:    d.RowIndex,
		RowNumber:   d.RowIndex + 1,
		DisplayName: d.DisplayName(),
		InventoryID: inventoryID,
		Kind:        kind,
		Message:     err.Error(),
		Err:         err,
	}
}

// conversionError wraps a failure turning a draft into a Specimen.
type conversionError struct {
	msg string
}

func (e *conversionError) Error() string { return e.msg }

// rowLabel is the fallback display name of a row.
func rowLabel(rowIndex int) string {
	return fmt.Sprintf("Row %d", rowIndex+1)
}
