package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference. Users quote the code; support looks it up here.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Unreadable file: the spreadsheet could not be opened or decoded
//	SRC002 - Empty file: the file has no header row
//	SRC003 - File too large: the file exceeds the upload limit
//	SRC004 - No file: nothing was uploaded
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Required field unmapped: species has no column
//	MAP002 - Unknown field: the field key is not in the catalog
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Nothing to import: every row is deselected or blocked
//	VAL002 - Unknown row: the row index does not exist in the drafts
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Duplicate inventory id: the record already exists
//	IMP002 - Import cancelled
//	IMP003 - Import already running for this session
//	IMP004 - Import not found in history
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Unique constraint violated
//	DB002 - Connection refused
//	DB003 - Connection reset
//	DB004 - Timeout
//
// # Session Errors (UPL001-UPL099)
//
//	UPL001 - System busy: too many imports running
//	UPL002 - Session expired
//	UPL003 - Request cancelled
//
// # Default Error (ERR000)
//
// Returned when nothing matches; check the logs for the technical error.
//
// Sentinel errors are matched with errors.Is first. Remaining errors are
// matched case-insensitively against text patterns; the first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// ErrFileTooLarge is returned when an uploaded source exceeds the size limit.
var ErrFileTooLarge = errors.New("file too large")

// ErrEmptySource is returned for a source without a header row.
var ErrEmptySource = errors.New("empty file")

// ErrUnknownField is returned for field keys not in the catalog.
var ErrUnknownField = errors.New("unknown field")

// ErrUnknownRow is returned for row indexes outside the drafts.
var ErrUnknownRow = errors.New("unknown row")

// ErrImportNotFound is returned when an import id has no history entry.
var ErrImportNotFound = errors.New("import not found")

// sentinelMessages is checked with errors.Is before any text pattern.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{ErrEmptySource, UserMessage{"The file has no header row", "Export the spreadsheet again with column headers", "SRC002"}},
	{ErrFileTooLarge, UserMessage{"File exceeds maximum size limit", "Split the collection into smaller files", "SRC003"}},
	{ErrUnknownField, UserMessage{"That field does not exist", "Pick a field from the list", "MAP002"}},
	{ErrNoImportableRows, UserMessage{"There is nothing to import", "Select at least one row without errors", "VAL001"}},
	{ErrUnknownRow, UserMessage{"That row does not exist", "Refresh the preview and try again", "VAL002"}},
	{ErrDuplicateInventoryID, UserMessage{"A specimen with this inventory ID already exists", "Change the inventory ID or deselect the row", "IMP001"}},
	{ErrImportCancelled, UserMessage{"Import was cancelled", "Re-run the import to finish the remaining rows", "IMP002"}},
	{ErrImportInProgress, UserMessage{"An import is already running for this file", "Wait for it to finish", "IMP003"}},
	{ErrImportNotFound, UserMessage{"Import not found", "Check the import history", "IMP004"}},
	{ErrTooManyImports, UserMessage{"Too many imports in progress", "Please wait a moment and try again", "UPL001"}},
	{ErrSessionNotFound, UserMessage{"Import session not found", "The session may have expired. Upload the file again", "UPL002"}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (lowercase) to user messages.
// Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{"read source", UserMessage{"The file could not be read", "Save the spreadsheet as CSV (UTF-8) and try again", "SRC001"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV file to import", "SRC004"}},
	{"species is required", UserMessage{"Species is not mapped", "Map a column to Species before continuing", "MAP001"}},
	{"duplicate key", UserMessage{"A specimen with this inventory ID already exists", "Change the inventory ID or deselect the row", "DB001"}},
	{"unique constraint", UserMessage{"A specimen with this inventory ID already exists", "Change the inventory ID or deselect the row", "DB001"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB002"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB003"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL003"}},
	{"deadline exceeded", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB004"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB004"}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(fmt.Errorf("row 3: %w", ErrDuplicateInventoryID))
//	// msg.Code == "IMP001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	var srcErr *SourceReadError
	if errors.As(err, &srcErr) {
		return errorPatterns[0].msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
