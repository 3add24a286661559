// Package tabular reads spreadsheet exports (CSV and friends) into a
// core.TabularResult.
//
// The reader is forgiving in the ways collectors' files need: a UTF-8 BOM is
// skipped, text that is not valid UTF-8 is decoded as Windows-1252, the
// delimiter is detected, stray quotes are tolerated and short rows are padded.
// Anything it cannot read is reported as a *core.SourceReadError.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/JonMunkholm/fossil-import/internal/core"
)

// DefaultMaxSize is the largest source Parse accepts when no limit is given.
const DefaultMaxSize int64 = 10 << 20

// Parse reads a delimited text source. name is used as SourceName and in
// error messages. maxSize <= 0 selects DefaultMaxSize.
func Parse(name string, r io.Reader, maxSize int64) (core.TabularResult, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	src := wrapSource(r, maxSize)
	data, err := io.ReadAll(src)
	if err != nil {
		return core.TabularResult{}, &core.SourceReadError{Source: name, Err: err}
	}

	text, err := decode(data)
	if err != nil {
		return core.TabularResult{}, &core.SourceReadError{Source: name, Err: err}
	}

	delim := DetectDelimiter(text)
	records, err := tokenize(text, delim)
	if err != nil {
		return core.TabularResult{}, &core.SourceReadError{Source: name, Err: err}
	}
	if len(records) == 0 {
		return core.TabularResult{}, &core.SourceReadError{Source: name, Err: core.ErrEmptySource}
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := records[1:]
	for i, row := range rows {
		if len(row) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, row)
			rows[i] = padded
		}
	}

	return core.TabularResult{
		Headers:    headers,
		Rows:       rows,
		SourceName: name,
		Delimiter:  string(delim),
		RowCount:   len(rows),
	}, nil
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string, maxSize int64) (core.TabularResult, error) {
	name := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		return core.TabularResult{}, &core.SourceReadError{Source: name, Err: err}
	}
	defer f.Close()

	return Parse(name, f, maxSize)
}

// decode returns data as UTF-8 text. Bytes that are not valid UTF-8 are
// taken to be Windows-1252, the usual encoding of legacy Excel exports.
func decode(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode windows-1252: %w", err)
	}
	return string(out), nil
}

// tokenize splits text into records, dropping blank lines and rows whose
// cells are all whitespace.
func tokenize(text string, delim rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("line %d: %w", parseErr.Line, parseErr.Err)
			}
			return nil, err
		}
		if isEmptyRow(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
