package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/fossil-import/internal/core"
	"github.com/JonMunkholm/fossil-import/internal/tabular"
)

// loadMapping parses path and maps its columns, applying --mapping-file
// when one was given.
func loadMapping(cmd *cobra.Command, path string) (core.MappingConfiguration, error) {
	limit := maxSize
	if limit <= 0 {
		limit = cfg.Import.MaxFileSize
	}

	result, err := tabular.ParseFile(path, limit)
	if err != nil {
		return core.MappingConfiguration{}, err
	}
	logger.Debug("source parsed",
		"source", result.SourceName,
		"rows", result.RowCount,
		"columns", len(result.Headers),
		"delimiter", result.Delimiter,
	)

	mapping := core.GenerateMapping(result)
	if mappingFile == "" {
		return mapping, nil
	}

	preset, err := readMappingFile(mappingFile)
	if err != nil {
		return core.MappingConfiguration{}, err
	}
	for _, col := range absentColumns(preset, result.Headers) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: column %q from %s is not in %s\n", col, mappingFile, result.SourceName)
	}
	return core.ApplyPreset(mapping, preset), nil
}

// requireMapped fails when a required field has no column. Every row would
// be blocked otherwise.
func requireMapped(mapping core.MappingConfiguration) error {
	missing := mapping.MissingRequired()
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, len(missing))
	for i, key := range missing {
		names[i] = displayName(key)
	}
	return fmt.Errorf("%s is required: no column is mapped to it", strings.ToLower(strings.Join(names, ", ")))
}

func displayName(key core.FieldKey) string {
	if f, ok := core.Field(key); ok {
		return f.DisplayName
	}
	return string(key)
}

func describeSource(src core.TabularResult) string {
	return fmt.Sprintf("%s (%d rows, delimiter %q)", src.SourceName, src.RowCount, src.Delimiter)
}
