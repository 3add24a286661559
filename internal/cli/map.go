package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/fossil-import/internal/core"
)

var mapShowAll bool

var mapCmd = &cobra.Command{
	Use:   "map <file>",
	Short: "Show how a spreadsheet's columns map onto specimen fields",
	Long: `Show the column mapping fossil-import would use for a spreadsheet.

Each mapped field is listed with its columns and the confidence of the
match. Columns no field uses, columns claimed by several fields and
required fields without a column are reported below the table.

Examples:
  fossil-import map collection.csv
  fossil-import map collection.csv --all
  fossil-import map collection.csv --mapping-file museum.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runMap,
}

func init() {
	mapCmd.Flags().BoolVarP(&mapShowAll, "all", "a", false, "list unmapped fields too")
}

func runMap(cmd *cobra.Command, args []string) error {
	mapping, err := loadMapping(cmd, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Source: %s\n\n", describeSource(mapping.Source))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tCOLUMNS\tCONFIDENCE")
	for _, m := range mapping.Mappings {
		if !m.Mapped() && !mapShowAll {
			continue
		}
		columns := "-"
		if m.Mapped() {
			columns = strings.Join(m.SourceColumns, " + ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", displayName(m.Field), columns, confidenceLabel(m))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if unmapped := mapping.UnmappedHeaders(); len(unmapped) > 0 {
		fmt.Fprintf(out, "\nUnmapped columns: %s\n", strings.Join(unmapped, ", "))
	}
	for _, c := range mapping.ColumnConflicts() {
		names := make([]string, len(c.Fields))
		for i, key := range c.Fields {
			names[i] = displayName(key)
		}
		fmt.Fprintf(out, "Conflict: column %q is mapped to %s\n", c.Column, strings.Join(names, " and "))
	}
	if missing := mapping.MissingRequired(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, key := range missing {
			names[i] = displayName(key)
		}
		fmt.Fprintf(out, "Missing required: %s\n", strings.Join(names, ", "))
	}

	return nil
}

func confidenceLabel(m core.FieldMapping) string {
	switch {
	case m.Confirmed && m.Mapped():
		return "confirmed"
	case !m.Mapped():
		return string(core.ConfidenceNone)
	default:
		return fmt.Sprintf("%s (%.0f%%)", m.Level(), m.Confidence*100)
	}
}
