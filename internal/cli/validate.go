package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/fossil-import/internal/core"
)

var validateWarnings bool

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check every row of a spreadsheet without importing it",
	Long: `Map a spreadsheet and validate each row the way an import would.

Rows with blocking errors are listed with their problems. Warnings are
counted, and listed with --warnings.

Examples:
  fossil-import validate collection.csv
  fossil-import validate collection.csv --warnings`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVarP(&validateWarnings, "warnings", "w", false, "list warnings per row")
}

func runValidate(cmd *cobra.Command, args []string) error {
	mapping, err := loadMapping(cmd, args[0])
	if err != nil {
		return err
	}
	if err := requireMapped(mapping); err != nil {
		return err
	}

	drafts := core.BuildDraftsParallel(mapping, cfg.Import.DraftWorkers)
	stats := core.SummarizeDrafts(drafts)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Source: %s\n", describeSource(mapping.Source))
	printStats(out, stats)

	if stats.Blocked > 0 {
		fmt.Fprintln(out, "\nBlocked rows:")
		for _, d := range drafts {
			if len(d.BlockingErrors) == 0 {
				continue
			}
			problems := make([]string, len(d.BlockingErrors))
			for i, e := range d.BlockingErrors {
				problems[i] = e.Message
			}
			fmt.Fprintf(out, "  Row %d (%s): %s\n", d.RowIndex+1, d.DisplayName(), strings.Join(problems, "; "))
		}
	}

	if validateWarnings && stats.Warnings > 0 {
		fmt.Fprintln(out, "\nWarnings:")
		for _, d := range drafts {
			for _, w := range d.Warnings {
				line := fmt.Sprintf("  Row %d (%s), %s: %s", d.RowIndex+1, d.DisplayName(), displayName(w.Field), w.Message)
				if w.CorrectedValue != nil {
					line += fmt.Sprintf(" (using %q)", *w.CorrectedValue)
				}
				fmt.Fprintln(out, line)
			}
		}
	}

	return nil
}

func printStats(out io.Writer, s core.DraftStats) {
	fmt.Fprintf(out, "Rows: %d total, %d importable, %d blocked, %d deselected, %d warnings\n",
		s.Total, s.Importable, s.Blocked, s.Deselected, s.Warnings)
}
