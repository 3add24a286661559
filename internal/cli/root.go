// Package cli provides the command-line interface for fossil-import.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/fossil-import/internal/config"
	"github.com/JonMunkholm/fossil-import/internal/logging"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose     bool
	mappingFile string
	maxSize     int64

	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fossil-import",
	Short: "Import fossil collection spreadsheets",
	Long: `fossil-import reads a collection spreadsheet (CSV, semicolon, tab or pipe
separated), maps its columns onto the specimen catalog, validates every row
and imports the valid ones.

Inspect a file before importing it:
  fossil-import map collection.csv
  fossil-import validate collection.csv

Override the automatic mapping with a YAML file:
  fossil-import import collection.csv --owner alice --mapping-file museum.yaml`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		// Only a real import writes, so only it needs DATABASE_URL
		var err error
		if cmd.Name() == importCmd.Name() && !dryRun {
			cfg, err = config.Load()
		} else {
			cfg, err = config.LoadLocal()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger = logging.New(cmd.ErrOrStderr(), nil, level, cfg.Logging.Format)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&mappingFile, "mapping-file", "m", "", "YAML file overriding the automatic column mapping")
	rootCmd.PersistentFlags().Int64Var(&maxSize, "max-size", 0, "largest accepted file in bytes (default IMPORT_MAX_FILE_SIZE)")

	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(importCmd)
}
