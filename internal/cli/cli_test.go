package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/fossil-import/internal/core"
)

const fossilsCSV = "Species,Inventory ID,Latitude,Bezeichnung\n" +
	"Ammonites,A-1,50.7,x\n" +
	"Trilobita,A-2,abc,y\n" +
	",A-3,,z\n" +
	"Belemnites,A-1,,w\n"

// execute runs the command tree with fresh flag values and captures output.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	verbose, mappingFile, maxSize = false, "", 0
	mapShowAll, validateWarnings = false, false
	ownerID, dryRun, batchSize, hideProgress = "", false, 0, false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func lineStartingWith(output, prefix string) string {
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}
	return ""
}

func TestMap(t *testing.T) {
	path := writeFile(t, "fossils.csv", fossilsCSV)

	out, _, err := execute(t, "map", path)
	require.NoError(t, err)

	assert.Contains(t, out, `Source: fossils.csv (4 rows, delimiter ",")`)
	assert.Contains(t, out, "FIELD")
	assert.Equal(t, []string{"Species", "Species", "high", "(100%)"}, strings.Fields(lineStartingWith(out, "Species")))
	assert.Contains(t, lineStartingWith(out, "Inventory ID"), "high")
	assert.Contains(t, out, "Unmapped columns: Bezeichnung")
	assert.NotContains(t, out, "Missing required")

	// Unmapped fields only appear with --all
	assert.Empty(t, lineStartingWith(out, "Genus"))
	out, _, err = execute(t, "map", path, "--all")
	require.NoError(t, err)
	assert.Equal(t, []string{"Genus", "-", "none"}, strings.Fields(lineStartingWith(out, "Genus")))
}

func TestMap_MappingFile(t *testing.T) {
	path := writeFile(t, "fossils.csv", fossilsCSV)
	overrides := writeFile(t, "museum.yaml", "name: museum\ncolumns:\n  species: [Bezeichnung]\n  genus: [Gattung]\n")

	out, stderr, err := execute(t, "map", path, "--mapping-file", overrides)
	require.NoError(t, err)

	assert.Equal(t, []string{"Species", "Bezeichnung", "confirmed"}, strings.Fields(lineStartingWith(out, "Species")))
	assert.Contains(t, out, "Unmapped columns: Species")
	assert.Contains(t, stderr, `column "Gattung" from`)
}

func TestMap_MappingFileErrors(t *testing.T) {
	path := writeFile(t, "fossils.csv", fossilsCSV)

	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, err error)
	}{
		{
			name:    "unknown field",
			content: "columns:\n  wingspan: [Species]\n",
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, core.ErrUnknownField))
				assert.Contains(t, err.Error(), "wingspan")
			},
		},
		{
			name:    "unknown key",
			content: "name: x\ncolumn:\n  species: [Species]\n",
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "parse mapping file")
			},
		},
		{
			name:    "empty",
			content: "",
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "is empty")
			},
		},
		{
			name:    "no columns",
			content: "name: x\n",
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "maps no fields")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overrides := writeFile(t, "bad.yaml", tt.content)
			_, _, err := execute(t, "map", path, "--mapping-file", overrides)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestMap_SourceErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, _, err := execute(t, "map", filepath.Join(t.TempDir(), "missing.csv"))
		var srcErr *core.SourceReadError
		assert.True(t, errors.As(err, &srcErr))
	})

	t.Run("too large", func(t *testing.T) {
		path := writeFile(t, "fossils.csv", fossilsCSV)
		_, _, err := execute(t, "map", path, "--max-size", "10")
		assert.True(t, errors.Is(err, core.ErrFileTooLarge))
	})

	t.Run("wrong arg count", func(t *testing.T) {
		_, _, err := execute(t, "map")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	path := writeFile(t, "fossils.csv", fossilsCSV)

	out, _, err := execute(t, "validate", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Rows: 4 total, 3 importable, 1 blocked, 0 deselected, 1 warnings")
	assert.Contains(t, out, "Row 3 (Row 3): Species is required")
	assert.NotContains(t, out, "Warnings:")

	out, _, err = execute(t, "validate", path, "--warnings")
	require.NoError(t, err)
	assert.Contains(t, out, "Row 2 (Trilobita), Latitude: not a coordinate")
}

func TestValidate_SpeciesUnmapped(t *testing.T) {
	path := writeFile(t, "fossils.csv", fossilsCSV)
	overrides := writeFile(t, "museum.yaml", "columns:\n  species: []\n")

	_, _, err := execute(t, "validate", path, "--mapping-file", overrides)
	require.Error(t, err)
	assert.Equal(t, "MAP001", core.MapError(err).Code)
}

func TestImport_DryRun(t *testing.T) {
	path := writeFile(t, "fossils.csv", fossilsCSV)

	out, stderr, err := execute(t, "import", path, "--owner", "alice", "--dry-run", "--batch-size", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Imported 2 of 4 rows from fossils.csv")
	assert.Contains(t, out, "succeeded: 2")
	assert.Contains(t, out, "failed:    1")
	assert.Contains(t, out, "skipped:   1")
	assert.Contains(t, out, `Row 4 (Belemnites): duplicate inventory id: "A-1"`)
	assert.Contains(t, out, "Row 2 (Trilobita), Latitude: not a coordinate")
	assert.Contains(t, out, "Dry run: nothing was written")

	assert.Contains(t, stderr, "[  0%] 0/3")
	assert.Contains(t, stderr, "[100%] 3/3 done")
}

func TestImport_Quiet(t *testing.T) {
	path := writeFile(t, "fossils.csv", fossilsCSV)

	_, stderr, err := execute(t, "import", path, "-o", "alice", "-n", "-q")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "done")
}

func TestImport_Errors(t *testing.T) {
	path := writeFile(t, "fossils.csv", fossilsCSV)

	t.Run("owner required", func(t *testing.T) {
		_, _, err := execute(t, "import", path, "--dry-run")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--owner")
	})

	t.Run("nothing importable", func(t *testing.T) {
		blocked := writeFile(t, "blocked.csv", "Species,Inventory ID\n,A-1\n")
		_, _, err := execute(t, "import", blocked, "--owner", "alice", "--dry-run")
		assert.True(t, errors.Is(err, core.ErrNoImportableRows))
	})

	t.Run("database required without dry run", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("DB_URL", "")
		_, _, err := execute(t, "import", path, "--owner", "alice")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL")
	})
}

func TestAbsentColumns(t *testing.T) {
	preset := core.MappingPreset{Columns: map[core.FieldKey][]string{
		core.FieldSpecies: {"Taxon", "Species"},
		core.FieldGenus:   {"Gattung"},
	}}
	assert.Equal(t, []string{"Gattung", "Taxon"}, absentColumns(preset, []string{"Species"}))
}
