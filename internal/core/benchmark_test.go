package core

import (
	"fmt"
	"testing"
)

// ============================================================================
// Parser Benchmarks
// ============================================================================

// BenchmarkParseNumber covers the numeric fields of every row.
func BenchmarkParseNumber(b *testing.B) {
	testCases := []string{
		"123",
		"-456.78",
		"2,5",   // Decimal comma
		"1.5e3", // Scientific
		"  999.99  ",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseNumber(tc)
		}
	}
}

// BenchmarkParseDate walks the layout list; month-first dates are the slow path.
func BenchmarkParseDate(b *testing.B) {
	testCases := []string{
		"2024-01-15",
		"15/01/2024",
		"01/15/2024",
		"15.01.2024 10:30:00",
		"2024-01-15T10:30:00Z",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseDate(tc)
		}
	}
}

func BenchmarkParseDimensions(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ParseDimensions("12,5 x 8 x 3,2 cm")
	}
}

func BenchmarkParseWeight(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ParseWeight("125 gr")
	}
}

func BenchmarkCleanCell_ExcelFormula(b *testing.B) {
	for i := 0; i < b.N; i++ {
		CleanCell(`="00123"`)
	}
}

// ============================================================================
// Mapping and Draft Benchmarks
// ============================================================================

var benchHeaders = []string{
	"Species", "Genus", "Inv. No", "Element", "Period", "Locality", "Country",
	"Lat", "Long", "Size", "Weight", "Price", "Condition", "Notes", "Tags",
}

func benchTable(rows int) TabularResult {
	data := make([][]string, rows)
	for i := range data {
		data[i] = []string{
			fmt.Sprintf("Species %d", i), "Ammonites", fmt.Sprintf("INV-%05d", i),
			"Shell", "Jurassic", "Lyme Regis", "UK", "50,72", "-2,93",
			"4,5x3x2 cm", "125 gr", "$45", "Good", "cleaned", "beach; 2024",
		}
	}
	return TabularResult{Headers: benchHeaders, Rows: data, SourceName: "bench.csv", RowCount: rows}
}

// BenchmarkGenerateMapping scores every header against the whole catalog.
func BenchmarkGenerateMapping(b *testing.B) {
	src := benchTable(0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GenerateMapping(src)
	}
}

func BenchmarkBuildDrafts(b *testing.B) {
	config := GenerateMapping(benchTable(1000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BuildDrafts(config)
	}
}

func BenchmarkBuildDraftsParallel(b *testing.B) {
	config := GenerateMapping(benchTable(1000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BuildDraftsParallel(config, 4)
	}
}

func BenchmarkHeaderSimilarityParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			HeaderSimilarity("Acquisition Method", "Aquisition methd")
		}
	})
}

// BenchmarkBuildSpecimenAllocs reports allocations for one row conversion.
func BenchmarkBuildSpecimenAllocs(b *testing.B) {
	drafts := BuildDrafts(GenerateMapping(benchTable(1)))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BuildSpecimen(drafts[0], "owner", "import")
	}
}
