package core

import (
	"reflect"
	"testing"
)

func table(headers []string, rows ...[]string) TabularResult {
	return TabularResult{
		Headers:    headers,
		Rows:       rows,
		SourceName: "fossils.csv",
		Delimiter:  ",",
		RowCount:   len(rows),
	}
}

func TestHeaderSimilarity(t *testing.T) {
	tests := []struct {
		header string
		name   string
		want   float64
	}{
		{"Species", "Species", 1.0},
		{"  SPECIES ", "species", 1.0},
		{"Époque", "Epoque", 1.0},
		{"inventory_id", "Inventory ID", 1.0},
		{"", "Species", 0},
	}

	for _, tt := range tests {
		if got := HeaderSimilarity(tt.header, tt.name); got != tt.want {
			t.Errorf("HeaderSimilarity(%q, %q) = %v, want %v", tt.header, tt.name, got, tt.want)
		}
	}

	// Containment scores between 0.75 and 1
	got := HeaderSimilarity("Species Name Latin", "Species Name")
	if got <= 0.75 || got >= 1.0 {
		t.Errorf("containment score = %v, want in (0.75, 1)", got)
	}

	// Short names never score by containment
	if got := HeaderSimilarity("Image", "Age"); got > CandidateFloor {
		t.Errorf("Image vs Age = %v, should stay at or below the floor", got)
	}
}

func TestGenerateMapping_AssignsByNameAndSynonym(t *testing.T) {
	src := table([]string{"Species", "Fossil Element", "Inv. No", "Lat", "Weight", "Mystery"})
	config := GenerateMapping(src)

	if len(config.Mappings) != FieldCount() {
		t.Fatalf("got %d mappings, want one per catalog field (%d)", len(config.Mappings), FieldCount())
	}

	tests := []struct {
		field   FieldKey
		columns []string
	}{
		{FieldSpecies, []string{"Species"}},
		{FieldElement, []string{"Fossil Element"}},
		{FieldLatitude, []string{"Lat"}},
		{FieldWeight, []string{"Weight"}},
	}
	for _, tt := range tests {
		m, ok := config.Mapping(tt.field)
		if !ok {
			t.Fatalf("no mapping for %s", tt.field)
		}
		if !reflect.DeepEqual(m.SourceColumns, tt.columns) {
			t.Errorf("%s columns = %v, want %v", tt.field, m.SourceColumns, tt.columns)
		}
		if m.Confirmed {
			t.Errorf("%s should start unconfirmed", tt.field)
		}
		if m.Confidence != 1.0 {
			t.Errorf("%s confidence = %v, want 1.0", tt.field, m.Confidence)
		}
	}

	for _, h := range config.UnmappedHeaders() {
		if h == "Species" {
			t.Error("Species should be mapped")
		}
	}
	if !config.AllRequiredMapped() {
		t.Error("species is mapped, AllRequiredMapped should be true")
	}
}

func TestGenerateMapping_EachHeaderAtMostOnce(t *testing.T) {
	src := table([]string{
		"Species", "Genus", "Name", "Common Name", "Date", "Discovery Date",
		"Width", "Height", "Length", "Size", "Unit", "Price", "Value", "Notes",
		"Location", "Country", "Period", "Era", "Age", "Stage", "Tags",
	})
	config := GenerateMapping(src)

	claims := make(map[string]int)
	for _, m := range config.Mappings {
		for _, col := range m.SourceColumns {
			claims[col]++
		}
	}
	for col, n := range claims {
		if n > 1 {
			t.Errorf("header %q assigned to %d fields", col, n)
		}
	}
	if len(config.ColumnConflicts()) != 0 {
		t.Errorf("generated mapping has conflicts: %v", config.ColumnConflicts())
	}
}

func TestGenerateMapping_MergesSeveralHeadersInOrder(t *testing.T) {
	src := table([]string{"Notes", "Species", "Remarks", "Comments"})
	config := GenerateMapping(src)

	m, _ := config.Mapping(FieldNotes)
	want := []string{"Notes", "Remarks", "Comments"}
	if !reflect.DeepEqual(m.SourceColumns, want) {
		t.Errorf("notes columns = %v, want %v", m.SourceColumns, want)
	}
}

func TestGenerateMapping_BelowFloorStaysUnmapped(t *testing.T) {
	src := table([]string{"zzz", "qwerty"})
	config := GenerateMapping(src)

	for _, m := range config.Mappings {
		if m.Mapped() {
			t.Errorf("%s unexpectedly mapped to %v", m.Field, m.SourceColumns)
		}
		if m.Level() != ConfidenceNone {
			t.Errorf("%s level = %s, want none", m.Field, m.Level())
		}
	}
	if config.AllRequiredMapped() {
		t.Error("AllRequiredMapped should be false without species")
	}
	if got := config.MissingRequired(); !reflect.DeepEqual(got, []FieldKey{FieldSpecies}) {
		t.Errorf("MissingRequired = %v", got)
	}
}

func TestGenerateMapping_Deterministic(t *testing.T) {
	src := table([]string{"Species", "Size", "Price", "Found By", "Where"})
	a := GenerateMapping(src)
	b := GenerateMapping(src)
	if !reflect.DeepEqual(a, b) {
		t.Error("GenerateMapping is not deterministic")
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		confidence float64
		want       ConfidenceLevel
	}{
		{0, ConfidenceNone},
		{0.01, ConfidenceLow},
		{0.69, ConfidenceLow},
		{0.7, ConfidenceMedium},
		{0.89, ConfidenceMedium},
		{0.9, ConfidenceHigh},
		{1.0, ConfidenceHigh},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.confidence); got != tt.want {
			t.Errorf("LevelFor(%v) = %s, want %s", tt.confidence, got, tt.want)
		}
	}
}

func TestUpdateMapping(t *testing.T) {
	src := table([]string{"Species", "Genus", "Stuff"})
	original := GenerateMapping(src)

	updated := UpdateMapping(original, FieldNotes, []string{"Stuff", "Genus"})

	m, _ := updated.Mapping(FieldNotes)
	if !reflect.DeepEqual(m.SourceColumns, []string{"Stuff", "Genus"}) {
		t.Errorf("notes columns = %v", m.SourceColumns)
	}
	if !m.Confirmed {
		t.Error("updated field should be confirmed")
	}

	// Other fields untouched, including the one that also claims Genus
	g, _ := updated.Mapping(FieldGenus)
	if !reflect.DeepEqual(g.SourceColumns, []string{"Genus"}) || g.Confirmed {
		t.Errorf("genus mapping changed: %+v", g)
	}

	// Input configuration is not modified
	orig, _ := original.Mapping(FieldNotes)
	if orig.Mapped() || orig.Confirmed {
		t.Errorf("original configuration was mutated: %+v", orig)
	}

	conflicts := updated.ColumnConflicts()
	if len(conflicts) != 1 {
		t.Fatalf("conflicts = %v, want one", conflicts)
	}
	if conflicts[0].Column != "Genus" || !reflect.DeepEqual(conflicts[0].Fields, []FieldKey{FieldGenus, FieldNotes}) {
		t.Errorf("conflict = %+v", conflicts[0])
	}
}

func TestUpdateMapping_ClearingResetsConfidence(t *testing.T) {
	config := GenerateMapping(table([]string{"Species"}))
	config = UpdateMapping(config, FieldSpecies, nil)

	m, _ := config.Mapping(FieldSpecies)
	if m.Mapped() || m.Confidence != 0 || !m.Confirmed {
		t.Errorf("cleared mapping = %+v", m)
	}
}

func TestApplyPreset(t *testing.T) {
	src := table([]string{"Nom", "Réf", "Remarque"})
	config := GenerateMapping(src)

	preset := MappingPreset{
		Name:    "French export",
		Headers: []string{"Nom", "Réf", "Remarque"},
		Columns: map[FieldKey][]string{
			FieldSpecies:     {"Nom"},
			FieldInventoryID: {"Réf", "Missing Column"},
		},
	}
	applied := ApplyPreset(config, preset)

	sp, _ := applied.Mapping(FieldSpecies)
	if !reflect.DeepEqual(sp.SourceColumns, []string{"Nom"}) || !sp.Confirmed {
		t.Errorf("species = %+v", sp)
	}
	inv, _ := applied.Mapping(FieldInventoryID)
	if !reflect.DeepEqual(inv.SourceColumns, []string{"Réf"}) {
		t.Errorf("inventory columns = %v, missing columns should be dropped", inv.SourceColumns)
	}
}

func TestMatchPresets(t *testing.T) {
	presets := []MappingPreset{
		{ID: "a", Headers: []string{"Species", "Ref", "Price", "Size"}},
		{ID: "b", Headers: []string{"species", "ref", "price"}},
		{ID: "c", Headers: []string{"Totally", "Different"}},
		{ID: "d"},
	}
	matches := MatchPresets([]string{"Species", "Ref", "Price"}, presets)

	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(matches), matches)
	}
	if matches[0].Preset.ID != "b" || matches[0].MatchScore != 1.0 {
		t.Errorf("best match = %+v, want b at 1.0", matches[0])
	}
	if matches[1].Preset.ID != "a" || matches[1].MatchScore != 0.75 {
		t.Errorf("second match = %+v, want a at 0.75", matches[1])
	}
}

func TestPresetFromMapping(t *testing.T) {
	config := GenerateMapping(table([]string{"Species", "Genus"}))
	p := PresetFromMapping("mine", config)

	if p.Name != "mine" || len(p.Columns) != 2 {
		t.Fatalf("preset = %+v", p)
	}
	if !reflect.DeepEqual(p.Columns[FieldGenus], []string{"Genus"}) {
		t.Errorf("genus columns = %v", p.Columns[FieldGenus])
	}
}
