package core

import (
	"testing"
)

func TestCatalog(t *testing.T) {
	fields := Fields()
	if len(fields) != 38 || FieldCount() != 38 {
		t.Fatalf("catalog has %d fields, want 38", len(fields))
	}

	seen := make(map[FieldKey]bool)
	for i, f := range fields {
		if seen[f.Key] {
			t.Errorf("duplicate key %s", f.Key)
		}
		seen[f.Key] = true

		if f.DisplayName == "" {
			t.Errorf("%s has no display name", f.Key)
		}
		if f.Kind == KindEnum && f.Enum == nil {
			t.Errorf("enum field %s has no vocabulary", f.Key)
		}
		if catalogPosition(f.Key) != i {
			t.Errorf("%s position = %d, want %d", f.Key, catalogPosition(f.Key), i)
		}
	}

	req := RequiredFields()
	if len(req) != 1 || req[0] != FieldSpecies {
		t.Errorf("RequiredFields = %v, want only species", req)
	}
}

func TestField(t *testing.T) {
	f, ok := Field(FieldLatitude)
	if !ok || f.Kind != KindCoordinate || f.Category != CategoryLocation {
		t.Errorf("Field(latitude) = %+v, %v", f, ok)
	}

	if _, ok := Field("nope"); ok {
		t.Error("Field(nope) should not be found")
	}
	if catalogPosition("nope") != -1 {
		t.Error("unknown key should have position -1")
	}
}

func TestFieldsReturnsCopy(t *testing.T) {
	fields := Fields()
	fields[0].DisplayName = "changed"

	if f, _ := Field(FieldSpecies); f.DisplayName != "Species" {
		t.Error("modifying Fields() result changed the catalog")
	}
}

func TestCategories(t *testing.T) {
	cats := Categories()
	if len(cats) != 8 {
		t.Fatalf("got %d categories, want 8: %v", len(cats), cats)
	}
	if cats[0] != CategoryTaxonomy || cats[len(cats)-1] != CategoryMetadata {
		t.Errorf("categories out of catalog order: %v", cats)
	}

	total := 0
	for _, c := range cats {
		total += len(ByCategory(c))
	}
	if total != FieldCount() {
		t.Errorf("categories cover %d fields, want %d", total, FieldCount())
	}
}

func TestEnumResolve(t *testing.T) {
	tests := []struct {
		enum   *EnumSet
		raw    string
		want   string
		wantOK bool
	}{
		{ElementEnum, "Tooth", "Tooth", true},
		{ElementEnum, "  TEETH ", "Tooth", true},
		{ElementEnum, "whole specimen", "Whole Specimen", true},
		{ElementEnum, "gizzard", "Other", false},
		{PeriodEnum, "Crétacé", "Unknown", false},
		{PeriodEnum, "cretaceous", "Cretaceous", true},
		{EraEnum, "Palaeozoic", "Paleozoic", true},
		{ConditionEnum, "very-good", "Very Good", true},
		{CurrencyEnum, "eur", "EUR", true},
		{CurrencyEnum, "doubloons", "USD", false},
		{SizeUnitEnum, "inches", SizeUnitInch, true},
		{WeightUnitEnum, "kg", WeightUnitKG, true},
		{WeightUnitEnum, "", WeightUnitGR, false},
	}

	for _, tt := range tests {
		got, ok := tt.enum.Resolve(tt.raw)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("%s.Resolve(%q) = %q %v, want %q %v", tt.enum.Name, tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}
