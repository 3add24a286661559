package core

// EnumSet is a closed vocabulary for an enumerated field. Unrecognized text
// resolves to Fallback.
type EnumSet struct {
	Name     string
	Values   []string
	Fallback string
	lookup   map[string]string // normalized spelling -> canonical value
}

// newEnumSet builds a vocabulary. aliases maps extra spellings to canonical values.
func newEnumSet(name, fallback string, values []string, aliases map[string]string) *EnumSet {
	e := &EnumSet{
		Name:     name,
		Values:   values,
		Fallback: fallback,
		lookup:   make(map[string]string, len(values)+len(aliases)),
	}
	for _, v := range values {
		e.lookup[normalizeToken(v)] = v
	}
	for alias, v := range aliases {
		e.lookup[normalizeToken(alias)] = v
	}
	return e
}

// Resolve returns the canonical value for raw text.
// ok is false when the text is not recognized; the fallback is returned then.
func (e *EnumSet) Resolve(raw string) (value string, ok bool) {
	key := normalizeToken(raw)
	if key == "" {
		return e.Fallback, false
	}
	if v, found := e.lookup[key]; found {
		return v, true
	}
	return e.Fallback, false
}

// Canonical unit values stored on records.
const (
	SizeUnitMM   = "MM"
	SizeUnitCM   = "CM"
	SizeUnitInch = "INCH"

	WeightUnitGR = "GR"
	WeightUnitKG = "KG"
)

var (
	// ElementEnum is the anatomical or structural element a fossil represents.
	ElementEnum = newEnumSet("element", "Other",
		[]string{"Tooth", "Bone", "Skull", "Jaw", "Vertebra", "Rib", "Claw", "Egg",
			"Coprolite", "Shell", "Track", "Skin", "Plant", "Whole Specimen", "Other"},
		map[string]string{
			"teeth": "Tooth", "fang": "Tooth",
			"bones": "Bone", "cranium": "Skull", "mandible": "Jaw", "jawbone": "Jaw",
			"vertebrae": "Vertebra", "ribs": "Rib", "claws": "Claw", "talon": "Claw",
			"eggs": "Egg", "eggshell": "Egg", "dung": "Coprolite",
			"shells": "Shell", "footprint": "Track", "trackway": "Track",
			"skin impression": "Skin", "leaf": "Plant", "wood": "Plant",
			"complete": "Whole Specimen", "full specimen": "Whole Specimen", "whole": "Whole Specimen",
		})

	// EraEnum lists geological eras (Precambrian kept as a single bucket).
	EraEnum = newEnumSet("era", "Unknown",
		[]string{"Precambrian", "Paleozoic", "Mesozoic", "Cenozoic", "Unknown"},
		map[string]string{"palaeozoic": "Paleozoic", "caenozoic": "Cenozoic", "cainozoic": "Cenozoic"})

	// PeriodEnum lists geological periods.
	PeriodEnum = newEnumSet("period", "Unknown",
		[]string{"Cambrian", "Ordovician", "Silurian", "Devonian", "Carboniferous",
			"Permian", "Triassic", "Jurassic", "Cretaceous", "Paleogene", "Neogene",
			"Quaternary", "Unknown"},
		map[string]string{
			"mississippian": "Carboniferous", "pennsylvanian": "Carboniferous",
			"tertiary": "Paleogene", "palaeogene": "Paleogene",
		})

	// EpochEnum lists Cenozoic epochs and the generic Early/Middle/Late subdivisions.
	EpochEnum = newEnumSet("epoch", "Unknown",
		[]string{"Early", "Middle", "Late", "Paleocene", "Eocene", "Oligocene",
			"Miocene", "Pliocene", "Pleistocene", "Holocene", "Unknown"},
		map[string]string{
			"lower": "Early", "upper": "Late", "palaeocene": "Paleocene",
		})

	// AgeEnum lists Mesozoic and Cenozoic stages.
	AgeEnum = newEnumSet("age", "Unknown",
		[]string{
			"Induan", "Olenekian", "Anisian", "Ladinian", "Carnian", "Norian", "Rhaetian",
			"Hettangian", "Sinemurian", "Pliensbachian", "Toarcian", "Aalenian", "Bajocian",
			"Bathonian", "Callovian", "Oxfordian", "Kimmeridgian", "Tithonian",
			"Berriasian", "Valanginian", "Hauterivian", "Barremian", "Aptian", "Albian",
			"Cenomanian", "Turonian", "Coniacian", "Santonian", "Campanian", "Maastrichtian",
			"Danian", "Selandian", "Thanetian", "Ypresian", "Lutetian", "Bartonian",
			"Priabonian", "Rupelian", "Chattian", "Aquitanian", "Burdigalian", "Langhian",
			"Serravallian", "Tortonian", "Messinian", "Zanclean", "Piacenzian", "Gelasian",
			"Calabrian", "Unknown",
		},
		map[string]string{"maestrichtian": "Maastrichtian"})

	// AcquisitionMethodEnum lists how a specimen entered the collection.
	AcquisitionMethodEnum = newEnumSet("acquisition method", "Other",
		[]string{"Purchase", "Field Find", "Trade", "Gift", "Auction", "Inheritance", "Other"},
		map[string]string{
			"purchased": "Purchase", "bought": "Purchase", "buy": "Purchase", "dealer": "Purchase",
			"found": "Field Find", "self collected": "Field Find", "collected": "Field Find",
			"field": "Field Find", "dig": "Field Find",
			"traded": "Trade", "swap": "Trade", "exchange": "Trade",
			"gifted": "Gift", "donation": "Gift", "donated": "Gift",
			"ebay": "Auction", "inherited": "Inheritance",
		})

	// ConditionEnum lists preservation states.
	ConditionEnum = newEnumSet("condition", "Unknown",
		[]string{"Excellent", "Very Good", "Good", "Fair", "Poor", "Restored", "Repaired", "Unknown"},
		map[string]string{
			"mint": "Excellent", "perfect": "Excellent", "pristine": "Excellent",
			"vg": "Very Good", "ok": "Fair", "average": "Fair", "damaged": "Poor",
			"broken": "Poor", "composite": "Restored", "glued": "Repaired",
		})

	// CurrencyEnum lists ISO 4217 codes accepted for prices.
	CurrencyEnum = newEnumSet("currency", "USD",
		[]string{"USD", "EUR", "GBP", "CHF", "JPY", "CAD", "AUD"},
		map[string]string{
			"us dollar": "USD", "dollar": "USD", "dollars": "USD",
			"euro": "EUR", "euros": "EUR", "pound": "GBP", "pounds": "GBP",
			"franc": "CHF", "yen": "JPY",
		})

	// SizeUnitEnum lists length units.
	SizeUnitEnum = newEnumSet("size unit", SizeUnitMM,
		[]string{SizeUnitMM, SizeUnitCM, SizeUnitInch},
		map[string]string{
			"millimeter": SizeUnitMM, "millimeters": SizeUnitMM, "millimetre": SizeUnitMM,
			"centimeter": SizeUnitCM, "centimeters": SizeUnitCM, "centimetre": SizeUnitCM,
			"in": SizeUnitInch, "inches": SizeUnitInch,
		})

	// WeightUnitEnum lists mass units.
	WeightUnitEnum = newEnumSet("weight unit", WeightUnitGR,
		[]string{WeightUnitGR, WeightUnitKG},
		map[string]string{
			"g": WeightUnitGR, "gram": WeightUnitGR, "grams": WeightUnitGR,
			"kilogram": WeightUnitKG, "kilograms": WeightUnitKG, "kilo": WeightUnitKG,
		})
)
