package core

import (
	"time"

	"github.com/google/uuid"
)

// Specimen is a fossil record as persisted.
// Pointer fields are nil when the source had no usable value.
type Specimen struct {
	ID       string `json:"id"`
	OwnerID  string `json:"ownerId"`
	ImportID string `json:"importId,omitempty"`

	// Taxonomy
	Species    string `json:"species"`
	Genus      string `json:"genus,omitempty"`
	Family     string `json:"family,omitempty"`
	Order      string `json:"order,omitempty"`
	Class      string `json:"class,omitempty"`
	Phylum     string `json:"phylum,omitempty"`
	CommonName string `json:"commonName,omitempty"`

	// Identity
	InventoryID string `json:"inventoryId,omitempty"`
	Element     string `json:"element,omitempty"`
	Description string `json:"description,omitempty"`

	// Geological time
	Era       string `json:"era,omitempty"`
	Period    string `json:"period,omitempty"`
	Epoch     string `json:"epoch,omitempty"`
	Age       string `json:"age,omitempty"`
	Formation string `json:"formation,omitempty"`

	// Location
	Locality      string     `json:"locality,omitempty"`
	Country       string     `json:"country,omitempty"`
	Region        string     `json:"region,omitempty"`
	Latitude      *float64   `json:"latitude,omitempty"`
	Longitude     *float64   `json:"longitude,omitempty"`
	DiscoveryDate *time.Time `json:"discoveryDate,omitempty"`
	Collector     string     `json:"collector,omitempty"`

	// Dimensions
	Width      *float64 `json:"width,omitempty"`
	Height     *float64 `json:"height,omitempty"`
	Length     *float64 `json:"length,omitempty"`
	SizeUnit   string   `json:"sizeUnit"`
	Weight     *float64 `json:"weight,omitempty"`
	WeightUnit string   `json:"weightUnit"`

	// Acquisition
	AcquisitionDate   *time.Time `json:"acquisitionDate,omitempty"`
	AcquisitionMethod string     `json:"acquisitionMethod,omitempty"`
	AcquiredFrom      string     `json:"acquiredFrom,omitempty"`
	Condition         string     `json:"condition,omitempty"`

	// Financial
	PurchasePrice  *float64 `json:"purchasePrice,omitempty"`
	EstimatedValue *float64 `json:"estimatedValue,omitempty"`
	Currency       string   `json:"currency"`

	// Metadata
	Tags            []string `json:"tags"`
	Notes           string   `json:"notes,omitempty"`
	StorageLocation string   `json:"storageLocation,omitempty"`

	// Never populated from a spreadsheet.
	IsFavorite bool     `json:"isFavorite"`
	ImageURLs  []string `json:"imageUrls"`
	IsPublic   bool     `json:"isPublic"`
	ShareURL   string   `json:"shareUrl"`

	CreatedAt time.Time `json:"createdAt"`
}

// BuildSpecimen converts a draft into a record owned by ownerID.
// Unparseable values are left empty; only a missing species is an error.
func BuildSpecimen(d SpecimenDraft, ownerID, importID string) (*Specimen, error) {
	species := d.Value(FieldSpecies)
	if species == "" {
		return nil, &conversionError{msg: "species is required"}
	}

	s := &Specimen{
		ID:       uuid.New().String(),
		OwnerID:  ownerID,
		ImportID: importID,

		Species:    species,
		Genus:      d.Value(FieldGenus),
		Family:     d.Value(FieldFamily),
		Order:      d.Value(FieldOrder),
		Class:      d.Value(FieldClass),
		Phylum:     d.Value(FieldPhylum),
		CommonName: d.Value(FieldCommonName),

		InventoryID: d.Value(FieldInventoryID),
		Element:     enumValue(ElementEnum, d.Value(FieldElement)),
		Description: d.Value(FieldDescription),

		Era:       enumValue(EraEnum, d.Value(FieldEra)),
		Period:    enumValue(PeriodEnum, d.Value(FieldPeriod)),
		Epoch:     enumValue(EpochEnum, d.Value(FieldEpoch)),
		Age:       enumValue(AgeEnum, d.Value(FieldAge)),
		Formation: d.Value(FieldFormation),

		Locality:      d.Value(FieldLocality),
		Country:       d.Value(FieldCountry),
		Region:        d.Value(FieldRegion),
		Latitude:      coordinatePtr(d.Value(FieldLatitude), 90),
		Longitude:     coordinatePtr(d.Value(FieldLongitude), 180),
		DiscoveryDate: datePtr(d.Value(FieldDiscoveryDate)),
		Collector:     d.Value(FieldCollector),

		AcquisitionDate:   datePtr(d.Value(FieldAcquisitionDate)),
		AcquisitionMethod: enumValue(AcquisitionMethodEnum, d.Value(FieldAcquisitionMethod)),
		AcquiredFrom:      d.Value(FieldAcquiredFrom),
		Condition:         enumValue(ConditionEnum, d.Value(FieldCondition)),

		Tags:            ParseTags(d.Value(FieldTags)),
		Notes:           d.Value(FieldNotes),
		StorageLocation: d.Value(FieldStorageLocation),

		ImageURLs: []string{},
		CreatedAt: time.Now().UTC(),
	}

	applyDimensions(s, d)
	applyWeight(s, d)
	applyFinancial(s, d)

	return s, nil
}

// applyDimensions fills width, height, length and size unit.
// A combined width string wins over separate height and length columns,
// and an inline unit wins over the size unit column.
func applyDimensions(s *Specimen, d SpecimenDraft) {
	var inlineUnit string

	width := d.Value(FieldWidth)
	if HasDimensionSeparator(width) {
		dims := ParseDimensions(width)
		s.Width, s.Height, s.Length = dims.Width, dims.Height, dims.Length
		inlineUnit = dims.Unit
	} else if v, unit, ok := ParseMeasure(width); ok {
		s.Width = &v
		inlineUnit = unit
	}

	var fallbackUnit string
	if s.Height == nil {
		if v, unit, ok := ParseMeasure(d.Value(FieldHeight)); ok {
			s.Height = &v
			fallbackUnit = unit
		}
	}
	if s.Length == nil {
		if v, unit, ok := ParseMeasure(d.Value(FieldLength)); ok {
			s.Length = &v
			if fallbackUnit == "" {
				fallbackUnit = unit
			}
		}
	}

	switch {
	case inlineUnit != "":
		s.SizeUnit = inlineUnit
	case d.Value(FieldSizeUnit) != "":
		s.SizeUnit, _ = SizeUnitEnum.Resolve(d.Value(FieldSizeUnit))
	case fallbackUnit != "":
		s.SizeUnit = fallbackUnit
	default:
		s.SizeUnit = SizeUnitMM
	}
}

// applyWeight fills weight and weight unit; an inline unit wins.
func applyWeight(s *Specimen, d SpecimenDraft) {
	v, unit, ok := ParseWeight(d.Value(FieldWeight))
	if ok {
		s.Weight = &v
	}

	switch {
	case unit != "":
		s.WeightUnit = unit
	case d.Value(FieldWeightUnit) != "":
		s.WeightUnit, _ = WeightUnitEnum.Resolve(d.Value(FieldWeightUnit))
	default:
		s.WeightUnit = WeightUnitGR
	}
}

// applyFinancial fills prices and currency. A currency column wins over
// symbols found in the price text.
func applyFinancial(s *Specimen, d SpecimenDraft) {
	var symbolCurrency string

	if v, cur, ok := ParseCurrencyAmount(d.Value(FieldPurchasePrice)); ok {
		s.PurchasePrice = &v
		symbolCurrency = cur
	}
	if v, cur, ok := ParseCurrencyAmount(d.Value(FieldEstimatedValue)); ok {
		s.EstimatedValue = &v
		if symbolCurrency == "" {
			symbolCurrency = cur
		}
	}

	switch {
	case d.Value(FieldCurrency) != "":
		s.Currency, _ = CurrencyEnum.Resolve(d.Value(FieldCurrency))
	case symbolCurrency != "":
		s.Currency = symbolCurrency
	default:
		s.Currency = CurrencyEnum.Fallback
	}
}

// enumValue resolves text to a canonical value; blank stays blank.
func enumValue(e *EnumSet, raw string) string {
	if raw == "" {
		return ""
	}
	v, _ := e.Resolve(raw)
	return v
}

func coordinatePtr(raw string, limit float64) *float64 {
	v, ok, inRange := ParseCoordinate(raw, limit)
	if !ok || !inRange {
		return nil
	}
	return &v
}

func datePtr(raw string) *time.Time {
	t, ok := ParseDate(raw)
	if !ok {
		return nil
	}
	return &t
}
