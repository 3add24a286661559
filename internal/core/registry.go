package core

import (
	"fmt"
	"sync"
)

// Catalog field keys. The order of declaration in catalogFields is the
// catalog order used for tie-breaking and display.
const (
	FieldSpecies    FieldKey = "species"
	FieldGenus      FieldKey = "genus"
	FieldFamily     FieldKey = "family"
	FieldOrder      FieldKey = "order"
	FieldClass      FieldKey = "class"
	FieldPhylum     FieldKey = "phylum"
	FieldCommonName FieldKey = "commonName"

	FieldInventoryID FieldKey = "inventoryId"
	FieldElement     FieldKey = "element"
	FieldDescription FieldKey = "description"

	FieldEra       FieldKey = "era"
	FieldPeriod    FieldKey = "period"
	FieldEpoch     FieldKey = "epoch"
	FieldAge       FieldKey = "age"
	FieldFormation FieldKey = "formation"

	FieldLocality      FieldKey = "locality"
	FieldCountry       FieldKey = "country"
	FieldRegion        FieldKey = "region"
	FieldLatitude      FieldKey = "latitude"
	FieldLongitude     FieldKey = "longitude"
	FieldDiscoveryDate FieldKey = "discoveryDate"
	FieldCollector     FieldKey = "collector"

	FieldWidth      FieldKey = "width"
	FieldHeight     FieldKey = "height"
	FieldLength     FieldKey = "length"
	FieldSizeUnit   FieldKey = "sizeUnit"
	FieldWeight     FieldKey = "weight"
	FieldWeightUnit FieldKey = "weightUnit"

	FieldAcquisitionDate   FieldKey = "acquisitionDate"
	FieldAcquisitionMethod FieldKey = "acquisitionMethod"
	FieldAcquiredFrom      FieldKey = "acquiredFrom"
	FieldCondition         FieldKey = "condition"

	FieldPurchasePrice  FieldKey = "purchasePrice"
	FieldEstimatedValue FieldKey = "estimatedValue"
	FieldCurrency       FieldKey = "currency"

	FieldTags            FieldKey = "tags"
	FieldNotes           FieldKey = "notes"
	FieldStorageLocation FieldKey = "storageLocation"
)

var catalogFields = []TargetField{
	{Key: FieldSpecies, DisplayName: "Species", Category: CategoryTaxonomy, Required: true, Kind: KindText,
		Synonyms: []string{"Scientific Name", "Species Name", "Taxon", "Binomial", "Name"}},
	{Key: FieldGenus, DisplayName: "Genus", Category: CategoryTaxonomy, Kind: KindText},
	{Key: FieldFamily, DisplayName: "Family", Category: CategoryTaxonomy, Kind: KindText},
	{Key: FieldOrder, DisplayName: "Order", Category: CategoryTaxonomy, Kind: KindText,
		Synonyms: []string{"Taxonomic Order"}},
	{Key: FieldClass, DisplayName: "Class", Category: CategoryTaxonomy, Kind: KindText},
	{Key: FieldPhylum, DisplayName: "Phylum", Category: CategoryTaxonomy, Kind: KindText},
	{Key: FieldCommonName, DisplayName: "Common Name", Category: CategoryTaxonomy, Kind: KindText,
		Synonyms: []string{"Vernacular Name", "Popular Name"}},

	{Key: FieldInventoryID, DisplayName: "Inventory ID", Category: CategoryIdentity, Kind: KindText,
		Synonyms: []string{"Inventory Number", "Catalog Number", "Catalogue Number", "Specimen ID", "Ref", "Reference"}},
	{Key: FieldElement, DisplayName: "Element", Category: CategoryIdentity, Kind: KindEnum, Enum: ElementEnum,
		Synonyms: []string{"Fossil Element", "Fossil Type", "Part", "Body Part"}},
	{Key: FieldDescription, DisplayName: "Description", Category: CategoryIdentity, Kind: KindText,
		Synonyms: []string{"Details", "Specimen Description"}},

	{Key: FieldEra, DisplayName: "Era", Category: CategoryGeologicalTime, Kind: KindEnum, Enum: EraEnum,
		Synonyms: []string{"Geological Era"}},
	{Key: FieldPeriod, DisplayName: "Period", Category: CategoryGeologicalTime, Kind: KindEnum, Enum: PeriodEnum,
		Synonyms: []string{"Geological Period"}},
	{Key: FieldEpoch, DisplayName: "Epoch", Category: CategoryGeologicalTime, Kind: KindEnum, Enum: EpochEnum,
		Synonyms: []string{"Geological Epoch"}},
	{Key: FieldAge, DisplayName: "Age", Category: CategoryGeologicalTime, Kind: KindEnum, Enum: AgeEnum,
		Synonyms: []string{"Stage", "Geological Age", "Faunal Stage"}},
	{Key: FieldFormation, DisplayName: "Formation", Category: CategoryGeologicalTime, Kind: KindText,
		Synonyms: []string{"Geological Formation", "Rock Formation", "Horizon"}},

	{Key: FieldLocality, DisplayName: "Locality", Category: CategoryLocation, Kind: KindText,
		Synonyms: []string{"Location", "Site", "Locality Name", "Find Site"}},
	{Key: FieldCountry, DisplayName: "Country", Category: CategoryLocation, Kind: KindText,
		Synonyms: []string{"Country of Origin", "Origin"}},
	{Key: FieldRegion, DisplayName: "Region", Category: CategoryLocation, Kind: KindText,
		Synonyms: []string{"State", "Province", "County"}},
	{Key: FieldLatitude, DisplayName: "Latitude", Category: CategoryLocation, Kind: KindCoordinate,
		Synonyms: []string{"Lat"}},
	{Key: FieldLongitude, DisplayName: "Longitude", Category: CategoryLocation, Kind: KindCoordinate,
		Synonyms: []string{"Lon", "Lng", "Long"}},
	{Key: FieldDiscoveryDate, DisplayName: "Discovery Date", Category: CategoryLocation, Kind: KindDate,
		Synonyms: []string{"Date Found", "Found Date", "Collection Date", "Date Collected"}},
	{Key: FieldCollector, DisplayName: "Collector", Category: CategoryLocation, Kind: KindText,
		Synonyms: []string{"Collected By", "Found By", "Finder"}},

	{Key: FieldWidth, DisplayName: "Width", Category: CategoryDimensions, Kind: KindDimension,
		Synonyms: []string{"Dimensions", "Size", "Measurements"}},
	{Key: FieldHeight, DisplayName: "Height", Category: CategoryDimensions, Kind: KindDimension},
	{Key: FieldLength, DisplayName: "Length", Category: CategoryDimensions, Kind: KindDimension,
		Synonyms: []string{"Depth"}},
	{Key: FieldSizeUnit, DisplayName: "Size Unit", Category: CategoryDimensions, Kind: KindEnum, Enum: SizeUnitEnum,
		Synonyms: []string{"Dimension Unit", "Unit"}},
	{Key: FieldWeight, DisplayName: "Weight", Category: CategoryDimensions, Kind: KindWeight,
		Synonyms: []string{"Mass"}},
	{Key: FieldWeightUnit, DisplayName: "Weight Unit", Category: CategoryDimensions, Kind: KindEnum, Enum: WeightUnitEnum,
		Synonyms: []string{"Mass Unit"}},

	{Key: FieldAcquisitionDate, DisplayName: "Acquisition Date", Category: CategoryAcquisition, Kind: KindDate,
		Synonyms: []string{"Date Acquired", "Purchase Date", "Date Purchased"}},
	{Key: FieldAcquisitionMethod, DisplayName: "Acquisition Method", Category: CategoryAcquisition, Kind: KindEnum, Enum: AcquisitionMethodEnum,
		Synonyms: []string{"Acquired How", "Source Type", "How Acquired"}},
	{Key: FieldAcquiredFrom, DisplayName: "Acquired From", Category: CategoryAcquisition, Kind: KindText,
		Synonyms: []string{"Seller", "Dealer", "Vendor", "Source"}},
	{Key: FieldCondition, DisplayName: "Condition", Category: CategoryAcquisition, Kind: KindEnum, Enum: ConditionEnum,
		Synonyms: []string{"Preservation", "State of Preservation", "Quality"}},

	{Key: FieldPurchasePrice, DisplayName: "Purchase Price", Category: CategoryFinancial, Kind: KindCurrencyAmount,
		Synonyms: []string{"Price", "Cost", "Price Paid", "Amount Paid"}},
	{Key: FieldEstimatedValue, DisplayName: "Estimated Value", Category: CategoryFinancial, Kind: KindCurrencyAmount,
		Synonyms: []string{"Value", "Valuation", "Market Value", "Appraisal"}},
	{Key: FieldCurrency, DisplayName: "Currency", Category: CategoryFinancial, Kind: KindEnum, Enum: CurrencyEnum,
		Synonyms: []string{"Currency Code"}},

	{Key: FieldTags, DisplayName: "Tags", Category: CategoryMetadata, Kind: KindTags,
		Synonyms: []string{"Keywords", "Labels"}},
	{Key: FieldNotes, DisplayName: "Notes", Category: CategoryMetadata, Kind: KindText,
		Synonyms: []string{"Comments", "Remarks", "Note"}},
	{Key: FieldStorageLocation, DisplayName: "Storage Location", Category: CategoryMetadata, Kind: KindText,
		Synonyms: []string{"Storage", "Drawer", "Cabinet", "Shelf"}},
}

var (
	catalogOnce  sync.Once
	catalogIndex map[FieldKey]int
)

func buildCatalogIndex() {
	catalogIndex = make(map[FieldKey]int, len(catalogFields))
	for i, f := range catalogFields {
		if _, exists := catalogIndex[f.Key]; exists {
			panic(fmt.Sprintf("field already registered: %s", f.Key))
		}
		if f.Kind == KindEnum && f.Enum == nil {
			panic(fmt.Sprintf("enum field without vocabulary: %s", f.Key))
		}
		catalogIndex[f.Key] = i
	}
}

// Fields returns the catalog in declaration order.
// The returned slice is a copy; the catalog itself never changes.
func Fields() []TargetField {
	result := make([]TargetField, len(catalogFields))
	copy(result, catalogFields)
	return result
}

// Field returns a catalog field by key.
// Returns false if not found.
func Field(key FieldKey) (TargetField, bool) {
	catalogOnce.Do(buildCatalogIndex)

	i, ok := catalogIndex[key]
	if !ok {
		return TargetField{}, false
	}
	return catalogFields[i], true
}

// catalogPosition returns a field's declaration index, or -1.
func catalogPosition(key FieldKey) int {
	catalogOnce.Do(buildCatalogIndex)

	if i, ok := catalogIndex[key]; ok {
		return i
	}
	return -1
}

// ByCategory returns the fields of one category in catalog order.
func ByCategory(category Category) []TargetField {
	var result []TargetField
	for _, f := range catalogFields {
		if f.Category == category {
			result = append(result, f)
		}
	}
	return result
}

// Categories returns the categories in the order they first appear in the catalog.
func Categories() []Category {
	seen := make(map[Category]bool)
	var result []Category
	for _, f := range catalogFields {
		if !seen[f.Category] {
			seen[f.Category] = true
			result = append(result, f.Category)
		}
	}
	return result
}

// RequiredFields returns the keys of all required fields.
func RequiredFields() []FieldKey {
	var result []FieldKey
	for _, f := range catalogFields {
		if f.Required {
			result = append(result, f.Key)
		}
	}
	return result
}

// FieldCount returns the number of catalog fields.
func FieldCount() int {
	return len(catalogFields)
}
