package domain

import "strings"

// Category is the closed facility classification. Every provider type string
// maps into this enumeration at normalization; nothing downstream handles
// provider-native strings.
type Category string

const (
	// Basic infrastructure.
	CategoryRestroom        Category = "restroom"
	CategoryWaterFountain   Category = "water_fountain"
	CategoryWifi            Category = "wifi"
	CategoryChargingStation Category = "charging_station"
	CategoryATM             Category = "atm"
	CategoryPhoneBooth      Category = "phone_booth"
	CategoryBench           Category = "bench"
	CategoryHandwashing     Category = "handwashing"
	CategoryTransit         Category = "transit"
	CategoryLibrary         Category = "library"

	// HRSA health centers.
	CategoryHealthCenter              Category = "health_center"
	CategoryCommunityHealthCenter     Category = "community_health_center"
	CategoryMigrantHealthCenter       Category = "migrant_health_center"
	CategoryHomelessHealthCenter      Category = "homeless_health_center"
	CategoryPublicHousingHealthCenter Category = "public_housing_health_center"
	CategorySchoolBasedHealthCenter   Category = "school_based_health_center"
	CategoryFQHC                      Category = "federally_qualified_health_center"

	// VA facilities.
	CategoryVAFacility         Category = "va_facility"
	CategoryVAMedicalCenter    Category = "va_medical_center"
	CategoryVAOutpatientClinic Category = "va_outpatient_clinic"
	CategoryVAVetCenter        Category = "va_vet_center"
	CategoryVARegionalOffice   Category = "va_regional_office"
	CategoryVACemetery         Category = "va_cemetery"

	// USDA offices.
	CategoryUSDAFacility           Category = "usda_facility"
	CategoryUSDARuralDevelopment   Category = "usda_rural_development_office"
	CategoryUSDASNAPOffice         Category = "usda_snap_office"
	CategoryUSDAFarmServiceCenter  Category = "usda_farm_service_center"
	CategoryUSDAExtensionOffice    Category = "usda_extension_office"
	CategoryUSDAWICOffice          Category = "usda_wic_office"

	// Essential services.
	CategoryEmergencyShelter    Category = "emergency_shelter"
	CategoryFoodAssistance      Category = "food_assistance"
	CategoryMedicalClinic       Category = "medical_clinic"
	CategoryMentalHealthService Category = "mental_health_service"

	// CategoryUnknown is the reserved fallback for provider types with no
	// mapping entry. Such records are kept, not dropped.
	CategoryUnknown Category = "unknown"
)

// categoryTables maps each provider's native type vocabulary to canonical
// categories. The bundled dataset carries legacy aliases ("charging",
// "water", "food") from earlier dataset revisions.
var categoryTables = map[Provider]map[string]Category{
	ProviderBundled: {
		"restroom":         CategoryRestroom,
		"water_fountain":   CategoryWaterFountain,
		"water":            CategoryWaterFountain,
		"wifi":             CategoryWifi,
		"charging_station": CategoryChargingStation,
		"charging":         CategoryChargingStation,
		"atm":              CategoryATM,
		"phone_booth":      CategoryPhoneBooth,
		"bench":            CategoryBench,
		"handwashing":      CategoryHandwashing,
		"transit":          CategoryTransit,
		"library":          CategoryLibrary,
		"shelter":          CategoryEmergencyShelter,
		"free_food":        CategoryFoodAssistance,
		"food":             CategoryFoodAssistance,
		"clinic":           CategoryMedicalClinic,
		"medical":          CategoryMedicalClinic,
		"mental_health":    CategoryMentalHealthService,
	},
	ProviderHRSA: {
		"health_center":                     CategoryHealthCenter,
		"community_health_center":           CategoryCommunityHealthCenter,
		"migrant_health_center":             CategoryMigrantHealthCenter,
		"homeless_health_center":            CategoryHomelessHealthCenter,
		"public_housing_health_center":      CategoryPublicHousingHealthCenter,
		"school_based_health_center":        CategorySchoolBasedHealthCenter,
		"federally_qualified_health_center": CategoryFQHC,
	},
	ProviderVA: {
		"va_facility":          CategoryVAFacility,
		"va_medical_center":    CategoryVAMedicalCenter,
		"va_outpatient_clinic": CategoryVAOutpatientClinic,
		"va_vet_center":        CategoryVAVetCenter,
		"va_regional_office":   CategoryVARegionalOffice,
		"va_cemetery":          CategoryVACemetery,
	},
	ProviderUSDA: {
		"usda_facility":                 CategoryUSDAFacility,
		"rural_development":             CategoryUSDARuralDevelopment,
		"usda_rural_development_office": CategoryUSDARuralDevelopment,
		"snap":                          CategoryUSDASNAPOffice,
		"usda_snap_office":              CategoryUSDASNAPOffice,
		"fsa":                           CategoryUSDAFarmServiceCenter,
		"usda_farm_service_center":      CategoryUSDAFarmServiceCenter,
		"extension":                     CategoryUSDAExtensionOffice,
		"usda_extension_office":         CategoryUSDAExtensionOffice,
		"wic":                           CategoryUSDAWICOffice,
		"usda_wic_office":               CategoryUSDAWICOffice,
	},
}

// canonical is the set of valid Category values, used to validate caller
// input (query filters, submissions).
var canonical = func() map[Category]bool {
	set := make(map[Category]bool)
	for _, table := range categoryTables {
		for _, c := range table {
			set[c] = true
		}
	}
	set[CategoryUnknown] = true
	return set
}()

// CategoryFor resolves a provider-native type string to its canonical
// category. The second return reports whether a mapping entry existed;
// unmapped strings resolve to CategoryUnknown.
func CategoryFor(provider Provider, nativeType string) (Category, bool) {
	table, ok := categoryTables[provider]
	if !ok {
		return CategoryUnknown, false
	}
	c, ok := table[nativeType]
	if !ok {
		return CategoryUnknown, false
	}
	return c, true
}

// ParseCategory validates a caller-supplied category string.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, canonical[c]
}

// ClassifyVAFacility resolves the VA API's facility_type and classification
// strings into the native type vocabulary for ProviderVA. The API's
// classification text is free-form, so matching is by containment.
func ClassifyVAFacility(facilityType, classification string) string {
	ft := strings.ToLower(facilityType)
	cl := strings.ToLower(classification)
	switch {
	case strings.Contains(cl, "medical center") || strings.Contains(cl, "vamc"):
		return "va_medical_center"
	case strings.Contains(ft, "outpatient") || strings.Contains(cl, "clinic"):
		return "va_outpatient_clinic"
	case strings.Contains(ft, "vet_center") || strings.Contains(cl, "vet center"):
		return "va_vet_center"
	case strings.Contains(ft, "benefits") || strings.Contains(cl, "regional office"):
		return "va_regional_office"
	case strings.Contains(ft, "cemetery") || strings.Contains(cl, "cemetery"):
		return "va_cemetery"
	default:
		return "va_facility"
	}
}
