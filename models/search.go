package models

// SearchFilters is the structured filter set accepted by a listing search.
// Zero values mean "not filtered".
type SearchFilters struct {
	Status          string `json:"status,omitempty"`
	PropertyType    string `json:"property_type,omitempty"`
	PropertySubType string `json:"property_sub_type,omitempty"`
	City            string `json:"city,omitempty"`
	Neighborhood    string `json:"neighborhood,omitempty"`
	Keyword         string `json:"keyword,omitempty"`

	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	MinBeds  *int     `json:"min_beds,omitempty"`
	MaxBeds  *int     `json:"max_beds,omitempty"`
	MinBaths *float64 `json:"min_baths,omitempty"`
	MaxBaths *float64 `json:"max_baths,omitempty"`
	MinSqft  *int     `json:"min_sqft,omitempty"`
	MaxSqft  *int     `json:"max_sqft,omitempty"`

	// "Our Listings": any agent-role column in AgentMLSIDs, or the listing
	// agent name in AgentNames.
	AgentMLSIDs []string `json:"agent_mls_ids,omitempty"`
	AgentNames  []string `json:"agent_names,omitempty"`

	// Site scoping, normally filled from the deployment's site config.
	ExcludedPropertyTypes    []string `json:"excluded_property_types,omitempty"`
	ExcludedPropertySubTypes []string `json:"excluded_property_sub_types,omitempty"`
	AllowedCities            []string `json:"allowed_cities,omitempty"`
	ExcludedStatuses         []string `json:"excluded_statuses,omitempty"`
}

// SortKey names one of the supported result orderings.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceLow  SortKey = "price_low"
	SortPriceHigh SortKey = "price_high"
	SortBedsLow   SortKey = "beds_low"
	SortBedsHigh  SortKey = "beds_high"
)

// ParseSortKey maps a request value onto a SortKey, defaulting to newest.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortPriceLow, SortPriceHigh, SortBedsLow, SortBedsHigh:
		return SortKey(s)
	default:
		return SortNewest
	}
}

// SearchResult is one page of a search.
type SearchResult struct {
	Listings   []Listing `json:"listings"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// PropertyTypes is the fixed enumeration offered by the search form.
var PropertyTypes = []string{
	"Residential",
	"Land",
	"Commercial Sale",
	"Farm",
	"Residential Income",
	"Residential Lease",
}

// PropertySubTypes is the fixed sub-type enumeration offered by the search form.
var PropertySubTypes = []string{
	"Single Family Residence",
	"Condominium",
	"Townhouse",
	"Duplex",
	"Half Duplex",
	"Mobile Home",
	"Ranch",
	"Unimproved Land",
	"Multi Family",
}
