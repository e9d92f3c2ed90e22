package storage

import (
	"listing_engine/models"
	"listing_engine/storage/query"
)

// Primary listing table columns.
const (
	colID              = "id"
	colListingID       = "listing_id"
	colStatus          = "status"
	colListDate        = "list_date"
	colListPrice       = "list_price"
	colAddress         = "address"
	colCity            = "city"
	colSubdivision     = "subdivision_name"
	colAreaMinor       = "mls_area_minor"
	colBedrooms        = "bedrooms_total"
	colBathrooms       = "bathrooms_total"
	colLivingArea      = "living_area"
	colPropertyType    = "property_type"
	colPropertySubType = "property_sub_type"
	colListAgentID     = "list_agent_mls_id"
	colCoListAgentID   = "co_list_agent_mls_id"
	colBuyerAgentID    = "buyer_agent_mls_id"
	colCoBuyerAgentID  = "co_buyer_agent_mls_id"
	colListAgentName   = "list_agent_full_name"
)

// AgentRoleColumns are the four agent-role columns of a listing row.
var AgentRoleColumns = []string{colListAgentID, colCoListAgentID, colBuyerAgentID, colCoBuyerAgentID}

// SearchPredicates translates filters into predicates over the listing
// table. Every returned predicate applies (AND).
func SearchPredicates(f models.SearchFilters) []query.Predicate {
	var preds []query.Predicate

	if f.Status != "" {
		preds = append(preds, query.Eq(colStatus, f.Status))
	}
	if f.PropertyType != "" {
		preds = append(preds, query.Eq(colPropertyType, f.PropertyType))
	}
	if f.PropertySubType != "" {
		preds = append(preds, query.Eq(colPropertySubType, f.PropertySubType))
	}
	if f.City != "" {
		preds = append(preds, query.ILike(colCity, f.City))
	}
	if f.Neighborhood != "" {
		preds = append(preds, query.Or(
			query.ILike(colSubdivision, f.Neighborhood),
			query.ILike(colAreaMinor, f.Neighborhood),
		))
	}

	preds = appendRange(preds, colListPrice, f.MinPrice, f.MaxPrice)
	preds = appendRange(preds, colBedrooms, f.MinBeds, f.MaxBeds)
	preds = appendRange(preds, colBathrooms, f.MinBaths, f.MaxBaths)
	preds = appendRange(preds, colLivingArea, f.MinSqft, f.MaxSqft)

	if f.Keyword != "" {
		preds = append(preds, query.Or(
			query.ILike(colListingID, f.Keyword),
			query.ILike(colAddress, f.Keyword),
		))
	}

	if len(f.AgentMLSIDs) > 0 || len(f.AgentNames) > 0 {
		team := make([]query.Predicate, 0, len(AgentRoleColumns)+1)
		for _, col := range AgentRoleColumns {
			team = append(team, query.In(col, f.AgentMLSIDs))
		}
		team = append(team, query.In(colListAgentName, f.AgentNames))
		preds = append(preds, query.Or(team...))
	}

	// Exclusion lists come from site config; types are never null upstream
	// so plain NOT IN is enough there, status needs the null carve-out.
	if p := query.NotIn(colPropertyType, f.ExcludedPropertyTypes); p != nil {
		preds = append(preds, p)
	}
	if p := query.NotIn(colPropertySubType, f.ExcludedPropertySubTypes); p != nil {
		preds = append(preds, p)
	}
	if p := query.In(colCity, f.AllowedCities); p != nil {
		preds = append(preds, p)
	}
	if p := query.NotInNullable(colStatus, f.ExcludedStatuses); p != nil {
		preds = append(preds, p)
	}

	return preds
}

func appendRange[T int | float64](preds []query.Predicate, col string, lo, hi *T) []query.Predicate {
	if lo != nil {
		preds = append(preds, query.Gte(col, *lo))
	}
	if hi != nil {
		preds = append(preds, query.Lte(col, *hi))
	}
	return preds
}

// OrderBy maps a sort key onto an ORDER BY clause. Nulls always sort last.
func OrderBy(s models.SortKey) string {
	switch s {
	case models.SortPriceLow:
		return "ORDER BY " + colListPrice + " ASC NULLS LAST"
	case models.SortPriceHigh:
		return "ORDER BY " + colListPrice + " DESC NULLS LAST"
	case models.SortBedsLow:
		return "ORDER BY " + colBedrooms + " ASC NULLS LAST"
	case models.SortBedsHigh:
		return "ORDER BY " + colBedrooms + " DESC NULLS LAST"
	default:
		return "ORDER BY " + colListDate + " DESC NULLS LAST"
	}
}
