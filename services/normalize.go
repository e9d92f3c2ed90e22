package services

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"listing_engine/models"
)

var (
	mlsMarkerRegex = regexp.MustCompile(`(?i)MLS#\s*(\d+)`)
	// Vendor photo paths embed the listing number, e.g.
	// https://photos.example.com/listings/98765/1.jpg
	vendorPhotoRegex = regexp.MustCompile(`/(?:listings?|mls|property)/(\d{4,})(?:/|[-_.])`)

	descriptionPolicy = bluemonday.StrictPolicy()
)

// NormalizePrimary maps one primary-source row onto the canonical listing.
func NormalizePrimary(row models.RawRow, now time.Time) models.Listing {
	l := models.Listing{
		ID:        asString(row["id"]),
		MLSNumber: asString(row["listing_id"]),
		Source:    models.SourcePrimary,
		Status:    asString(row["status"]),
		ListDate:  asTime(row["list_date"]),
		CloseDate: asTime(row["close_date"]),
		ListPrice: asFloat(row["list_price"]),
		SoldPrice: asFloat(row["sold_price"]),

		Address: asString(row["address"]),
		City:    asString(row["city"]),
		State:   asString(row["state"]),
		ZipCode: asString(row["zip_code"]),

		Latitude:  asFloat(row["latitude"]),
		Longitude: asFloat(row["longitude"]),

		Bedrooms:              asInt(row["bedrooms_total"]),
		BathroomsTotal:        asFloat(row["bathrooms_total"]),
		BathroomsFull:         asInt(row["bathrooms_full"]),
		BathroomsHalf:         asInt(row["bathrooms_half"]),
		BathroomsThreeQuarter: asInt(row["bathrooms_three_quarter"]),
		SquareFeet:            asInt(row["living_area"]),
		LotSizeAcres:          asFloat(row["lot_size_acres"]),
		YearBuilt:             asInt(row["year_built"]),

		Description: cleanDescription(asString(row["public_remarks"])),

		ListAgentID:    asString(row["list_agent_mls_id"]),
		ListAgentName:  asString(row["list_agent_full_name"]),
		CoListAgentID:  asString(row["co_list_agent_mls_id"]),
		BuyerAgentID:   asString(row["buyer_agent_mls_id"]),
		CoBuyerAgentID: asString(row["co_buyer_agent_mls_id"]),

		CreatedAt: asTime(row["created_at"]),
		UpdatedAt: asTime(row["updated_at"]),
	}

	if l.ListPrice == nil {
		l.ListPrice = l.SoldPrice
	}
	if l.Address == "" {
		l.Address = strings.TrimSpace(asString(row["street_number"]) + " " + asString(row["street_name"]))
	}
	l.Neighborhood = firstNonEmpty(asString(row["subdivision_name"]), asString(row["mls_area_minor"]))
	l.PropertyType = asString(row["property_sub_type"])
	if l.PropertyType == "" {
		l.PropertyType = asString(row["property_type"])
	}
	l.DaysOnMarket = DaysOnMarket(l.ListDate, l.CloseDate, now)

	media := ExtractMedia(row["preferred_photo"], row["media"])
	l.Photos = media.Photos
	l.VideoURLs = media.VideoURLs
	l.VirtualTourURL = media.VirtualTourURL
	if tour := TourURL(row["virtual_tour_url"]); tour != nil {
		l.VirtualTourURL = tour
	}

	if l.MLSNumber == "" {
		l.MLSNumber = RecoverMLSNumber(l.Description, l.Photos)
	}
	return l
}

// NormalizeSecondary maps one franchise-feed row onto the canonical listing.
func NormalizeSecondary(row models.RawRow, now time.Time) models.Listing {
	l := models.Listing{
		ID:        asString(row["id"]),
		Source:    models.SourceSecondary,
		Status:    asString(row["status"]),
		ListDate:  asTime(row["list_date"]),
		CloseDate: asTime(row["close_date"]),
		ListPrice: asFloat(row["list_price"]),
		SoldPrice: asFloat(row["sold_price"]),

		Address: asString(row["address"]),
		City:    asString(row["city"]),
		State:   asString(row["state"]),
		ZipCode: asString(row["zip_code"]),

		Bedrooms:       asInt(row["bedrooms"]),
		BathroomsTotal: asFloat(row["bathrooms"]),
		SquareFeet:     asInt(row["square_feet"]),
		YearBuilt:      asInt(row["year_built"]),
		PropertyType:   asString(row["property_type"]),
		Description:    cleanDescription(asString(row["description"])),
		ListAgentName:  asString(row["agent_name"]),

		CreatedAt: asTime(row["created_at"]),
		UpdatedAt: asTime(row["updated_at"]),
	}
	if l.ListPrice == nil {
		l.ListPrice = l.SoldPrice
	}
	if numbers := asStrings(row["mls_numbers"]); len(numbers) > 0 {
		l.MLSNumber = numbers[0]
	}
	l.DaysOnMarket = DaysOnMarket(l.ListDate, l.CloseDate, now)

	media := SecondaryMedia(row)
	l.Photos = media.Photos
	l.VideoURLs = media.VideoURLs
	l.VirtualTourURL = media.VirtualTourURL
	return l
}

// SecondaryMedia extracts media from a franchise-feed row, including its
// dedicated video and tour columns.
func SecondaryMedia(row models.RawRow) models.MediaSet {
	media := ExtractMedia(row["preferred_photo"], row["media"])
	for _, v := range asStrings(row["video_urls"]) {
		if u := normalizeMediaURL(v); u != "" && !slices.Contains(media.VideoURLs, u) {
			media.VideoURLs = append(media.VideoURLs, u)
		}
	}
	if tour := TourURL(row["virtual_tour_url"]); tour != nil {
		media.VirtualTourURL = tour
	}
	return media
}

// DaysOnMarket is whole days from list to close (or now), never negative.
// It is nil without a list date.
func DaysOnMarket(listDate, closeDate *time.Time, now time.Time) *int {
	if listDate == nil {
		return nil
	}
	end := now
	if closeDate != nil {
		end = *closeDate
	}
	days := int(math.Floor(end.Sub(*listDate).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return &days
}

// RecoverMLSNumber is a best-effort fallback for rows without a listing
// number: an "MLS#" marker in the description, then a vendor photo path.
func RecoverMLSNumber(description string, photos []string) string {
	if m := mlsMarkerRegex.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	if len(photos) > 0 {
		if m := vendorPhotoRegex.FindStringSubmatch(photos[0]); m != nil {
			return m[1]
		}
	}
	return ""
}

func cleanDescription(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(descriptionPolicy.Sanitize(s)))
}

// =============================================================================
// coercions
// =============================================================================

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	}
	return ""
}

func asFloat(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		n, ok := numeric(v)
		if !ok {
			return nil
		}
		f = n
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func asInt(v any) *int {
	f := asFloat(v)
	if f == nil {
		return nil
	}
	i := int(math.Round(*f))
	return &i
}

// numeric widens the integer kinds a driver may return (smallint arrives
// as int16) to float64.
func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	}
	return 0, false
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func asTime(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return &t
	case *time.Time:
		return t
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return &parsed
			}
		}
	}
	return nil
}

func asStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var arr []any
		if err := json.Unmarshal([]byte(t), &arr); err == nil {
			return asStrings(arr)
		}
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	}
	return nil
}

func firstNonEmpty(values ...string) *string {
	for _, v := range values {
		if v != "" {
			return &v
		}
	}
	return nil
}
