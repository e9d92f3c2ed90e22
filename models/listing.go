package models

import (
	"time"
)

// RawRow is one upstream row as the driver or REST decoder hands it over.
// Values may be nil, strings, numbers, time.Time, or decoded JSON.
type RawRow map[string]any

// Listing is the canonical property record served to callers. It is built
// per request from upstream rows and never persisted by the engine.
type Listing struct {
	ID        string `json:"id"`
	MLSNumber string `json:"mls_number"`
	Source    string `json:"source"` // primary, secondary

	Status       string     `json:"status"`
	ListDate     *time.Time `json:"list_date"`
	CloseDate    *time.Time `json:"close_date"`
	DaysOnMarket *int       `json:"days_on_market"`

	ListPrice *float64 `json:"list_price"`
	SoldPrice *float64 `json:"sold_price"`

	Address      string   `json:"address"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zip_code"`
	Neighborhood *string  `json:"neighborhood"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`

	Bedrooms              *int     `json:"bedrooms"`
	BathroomsTotal        *float64 `json:"bathrooms_total"`
	BathroomsFull         *int     `json:"bathrooms_full"`
	BathroomsHalf         *int     `json:"bathrooms_half"`
	BathroomsThreeQuarter *int     `json:"bathrooms_three_quarter"`
	SquareFeet            *int     `json:"square_feet"`
	LotSizeAcres          *float64 `json:"lot_size_acres"`
	YearBuilt             *int     `json:"year_built"`
	PropertyType          string   `json:"property_type"`

	Description string `json:"description"`

	Photos         []string `json:"photos"`
	VideoURLs      []string `json:"video_urls"`
	VirtualTourURL *string  `json:"virtual_tour_url"`

	ListAgentID    string `json:"list_agent_id,omitempty"`
	ListAgentName  string `json:"list_agent_name,omitempty"`
	CoListAgentID  string `json:"co_list_agent_id,omitempty"`
	BuyerAgentID   string `json:"buyer_agent_id,omitempty"`
	CoBuyerAgentID string `json:"co_buyer_agent_id,omitempty"`

	OpenHouse *OpenHouse `json:"open_house,omitempty"`

	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// OpenHouse is one scheduled showing for a listing.
type OpenHouse struct {
	MLSNumber string    `json:"mls_number"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Remarks   string    `json:"remarks"`
}

// MediaSet is the output of media extraction.
type MediaSet struct {
	Photos         []string
	VideoURLs      []string
	VirtualTourURL *string
}

// Portfolio is an agent's listings split by lifecycle bucket.
type Portfolio struct {
	Active []Listing `json:"active"`
	Sold   []Listing `json:"sold"`
}

// Listing sources
const (
	SourcePrimary   = "primary"
	SourceSecondary = "secondary"
)
