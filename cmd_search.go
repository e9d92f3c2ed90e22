package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"listing_engine/models"
)

var searchFlags struct {
	status       string
	propertyType string
	city         string
	neighborhood string
	keyword      string
	minPrice     float64
	maxPrice     float64
	minBeds      int
	ours         bool
	sort         string
	page         int
	pageSize     int
	jsonOut      bool
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search listings and print one page",
	RunE:  runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchFlags.status, "status", "", "Exact listing status")
	f.StringVar(&searchFlags.propertyType, "type", "", "Property type")
	f.StringVar(&searchFlags.city, "city", "", "City (case-insensitive)")
	f.StringVar(&searchFlags.neighborhood, "neighborhood", "", "Subdivision or MLS area")
	f.StringVar(&searchFlags.keyword, "keyword", "", "MLS number or address fragment")
	f.Float64Var(&searchFlags.minPrice, "min-price", 0, "Minimum list price")
	f.Float64Var(&searchFlags.maxPrice, "max-price", 0, "Maximum list price")
	f.IntVar(&searchFlags.minBeds, "min-beds", 0, "Minimum bedrooms")
	f.BoolVar(&searchFlags.ours, "ours", false, "Only the site team's listings")
	f.StringVar(&searchFlags.sort, "sort", string(models.SortNewest), "newest, price_low, price_high, beds_low, beds_high")
	f.IntVar(&searchFlags.page, "page", 1, "Page number")
	f.IntVar(&searchFlags.pageSize, "page-size", 20, "Results per page")
	f.BoolVar(&searchFlags.jsonOut, "json", false, "Print raw JSON")
}

func runSearch(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	filters := models.SearchFilters{
		Status:       searchFlags.status,
		PropertyType: searchFlags.propertyType,
		City:         searchFlags.city,
		Neighborhood: searchFlags.neighborhood,
		Keyword:      searchFlags.keyword,
	}
	if cmd.Flags().Changed("min-price") {
		filters.MinPrice = &searchFlags.minPrice
	}
	if cmd.Flags().Changed("max-price") {
		filters.MaxPrice = &searchFlags.maxPrice
	}
	if cmd.Flags().Changed("min-beds") {
		filters.MinBeds = &searchFlags.minBeds
	}
	if searchFlags.ours {
		site := a.cfg.Site()
		filters.AgentMLSIDs = site.AgentMLSIDs
		filters.AgentNames = site.AgentNames
	}

	result := a.listings.Search(cmd.Context(), filters, models.ParseSortKey(searchFlags.sort), searchFlags.page, searchFlags.pageSize)

	out := cmd.OutOrStdout()
	if searchFlags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprint(out, renderListings(result.Listings))
	fmt.Fprintf(out, "\nPage %d of %d (%d listings)\n", result.Page, result.TotalPages, result.Total)
	return nil
}

func renderListings(listings []models.Listing) string {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"MLS #", "Status", "Address", "City", "Price", "Beds", "Baths", "Sqft", "Photos"})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
	})
	for _, l := range listings {
		w.AppendRow(table.Row{
			l.MLSNumber,
			l.Status,
			l.Address,
			l.City,
			formatMoney(l.ListPrice),
			formatInt(l.Bedrooms),
			formatFloat(l.BathroomsTotal),
			formatInt(l.SquareFeet),
			len(l.Photos),
		})
	}
	return w.Render() + "\n"
}

func formatMoney(v *float64) string {
	if v == nil {
		return "-"
	}
	return "$" + strconv.FormatFloat(*v, 'f', 0, 64)
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
