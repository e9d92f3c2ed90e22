package services

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"listing_engine/config"
	"listing_engine/logging"
	"listing_engine/models"
)

// Status buckets for agent portfolios.
var (
	ActiveStatuses = []string{"Active", "Active Under Contract", "Pending", "Coming Soon"}
	SoldStatuses   = []string{"Closed"}
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListingOptions tunes a ListingService.
type ListingOptions struct {
	Site            *config.SiteConfig
	DefaultPageSize int
	MaxPageSize     int
}

// ListingService answers every read query of the engine: search, single
// lookups, curated lists, open houses, agent portfolios and facets. All
// methods degrade to empty or nil results on source failure.
type ListingService struct {
	primary    PrimarySource
	openHouses OpenHouseSource
	secondary  SecondarySource
	reconciler *Reconciler
	site       *config.SiteConfig

	pageSize    int
	maxPageSize int

	log *slog.Logger
	now func() time.Time
}

func NewListingService(primary PrimarySource, openHouses OpenHouseSource, secondary SecondarySource, reconciler *Reconciler, opts ListingOptions) *ListingService {
	if reconciler == nil {
		reconciler = NewReconciler(secondary, nil, 1)
	}
	s := &ListingService{
		primary:     primary,
		openHouses:  openHouses,
		secondary:   secondary,
		reconciler:  reconciler,
		site:        opts.Site,
		pageSize:    opts.DefaultPageSize,
		maxPageSize: opts.MaxPageSize,
		log:         logging.New("listings"),
		now:         time.Now,
	}
	if s.pageSize < 1 {
		s.pageSize = defaultPageSize
	}
	if s.maxPageSize < s.pageSize {
		s.maxPageSize = maxPageSize
	}
	return s
}

// =============================================================================
// Search
// =============================================================================

// Search returns one page of normalized listings for filters. Site scoping
// from the deployment config is always applied.
func (s *ListingService) Search(ctx context.Context, filters models.SearchFilters, sort models.SortKey, page, pageSize int) models.SearchResult {
	page, pageSize = s.pageBounds(page, pageSize)
	result := models.SearchResult{Listings: []models.Listing{}, Page: page, PageSize: pageSize}

	if s.primary == nil {
		s.log.Error("search skipped: primary source not configured")
		return result
	}

	rows, total, err := s.primary.Search(ctx, s.scope(filters), sort, pageSize, (page-1)*pageSize)
	if err != nil {
		s.log.Error("search failed", "error", err, "page", page)
		return result
	}

	now := s.now()
	for _, row := range DedupeRows(rows) {
		result.Listings = append(result.Listings, NormalizePrimary(row, now))
	}
	result.Total = total
	result.TotalPages = TotalPages(total, pageSize)
	return result
}

// TotalPages is ceil(total / pageSize).
func TotalPages(total, pageSize int) int {
	if pageSize < 1 || total < 1 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

func (s *ListingService) pageBounds(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.pageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	return page, pageSize
}

// scope adds the site's exclusion and allow lists to filters.
func (s *ListingService) scope(f models.SearchFilters) models.SearchFilters {
	if s.site == nil {
		return f
	}
	f.ExcludedPropertyTypes = append(slices.Clone(f.ExcludedPropertyTypes), s.site.ExcludedPropertyTypes...)
	f.ExcludedPropertySubTypes = append(slices.Clone(f.ExcludedPropertySubTypes), s.site.ExcludedPropertySubTypes...)
	if len(f.AllowedCities) == 0 {
		f.AllowedCities = s.site.AllowedCities
	}
	return f
}

// =============================================================================
// Single lookups
// =============================================================================

// GetByID returns the enriched listing with primary key id, or nil.
func (s *ListingService) GetByID(ctx context.Context, id string) *models.Listing {
	if s.primary == nil || id == "" {
		return nil
	}
	row, err := s.primary.GetByID(ctx, id)
	if err != nil {
		s.log.Error("get by id failed", "id", id, "error", err)
		return nil
	}
	if row == nil {
		return nil
	}
	l := s.reconciler.Enrich(ctx, NormalizePrimary(row, s.now()))
	return &l
}

// GetByExternalNumber returns the enriched listing for an MLS number, or
// nil. The primary row and the secondary match are fetched concurrently.
func (s *ListingService) GetByExternalNumber(ctx context.Context, number string) *models.Listing {
	number = strings.TrimSpace(number)
	if s.primary == nil || number == "" {
		return nil
	}

	var (
		row   models.RawRow
		media *models.MediaSet
		g     errgroup.Group
	)
	g.Go(func() error {
		var err error
		row, err = s.primary.GetByMLSNumber(ctx, number)
		if err != nil {
			s.log.Error("get by mls number failed", "mls", number, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		media = s.reconciler.lookupMedia(ctx, number)
		return nil
	})
	g.Wait()

	if row == nil {
		return nil
	}
	l := NormalizePrimary(row, s.now())
	if media != nil {
		OverlayMedia(&l, *media)
	}
	return &l
}

// GetByIDs returns enriched listings for a curated list of primary keys in
// the order given. Unknown IDs are skipped.
func (s *ListingService) GetByIDs(ctx context.Context, ids []string) []models.Listing {
	if s.primary == nil || len(ids) == 0 {
		return []models.Listing{}
	}
	rows, err := s.primary.GetByIDs(ctx, ids)
	if err != nil {
		s.log.Error("get by ids failed", "count", len(ids), "error", err)
		return []models.Listing{}
	}

	now := s.now()
	byID := make(map[string]models.Listing, len(rows))
	for _, row := range rows {
		l := NormalizePrimary(row, now)
		byID[l.ID] = l
	}
	ordered := make([]models.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			ordered = append(ordered, l)
			delete(byID, id)
		}
	}
	return s.reconciler.EnrichAll(ctx, ordered)
}

// =============================================================================
// Open houses
// =============================================================================

// UpcomingOpenHouses returns one listing per upcoming open house, so a
// listing with several dates appears several times.
func (s *ListingService) UpcomingOpenHouses(ctx context.Context) []models.Listing {
	out := []models.Listing{}
	if s.primary == nil || s.openHouses == nil {
		return out
	}
	now := s.now()
	houses, err := s.openHouses.UpcomingOpenHouses(ctx, now)
	if err != nil {
		s.log.Error("open houses failed", "error", err)
		return out
	}
	if len(houses) == 0 {
		return out
	}

	numbers := make([]string, 0, len(houses))
	for _, oh := range houses {
		if oh.MLSNumber != "" && !slices.Contains(numbers, oh.MLSNumber) {
			numbers = append(numbers, oh.MLSNumber)
		}
	}
	rows, err := s.primary.GetByMLSNumbers(ctx, numbers)
	if err != nil {
		s.log.Error("open house listings failed", "count", len(numbers), "error", err)
		return out
	}
	byNumber := make(map[string]models.Listing, len(rows))
	for _, row := range rows {
		l := NormalizePrimary(row, now)
		if _, ok := byNumber[l.MLSNumber]; !ok {
			byNumber[l.MLSNumber] = l
		}
	}

	for _, oh := range houses {
		l, ok := byNumber[oh.MLSNumber]
		if !ok {
			s.log.Debug("open house without listing", "mls", oh.MLSNumber)
			continue
		}
		event := oh
		l.OpenHouse = &event
		out = append(out, l)
	}
	return out
}

// =============================================================================
// Agent portfolio
// =============================================================================

// AgentPortfolio returns an agent's active and sold listings from both
// sources, merged per bucket. soldAgentID overrides agentID for the sold
// bucket; displayName keys the secondary source.
func (s *ListingService) AgentPortfolio(ctx context.Context, agentID, soldAgentID, displayName string) models.Portfolio {
	if soldAgentID == "" {
		soldAgentID = agentID
	}

	var (
		primaryRows   []models.RawRow
		secondaryRows []models.RawRow
		g             errgroup.Group
	)
	if s.primary != nil && agentID != "" {
		g.Go(func() error {
			ids := []string{agentID}
			if soldAgentID != agentID {
				ids = append(ids, soldAgentID)
			}
			statuses := append(slices.Clone(ActiveStatuses), SoldStatuses...)
			rows, err := s.primary.GetAgentListings(ctx, ids, statuses)
			if err != nil {
				s.log.Error("agent listings failed", "agent", agentID, "error", err)
				return nil
			}
			primaryRows = rows
			return nil
		})
	}
	if s.secondary != nil && displayName != "" {
		g.Go(func() error {
			rows, err := s.secondary.FindByAgentName(ctx, displayName)
			if err != nil {
				s.log.Warn("secondary portfolio failed", "agent", displayName, "error", err)
				return nil
			}
			secondaryRows = rows
			return nil
		})
	}
	g.Wait()

	now := s.now()
	var primaryActive, primarySold, secondaryActive, secondarySold []models.Listing
	for _, row := range primaryRows {
		l := NormalizePrimary(row, now)
		switch {
		case slices.Contains(SoldStatuses, l.Status) && hasAgent(&l, soldAgentID):
			primarySold = append(primarySold, l)
		case slices.Contains(ActiveStatuses, l.Status) && hasAgent(&l, agentID):
			primaryActive = append(primaryActive, l)
		}
	}
	for _, row := range secondaryRows {
		l := NormalizeSecondary(row, now)
		if isSecondarySold(l.Status) {
			secondarySold = append(secondarySold, l)
		} else {
			secondaryActive = append(secondaryActive, l)
		}
	}

	return models.Portfolio{
		Active: s.reconciler.MergePortfolio(primaryActive, secondaryActive),
		Sold:   s.reconciler.MergePortfolio(primarySold, secondarySold),
	}
}

func hasAgent(l *models.Listing, id string) bool {
	return id != "" && (l.ListAgentID == id || l.CoListAgentID == id || l.BuyerAgentID == id || l.CoBuyerAgentID == id)
}

func isSecondarySold(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "sold", "closed":
		return true
	}
	return false
}

// =============================================================================
// Facets
// =============================================================================

// Cities lists distinct cities, limited to the site's allow-list.
func (s *ListingService) Cities(ctx context.Context) []string {
	if s.primary == nil {
		return []string{}
	}
	var allowed []string
	if s.site != nil {
		allowed = s.site.AllowedCities
	}
	return s.facet("cities", func() ([]string, error) { return s.primary.DistinctCities(ctx, allowed) })
}

func (s *ListingService) Statuses(ctx context.Context) []string {
	if s.primary == nil {
		return []string{}
	}
	return s.facet("statuses", func() ([]string, error) { return s.primary.DistinctStatuses(ctx) })
}

// Neighborhoods lists distinct neighborhoods, optionally within one city.
func (s *ListingService) Neighborhoods(ctx context.Context, city string) []string {
	if s.primary == nil {
		return []string{}
	}
	return s.facet("neighborhoods", func() ([]string, error) { return s.primary.DistinctNeighborhoods(ctx, city) })
}

// PropertyTypes is the fixed type enumeration minus the site's exclusions.
func (s *ListingService) PropertyTypes() []string {
	var excluded []string
	if s.site != nil {
		excluded = s.site.ExcludedPropertyTypes
	}
	return without(models.PropertyTypes, excluded)
}

// PropertySubTypes is the fixed sub-type enumeration minus the site's exclusions.
func (s *ListingService) PropertySubTypes() []string {
	var excluded []string
	if s.site != nil {
		excluded = s.site.ExcludedPropertySubTypes
	}
	return without(models.PropertySubTypes, excluded)
}

func (s *ListingService) facet(name string, fetch func() ([]string, error)) []string {
	values, err := fetch()
	if err != nil {
		s.log.Error("facet failed", "facet", name, "error", err)
		return []string{}
	}
	if values == nil {
		return []string{}
	}
	return values
}

func without(all, excluded []string) []string {
	out := make([]string, 0, len(all))
	for _, v := range all {
		if !slices.Contains(excluded, v) {
			out = append(out, v)
		}
	}
	return out
}
