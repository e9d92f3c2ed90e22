package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"listing_engine/config"
	"listing_engine/models"
	"listing_engine/services"
)

// ListingReader is the read surface of the engine.
type ListingReader interface {
	Search(ctx context.Context, filters models.SearchFilters, sort models.SortKey, page, pageSize int) models.SearchResult
	GetByID(ctx context.Context, id string) *models.Listing
	GetByExternalNumber(ctx context.Context, number string) *models.Listing
	GetByIDs(ctx context.Context, ids []string) []models.Listing
	UpcomingOpenHouses(ctx context.Context) []models.Listing
	AgentPortfolio(ctx context.Context, agentID, soldAgentID, displayName string) models.Portfolio

	Cities(ctx context.Context) []string
	Statuses(ctx context.Context) []string
	Neighborhoods(ctx context.Context, city string) []string
	PropertyTypes() []string
	PropertySubTypes() []string
}

// LeadRouter resolves lead recipients.
type LeadRouter interface {
	Resolve(ctx context.Context, mlsNumber string) models.AgentRouting
}

// HealthChecker reports source health.
type HealthChecker interface {
	Check(ctx context.Context) services.HealthReport
}

type Handler struct {
	listings ListingReader
	routing  LeadRouter
	health   HealthChecker
	site     *config.SiteConfig
}

func NewHandler(listings ListingReader, routing LeadRouter, health HealthChecker, site *config.SiteConfig) *Handler {
	return &Handler{listings: listings, routing: routing, health: health, site: site}
}

// SearchListings handles GET /api/v1/listings
func (h *Handler) SearchListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := &params{q: q}

	filters := models.SearchFilters{
		Status:           parseString(q, "status"),
		PropertyType:     parseString(q, "propertyType"),
		PropertySubType:  parseString(q, "propertySubType"),
		City:             parseString(q, "city"),
		Neighborhood:     parseString(q, "neighborhood"),
		Keyword:          parseString(q, "keyword"),
		MinPrice:         p.Float("minPrice"),
		MaxPrice:         p.Float("maxPrice"),
		MinBeds:          p.Int("minBeds"),
		MaxBeds:          p.Int("maxBeds"),
		MinBaths:         p.Float("minBaths"),
		MaxBaths:         p.Float("maxBaths"),
		MinSqft:          p.Int("minSqft"),
		MaxSqft:          p.Int("maxSqft"),
		ExcludedStatuses: parseStringSlice(q, "excludedStatuses"),
	}
	ourListings := p.Bool("ourListings")

	page, pageSize := 1, 0
	if v := p.Int("page"); v != nil {
		page = *v
	}
	if v := p.Int("pageSize"); v != nil {
		pageSize = *v
	}

	if p.err != nil {
		LoggerFromContext(r.Context()).Warn("invalid search parameters", "error", p.err)
		WriteJSONError(w, http.StatusBadRequest, p.err.Error())
		return
	}
	if ourListings && h.site != nil {
		filters.AgentMLSIDs = h.site.AgentMLSIDs
		filters.AgentNames = h.site.AgentNames
	}

	LoggerFromContext(r.Context()).Debug("search", "filters", filters, "page", page, "page_size", pageSize)

	result := h.listings.Search(r.Context(), filters, models.ParseSortKey(q.Get("sort")), page, pageSize)
	RespondWithJSON(w, http.StatusOK, result)
}

// GetListing handles GET /api/v1/listings/{id}
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l := h.listings.GetByID(r.Context(), id)
	if l == nil {
		WriteJSONError(w, http.StatusNotFound, "listing not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, l)
}

// GetListingByNumber handles GET /api/v1/listings/mls/{number}
func (h *Handler) GetListingByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	l := h.listings.GetByExternalNumber(r.Context(), number)
	if l == nil {
		WriteJSONError(w, http.StatusNotFound, "listing not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, l)
}

type curatedRequest struct {
	IDs []string `json:"ids"`
}

// CuratedListings handles POST /api/v1/listings/curated
func (h *Handler) CuratedListings(w http.ResponseWriter, r *http.Request) {
	var req curatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		LoggerFromContext(r.Context()).Warn("invalid curated request", "error", err)
		WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) > 100 {
		WriteJSONError(w, http.StatusBadRequest, "at most 100 ids per request")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{"listings": h.listings.GetByIDs(r.Context(), req.IDs)})
}

// OpenHouses handles GET /api/v1/open-houses
func (h *Handler) OpenHouses(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]any{"listings": h.listings.UpcomingOpenHouses(r.Context())})
}

// AgentPortfolio handles GET /api/v1/agents/{agentID}/portfolio
func (h *Handler) AgentPortfolio(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	agentID := chi.URLParam(r, "agentID")
	portfolio := h.listings.AgentPortfolio(r.Context(), agentID, parseString(q, "soldAgentId"), parseString(q, "name"))
	RespondWithJSON(w, http.StatusOK, portfolio)
}

// Routing handles GET /api/v1/routing?mls=
func (h *Handler) Routing(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, h.routing.Resolve(r.Context(), r.URL.Query().Get("mls")))
}

// Facet handles GET /api/v1/facets/{facet}
func (h *Handler) Facet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var values []string
	switch chi.URLParam(r, "facet") {
	case "cities":
		values = h.listings.Cities(ctx)
	case "statuses":
		values = h.listings.Statuses(ctx)
	case "neighborhoods":
		values = h.listings.Neighborhoods(ctx, r.URL.Query().Get("city"))
	case "property-types":
		values = h.listings.PropertyTypes()
	case "property-sub-types":
		values = h.listings.PropertySubTypes()
	default:
		WriteJSONError(w, http.StatusNotFound, "unknown facet")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{"values": values})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		RespondWithJSON(w, http.StatusOK, services.HealthReport{Status: "ok"})
		return
	}
	report := h.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	RespondWithJSON(w, status, report)
}
