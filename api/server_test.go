package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"listing_engine/config"
	"listing_engine/models"
	"listing_engine/services"
)

type fakeListings struct {
	filters  models.SearchFilters
	sort     models.SortKey
	page     int
	pageSize int
	ids      []string
	agent    [3]string
	byID     map[string]*models.Listing
}

func (f *fakeListings) Search(_ context.Context, filters models.SearchFilters, sort models.SortKey, page, pageSize int) models.SearchResult {
	f.filters, f.sort, f.page, f.pageSize = filters, sort, page, pageSize
	return models.SearchResult{Listings: []models.Listing{{ID: "1"}}, Total: 45, Page: page, PageSize: 20, TotalPages: 3}
}

func (f *fakeListings) GetByID(_ context.Context, id string) *models.Listing { return f.byID[id] }

func (f *fakeListings) GetByExternalNumber(_ context.Context, number string) *models.Listing {
	for _, l := range f.byID {
		if l.MLSNumber == number {
			return l
		}
	}
	return nil
}

func (f *fakeListings) GetByIDs(_ context.Context, ids []string) []models.Listing {
	f.ids = ids
	return []models.Listing{{ID: ids[0]}}
}

func (f *fakeListings) UpcomingOpenHouses(context.Context) []models.Listing {
	return []models.Listing{{ID: "1", OpenHouse: &models.OpenHouse{StartTime: "10:00"}}}
}

func (f *fakeListings) AgentPortfolio(_ context.Context, agentID, soldAgentID, name string) models.Portfolio {
	f.agent = [3]string{agentID, soldAgentID, name}
	return models.Portfolio{Active: []models.Listing{{ID: "a"}}, Sold: []models.Listing{}}
}

func (f *fakeListings) Cities(context.Context) []string { return []string{"Aspen"} }
func (f *fakeListings) Statuses(context.Context) []string { return []string{"Active"} }
func (f *fakeListings) Neighborhoods(_ context.Context, city string) []string {
	return []string{"in " + city}
}
func (f *fakeListings) PropertyTypes() []string { return []string{"Residential"} }
func (f *fakeListings) PropertySubTypes() []string { return []string{"Condominium"} }

type fakeRouter struct{ got string }

func (f *fakeRouter) Resolve(_ context.Context, mls string) models.AgentRouting {
	f.got = mls
	return models.AgentRouting{AgentEmail: "lead@example.com", AgentName: "Lead", IsOwnListing: true}
}

type fakeHealth struct{ report services.HealthReport }

func (f fakeHealth) Check(context.Context) services.HealthReport { return f.report }

func newTestServer(t *testing.T, listings *fakeListings, router *fakeRouter, health HealthChecker) *httptest.Server {
	t.Helper()
	site := &config.SiteConfig{AgentMLSIDs: []string{"12345"}, AgentNames: []string{"Jane Doe"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewRouter(NewHandler(listings, router, health, site), logger))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestSearchListings_ParsesFilters(t *testing.T) {
	listings := &fakeListings{}
	srv := newTestServer(t, listings, &fakeRouter{}, nil)

	var result models.SearchResult
	resp := getJSON(t, srv.URL+"/api/v1/listings?city=Aspen&minPrice=500000&maxBeds=4&minBaths=2.5"+
		"&excludedStatuses=Closed,Expired&ourListings=true&sort=price_low&page=2&pageSize=20&keyword=Main", &result)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	minPrice, maxBeds, minBaths := 500000.0, 4, 2.5
	want := models.SearchFilters{
		City:             "Aspen",
		Keyword:          "Main",
		MinPrice:         &minPrice,
		MaxBeds:          &maxBeds,
		MinBaths:         &minBaths,
		ExcludedStatuses: []string{"Closed", "Expired"},
		AgentMLSIDs:      []string{"12345"},
		AgentNames:       []string{"Jane Doe"},
	}
	if diff := cmp.Diff(want, listings.filters); diff != "" {
		t.Fatalf("filters mismatch (-want +got):\n%s", diff)
	}
	if listings.sort != models.SortPriceLow || listings.page != 2 || listings.pageSize != 20 {
		t.Fatalf("unexpected sort/page %s %d %d", listings.sort, listings.page, listings.pageSize)
	}
	if result.TotalPages != 3 || len(result.Listings) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := uuid.Parse(resp.Header.Get("X-Trace-ID")); err != nil {
		t.Fatalf("expected generated trace id, got %q", resp.Header.Get("X-Trace-ID"))
	}
}

func TestSearchListings_Defaults(t *testing.T) {
	listings := &fakeListings{}
	srv := newTestServer(t, listings, &fakeRouter{}, nil)

	getJSON(t, srv.URL+"/api/v1/listings?sort=bogus", nil)
	if listings.sort != models.SortNewest || listings.page != 1 || listings.pageSize != 0 {
		t.Fatalf("unexpected defaults %s %d %d", listings.sort, listings.page, listings.pageSize)
	}
	if listings.filters.AgentMLSIDs != nil {
		t.Fatalf("team filter must be opt-in")
	}
}

func TestSearchListings_MalformedParams(t *testing.T) {
	tests := []string{
		"minPrice=cheap",
		"maxBeds=3.5",
		"minBaths=NaN",
		"page=two",
		"pageSize=-x",
		"ourListings=maybe",
	}
	for _, query := range tests {
		t.Run(query, func(t *testing.T) {
			listings := &fakeListings{}
			srv := newTestServer(t, listings, &fakeRouter{}, nil)

			var body map[string]string
			resp := getJSON(t, srv.URL+"/api/v1/listings?"+query, &body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			if !strings.HasPrefix(body["error"], "invalid ") {
				t.Fatalf("unexpected error body %v", body)
			}
			if listings.page != 0 {
				t.Fatalf("search must not run on malformed input")
			}
		})
	}
}

func TestGetListing(t *testing.T) {
	listings := &fakeListings{byID: map[string]*models.Listing{"42": {ID: "42", MLSNumber: "98765"}}}
	srv := newTestServer(t, listings, &fakeRouter{}, nil)

	var l models.Listing
	if resp := getJSON(t, srv.URL+"/api/v1/listings/42", &l); resp.StatusCode != http.StatusOK || l.ID != "42" {
		t.Fatalf("unexpected response %d %+v", resp.StatusCode, l)
	}
	if resp := getJSON(t, srv.URL+"/api/v1/listings/mls/98765", &l); resp.StatusCode != http.StatusOK || l.MLSNumber != "98765" {
		t.Fatalf("unexpected response %d %+v", resp.StatusCode, l)
	}
	if resp := getJSON(t, srv.URL+"/api/v1/listings/404", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCuratedListings(t *testing.T) {
	listings := &fakeListings{}
	srv := newTestServer(t, listings, &fakeRouter{}, nil)

	resp, err := http.Post(srv.URL+"/api/v1/listings/curated", "application/json", bytes.NewBufferString(`{"ids":["7","3"]}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if diff := cmp.Diff([]string{"7", "3"}, listings.ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	resp, err = http.Post(srv.URL+"/api/v1/listings/curated", "application/json", strings.NewReader(`not json`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAgentPortfolioAndRouting(t *testing.T) {
	listings := &fakeListings{}
	router := &fakeRouter{}
	srv := newTestServer(t, listings, router, nil)

	var p models.Portfolio
	getJSON(t, srv.URL+"/api/v1/agents/12345/portfolio?soldAgentId=67890&name=Jane%20Doe", &p)
	if listings.agent != [3]string{"12345", "67890", "Jane Doe"} {
		t.Fatalf("unexpected portfolio args %v", listings.agent)
	}
	if len(p.Active) != 1 {
		t.Fatalf("unexpected portfolio %+v", p)
	}

	var routing models.AgentRouting
	getJSON(t, srv.URL+"/api/v1/routing?mls=98765", &routing)
	if router.got != "98765" || !routing.IsOwnListing {
		t.Fatalf("unexpected routing %q %+v", router.got, routing)
	}
}

func TestFacets(t *testing.T) {
	srv := newTestServer(t, &fakeListings{}, &fakeRouter{}, nil)

	tests := map[string][]string{
		"cities":                    {"Aspen"},
		"statuses":                  {"Active"},
		"neighborhoods?city=Basalt": {"in Basalt"},
		"property-types":            {"Residential"},
		"property-sub-types":        {"Condominium"},
	}
	for path, want := range tests {
		var body struct {
			Values []string `json:"values"`
		}
		getJSON(t, srv.URL+"/api/v1/facets/"+path, &body)
		if diff := cmp.Diff(want, body.Values); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", path, diff)
		}
	}
	if resp := getJSON(t, srv.URL+"/api/v1/facets/colors", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown facet, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	degraded := fakeHealth{report: services.HealthReport{Status: "degraded", Sources: map[string]string{"primary": "error: down"}}}
	srv := newTestServer(t, &fakeListings{}, &fakeRouter{}, degraded)

	if resp := getJSON(t, srv.URL+"/health", nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestLoggerMiddleware_KeepsValidTraceID(t *testing.T) {
	srv := newTestServer(t, &fakeListings{}, &fakeRouter{}, nil)
	traceID := uuid.New().String()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	req.Header.Set("X-Trace-ID", traceID)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Trace-ID") != traceID {
		t.Fatalf("expected trace id %s echoed, got %s", traceID, resp.Header.Get("X-Trace-ID"))
	}
}
