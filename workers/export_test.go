package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"listing_engine/config"
	"listing_engine/models"
)

type fakeFeedSource struct {
	openHouses []models.Listing
	featured   []models.Listing
	filters    *models.SearchFilters
}

func (f *fakeFeedSource) UpcomingOpenHouses(context.Context) []models.Listing { return f.openHouses }

func (f *fakeFeedSource) Search(_ context.Context, filters models.SearchFilters, _ models.SortKey, _, _ int) models.SearchResult {
	f.filters = &filters
	return models.SearchResult{Listings: f.featured, Total: len(f.featured)}
}

type fakeUploader struct {
	docs map[string]Feed
	err  error
}

func (u *fakeUploader) UploadJSON(_ context.Context, key string, v any) error {
	if u.err != nil {
		return u.err
	}
	if u.docs == nil {
		u.docs = make(map[string]Feed)
	}
	u.docs[key] = v.(Feed)
	return nil
}

var exportNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestExporter(source FeedSource, uploader JSONUploader, site *config.SiteConfig) *FeedExporter {
	w := NewFeedExporter(source, uploader, "feeds/aspen", site)
	w.now = func() time.Time { return exportNow }
	return w
}

func TestExport_WritesFeeds(t *testing.T) {
	source := &fakeFeedSource{
		openHouses: []models.Listing{{ID: "1"}, {ID: "1"}},
		featured:   []models.Listing{{ID: "9"}},
	}
	uploader := &fakeUploader{}
	site := &config.SiteConfig{AgentMLSIDs: []string{"12345"}}

	if err := newTestExporter(source, uploader, site).Export(context.Background()); err != nil {
		t.Fatalf("export: %v", err)
	}

	want := map[string]Feed{
		"feeds/aspen/open-houses.json": {GeneratedAt: exportNow, Count: 2, Listings: source.openHouses},
		"feeds/aspen/featured.json":    {GeneratedAt: exportNow, Count: 1, Listings: source.featured},
	}
	if diff := cmp.Diff(want, uploader.docs); diff != "" {
		t.Fatalf("uploaded feeds mismatch (-want +got):\n%s", diff)
	}
	if source.filters == nil || source.filters.Status != "Active" || source.filters.AgentMLSIDs[0] != "12345" {
		t.Fatalf("unexpected featured filters %+v", source.filters)
	}
}

func TestExport_NoTeamSkipsFeatured(t *testing.T) {
	source := &fakeFeedSource{}
	uploader := &fakeUploader{}

	if err := newTestExporter(source, uploader, &config.SiteConfig{}).Export(context.Background()); err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(uploader.docs) != 1 || source.filters != nil {
		t.Fatalf("expected only the open-house feed, got %v", uploader.docs)
	}
	if got := uploader.docs["feeds/aspen/open-houses.json"].Listings; got == nil {
		t.Fatalf("empty feed must serialize as an empty list")
	}
}

func TestExport_NoUploaderIsNoop(t *testing.T) {
	source := &fakeFeedSource{}
	if err := newTestExporter(source, nil, nil).Export(context.Background()); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestExport_UploadError(t *testing.T) {
	uploader := &fakeUploader{err: errors.New("access denied")}
	if err := newTestExporter(&fakeFeedSource{}, uploader, nil).Export(context.Background()); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestTrigger_Coalesces(t *testing.T) {
	w := newTestExporter(&fakeFeedSource{}, nil, nil)
	w.Trigger()
	w.Trigger()
	if len(w.triggerCh) != 1 {
		t.Fatalf("expected a single pending trigger, got %d", len(w.triggerCh))
	}
}
