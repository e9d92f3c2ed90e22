package workers

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"listing_engine/config"
	"listing_engine/logging"
	"listing_engine/models"
)

// FeedSource is the part of the listing service the exporter reads.
type FeedSource interface {
	UpcomingOpenHouses(ctx context.Context) []models.Listing
	Search(ctx context.Context, filters models.SearchFilters, sort models.SortKey, page, pageSize int) models.SearchResult
}

// JSONUploader stores a JSON document under a key.
type JSONUploader interface {
	UploadJSON(ctx context.Context, key string, v any) error
}

// Feed is the document written for each export.
type Feed struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Count       int              `json:"count"`
	Listings    []models.Listing `json:"listings"`
}

// FeedExporter publishes the open-house and featured-listing feeds as JSON
// documents in object storage.
type FeedExporter struct {
	source    FeedSource
	uploader  JSONUploader
	prefix    string
	site      *config.SiteConfig
	pageSize  int
	triggerCh chan struct{}
	log       *slog.Logger
	now       func() time.Time
}

// NewFeedExporter builds an exporter. A nil uploader turns every export
// into a logged no-op.
func NewFeedExporter(source FeedSource, uploader JSONUploader, prefix string, site *config.SiteConfig) *FeedExporter {
	return &FeedExporter{
		source:    source,
		uploader:  uploader,
		prefix:    prefix,
		site:      site,
		pageSize:  100,
		triggerCh: make(chan struct{}, 1),
		log:       logging.New("export"),
		now:       time.Now,
	}
}

// Trigger causes the worker to export immediately
func (w *FeedExporter) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run exports whenever Trigger is called, until ctx is done.
func (w *FeedExporter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.log.Info("feed exporter stopping")
			return
		case <-w.triggerCh:
			if err := w.Export(ctx); err != nil {
				w.log.Error("feed export failed", "error", err)
			}
		}
	}
}

// Export writes <prefix>/open-houses.json and, when the site has a team
// configured, <prefix>/featured.json.
func (w *FeedExporter) Export(ctx context.Context) error {
	if w.uploader == nil {
		w.log.Warn("no object storage configured, skipping feed export")
		return nil
	}

	openHouses := w.source.UpcomingOpenHouses(ctx)
	if err := w.upload(ctx, "open-houses.json", openHouses); err != nil {
		return err
	}

	if w.site == nil || (len(w.site.AgentMLSIDs) == 0 && len(w.site.AgentNames) == 0) {
		return nil
	}
	featured := w.source.Search(ctx, models.SearchFilters{
		Status:      "Active",
		AgentMLSIDs: w.site.AgentMLSIDs,
		AgentNames:  w.site.AgentNames,
	}, models.SortNewest, 1, w.pageSize)
	return w.upload(ctx, "featured.json", featured.Listings)
}

func (w *FeedExporter) upload(ctx context.Context, name string, listings []models.Listing) error {
	if listings == nil {
		listings = []models.Listing{}
	}
	key := path.Join(w.prefix, name)
	feed := Feed{GeneratedAt: w.now().UTC(), Count: len(listings), Listings: listings}
	if err := w.uploader.UploadJSON(ctx, key, feed); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	w.log.Info("feed exported", "key", key, "count", feed.Count)
	return nil
}
