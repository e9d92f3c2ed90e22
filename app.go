package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"listing_engine/config"
	"listing_engine/httputil"
	"listing_engine/logging"
	"listing_engine/services"
	"listing_engine/storage"
	"listing_engine/workers"
)

// app holds the wired engine. Optional sources stay nil when their
// configuration is missing, and the services degrade around them.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	primary   *storage.PrimaryStore
	secondary *storage.SecondaryStore
	directory *storage.DirectoryStore

	listings *services.ListingService
	routing  *services.RoutingService
	health   *services.HealthcheckService
	exporter *workers.FeedExporter

	directorySync *workers.DirectorySync

	closers []func()
}

type appOptions struct {
	logFile bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a := &app{cfg: cfg}

	if err := a.setupLogging(opts); err != nil {
		return nil, err
	}
	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.wireServices(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) setupLogging(opts appOptions) error {
	logOpts := logging.Options{Level: logging.ParseLevel(a.cfg.LogLevel)}
	if opts.logFile {
		logOpts.FilePath = a.cfg.LogFile
	}

	if fb := a.cfg.FluentBit; fb.Enabled {
		client, err := logging.NewFluentClient(fb.Host, fb.Port, fb.Tag)
		if err != nil {
			return err
		}
		logOpts.Extra = logging.NewFluentHandler(client, logOpts.Level)
		a.closers = append(a.closers, func() { client.Close() })
	}

	logger, rw, err := logging.Setup(logOpts)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	if rw != nil {
		a.closers = append(a.closers, func() { rw.Close() })
	}
	a.logger = logger.With("component", "main")
	return nil
}

func (a *app) openStores(ctx context.Context) error {
	cfg := a.cfg

	if cfg.Database.URL != "" {
		primary, err := storage.NewPrimaryStore(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect primary store: %w", err)
		}
		a.primary = primary
		a.closers = append(a.closers, primary.Close)
		a.logger.Info("connected to primary store", "dsn", maskConnectionString(cfg.Database.URL))
	} else {
		a.logger.Warn("DATABASE_URL not set, primary listings unavailable")
	}

	if cfg.Supabase.URL != "" {
		clients := httputil.NewClients(&cfg.HTTP)
		a.secondary = storage.NewSecondaryStore(&cfg.Supabase, clients.API)
		a.logger.Info("secondary feed configured", "table", cfg.Supabase.Table)
	} else {
		a.logger.Warn("SUPABASE_URL not set, secondary media enrichment disabled")
	}

	directory, err := storage.NewDirectoryStore(cfg.Directory.DBPath)
	if err != nil {
		return fmt.Errorf("open directory: %w", err)
	}
	a.directory = directory
	a.closers = append(a.closers, func() { directory.Close() })
	return nil
}

func (a *app) wireServices(ctx context.Context) error {
	cfg := a.cfg
	site := cfg.Site()

	// Interfaces are assigned only from non-nil stores so an unconfigured
	// source reaches the services as a nil interface.
	var (
		primary    services.PrimarySource
		agents     services.ListingAgentSource
		openHouses services.OpenHouseSource
		secondary  services.SecondarySource
	)
	if a.primary != nil {
		primary, agents, openHouses = a.primary, a.primary, a.primary
	}
	if a.secondary != nil {
		secondary = a.secondary
	}

	reconciler := services.NewReconciler(secondary, nil, cfg.Engine.EnrichConcurrency)
	a.listings = services.NewListingService(primary, openHouses, secondary, reconciler, services.ListingOptions{
		Site:            site,
		DefaultPageSize: cfg.Engine.DefaultPageSize,
		MaxPageSize:     cfg.Engine.MaxPageSize,
	})

	directory, cache := routingDirectory(a.directory, cfg.Directory.CacheTTL)
	a.routing = services.NewRoutingService(agents, directory, cfg.Leads.FallbackEmail)
	a.directorySync = workers.NewDirectorySync(a.directory, cache, cfg.Directory.ImportFile)

	a.health = services.NewHealthcheckService(5 * time.Second)
	if a.primary != nil {
		a.health.Register("primary", a.primary)
	} else {
		a.health.Register("primary", nil)
	}
	if a.secondary != nil {
		a.health.Register("secondary", a.secondary)
	} else {
		a.health.Register("secondary", nil)
	}
	a.health.Register("directory", a.directory)

	var uploader workers.JSONUploader
	if cfg.S3.Bucket != "" {
		s3, err := storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("create s3 uploader: %w", err)
		}
		uploader = s3
	}
	a.exporter = workers.NewFeedExporter(a.listings, uploader, cfg.Export.Prefix, site)

	a.logger.Info("services initialized", "site", site.ID, "sites_loaded", len(cfg.Sites))
	return nil
}

// routingDirectory puts a TTL cache in front of store unless ttl is zero.
// The returned Invalidator is nil when there is no cache.
func routingDirectory(store *storage.DirectoryStore, ttl time.Duration) (services.Directory, workers.Invalidator) {
	if ttl <= 0 {
		return store, nil
	}
	cached := storage.NewCachedDirectory(store, ttl)
	return cached, cached
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// maskConnectionString masks the password in a connection URL for logging
func maskConnectionString(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		return "****"
	}
	return u.Redacted()
}
