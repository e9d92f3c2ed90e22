package workers

import (
	"context"
	"fmt"
	"log/slog"

	"listing_engine/logging"
)

// DirectoryImporter loads team members from a file.
type DirectoryImporter interface {
	ImportFile(ctx context.Context, path string) (int, error)
}

// Invalidator drops a cached copy of the directory.
type Invalidator interface {
	Invalidate()
}

// DirectorySync re-imports the team directory file into the running
// process and drops the routing cache so the next lead sees the new data.
type DirectorySync struct {
	importer  DirectoryImporter
	cache     Invalidator
	path      string
	triggerCh chan struct{}
	log       *slog.Logger
}

// NewDirectorySync builds a sync worker. cache may be nil when routing
// reads the store directly.
func NewDirectorySync(importer DirectoryImporter, cache Invalidator, path string) *DirectorySync {
	return &DirectorySync{
		importer:  importer,
		cache:     cache,
		path:      path,
		triggerCh: make(chan struct{}, 1),
		log:       logging.New("directory_sync"),
	}
}

// Trigger causes the worker to sync immediately
func (w *DirectorySync) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

func (w *DirectorySync) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.log.Info("directory sync stopping")
			return
		case <-w.triggerCh:
			if err := w.Sync(ctx); err != nil {
				w.log.Error("directory sync failed", "error", err)
			}
		}
	}
}

// Sync imports the file. The cache is only dropped after a successful
// import.
func (w *DirectorySync) Sync(ctx context.Context) error {
	n, err := w.importer.ImportFile(ctx, w.path)
	if err != nil {
		return fmt.Errorf("import %s: %w", w.path, err)
	}
	if w.cache != nil {
		w.cache.Invalidate()
	}
	w.log.Info("directory imported", "path", w.path, "members", n)
	return nil
}
