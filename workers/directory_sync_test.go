package workers

import (
	"context"
	"errors"
	"testing"
)

type fakeImporter struct {
	paths []string
	err   error
}

func (f *fakeImporter) ImportFile(_ context.Context, path string) (int, error) {
	f.paths = append(f.paths, path)
	return 3, f.err
}

type fakeCache struct{ invalidated int }

func (f *fakeCache) Invalidate() { f.invalidated++ }

func TestDirectorySync_InvalidatesAfterImport(t *testing.T) {
	importer := &fakeImporter{}
	cache := &fakeCache{}

	if err := NewDirectorySync(importer, cache, "team.yaml").Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(importer.paths) != 1 || importer.paths[0] != "team.yaml" {
		t.Fatalf("unexpected imports %v", importer.paths)
	}
	if cache.invalidated != 1 {
		t.Fatalf("expected cache invalidated once, got %d", cache.invalidated)
	}
}

func TestDirectorySync_FailedImportKeepsCache(t *testing.T) {
	cache := &fakeCache{}
	importer := &fakeImporter{err: errors.New("parse directory file")}

	if err := NewDirectorySync(importer, cache, "team.yaml").Sync(context.Background()); err == nil {
		t.Fatal("expected import error")
	}
	if cache.invalidated != 0 {
		t.Fatalf("cache must survive a failed import, got %d invalidations", cache.invalidated)
	}
}

func TestDirectorySync_NoCache(t *testing.T) {
	if err := NewDirectorySync(&fakeImporter{}, nil, "team.yaml").Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
}
