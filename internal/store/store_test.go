package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"symsync/internal/links"
	"symsync/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenPath(filepath.Join(t.TempDir(), "symsync.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	rec := links.Record{
		ID:                    "cfg-1",
		Name:                  "movies",
		TargetPath:            "/media/library",
		Sources:               []string{"/data/photos", "/data/downloads"},
		IsActive:              true,
		RescanIntervalSeconds: 30,
		Logs:                  []string{"2026-01-01 00:00:00 configuration created"},
	}
	if err := s.SaveConfig(ctx, rec); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.LoadConfigs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 {
		t.Fatalf("len(loaded) = %d, want 1", len(loaded))
	}
	got := loaded[0]
	if got.ID != rec.ID || got.Name != rec.Name || got.TargetPath != rec.TargetPath {
		t.Fatalf("loaded record mismatch: %+v", got)
	}
	if len(got.Sources) != 2 || got.Sources[0] != "/data/photos" {
		t.Fatalf("sources = %v", got.Sources)
	}
	if !got.IsActive || got.RescanIntervalSeconds != 30 {
		t.Fatalf("flags lost: %+v", got)
	}
	if len(got.Logs) != 1 {
		t.Fatalf("logs = %v", got.Logs)
	}
}

func TestSaveConfigUpserts(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	rec := links.Record{ID: "cfg-1", Name: "movies"}
	if err := s.SaveConfig(ctx, rec); err != nil {
		t.Fatal(err)
	}
	rec.Name = "renamed"
	rec.IsActive = true
	if err := s.SaveConfig(ctx, rec); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.LoadConfigs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 {
		t.Fatalf("upsert duplicated the row: %d records", len(loaded))
	}
	if loaded[0].Name != "renamed" || !loaded[0].IsActive {
		t.Fatalf("update lost: %+v", loaded[0])
	}
}

func TestSaveConfigRejectsEmptyID(t *testing.T) {
	s := openStore(t)
	if err := s.SaveConfig(context.Background(), links.Record{Name: "anon"}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestDeleteConfig(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.SaveConfig(ctx, links.Record{ID: "cfg-1", Name: "movies"}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteConfig(ctx, "cfg-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteConfig(ctx, "cfg-1"); err != nil {
		t.Fatalf("deleting an unknown id should be a no-op: %v", err)
	}

	loaded, err := s.LoadConfigs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 0 {
		t.Fatalf("records remain after delete: %v", loaded)
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "symsync.db")
	ctx := context.Background()

	s, err := store.OpenPath(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveConfig(ctx, links.Record{ID: "cfg-1", Name: "movies", Sources: []string{"/a"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := store.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("reopen with existing schema: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.LoadConfigs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].ID != "cfg-1" {
		t.Fatalf("records lost across reopen: %v", loaded)
	}
}
