package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "translations.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLookupMissReturnsFalse(t *testing.T) {
	store := openTestStore(t)
	got, ok, err := store.Lookup(context.Background(), "google", "es", "hello ◌ ")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok || got != "" {
		t.Fatalf("expected miss, got %q ok=%v", got, ok)
	}
}

func TestPutThenLookup(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.Put(ctx, "google", "ES", "hello ◌ ", "hola ◌ "); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Lookup(ctx, "google", "es", "hello ◌ ")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if got != "hola ◌ " {
		t.Fatalf("unexpected translation %q", got)
	}

	if _, ok, _ := store.Lookup(ctx, "google", "fr", "hello ◌ "); ok {
		t.Fatal("expected language to partition entries")
	}
	if _, ok, _ := store.Lookup(ctx, "other", "es", "hello ◌ "); ok {
		t.Fatal("expected provider to partition entries")
	}
}

func TestPutReplacesExisting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	_ = store.Put(ctx, "google", "es", "a", "first")
	if err := store.Put(ctx, "google", "es", "a", "second"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _, _ := store.Lookup(ctx, "google", "es", "a")
	if got != "second" {
		t.Fatalf("expected replacement, got %q", got)
	}
}

func TestStatsCountsEntriesAndHits(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	_ = store.Put(ctx, "google", "es", "a", "x")
	_ = store.Put(ctx, "google", "fr", "b", "y")
	_, _, _ = store.Lookup(ctx, "google", "es", "a")
	_, _, _ = store.Lookup(ctx, "google", "es", "a")

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 2 || stats.Hits != 2 || stats.Providers != 1 || stats.Languages != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPruneAndClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return base }
	_ = store.Put(ctx, "google", "es", "old", "viejo")
	store.now = func() time.Time { return base.Add(48 * time.Hour) }
	_ = store.Put(ctx, "google", "es", "new", "nuevo")

	removed, err := store.Prune(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned, got %d", removed)
	}
	if _, ok, _ := store.Lookup(ctx, "google", "es", "new"); !ok {
		t.Fatal("expected recent entry to survive")
	}

	removed, err = store.Clear(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("Clear: removed=%d err=%v", removed, err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translations.db")
	ctx := context.Background()
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Put(ctx, "google", "es", "a", "b")
	_ = store.Close()

	store, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	if got, ok, _ := store.Lookup(ctx, "google", "es", "a"); !ok || got != "b" {
		t.Fatalf("expected persisted entry, got %q ok=%v", got, ok)
	}
}

func TestSchemaMismatchRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translations.db")
	ctx := context.Background()
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.db.ExecContext(ctx, "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = store.Close()

	if _, err := Open(ctx, path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestKeyIsStable(t *testing.T) {
	if Key("abc") != Key("abc") || Key("abc") == Key("abd") {
		t.Fatal("Key must be deterministic and content-sensitive")
	}
	if len(Key("")) != 64 {
		t.Fatalf("expected hex sha256, got %q", Key(""))
	}
}
