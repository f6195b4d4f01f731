package collection_test

import (
	"os"
	"path/filepath"
	"testing"

	"cardkeep/internal/collection"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := collection.FilePath(dir, "main")

	editor := collection.NewEditor(&collection.Collection{Name: "main"})
	change := baseChange()
	change.Quantity = 2
	if err := editor.Apply(change); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if err := collection.Save(path, editor.Snapshot()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := collection.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != "main" {
		t.Fatalf("expected name main, got %q", loaded.Name)
	}
	if got := loaded.TotalQuantity(); got != 2 {
		t.Fatalf("expected total quantity 2, got %d", got)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Fatal("expected updated timestamp to survive the round trip")
	}
}

func TestLoadMissingFileYieldsEmptyNamedCollection(t *testing.T) {
	path := collection.FilePath(t.TempDir(), "binder")

	col, err := collection.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if col.Name != "binder" {
		t.Fatalf("expected name derived from file stem, got %q", col.Name)
	}
	if len(col.Cards) != 0 {
		t.Fatalf("expected empty collection, got %+v", col.Cards)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := collection.FilePath(t.TempDir(), "broken")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := collection.Load(path); err == nil {
		t.Fatal("expected parse error for malformed file")
	}
}

func TestSaveCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "collections")
	path := collection.FilePath(dir, "main")

	if err := collection.Save(path, collection.Collection{Name: "main"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected collection file on disk: %v", err)
	}
}
