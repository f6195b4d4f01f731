package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cardkeep/internal/logging"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldSessionFiles(t *testing.T) {
	dir := t.TempDir()

	oldFile := filepath.Join(dir, "main.json")
	if err := os.WriteFile(oldFile, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write old file: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	recentFile := filepath.Join(dir, "binder.json")
	if err := os.WriteFile(recentFile, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write recent file: %v", err)
	}

	result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %d", len(result.Removed))
	}
	if result.Removed[0] != oldFile {
		t.Errorf("expected %s to be removed, got %s", oldFile, result.Removed[0])
	}
	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("stale session file should have been removed")
	}
	if _, err := os.Stat(recentFile); err != nil {
		t.Errorf("recent session file should survive: %v", err)
	}
}

func TestCleanStaleIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()

	note := filepath.Join(dir, "README.txt")
	if err := os.WriteFile(note, []byte("keep"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	oldTime := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(note, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("unrelated files should be left alone, removed %v", result.Removed)
	}
}
