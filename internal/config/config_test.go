package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"cardkeep/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Scanner.AmbiguityThreshold != 10.0 {
		t.Fatalf("expected default ambiguity threshold, got %g", cfg.Scanner.AmbiguityThreshold)
	}
	if cfg.Scanner.ArtMatchThreshold != 0.42 {
		t.Fatalf("expected default art threshold, got %g", cfg.Scanner.ArtMatchThreshold)
	}
	if cfg.Defaults.Language != "EN" || cfg.Defaults.Condition != "Near Mint" {
		t.Fatalf("unexpected defaults: %+v", cfg.Defaults)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
catalog_db = "` + filepath.Join(dir, "catalog.db") + `"
collections_dir = "` + filepath.Join(dir, "collections") + `"
staging_dir = "` + filepath.Join(dir, "staging") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[scanner]
ambiguity_threshold = 6.5
active_tracks = ["setcode", "name"]
queue_capacity = 8

[defaults]
language = "de"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Scanner.AmbiguityThreshold != 6.5 {
		t.Fatalf("expected override threshold, got %g", cfg.Scanner.AmbiguityThreshold)
	}
	if cfg.Scanner.QueueCapacity != 8 {
		t.Fatalf("expected queue capacity 8, got %d", cfg.Scanner.QueueCapacity)
	}
	if cfg.Defaults.Language != "DE" {
		t.Fatalf("expected language normalized to DE, got %q", cfg.Defaults.Language)
	}
	if !cfg.TrackActive("setcode") || cfg.TrackActive("artwork") {
		t.Fatalf("unexpected active tracks: %v", cfg.Scanner.ActiveTracks)
	}
}

func TestValidateRejectsUnknownTrack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[scanner]
active_tracks = ["hologram"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown track")
	}
}

func TestValidateRejectsBadLanguage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[defaults]
language = "zz-bogus-!!"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for invalid language code")
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample to load, exists=%v err=%v", exists, err)
	}
}
