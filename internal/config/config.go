package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	CatalogDB      string `toml:"catalog_db"`
	CollectionsDir string `toml:"collections_dir"`
	StagingDir     string `toml:"staging_dir"`
	LogDir         string `toml:"log_dir"`
}

// Scanner contains tuning for the identification pipeline and worker.
type Scanner struct {
	// AmbiguityThreshold is the minimum score gap between the top two
	// candidates before the top one is auto-accepted. Lowering it trades
	// fewer interruptions for more silent misidentifications.
	AmbiguityThreshold float64 `toml:"ambiguity_threshold"`
	// ArtMatchThreshold is the cosine similarity required for an artwork
	// embedding to count as a match (0..1).
	ArtMatchThreshold float64 `toml:"art_match_threshold"`
	// MinMatchScore excludes candidates scoring at or below this total.
	MinMatchScore float64 `toml:"min_match_score"`
	// ActiveTracks selects which recognition tracks run per request.
	ActiveTracks []string `toml:"active_tracks"`
	// QueueCapacity bounds the request queue; zero means unbounded.
	QueueCapacity int `toml:"queue_capacity"`
}

// Defaults contains attribute defaults applied to accepted scans.
type Defaults struct {
	Language  string `toml:"language"`
	Condition string `toml:"condition"`
	Storage   string `toml:"storage"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Scans          bool   `toml:"scans"`
	Commits        bool   `toml:"commits"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cardkeep.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Scanner       Scanner       `toml:"scanner"`
	Defaults      Defaults      `toml:"defaults"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cardkeep/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean
// reports whether a file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("cardkeep.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.CollectionsDir, c.Paths.StagingDir, c.Paths.LogDir}
	if db := strings.TrimSpace(c.Paths.CatalogDB); db != "" {
		dirs = append(dirs, filepath.Dir(db))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TrackActive reports whether a recognition track is enabled.
func (c *Config) TrackActive(name string) bool {
	for _, track := range c.Scanner.ActiveTracks {
		if strings.EqualFold(strings.TrimSpace(track), name) {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
