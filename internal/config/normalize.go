package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScanner()
	c.normalizeDefaults()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"catalog_db", &c.Paths.CatalogDB},
		{"collections_dir", &c.Paths.CollectionsDir},
		{"staging_dir", &c.Paths.StagingDir},
		{"log_dir", &c.Paths.LogDir},
	}
	for _, field := range fields {
		trimmed := strings.TrimSpace(*field.value)
		if trimmed == "" {
			return fmt.Errorf("paths.%s must not be empty", field.name)
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("paths.%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeScanner() {
	if c.Scanner.AmbiguityThreshold <= 0 {
		c.Scanner.AmbiguityThreshold = defaultAmbiguityThreshold
	}
	if c.Scanner.ArtMatchThreshold <= 0 {
		c.Scanner.ArtMatchThreshold = defaultArtMatchThreshold
	}
	if c.Scanner.MinMatchScore <= 0 {
		c.Scanner.MinMatchScore = defaultMinMatchScore
	}
	tracks := make([]string, 0, len(c.Scanner.ActiveTracks))
	for _, track := range c.Scanner.ActiveTracks {
		if trimmed := strings.ToLower(strings.TrimSpace(track)); trimmed != "" {
			tracks = append(tracks, trimmed)
		}
	}
	if len(tracks) == 0 {
		tracks = defaultActiveTracks()
	}
	c.Scanner.ActiveTracks = tracks
}

func (c *Config) normalizeDefaults() {
	c.Defaults.Language = strings.ToUpper(strings.TrimSpace(c.Defaults.Language))
	if c.Defaults.Language == "" {
		c.Defaults.Language = defaultLanguage
	}
	c.Defaults.Condition = strings.TrimSpace(c.Defaults.Condition)
	if c.Defaults.Condition == "" {
		c.Defaults.Condition = defaultCondition
	}
	c.Defaults.Storage = strings.TrimSpace(c.Defaults.Storage)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
