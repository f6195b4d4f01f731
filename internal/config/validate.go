package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

var knownTracks = map[string]struct{}{
	"setcode": {},
	"name":    {},
	"stats":   {},
	"artwork": {},
}

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validateDefaults(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateScanner() error {
	if c.Scanner.ArtMatchThreshold > 1 {
		return fmt.Errorf("scanner.art_match_threshold must be within (0, 1], got %g", c.Scanner.ArtMatchThreshold)
	}
	if c.Scanner.QueueCapacity < 0 {
		return fmt.Errorf("scanner.queue_capacity must not be negative, got %d", c.Scanner.QueueCapacity)
	}
	for _, track := range c.Scanner.ActiveTracks {
		if _, ok := knownTracks[track]; !ok {
			return fmt.Errorf("scanner.active_tracks: unknown track %q", track)
		}
	}
	return nil
}

func (c *Config) validateDefaults() error {
	if _, err := language.Parse(strings.ToLower(c.Defaults.Language)); err != nil {
		return fmt.Errorf("defaults.language: %q is not a valid language code", c.Defaults.Language)
	}
	return nil
}
