// Package config loads and validates the cardkeep configuration file.
//
// Configuration lives in a TOML file (default
// ~/.config/cardkeep/config.toml). Load applies defaults, expands
// paths, normalizes values, and validates before returning.
package config
