// Package notifications delivers scan and commit events via pluggable
// notifiers.
//
// The default implementation publishes to ntfy using the topic
// configured in config.toml and gracefully degrades to a no-op when
// notifications are disabled. Per-category switches let users keep
// commit summaries while muting the chatter of individual scans.
//
// Extend this package if you need alternative transports; callers
// depend only on the Service interface.
package notifications
