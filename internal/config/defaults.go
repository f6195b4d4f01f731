package config

const (
	defaultCatalogDB          = "~/.local/share/cardkeep/catalog.db"
	defaultCollectionsDir     = "~/.local/share/cardkeep/collections"
	defaultStagingDir         = "~/.local/share/cardkeep/staging"
	defaultLogDir             = "~/.local/share/cardkeep/logs"
	defaultAmbiguityThreshold = 10.0
	defaultArtMatchThreshold  = 0.42
	defaultMinMatchScore      = 30.0
	defaultLanguage           = "EN"
	defaultCondition          = "Near Mint"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultNotifyTimeout      = 10
)

func defaultActiveTracks() []string {
	return []string{"setcode", "name", "stats", "artwork"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CatalogDB:      defaultCatalogDB,
			CollectionsDir: defaultCollectionsDir,
			StagingDir:     defaultStagingDir,
			LogDir:         defaultLogDir,
		},
		Scanner: Scanner{
			AmbiguityThreshold: defaultAmbiguityThreshold,
			ArtMatchThreshold:  defaultArtMatchThreshold,
			MinMatchScore:      defaultMinMatchScore,
			ActiveTracks:       defaultActiveTracks(),
		},
		Defaults: Defaults{
			Language:  defaultLanguage,
			Condition: defaultCondition,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Scans:          true,
			Commits:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
