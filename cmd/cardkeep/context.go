package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"cardkeep/internal/catalog"
	"cardkeep/internal/config"
	"cardkeep/internal/logging"
	"cardkeep/internal/notifications"
	"cardkeep/internal/staging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		logger, logErr := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: os.Stderr,
		})
		if logErr != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger, nil
}

func (c *commandContext) openCatalog() (*catalog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return catalog.Open(cfg)
}

func (c *commandContext) openSession(name string) (*staging.Session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return staging.Open(cfg.Paths.CollectionsDir, cfg.Paths.StagingDir, name, logger)
}

func (c *commandContext) notifier() notifications.Service {
	cfg, err := c.ensureConfig()
	if err != nil {
		return notifications.NewNop()
	}
	return notifications.NewService(cfg)
}
