package tasks

import (
	"time"

	"github.com/DarienLibrary/covercache-public/internal/config"
)

// DefaultConfig returns the queue settings used when none are configured.
func DefaultConfig() config.Tasks {
	return config.Tasks{
		Enabled:         true,
		Workers:         2,
		ReleaseAfter:    6 * time.Hour,
		CleanupInterval: time.Hour,
	}
}

func withDefaults(cfg config.Tasks) config.Tasks {
	def := DefaultConfig()
	if cfg.Workers < 1 {
		cfg.Workers = def.Workers
	}
	if cfg.ReleaseAfter <= 0 {
		cfg.ReleaseAfter = def.ReleaseAfter
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	return cfg
}
