// internal/onboarding/draft-persistence/config.go
package draftpersistence

import (
	"time"

	"workshop-onboarding/internal/common/config"
)

type Config struct {
	BootstrapTimeout time.Duration
	SaveTimeout      time.Duration
	CompleteTimeout  time.Duration
	CacheTTL         time.Duration
	CacheKeyPrefix   string
}

func LoadConfig() *Config {
	return &Config{
		BootstrapTimeout: 30 * time.Second,
		SaveTimeout:      20 * time.Second,
		CompleteTimeout:  60 * time.Second,
		CacheTTL:         7 * 24 * time.Hour,
		CacheKeyPrefix:   "onboarding:draft:",
	}
}

// FromAppConfig derives adapter settings from the application config.
func FromAppConfig(cfg *config.Config) *Config {
	c := LoadConfig()
	if cfg == nil {
		return c
	}
	if cfg.Cache.DraftTTL > 0 {
		c.CacheTTL = cfg.Cache.DraftTTLDuration()
	}
	return c
}
