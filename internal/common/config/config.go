package config

import (
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Session       SessionConfig       `mapstructure:"session"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Wizard        WizardConfig        `mapstructure:"wizard"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type BackendConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

type SessionConfig struct {
	StorePath string `mapstructure:"store_path"`
}

type CacheConfig struct {
	Enabled  bool        `mapstructure:"enabled"`
	DraftTTL int         `mapstructure:"draft_ttl"` // minutes
	Redis    RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WizardConfig struct {
	RegistryPath string `mapstructure:"registry_path"`
	MaxPhotos    int    `mapstructure:"max_photos"`
	MaxFileSize  int64  `mapstructure:"max_file_size"` // bytes
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	MetricsAddress string `mapstructure:"metrics_address"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".", ".workshop-onboarding", "session.json")
	}
	return filepath.Join(dir, "workshop-onboarding", "session.json")
}

func (c RedisConfig) String() string {
	return fmt.Sprintf("redis://%s/%d", c.Address, c.DB)
}
