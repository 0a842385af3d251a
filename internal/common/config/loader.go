package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ONBOARDING"

const (
	DefaultBaseURL     = "http://localhost:8080"
	DefaultMaxPhotos   = 10 // also the backend's ceiling; only lower values are accepted
	DefaultMaxFileSize = 5 * 1024 * 1024
)

// Load reads configs/config.yaml, merges configs/config.<env>.yaml, expands ${VAR}
// placeholders, applies ONBOARDING_* environment overrides and defaults, and validates.
func Load(searchPaths ...string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = []string{"./configs", "../../configs", "."}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // env overlay is optional

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// bindEnvKeys registers every key so AutomaticEnv also applies to keys absent from the file.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"app.name", "app.version", "app.environment",
		"backend.base_url", "backend.timeout", "backend.max_retries",
		"session.store_path",
		"cache.enabled", "cache.draft_ttl", "cache.redis.address", "cache.redis.password", "cache.redis.db",
		"wizard.registry_path", "wizard.max_photos", "wizard.max_file_size",
		"observability.service_name", "observability.metrics_address", "observability.jaeger_endpoint",
		"logging.level", "logging.format", "logging.output",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig honours the variable names the web dashboard used.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Backend.BaseURL == "" {
		if val := os.Getenv("API_URL"); val != "" {
			cfg.Backend.BaseURL = val
		} else if val := os.Getenv("REACT_APP_API_URL"); val != "" {
			cfg.Backend.BaseURL = val
		}
	}
	if cfg.Cache.Redis.Address == "" {
		if val := os.Getenv("REDIS_ADDR"); val != "" {
			cfg.Cache.Redis.Address = val
		}
	}
	if cfg.Cache.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Cache.Redis.Password = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "workshop-onboarding"
	}

	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = DefaultBaseURL
	}
	cfg.Backend.BaseURL = strings.TrimSuffix(cfg.Backend.BaseURL, "/")
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 15000
	}
	if cfg.Backend.MaxRetries == 0 {
		cfg.Backend.MaxRetries = 2
	}

	if cfg.Session.StorePath == "" {
		cfg.Session.StorePath = defaultSessionPath()
	}

	if cfg.Cache.DraftTTL == 0 {
		cfg.Cache.DraftTTL = 7 * 24 * 60
	}

	if cfg.Wizard.MaxPhotos == 0 {
		cfg.Wizard.MaxPhotos = DefaultMaxPhotos
	}
	if cfg.Wizard.MaxFileSize == 0 {
		cfg.Wizard.MaxFileSize = DefaultMaxFileSize
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
}

func validateConfig(cfg *Config) error {
	if !strings.HasPrefix(cfg.Backend.BaseURL, "http://") && !strings.HasPrefix(cfg.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend.base_url must be an http(s) URL, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.MaxRetries < 0 {
		return fmt.Errorf("backend.max_retries must not be negative")
	}
	if cfg.Cache.Enabled && cfg.Cache.Redis.Address == "" {
		return fmt.Errorf("cache.redis.address is required when cache.enabled is true")
	}
	if cfg.Wizard.MaxPhotos > DefaultMaxPhotos {
		return fmt.Errorf("wizard.max_photos cannot exceed the backend limit of %d, got %d", DefaultMaxPhotos, cfg.Wizard.MaxPhotos)
	}
	if cfg.Wizard.MaxPhotos < 0 || cfg.Wizard.MaxFileSize < 0 {
		return fmt.Errorf("wizard limits must not be negative")
	}
	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// DraftTTLDuration converts the configured draft cache TTL.
func (c CacheConfig) DraftTTLDuration() time.Duration {
	return time.Duration(c.DraftTTL) * time.Minute
}
