// internal/onboarding/step-controller/config.go
package stepcontroller

import (
	"time"

	"workshop-onboarding/internal/common/config"
	"workshop-onboarding/internal/models"
	"workshop-onboarding/pkg/registry"
)

type Config struct {
	Limits   models.AttachmentLimits
	Registry *registry.StepRegistry
	// CloseTimeout bounds the local save performed by Close.
	CloseTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Limits:       models.DefaultAttachmentLimits(),
		Registry:     registry.DefaultRegistry(),
		CloseTimeout: 5 * time.Second,
	}
}

// FromAppConfig applies the wizard section of the application config.
func FromAppConfig(cfg *config.Config, reg *registry.StepRegistry) *Config {
	c := LoadConfig()
	if reg != nil {
		c.Registry = reg
	}
	if cfg == nil {
		return c
	}
	if cfg.Wizard.MaxPhotos > 0 {
		c.Limits.MaxPhotos = cfg.Wizard.MaxPhotos
	}
	if cfg.Wizard.MaxFileSize > 0 {
		c.Limits.MaxFileSize = cfg.Wizard.MaxFileSize
	}
	return c
}
