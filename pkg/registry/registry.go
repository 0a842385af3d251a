// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const StepCount = 5

var defaultTags = [StepCount]string{"BASIC_INFO", "PHOTOS", "LOCATION", "CATEGORY", "SERVICES"}

// DefaultRegistry returns the built-in step titles and descriptions.
func DefaultRegistry() *StepRegistry {
	return &StepRegistry{
		Version: "1.0.0",
		Steps: []StepDefinition{
			{Number: 1, Tag: defaultTags[0], Title: "Basic Info", Description: "Tell us your workshop's name and address"},
			{Number: 2, Tag: defaultTags[1], Title: "Logo & Photos", Description: "Add a logo and up to 10 photos (optional)", Optional: true},
			{Number: 3, Tag: defaultTags[2], Title: "Location", Description: "Pin your workshop on the map"},
			{Number: 4, Tag: defaultTags[3], Title: "Category", Description: "Choose the category that fits your workshop"},
			{Number: 5, Tag: defaultTags[4], Title: "Services", Description: "Select the services you offer"},
		},
	}
}

// LoadRegistry reads a JSON registry (for localized titles) and validates it.
func LoadRegistry(path string) (*StepRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg StepRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode step registry %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("step registry %s: %w", path, err)
	}
	return &reg, nil
}

// LoadOrDefault loads path, or returns the default registry when path is empty.
func LoadOrDefault(path string) (*StepRegistry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	return LoadRegistry(path)
}

// Validate checks the registry lists steps 1..5, in order, with the fixed tags.
func (r *StepRegistry) Validate() error {
	if len(r.Steps) != StepCount {
		return fmt.Errorf("expected %d steps, got %d", StepCount, len(r.Steps))
	}
	for i, s := range r.Steps {
		if s.Number != i+1 {
			return fmt.Errorf("step at position %d has number %d", i+1, s.Number)
		}
		if s.Tag != defaultTags[i] {
			return fmt.Errorf("step %d must have tag %s, got %q", s.Number, defaultTags[i], s.Tag)
		}
		if s.Title == "" {
			return fmt.Errorf("step %d has no title", s.Number)
		}
	}
	return nil
}

// Step returns the definition for number, falling back to a bare entry.
func (r *StepRegistry) Step(number int) StepDefinition {
	if r != nil && number >= 1 && number <= len(r.Steps) {
		return r.Steps[number-1]
	}
	return StepDefinition{Number: number, Title: fmt.Sprintf("Step %d", number)}
}

// UpdateStep sets one field of step number. Tags and numbers are fixed and cannot be changed.
func (r *StepRegistry) UpdateStep(number int, field, value string) error {
	if number < 1 || number > len(r.Steps) {
		return fmt.Errorf("step %d not found", number)
	}
	step := &r.Steps[number-1]
	switch field {
	case "title":
		if value == "" {
			return fmt.Errorf("title must not be empty")
		}
		step.Title = value
	case "description":
		step.Description = value
	case "optional":
		optional, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid optional value: %w", err)
		}
		step.Optional = optional
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return nil
}

// SaveRegistry writes reg as indented JSON, creating the directory when needed.
func SaveRegistry(reg *StepRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
