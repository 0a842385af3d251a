// pkg/registry/schema.go
package registry

// StepRegistry describes the wizard's steps. Number is the 1-based position.
type StepRegistry struct {
	Version     string           `json:"version"`
	LastUpdated string           `json:"lastUpdated,omitempty"`
	Steps       []StepDefinition `json:"steps"`
}

type StepDefinition struct {
	Number      int    `json:"number"`
	Tag         string `json:"tag"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Optional    bool   `json:"optional,omitempty"`
}
