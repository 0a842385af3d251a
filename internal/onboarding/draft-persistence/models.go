// internal/onboarding/draft-persistence/models.go
package draftpersistence

import (
	"time"

	"workshop-onboarding/internal/models"
)

// BootstrapResult is everything the wizard needs before its first step is shown.
type BootstrapResult struct {
	Permissions *models.UserPermissions
	Categories  []models.Category
	Services    []models.Service

	// Status is nil when the backend has no onboarding record yet.
	Status *models.OnboardingStatus
	Draft  models.Draft
	Fresh  bool
}

// MissingSteps returns the server-reported requirements still open.
func (r *BootstrapResult) MissingSteps() []models.StepTag {
	if r == nil || r.Status == nil {
		return nil
	}
	return r.Status.RequiredMissing()
}

// CachedDraft is the local mirror of the last saved (or closed) wizard state.
type CachedDraft struct {
	Draft   models.Draft `json:"draft"`
	Step    int          `json:"step"`
	SavedAt time.Time    `json:"savedAt"`
	Synced  bool         `json:"synced"`
}
