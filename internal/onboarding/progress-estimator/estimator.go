// internal/onboarding/progress-estimator/estimator.go
package progressestimator

import (
	"context"
	"math"

	"workshop-onboarding/internal/common/errors"
	"workshop-onboarding/internal/common/logger"
	"workshop-onboarding/internal/common/metrics"
	"workshop-onboarding/internal/models"
	stepcontroller "workshop-onboarding/internal/onboarding/step-controller"
)

// TotalRequiredSteps is the number of requirements the backend tracks. Photos are optional
// and never counted.
var TotalRequiredSteps = len(models.RequiredSteps)

// StatusSource fetches the backend's onboarding status.
type StatusSource interface {
	GetOnboardingStatus(ctx context.Context) (*models.OnboardingStatus, error)
}

// Badge is what a host shows outside the wizard.
type Badge struct {
	Visible    bool             `json:"visible"`
	Percentage int              `json:"percentage"`
	Remaining  []models.StepTag `json:"remaining,omitempty"`
	Completed  bool             `json:"completed"`
}

// Percentage derives completion from the server's missing steps. A nil status counts as
// nothing done; a completed onboarding is always 100.
func Percentage(status *models.OnboardingStatus) int {
	if status == nil {
		return 0
	}
	if status.OnboardingCompleted {
		return 100
	}
	return PercentageFromMissing(status.RequiredMissing())
}

// PercentageFromMissing applies round(100 * (total - missing) / total) over distinct known tags.
func PercentageFromMissing(missing []models.StepTag) int {
	seen := make(map[models.StepTag]struct{}, len(missing))
	for _, tag := range missing {
		if tag.IsRequired() {
			seen[tag] = struct{}{}
		}
	}
	done := TotalRequiredSteps - len(seen)
	pct := int(math.Round(100 * float64(done) / float64(TotalRequiredSteps)))
	return clamp(pct)
}

// LocalPercentage previews the same figure from a draft that has not been saved yet.
func LocalPercentage(draft models.Draft, services []models.Service) int {
	return PercentageFromMissing(stepcontroller.MissingSteps(draft, services))
}

func clamp(pct int) int {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

type Estimator struct {
	source StatusSource
	logger logger.Logger
}

func NewEstimator(source StatusSource, log logger.Logger) *Estimator {
	return &Estimator{
		source: source,
		logger: logger.ForComponent(log, "progress-estimator"),
	}
}

// Refresh fetches the status and recomputes the badge. With no onboarding record yet the
// badge shows 0%. On any other failure the badge is hidden and the error returned.
func (e *Estimator) Refresh(ctx context.Context) (Badge, error) {
	status, err := e.source.GetOnboardingStatus(ctx)

	var badge Badge
	switch {
	case errors.IsNotFound(err):
		badge = Badge{Visible: true, Percentage: 0, Remaining: append([]models.StepTag(nil), models.RequiredSteps...)}
		err = nil
	case err != nil:
		e.logger.Warn("failed to refresh onboarding progress", map[string]interface{}{"error": err})
	case status == nil:
		// nothing to show
	case status.OnboardingCompleted:
		badge = Badge{Percentage: 100, Completed: true}
	default:
		badge = Badge{
			Visible:    true,
			Percentage: Percentage(status),
			Remaining:  status.RequiredMissing(),
		}
	}

	if err == nil {
		metrics.ProgressPercentage.Set(float64(badge.Percentage))
	}
	return badge, err
}
