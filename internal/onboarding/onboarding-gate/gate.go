// internal/onboarding/onboarding-gate/gate.go
package onboardinggate

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"workshop-onboarding/internal/common/errors"
	"workshop-onboarding/internal/common/logger"
	"workshop-onboarding/internal/models"
)

const (
	ReasonAccountInactive = "account_inactive"
	ReasonNotStarted      = "not_started"
	ReasonIncomplete      = "incomplete"
	ReasonCheckFailed     = "check_failed"
)

// Source is the part of the backend the gate reads.
type Source interface {
	GetPermissions(ctx context.Context) (*models.UserPermissions, error)
	GetOnboardingStatus(ctx context.Context) (*models.OnboardingStatus, error)
}

// Decision says whether the dashboard must send the operator to the wizard.
type Decision struct {
	NeedsOnboarding bool
	Reason          string
	Permissions     *models.UserPermissions
	Status          *models.OnboardingStatus
}

type Gate struct {
	source  Source
	timeout time.Duration
	logger  logger.Logger
}

func NewGate(source Source, timeout time.Duration, log logger.Logger) *Gate {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gate{source: source, timeout: timeout, logger: logger.ForComponent(log, "onboarding-gate")}
}

// Check fetches permissions and status together; the first failure cancels the other
// fetch. A missing onboarding record means onboarding is needed and is not an error. Any
// other failure also sends the operator to the wizard and is returned alongside the decision.
func (g *Gate) Check(ctx context.Context) (*Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var (
		perms  *models.UserPermissions
		status *models.OnboardingStatus
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		perms, err = g.source.GetPermissions(egCtx)
		return err
	})
	eg.Go(func() error {
		var err error
		status, err = g.source.GetOnboardingStatus(egCtx)
		if errors.IsNotFound(err) {
			status = nil
			return nil
		}
		return err
	})
	err := eg.Wait()

	d := &Decision{Permissions: perms, Status: status}
	switch {
	case err != nil:
		d.NeedsOnboarding = true
		d.Reason = ReasonCheckFailed
		g.logger.Warn("onboarding check failed", map[string]interface{}{"error": err})
		if errors.IsUnauthorized(err) {
			return d, err
		}
		return d, errors.NewBootstrapFailedError("gate", err)
	case !perms.IsActive():
		d.NeedsOnboarding = true
		d.Reason = ReasonAccountInactive
	case d.Status == nil:
		d.NeedsOnboarding = true
		d.Reason = ReasonNotStarted
	case !d.Status.OnboardingCompleted:
		d.NeedsOnboarding = true
		d.Reason = ReasonIncomplete
	}

	g.logger.Debug("onboarding gate decided", map[string]interface{}{
		"needsOnboarding": d.NeedsOnboarding,
		"reason":          d.Reason,
	})
	return d, nil
}
