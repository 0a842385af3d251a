// internal/onboarding/step-controller/controller.go
package stepcontroller

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	draftpersistence "workshop-onboarding/internal/onboarding/draft-persistence"

	"workshop-onboarding/internal/common/errors"
	"workshop-onboarding/internal/common/logger"
	"workshop-onboarding/internal/common/metrics"
	"workshop-onboarding/internal/models"
	"workshop-onboarding/pkg/registry"
)

// Persistence is what the controller needs from the draft persistence adapter.
type Persistence interface {
	Bootstrap(ctx context.Context) (*draftpersistence.BootstrapResult, error)
	PersistDraft(ctx context.Context, draft models.Draft, step int) (*models.OnboardingStatus, error)
	CompleteOnboarding(ctx context.Context, draft models.Draft) (*models.OnboardingStatus, error)
	SaveLocal(ctx context.Context, draft models.Draft, step int) error
}

// Controller drives the five-step onboarding wizard. It is safe for concurrent use; at most
// one Advance is in flight at a time.
type Controller struct {
	mu sync.Mutex

	persistence Persistence
	config      *Config
	logger      logger.Logger
	errHandler  *errors.ErrorHandler

	phase       Phase
	step        int
	draft       models.Draft
	fieldErrors map[string]string
	globalError string
	loadError   string
	submitting  bool

	permissions *models.UserPermissions
	categories  []models.Category
	services    []models.Service
	status      *models.OnboardingStatus

	onComplete func(*models.OnboardingStatus)
}

func New(p Persistence, cfg *Config, log logger.Logger) *Controller {
	if cfg == nil {
		cfg = LoadConfig()
	}
	if cfg.Registry == nil {
		cfg.Registry = registry.DefaultRegistry()
	}
	l := logger.ForComponent(log, "step-controller")
	return &Controller{
		persistence: p,
		config:      cfg,
		logger:      l,
		errHandler:  errors.NewErrorHandler(l),
		phase:       PhaseLoading,
		step:        FirstStep,
		draft:       models.Draft{ServiceIDs: []string{}},
		fieldErrors: map[string]string{},
	}
}

// OnComplete registers fn to receive the final status once onboarding completes.
func (c *Controller) OnComplete(fn func(*models.OnboardingStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = fn
}

// Bootstrap loads catalogs and server state. No step is usable before it returns nil.
func (c *Controller) Bootstrap(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.phase = PhaseLoading
	c.loadError = ""
	c.mu.Unlock()

	result, err := c.persistence.Bootstrap(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseClosed {
		c.logger.Debug("bootstrap result dropped after close", nil)
		return ErrClosed
	}
	if err != nil {
		c.phase = PhaseLoadFailed
		c.loadError = c.errHandler.Handle("bootstrap", err)
		return err
	}

	c.permissions = result.Permissions
	c.categories = result.Categories
	c.services = result.Services
	c.status = result.Status
	c.draft = result.Draft.Clone()
	c.fieldErrors = map[string]string{}
	c.globalError = ""

	switch {
	case result.Fresh:
		c.step = FirstStep
		c.phase = PhaseReady
	case result.Status != nil && result.Status.OnboardingCompleted:
		c.step = LastStep
		c.phase = PhaseCompleted
	default:
		c.step = ResumeStep(result.MissingSteps())
		c.phase = PhaseReady
	}

	c.logger.Info("wizard ready", map[string]interface{}{
		"step":  c.step,
		"phase": string(c.phase),
		"fresh": result.Fresh,
	})
	return nil
}

// UpdateDraft merges patch into the draft and clears every error. Nothing is persisted.
// A patch that leaves only one coordinate set, or puts the location off the map, is refused.
func (c *Controller) UpdateDraft(patch models.DraftPatch) error {
	return c.edit(func(d *models.Draft) error {
		d.Apply(patch, c.services)
		if (d.Latitude == nil) != (d.Longitude == nil) {
			return c.reject(FieldLocation, msgHalfLocation)
		}
		if d.HasLocation() && !models.ValidCoordinates(*d.Latitude, *d.Longitude) {
			return c.reject(FieldLocation, msgCoordinatesOutOfRange)
		}
		return nil
	})
}

// SelectCategory sets the category and prunes services outside it.
func (c *Controller) SelectCategory(categoryID string) error {
	return c.edit(func(d *models.Draft) error {
		if categoryID != "" {
			if _, ok := models.FindCategory(c.categories, categoryID); !ok {
				return c.reject(FieldCategoryID, "Unknown category")
			}
		}
		d.SelectCategory(categoryID, c.services)
		return nil
	})
}

// ToggleService adds or removes a service from the selection.
func (c *Controller) ToggleService(serviceID string) error {
	return c.edit(func(d *models.Draft) error {
		if !d.ToggleService(serviceID, c.services) {
			return c.reject(FieldServiceIDs, "This service does not belong to the selected category")
		}
		return nil
	})
}

func (c *Controller) SetLocation(lat, lng float64) error {
	return c.edit(func(d *models.Draft) error {
		if !models.ValidCoordinates(lat, lng) {
			return c.reject(FieldLocation, msgCoordinatesOutOfRange)
		}
		d.SetLocation(lat, lng)
		return nil
	})
}

// SetLogo replaces the logo. A refused file leaves the draft untouched.
func (c *Controller) SetLogo(logo models.Attachment) error {
	return c.edit(func(d *models.Draft) error {
		if reason := c.config.Limits.Check(logo); reason != "" {
			return c.reject(FieldLogo, reason)
		}
		d.Logo = &logo
		return nil
	})
}

func (c *Controller) RemoveLogo() error {
	return c.edit(func(d *models.Draft) error {
		d.Logo = nil
		return nil
	})
}

// AddPhotos appends photos. Either all are accepted or none are.
func (c *Controller) AddPhotos(photos ...models.Attachment) error {
	return c.edit(func(d *models.Draft) error {
		if limit := c.config.Limits.MaxPhotos; limit > 0 && len(d.Photos)+len(photos) > limit {
			return c.reject(FieldPhotos, fmt.Sprintf("You can upload at most %d photos", limit))
		}
		for _, p := range photos {
			if reason := c.config.Limits.Check(p); reason != "" {
				return c.reject(FieldPhotos, reason)
			}
		}
		d.Photos = append(d.Photos, photos...)
		return nil
	})
}

func (c *Controller) RemovePhoto(index int) error {
	return c.edit(func(d *models.Draft) error {
		if index < 0 || index >= len(d.Photos) {
			return c.reject(FieldPhotos, "No photo at position "+strconv.Itoa(index+1))
		}
		d.Photos = append(append([]models.Attachment{}, d.Photos[:index]...), d.Photos[index+1:]...)
		return nil
	})
}

// edit runs fn against a copy of the draft and keeps the copy only when fn succeeds.
// Errors are cleared before fn runs; fn may record a new field error through reject.
func (c *Controller) edit(fn func(d *models.Draft) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return err
	}

	c.fieldErrors = map[string]string{}
	c.globalError = ""

	next := c.draft.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	c.draft = next
	return nil
}

// reject records a field error. Callers hold the lock.
func (c *Controller) reject(field, message string) error {
	c.fieldErrors[field] = message
	return errors.NewFormValidationError(message, map[string]string{field: message})
}

// Advance validates the current step, persists the whole draft and moves forward. On the
// last step it completes onboarding instead. The step only changes after the save succeeds.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	if err := c.usable(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.submitting {
		c.mu.Unlock()
		return ErrBusy
	}

	step := c.step
	if fields := ValidateStep(step, c.draft, c.services); len(fields) > 0 {
		c.fieldErrors = fields
		c.mu.Unlock()
		metrics.StepValidationFailures.WithLabelValues(strconv.Itoa(step)).Inc()
		c.logger.Debug("step validation failed", map[string]interface{}{"step": step, "fields": fields})
		return errors.NewStepValidationFailedError(step, fields)
	}

	c.submitting = true
	c.fieldErrors = map[string]string{}
	c.globalError = ""
	snapshot := c.draft.Clone()
	c.mu.Unlock()

	metrics.AdvancesInFlight.Inc()
	defer metrics.AdvancesInFlight.Dec()

	operation := "persist-draft"
	status, err := c.persistence.PersistDraft(ctx, snapshot, step)
	if err == nil && step == LastStep {
		operation = "complete-onboarding"
		status, err = c.persistence.CompleteOnboarding(ctx, snapshot)
	}

	c.mu.Lock()
	c.submitting = false
	if c.phase == PhaseClosed {
		c.mu.Unlock()
		c.logger.Debug("advance result dropped after close", map[string]interface{}{"step": step})
		return ErrClosed
	}
	if err != nil {
		c.globalError = c.errHandler.Handle(operation, err)
		c.mu.Unlock()
		return err
	}
	if status != nil {
		c.status = status
	}

	if step < LastStep {
		c.step = step + 1
		c.mu.Unlock()
		metrics.StepTransitions.WithLabelValues(strconv.Itoa(step), strconv.Itoa(step+1), "forward").Inc()
		c.logger.Info("step advanced", map[string]interface{}{"from": step, "to": step + 1})
		return nil
	}

	c.phase = PhaseCompleted
	callback := c.onComplete
	c.mu.Unlock()

	c.logger.Info("onboarding completed", nil)
	if callback != nil {
		callback(status)
	}
	return nil
}

// Retreat moves one step back without validating or saving.
func (c *Controller) Retreat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return err
	}
	if c.submitting {
		return ErrBusy
	}
	c.fieldErrors = map[string]string{}
	c.globalError = ""
	if c.step > FirstStep {
		metrics.StepTransitions.WithLabelValues(strconv.Itoa(c.step), strconv.Itoa(c.step-1), "back").Inc()
		c.step--
	}
	return nil
}

// JumpToResumeStep moves to the step of the first missing requirement and returns it.
func (c *Controller) JumpToResumeStep(missing []models.StepTag) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return c.step, err
	}
	if c.submitting {
		return c.step, ErrBusy
	}
	c.step = ResumeStep(missing)
	c.fieldErrors = map[string]string{}
	return c.step, nil
}

// DismissError hides the banner. A load error stays.
func (c *Controller) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.globalError = ""
}

// Close detaches the wizard. Results of calls still in flight are dropped. An unfinished
// draft is written to the local cache.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseClosed {
		c.mu.Unlock()
		return nil
	}
	save := c.phase == PhaseReady
	previous := c.phase
	c.phase = PhaseClosed
	snapshot := c.draft.Clone()
	step := c.step
	c.mu.Unlock()

	c.logger.Debug("wizard closed", map[string]interface{}{"phase": string(previous), "step": step})
	if !save {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.CloseTimeout)
	defer cancel()
	if err := c.persistence.SaveLocal(ctx, snapshot, step); err != nil {
		c.logger.Warn("failed to save draft locally on close", map[string]interface{}{"error": err})
		return fmt.Errorf("save draft on close: %w", err)
	}
	return nil
}

// usable reports why mutating calls are refused. Callers hold the lock.
func (c *Controller) usable() error {
	switch c.phase {
	case PhaseReady:
		return nil
	case PhaseClosed:
		return ErrClosed
	default:
		return fmt.Errorf("%w: wizard is %s", ErrNotReady, c.phase)
	}
}

// State returns a deep copy of the wizard state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := make(map[string]string, len(c.fieldErrors))
	for k, v := range c.fieldErrors {
		errs[k] = v
	}
	return State{
		CurrentStep: c.step,
		Draft:       c.draft.Clone(),
		Errors:      errs,
		GlobalError: c.globalError,
		LoadError:   c.loadError,
		Phase:       c.phase,
		Submitting:  c.submitting,
		Loading:     c.phase == PhaseLoading,
	}
}

// StepInfo returns the title and description of the current step.
func (c *Controller) StepInfo() registry.StepDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.Registry.Step(c.step)
}

func (c *Controller) Categories() []models.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Category(nil), c.categories...)
}

func (c *Controller) Services() []models.Service {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Service(nil), c.services...)
}

// ServicesForSelectedCategory lists the services the operator can pick on the last step.
func (c *Controller) ServicesForSelectedCategory() []models.Service {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.ServicesInCategory(c.services, c.draft.CategoryID)
}

func (c *Controller) Permissions() *models.UserPermissions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permissions
}

// LastStatus is the most recent server status seen by the wizard, or nil.
func (c *Controller) LastStatus() *models.OnboardingStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}
