// internal/onboarding/draft-persistence/adapter.go
package draftpersistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"workshop-onboarding/internal/backend"
	"workshop-onboarding/internal/common/errors"
	"workshop-onboarding/internal/common/logger"
	"workshop-onboarding/internal/models"
)

// Backend is the slice of the workshop backend the adapter needs.
type Backend interface {
	GetPermissions(ctx context.Context) (*models.UserPermissions, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListServices(ctx context.Context) ([]models.Service, error)
	GetOnboardingStatus(ctx context.Context) (*models.OnboardingStatus, error)
	SaveDraft(ctx context.Context, payload models.DraftPayload, idempotencyKey string) (*models.OnboardingStatus, error)
	Complete(ctx context.Context, req backend.CompletionRequest) (*models.OnboardingStatus, error)
}

// Adapter synchronizes the wizard draft with the backend. Every failure leaving it is a
// StandardError carrying a message fit for the operator.
type Adapter struct {
	backend Backend
	cache   DraftCache
	owner   string
	config  *Config
	logger  logger.Logger
}

// NewAdapter builds an adapter for one workshop user. cache may be nil.
func NewAdapter(b Backend, cache DraftCache, owner string, cfg *Config, log logger.Logger) *Adapter {
	if cfg == nil {
		cfg = LoadConfig()
	}
	if cache == nil {
		cache = NoopDraftCache{}
	}
	return &Adapter{
		backend: b,
		cache:   cache,
		owner:   owner,
		config:  cfg,
		logger:  logger.ForComponent(log, "draft-persistence").WithFields(map[string]interface{}{"owner": owner}),
	}
}

// Bootstrap fetches permissions and both catalogs concurrently, then the onboarding status.
// A missing onboarding record is a fresh start, not an error.
func (a *Adapter) Bootstrap(ctx context.Context) (*BootstrapResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.BootstrapTimeout)
	defer cancel()

	result := &BootstrapResult{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		perms, err := a.backend.GetPermissions(gctx)
		if err != nil {
			return errors.NewBootstrapFailedError("permissions", err)
		}
		result.Permissions = perms
		return nil
	})
	g.Go(func() error {
		cats, err := a.backend.ListCategories(gctx)
		if err != nil {
			return errors.NewBootstrapFailedError("categories", err)
		}
		result.Categories = cats
		return nil
	})
	g.Go(func() error {
		svcs, err := a.backend.ListServices(gctx)
		if err != nil {
			return errors.NewBootstrapFailedError("services", err)
		}
		result.Services = svcs
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.Error("bootstrap fetch failed", map[string]interface{}{"error": err})
		return nil, err
	}

	status, err := a.backend.GetOnboardingStatus(ctx)
	switch {
	case errors.IsNotFound(err):
		a.logger.Info("no onboarding record yet, starting fresh", nil)
		result.Fresh = true
		result.Draft = models.Draft{ServiceIDs: []string{}}
		return result, nil
	case err != nil:
		a.logger.Error("onboarding status fetch failed", map[string]interface{}{"error": err})
		return nil, errors.NewBootstrapFailedError("status", err)
	}

	result.Status = status
	result.Draft = status.ToDraft()
	before := len(result.Draft.ServiceIDs)
	result.Draft.PruneServices(result.Services)
	if dropped := before - len(result.Draft.ServiceIDs); dropped > 0 {
		a.logger.Warn("dropped services outside the selected category", map[string]interface{}{
			"categoryId": result.Draft.CategoryID,
			"dropped":    dropped,
		})
	}

	a.logger.Info("bootstrap complete", map[string]interface{}{
		"completed":    status.OnboardingCompleted,
		"missingSteps": status.RequiredMissing(),
		"categories":   len(result.Categories),
		"services":     len(result.Services),
	})
	return result, nil
}

// PersistDraft sends the full snapshot (filenames only for attachments) and mirrors it into
// the local cache. Sending the same draft twice leaves the same stored state.
func (a *Adapter) PersistDraft(ctx context.Context, draft models.Draft, step int) (*models.OnboardingStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.SaveTimeout)
	defer cancel()

	key := uuid.NewString()
	status, err := a.backend.SaveDraft(ctx, draft.Payload(), key)
	if err != nil {
		a.logger.Warn("draft save failed", map[string]interface{}{"step": step, "error": err})
		return nil, translate(err, errors.NewDraftSaveFailedError)
	}

	a.mirror(ctx, draft, step)
	a.logger.Debug("draft saved", map[string]interface{}{"step": step, "idempotencyKey": key})
	return status, nil
}

// CompleteOnboarding submits the final draft including attachment bytes. The cached copy is
// removed on success; on failure the draft is left untouched for a retry.
func (a *Adapter) CompleteOnboarding(ctx context.Context, draft models.Draft) (*models.OnboardingStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.CompleteTimeout)
	defer cancel()

	status, err := a.backend.Complete(ctx, backend.CompletionRequest{
		Payload: draft.Payload(),
		Logo:    draft.Logo,
		Photos:  draft.Photos,
	})
	if err != nil {
		a.logger.Warn("onboarding completion failed", map[string]interface{}{"error": err})
		return nil, translate(err, errors.NewCompletionFailedError)
	}

	if err := a.cache.Clear(ctx, a.owner); err != nil {
		a.logger.Warn("failed to clear cached draft", map[string]interface{}{"error": err})
	}
	a.logger.Info("onboarding completed", nil)
	return status, nil
}

// SaveLocal writes the draft to the cache without contacting the backend.
func (a *Adapter) SaveLocal(ctx context.Context, draft models.Draft, step int) error {
	return a.cache.Save(ctx, a.owner, CachedDraft{
		Draft:   draft.Clone(),
		Step:    step,
		SavedAt: time.Now().UTC(),
	})
}

// LoadLocal returns the cached draft, or nil when there is none.
func (a *Adapter) LoadLocal(ctx context.Context) (*CachedDraft, error) {
	return a.cache.Load(ctx, a.owner)
}

func (a *Adapter) mirror(ctx context.Context, draft models.Draft, step int) {
	err := a.cache.Save(ctx, a.owner, CachedDraft{
		Draft:   draft.Clone(),
		Step:    step,
		SavedAt: time.Now().UTC(),
		Synced:  true,
	})
	if err != nil {
		a.logger.Warn("failed to mirror draft into cache", map[string]interface{}{"error": err})
	}
}

// translate keeps credential failures as they are so callers can send the operator to
// login; everything else becomes the operation's own error.
func translate(err error, wrap func(error) *errors.StandardError) error {
	if errors.IsUnauthorized(err) {
		if std, ok := errors.AsStandard(err); ok {
			return std
		}
	}
	return wrap(err)
}
