package draftpersistence

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"workshop-onboarding/internal/backend"
	"workshop-onboarding/internal/common/config"
	"workshop-onboarding/internal/common/database"
	"workshop-onboarding/internal/common/errors"
	"workshop-onboarding/internal/common/logger"
	"workshop-onboarding/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) GetPermissions(ctx context.Context) (*models.UserPermissions, error) {
	args := m.Called(ctx)
	perms, _ := args.Get(0).(*models.UserPermissions)
	return perms, args.Error(1)
}

func (m *mockBackend) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	cats, _ := args.Get(0).([]models.Category)
	return cats, args.Error(1)
}

func (m *mockBackend) ListServices(ctx context.Context) ([]models.Service, error) {
	args := m.Called(ctx)
	svcs, _ := args.Get(0).([]models.Service)
	return svcs, args.Error(1)
}

func (m *mockBackend) GetOnboardingStatus(ctx context.Context) (*models.OnboardingStatus, error) {
	args := m.Called(ctx)
	status, _ := args.Get(0).(*models.OnboardingStatus)
	return status, args.Error(1)
}

func (m *mockBackend) SaveDraft(ctx context.Context, payload models.DraftPayload, key string) (*models.OnboardingStatus, error) {
	args := m.Called(ctx, payload, key)
	status, _ := args.Get(0).(*models.OnboardingStatus)
	return status, args.Error(1)
}

func (m *mockBackend) Complete(ctx context.Context, req backend.CompletionRequest) (*models.OnboardingStatus, error) {
	args := m.Called(ctx, req)
	status, _ := args.Get(0).(*models.OnboardingStatus)
	return status, args.Error(1)
}

var (
	testCategories = []models.Category{{ID: "cat-1", Name: "Mechanics"}, {ID: "cat-2", Name: "Body shop"}}
	testServices   = []models.Service{
		{ID: "svc-1", Name: "Oil change", CategoryID: "cat-1"},
		{ID: "svc-2", Name: "Paint", CategoryID: "cat-2"},
	}
	activeUser = &models.UserPermissions{Status: "ACTIVE", Role: "WORKSHOP"}
)

func notFound() error {
	return errors.FromHTTPStatus("workshop-backend", http.StatusNotFound, "")
}

func expectCatalog(m *mockBackend) {
	m.On("GetPermissions", mock.Anything).Return(activeUser, nil)
	m.On("ListCategories", mock.Anything).Return(testCategories, nil)
	m.On("ListServices", mock.Anything).Return(testServices, nil)
}

func newRedisCache(t *testing.T) (*RedisDraftCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisDraftCache(client, LoadConfig()), mr
}

func float(v float64) *float64 { return &v }

// ==========================
// Bootstrap
// ==========================

func TestBootstrap_HydratesFromStatus(t *testing.T) {
	m := &mockBackend{}
	expectCatalog(m)
	m.On("GetOnboardingStatus", mock.Anything).Return(&models.OnboardingStatus{
		Name:         "Taller X",
		Address:      "Calle 1",
		Latitude:     float(-34.6),
		Longitude:    float(-58.4),
		CategoryID:   "cat-1",
		ServiceIDs:   []string{"svc-1", "svc-2"},
		LogoURL:      "logo.png",
		MissingSteps: []models.StepTag{models.StepServices},
	}, nil)

	a := NewAdapter(m, nil, "taller", nil, logger.NewTestLogger(t))
	res, err := a.Bootstrap(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Fresh)
	assert.Equal(t, activeUser, res.Permissions)
	assert.Len(t, res.Categories, 2)
	assert.Equal(t, "Taller X", res.Draft.Name)
	assert.True(t, res.Draft.HasLocation())
	assert.Equal(t, []string{"svc-1"}, res.Draft.ServiceIDs, "svc-2 belongs to another category")
	require.NotNil(t, res.Draft.Logo)
	assert.True(t, res.Draft.Logo.Remote)
	assert.Equal(t, []models.StepTag{models.StepServices}, res.MissingSteps())
	m.AssertExpectations(t)
}

func TestBootstrap_NotFoundIsFreshStart(t *testing.T) {
	m := &mockBackend{}
	expectCatalog(m)
	m.On("GetOnboardingStatus", mock.Anything).Return(nil, notFound())

	a := NewAdapter(m, nil, "taller", nil, logger.NewTestLogger(t))
	res, err := a.Bootstrap(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Fresh)
	assert.Nil(t, res.Status)
	assert.Equal(t, models.Draft{ServiceIDs: []string{}}, res.Draft)
	assert.Empty(t, res.MissingSteps())
}

func TestBootstrap_CatalogFailureFailsFast(t *testing.T) {
	m := &mockBackend{}
	m.On("GetPermissions", mock.Anything).Return(activeUser, nil)
	m.On("ListCategories", mock.Anything).Return(nil, errors.NewExternalServiceError("workshop-backend", stderrors.New("503")))
	m.On("ListServices", mock.Anything).Return(testServices, nil)

	a := NewAdapter(m, nil, "taller", nil, logger.NewTestLogger(t))
	_, err := a.Bootstrap(context.Background())
	require.Error(t, err)

	std, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeBootstrapFailed, std.Code)
	assert.Equal(t, "categories", std.Metadata["stage"])
	m.AssertNotCalled(t, "GetOnboardingStatus", mock.Anything)
}

func TestBootstrap_StatusFailureSurfaces(t *testing.T) {
	m := &mockBackend{}
	expectCatalog(m)
	m.On("GetOnboardingStatus", mock.Anything).Return(nil, errors.NewExternalServiceError("workshop-backend", stderrors.New("500")))

	a := NewAdapter(m, nil, "taller", nil, logger.NewTestLogger(t))
	_, err := a.Bootstrap(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBootstrapFailed))
	assert.Equal(t, "The onboarding information could not be loaded. Reload to try again.", errors.UserMessage(err))
}

// ==========================
// PersistDraft / CompleteOnboarding
// ==========================

func sampleDraft() models.Draft {
	d := models.Draft{Name: "Taller X", Address: "Calle 1", CategoryID: "cat-1", ServiceIDs: []string{"svc-1"}}
	d.SetLocation(-34.6, -58.4)
	return d
}

func TestPersistDraft_SendsSnapshotAndMirrors(t *testing.T) {
	cache, mr := newRedisCache(t)
	m := &mockBackend{}
	draft := sampleDraft()
	m.On("SaveDraft", mock.Anything, draft.Payload(), mock.AnythingOfType("string")).Return(nil, nil).Twice()

	a := NewAdapter(m, cache, "taller", nil, logger.NewTestLogger(t))
	_, err := a.PersistDraft(context.Background(), draft, 3)
	require.NoError(t, err)
	_, err = a.PersistDraft(context.Background(), draft, 3)
	require.NoError(t, err)

	keys := map[string]bool{}
	for _, call := range m.Calls {
		keys[call.Arguments.String(2)] = true
	}
	assert.Len(t, keys, 2, "each logical save carries its own idempotency key")

	assert.True(t, mr.Exists("onboarding:draft:taller"))
	cached, err := a.LoadLocal(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, 3, cached.Step)
	assert.True(t, cached.Synced)
	assert.Equal(t, draft.Payload(), cached.Draft.Payload())
	m.AssertExpectations(t)
}

func TestPersistDraft_FailureIsTranslated(t *testing.T) {
	m := &mockBackend{}
	m.On("SaveDraft", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.NewExternalServiceError("workshop-backend", stderrors.New("502")))

	a := NewAdapter(m, nil, "taller", nil, logger.NewTestLogger(t))
	_, err := a.PersistDraft(context.Background(), sampleDraft(), 1)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDraftSaveFailed))
	assert.Equal(t, "Your progress could not be saved. Please try again.", errors.UserMessage(err))
}

func TestPersistDraft_UnauthorizedStaysUnauthorized(t *testing.T) {
	m := &mockBackend{}
	m.On("SaveDraft", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.FromHTTPStatus("workshop-backend", http.StatusUnauthorized, ""))

	a := NewAdapter(m, nil, "taller", nil, logger.NewTestLogger(t))
	_, err := a.PersistDraft(context.Background(), sampleDraft(), 1)
	std, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeUnauthorized, std.Code)
}

func TestPersistDraft_CacheFailureDoesNotFailSave(t *testing.T) {
	cache, mr := newRedisCache(t)
	mr.SetError("READONLY")
	m := &mockBackend{}
	m.On("SaveDraft", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	a := NewAdapter(m, cache, "taller", nil, logger.NewTestLogger(t))
	_, err := a.PersistDraft(context.Background(), sampleDraft(), 2)
	assert.NoError(t, err)
}

func TestCompleteOnboarding_ClearsCache(t *testing.T) {
	cache, mr := newRedisCache(t)
	m := &mockBackend{}
	draft := sampleDraft()
	logo := models.NewAttachment("logo.png", []byte("\x89PNG\r\n\x1a\n"))
	draft.Logo = &logo

	m.On("Complete", mock.Anything, mock.MatchedBy(func(req backend.CompletionRequest) bool {
		return req.Payload.LogoURL == "logo.png" && req.Logo != nil && req.Logo.HasData()
	})).Return(&models.OnboardingStatus{OnboardingCompleted: true}, nil)

	a := NewAdapter(m, cache, "taller", nil, logger.NewTestLogger(t))
	require.NoError(t, a.SaveLocal(context.Background(), draft, 5))
	require.True(t, mr.Exists("onboarding:draft:taller"))

	status, err := a.CompleteOnboarding(context.Background(), draft)
	require.NoError(t, err)
	assert.True(t, status.OnboardingCompleted)
	assert.False(t, mr.Exists("onboarding:draft:taller"))
}

func TestCompleteOnboarding_FailureKeepsCache(t *testing.T) {
	cache, mr := newRedisCache(t)
	m := &mockBackend{}
	m.On("Complete", mock.Anything, mock.Anything).
		Return(nil, errors.FromHTTPStatus("workshop-backend", http.StatusBadRequest, "Category is required"))

	a := NewAdapter(m, cache, "taller", nil, logger.NewTestLogger(t))
	require.NoError(t, a.SaveLocal(context.Background(), sampleDraft(), 5))

	_, err := a.CompleteOnboarding(context.Background(), sampleDraft())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCompletionFailed))
	assert.True(t, mr.Exists("onboarding:draft:taller"))
}

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(&config.Config{Cache: config.CacheConfig{DraftTTL: 30}})
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, LoadConfig().CacheTTL, FromAppConfig(nil).CacheTTL)
}
