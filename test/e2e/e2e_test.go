package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workshop-onboarding/internal/backend"
	"workshop-onboarding/internal/common/auth"
	"workshop-onboarding/internal/common/config"
	"workshop-onboarding/internal/common/database"
	"workshop-onboarding/internal/common/errors"
	apihttp "workshop-onboarding/internal/common/http"
	"workshop-onboarding/internal/common/logger"
	"workshop-onboarding/internal/models"
	draftpersistence "workshop-onboarding/internal/onboarding/draft-persistence"
	onboardinggate "workshop-onboarding/internal/onboarding/onboarding-gate"
	progressestimator "workshop-onboarding/internal/onboarding/progress-estimator"
	stepcontroller "workshop-onboarding/internal/onboarding/step-controller"
)

// ==========================
// Fake workshop backend
// ==========================

type completion struct {
	payload     models.DraftPayload
	contentType string
	files       map[string][]string
}

type workshopBackend struct {
	mu sync.Mutex

	token       string
	status      *models.OnboardingStatus
	drafts      []models.DraftPayload
	completions []completion
	keys        map[string]bool
}

func newWorkshopBackend(t *testing.T) (*workshopBackend, *httptest.Server) {
	b := &workshopBackend{keys: map[string]bool{}}
	srv := httptest.NewServer(b.routes(t))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *workshopBackend) routes(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/auth/login/workshop", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret-password" {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		claims := jwt.RegisteredClaims{Subject: req.Username, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
		require.NoError(t, err)

		b.mu.Lock()
		b.token = token
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, models.LoginResponse{AccessToken: token, TokenType: "Bearer", ExpiresIn: 3600})
	})

	mux.HandleFunc(backend.PermissionsPath, b.authed(func(w http.ResponseWriter, r *http.Request) {
		status := "PENDING"
		if b.status != nil && b.status.OnboardingCompleted {
			status = models.AccountStatusActive
		}
		writeJSON(w, http.StatusOK, models.UserPermissions{Status: status, Role: "WORKSHOP"})
	}))

	mux.HandleFunc(backend.CategoriesPath, b.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Category{
			{ID: "cat-1", Name: "Mechanics"},
			{ID: "cat-2", Name: "Body shop"},
		})
	}))

	mux.HandleFunc(backend.ServicesPath, b.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Service{
			{ID: "svc-1", Name: "Oil change", CategoryID: "cat-1"},
			{ID: "svc-2", Name: "Brakes", CategoryID: "cat-1"},
			{ID: "svc-3", Name: "Paint", CategoryID: "cat-2"},
		})
	}))

	mux.HandleFunc(backend.StatusPath, b.authed(func(w http.ResponseWriter, r *http.Request) {
		if b.status == nil {
			writeError(w, http.StatusNotFound, "Onboarding not started")
			return
		}
		writeJSON(w, http.StatusOK, b.status)
	}))

	mux.HandleFunc(backend.DraftPath, b.authed(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NotEmpty(t, r.Header.Get(apihttp.HeaderIdempotencyKey))
		b.keys[r.Header.Get(apihttp.HeaderIdempotencyKey)] = true

		var p models.DraftPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		b.drafts = append(b.drafts, p)
		b.status = statusFrom(p, false)
		writeJSON(w, http.StatusOK, b.status)
	}))

	mux.HandleFunc(backend.CompletePath, b.authed(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		c := completion{contentType: r.Header.Get("Content-Type"), files: map[string][]string{}}

		if strings.HasPrefix(c.contentType, "multipart/form-data") {
			require.NoError(t, r.ParseMultipartForm(10<<20))
			require.NoError(t, json.Unmarshal([]byte(r.MultipartForm.Value["payload"][0]), &c.payload))
			for field, headers := range r.MultipartForm.File {
				for _, h := range headers {
					c.files[field] = append(c.files[field], h.Filename)
				}
			}
		} else {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&c.payload))
		}

		b.completions = append(b.completions, c)
		b.status = statusFrom(c.payload, true)
		writeJSON(w, http.StatusOK, b.status)
	}))

	return mux
}

// authed serializes handlers and rejects calls without the current token.
func (b *workshopBackend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.token == "" || r.Header.Get("Authorization") != "Bearer "+b.token {
			writeError(w, http.StatusUnauthorized, "Token expired")
			return
		}
		next(w, r)
	}
}

func (b *workshopBackend) revokeToken() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = "rotated"
}

func (b *workshopBackend) setStatus(s *models.OnboardingStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = s
}

func statusFrom(p models.DraftPayload, completed bool) *models.OnboardingStatus {
	s := &models.OnboardingStatus{
		OnboardingCompleted: completed,
		Name:                p.Name,
		Address:             p.Address,
		Latitude:            p.Latitude,
		Longitude:           p.Longitude,
		CategoryID:          p.CategoryID,
		ServiceIDs:          p.ServiceIDs,
		LogoURL:             p.LogoURL,
		PhotoURLs:           p.PhotoURLs,
		MissingSteps:        []models.StepTag{},
	}
	if p.Name == "" || p.Address == "" {
		s.MissingSteps = append(s.MissingSteps, models.StepBasicInfo)
	}
	if p.Latitude == nil || p.Longitude == nil {
		s.MissingSteps = append(s.MissingSteps, models.StepLocation)
	}
	if p.CategoryID == "" {
		s.MissingSteps = append(s.MissingSteps, models.StepCategory)
	}
	if len(p.ServiceIDs) == 0 {
		s.MissingSteps = append(s.MissingSteps, models.StepServices)
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": http.StatusText(status), "message": message})
}

// ==========================
// Client stack
// ==========================

type stack struct {
	auth    *auth.Client
	session *auth.Session
	backend *backend.Client
	cache   *draftpersistence.RedisDraftCache
	redis   *miniredis.Miniredis
	store   string
	log     logger.Logger
}

func newStack(t *testing.T, srv *httptest.Server) *stack {
	t.Helper()
	log := logger.NewTestLogger(t)
	anonymous := apihttp.NewClient(apihttp.Config{BaseURL: srv.URL, Timeout: 5 * time.Second, RetryDelay: time.Millisecond}, nil, log)

	storePath := filepath.Join(t.TempDir(), "session.json")
	authClient := auth.NewClient(anonymous, auth.NewFileTokenStore(storePath), log)
	session, err := authClient.Login(context.Background(), "taller-x", "secret-password")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redis := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { redis.Close() })

	return &stack{
		auth:    authClient,
		session: session,
		backend: backend.NewClient(anonymous.WithCredentials(session), nil, log),
		cache:   draftpersistence.NewRedisDraftCache(redis, nil),
		redis:   mr,
		store:   storePath,
		log:     log,
	}
}

func (s *stack) wizard() *stepcontroller.Controller {
	adapter := draftpersistence.NewAdapter(s.backend, s.cache, s.session.Username(), nil, s.log)
	return stepcontroller.New(adapter, nil, s.log)
}

func str(v string) *string { return &v }

const cacheKey = "onboarding:draft:taller-x"

// ==========================
// Scenarios
// ==========================

func TestFreshOnboarding_CompletesWithExactPayload(t *testing.T) {
	b, srv := newWorkshopBackend(t)
	s := newStack(t, srv)
	ctx := context.Background()

	gate := onboardinggate.NewGate(s.backend, time.Second, s.log)
	decision, err := gate.Check(ctx)
	require.NoError(t, err)
	assert.True(t, decision.NeedsOnboarding)
	assert.Equal(t, onboardinggate.ReasonAccountInactive, decision.Reason)

	estimator := progressestimator.NewEstimator(s.backend, s.log)
	badge, err := estimator.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, badge.Visible)
	assert.Equal(t, 0, badge.Percentage)

	w := s.wizard()
	var completed *models.OnboardingStatus
	w.OnComplete(func(st *models.OnboardingStatus) { completed = st })

	require.NoError(t, w.Bootstrap(ctx))
	state := w.State()
	assert.Equal(t, 1, state.CurrentStep)
	assert.Equal(t, models.Draft{ServiceIDs: []string{}}, state.Draft)
	assert.False(t, state.HasErrors())

	require.NoError(t, w.UpdateDraft(models.DraftPatch{Name: str("Taller X"), Address: str("Calle 1")}))
	require.NoError(t, w.Advance(ctx))
	require.NoError(t, w.Advance(ctx))
	require.NoError(t, w.SetLocation(-34.6, -58.4))
	require.NoError(t, w.Advance(ctx))

	badge, err = estimator.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, badge.Percentage)

	require.NoError(t, w.SelectCategory("cat-1"))
	require.NoError(t, w.Advance(ctx))
	require.NoError(t, w.ToggleService("svc-1"))
	require.True(t, s.redis.Exists(cacheKey), "each saved step is mirrored locally")

	require.NoError(t, w.Advance(ctx))
	assert.Equal(t, stepcontroller.PhaseCompleted, w.State().Phase)
	require.NotNil(t, completed)
	assert.True(t, completed.OnboardingCompleted)

	b.mu.Lock()
	require.Len(t, b.completions, 1)
	got := b.completions[0]
	drafts := len(b.drafts)
	keys := len(b.keys)
	b.mu.Unlock()

	lat, lng := -34.6, -58.4
	assert.Equal(t, models.DraftPayload{
		Name:       "Taller X",
		Address:    "Calle 1",
		Latitude:   &lat,
		Longitude:  &lng,
		CategoryID: "cat-1",
		ServiceIDs: []string{"svc-1"},
	}, got.payload)
	assert.True(t, strings.HasPrefix(got.contentType, "application/json"))
	assert.Empty(t, got.files)
	assert.Equal(t, 5, drafts)
	assert.Equal(t, 5, keys)

	assert.False(t, s.redis.Exists(cacheKey), "completion clears the cached draft")

	decision, err = gate.Check(ctx)
	require.NoError(t, err)
	assert.False(t, decision.NeedsOnboarding)

	badge, err = estimator.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, badge.Completed)
	assert.False(t, badge.Visible)
}

func TestResume_UploadsAttachmentsOnCompletion(t *testing.T) {
	b, srv := newWorkshopBackend(t)
	s := newStack(t, srv)
	ctx := context.Background()

	lat, lng := -34.6, -58.4
	b.setStatus(&models.OnboardingStatus{
		Name:         "Taller X",
		Address:      "Calle 1",
		Latitude:     &lat,
		Longitude:    &lng,
		PhotoURLs:    []string{"front.jpg"},
		MissingSteps: []models.StepTag{models.StepCategory, models.StepServices},
	})

	w := s.wizard()
	require.NoError(t, w.Bootstrap(ctx))
	state := w.State()
	require.Equal(t, 4, state.CurrentStep)
	assert.Equal(t, "Taller X", state.Draft.Name)
	require.Len(t, state.Draft.Photos, 1)
	assert.True(t, state.Draft.Photos[0].Remote)

	require.NoError(t, w.SetLogo(models.NewAttachment("logo.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))))
	require.NoError(t, w.SelectCategory("cat-1"))
	require.NoError(t, w.Advance(ctx))

	require.Error(t, w.ToggleService("svc-3"), "services of another category are refused")
	require.NoError(t, w.ToggleService("svc-2"))
	require.NoError(t, w.Advance(ctx))

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.completions, 1)
	got := b.completions[0]
	assert.True(t, strings.HasPrefix(got.contentType, "multipart/form-data"))
	assert.Equal(t, []string{"logo.png"}, got.files["logo"])
	assert.Empty(t, got.files["photos"], "remote photos are referenced by name only")
	assert.Equal(t, "logo.png", got.payload.LogoURL)
	assert.Equal(t, []string{"front.jpg"}, got.payload.PhotoURLs)
	assert.Equal(t, []string{"svc-2"}, got.payload.ServiceIDs)

	// the draft saves before completion never carry bytes
	for _, d := range b.drafts {
		assert.Equal(t, "logo.png", d.LogoURL)
	}
}

func TestExpiredSession_EndsWizardAndKeepsDraft(t *testing.T) {
	b, srv := newWorkshopBackend(t)
	s := newStack(t, srv)
	ctx := context.Background()

	w := s.wizard()
	require.NoError(t, w.Bootstrap(ctx))
	require.NoError(t, w.UpdateDraft(models.DraftPatch{Name: str("Taller X"), Address: str("Calle 1")}))

	b.revokeToken()
	err := w.Advance(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsUnauthorized(err))

	state := w.State()
	assert.Equal(t, 1, state.CurrentStep)
	assert.Equal(t, "Your session has ended. Please log in again.", state.GlobalError)
	assert.False(t, s.session.Valid())

	_, err = s.auth.Restore()
	assert.True(t, errors.IsCode(err, errors.ErrCodeSessionMissing), "stored token is removed on 401")

	require.NoError(t, w.Close(ctx))
	raw, err := s.redis.Get(cacheKey)
	require.NoError(t, err)
	var cached draftpersistence.CachedDraft
	require.NoError(t, json.NewDecoder(strings.NewReader(raw)).Decode(&cached))
	assert.Equal(t, "Taller X", cached.Draft.Name)
	assert.False(t, cached.Synced)
}

func TestBootstrapFailure_IsSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/login/workshop" {
			_, _ = io.Copy(io.Discard, r.Body)
			writeJSON(w, http.StatusOK, models.LoginResponse{AccessToken: "opaque", ExpiresIn: 60})
			return
		}
		writeError(w, http.StatusServiceUnavailable, "maintenance")
	}))
	t.Cleanup(srv.Close)

	s := newStack(t, srv)
	w := s.wizard()
	err := w.Bootstrap(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBootstrapFailed))

	state := w.State()
	assert.Equal(t, stepcontroller.PhaseLoadFailed, state.Phase)
	assert.NotEmpty(t, state.LoadError)
}
