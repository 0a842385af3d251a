// cmd/onboarding-cli/app.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"workshop-onboarding/internal/backend"
	"workshop-onboarding/internal/common/auth"
	"workshop-onboarding/internal/common/config"
	"workshop-onboarding/internal/common/database"
	apihttp "workshop-onboarding/internal/common/http"
	"workshop-onboarding/internal/common/logger"
	"workshop-onboarding/internal/common/observability"
	draftpersistence "workshop-onboarding/internal/onboarding/draft-persistence"
	"workshop-onboarding/pkg/registry"
)

// app holds what every command shares. Construct it with newApp and release it with close.
type app struct {
	cfg  *config.Config
	log  logger.Logger
	obs  *observability.Observability
	auth *auth.Client

	anonymous *apihttp.Client
	redis     *database.RedisClient
	metrics   *http.Server
}

func newApp() (*app, error) {
	var cfg *config.Config
	var err error
	if configDir != "" {
		cfg, err = config.Load(configDir)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	log := logger.NewStructured(level, cfg.Logging.Format, cfg.Logging.Output)

	a := &app{
		cfg: cfg,
		log: log,
		obs: observability.New(observability.Options{
			ServiceName:    cfg.Observability.ServiceName,
			JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		}, log),
	}
	a.anonymous = apihttp.NewClient(a.httpConfig(), nil, log)
	a.auth = auth.NewClient(a.anonymous, auth.NewFileTokenStore(cfg.Session.StorePath), log)
	a.startMetricsServer()
	return a, nil
}

func (a *app) httpConfig() apihttp.Config {
	return apihttp.Config{
		BaseURL:     a.cfg.Backend.BaseURL,
		Timeout:     config.GetDuration(a.cfg.Backend.Timeout),
		MaxRetries:  a.cfg.Backend.MaxRetries,
		ServiceName: "workshop-backend",
	}
}

// session restores the stored login and tells the operator when the backend ends it.
func (a *app) session() (*auth.Session, error) {
	s, err := a.auth.Restore()
	if err != nil {
		return nil, err
	}
	s.OnInvalidate(func() {
		a.log.Warn("session ended by the backend, run 'onboarding-cli login' again", nil)
	})
	return s, nil
}

func (a *app) backend(s *auth.Session) *backend.Client {
	return backend.NewClient(a.anonymous.WithCredentials(s), a.obs, a.log)
}

// draftCache connects to redis when caching is enabled. An unreachable redis only
// disables the local copy.
func (a *app) draftCache(ctx context.Context, cfg *draftpersistence.Config) draftpersistence.DraftCache {
	if !a.cfg.Cache.Enabled {
		return draftpersistence.NoopDraftCache{}
	}
	if a.redis == nil {
		client := database.NewRedis(a.cfg.Cache.Redis)
		err := retryWithBackoff(func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}, 3, 200*time.Millisecond, a.log, "Redis connection")
		if err != nil {
			a.log.Warn("draft cache disabled", map[string]interface{}{"redis": a.cfg.Cache.Redis.String(), "error": err})
			_ = client.Close()
			return draftpersistence.NoopDraftCache{}
		}
		a.redis = client
	}
	return draftpersistence.NewRedisDraftCache(a.redis, cfg)
}

func (a *app) registry() (*registry.StepRegistry, error) {
	return registry.LoadOrDefault(a.cfg.Wizard.RegistryPath)
}

func (a *app) startMetricsServer() {
	addr := a.cfg.Observability.MetricsAddress
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	mux.Handle("/metrics", promhttp.Handler())
	a.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.log.Info("metrics server listening", map[string]interface{}{"address": addr})
		if err := a.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("metrics server failed", map[string]interface{}{"error": err})
		}
	}()
}

func (a *app) close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.obs.Shutdown()
}
