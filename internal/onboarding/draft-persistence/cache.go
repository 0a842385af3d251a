// internal/onboarding/draft-persistence/cache.go
package draftpersistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"workshop-onboarding/internal/common/database"
	"workshop-onboarding/internal/common/metrics"
)

// DraftCache keeps a local copy of the draft keyed by the workshop user.
type DraftCache interface {
	Load(ctx context.Context, owner string) (*CachedDraft, error)
	Save(ctx context.Context, owner string, draft CachedDraft) error
	Clear(ctx context.Context, owner string) error
}

type RedisDraftCache struct {
	redis     *database.RedisClient
	keyPrefix string
	ttl       time.Duration
}

func NewRedisDraftCache(redis *database.RedisClient, cfg *Config) *RedisDraftCache {
	if cfg == nil {
		cfg = LoadConfig()
	}
	return &RedisDraftCache{redis: redis, keyPrefix: cfg.CacheKeyPrefix, ttl: cfg.CacheTTL}
}

func (c *RedisDraftCache) key(owner string) string {
	return c.keyPrefix + owner
}

// Load returns nil without error when nothing is cached.
func (c *RedisDraftCache) Load(ctx context.Context, owner string) (*CachedDraft, error) {
	val, found, err := c.redis.Get(ctx, c.key(owner))
	metrics.DraftCacheOperations.WithLabelValues("load", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("load cached draft: %w", err)
	}
	if !found {
		return nil, nil
	}
	var cached CachedDraft
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, fmt.Errorf("decode cached draft: %w", err)
	}
	return &cached, nil
}

func (c *RedisDraftCache) Save(ctx context.Context, owner string, draft CachedDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode cached draft: %w", err)
	}
	err = c.redis.Set(ctx, c.key(owner), data, c.ttl)
	metrics.DraftCacheOperations.WithLabelValues("save", metrics.Outcome(err)).Inc()
	if err != nil {
		return fmt.Errorf("save cached draft: %w", err)
	}
	return nil
}

func (c *RedisDraftCache) Clear(ctx context.Context, owner string) error {
	err := c.redis.Del(ctx, c.key(owner))
	metrics.DraftCacheOperations.WithLabelValues("clear", metrics.Outcome(err)).Inc()
	if err != nil {
		return fmt.Errorf("clear cached draft: %w", err)
	}
	return nil
}

// NoopDraftCache is used when no cache is configured.
type NoopDraftCache struct{}

func (NoopDraftCache) Load(context.Context, string) (*CachedDraft, error) { return nil, nil }
func (NoopDraftCache) Save(context.Context, string, CachedDraft) error    { return nil }
func (NoopDraftCache) Clear(context.Context, string) error                { return nil }
