package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"course-ambassador-platform/internal/domain/model"
	"course-ambassador-platform/internal/domain/ports/repository"
	"course-ambassador-platform/internal/infra/cache"
	"course-ambassador-platform/internal/infra/metrics"
)

var _ repository.TierConfigRepository = (*tierConfigCacheDecorator)(nil)

// tierConfigCacheDecorator is a read-through TTL cache over the tier config
// store, keyed by rank. Within the TTL a read returns the cached bytes even
// if the backing row changed; concurrent refreshes are last-writer-wins,
// which is acceptable for rarely-changing configuration.
type tierConfigCacheDecorator struct {
	inner repository.TierConfigRepository
	cache *cache.TTLCache
}

func NewTierConfigCacheDecorator(inner repository.TierConfigRepository, c *cache.TTLCache) repository.TierConfigRepository {
	return &tierConfigCacheDecorator{inner: inner, cache: c}
}

func tierKey(rank model.Rank) string { return fmt.Sprintf("tier_config:%d", rank) }

func (d *tierConfigCacheDecorator) FindByRank(ctx context.Context, tx repository.Tx, rank model.Rank) (*model.TierConfig, error) {
	key := tierKey(rank)
	if raw, ok := d.cache.Get(key); ok {
		var cfg model.TierConfig
		if json.Unmarshal(raw, &cfg) == nil {
			metrics.IncCacheRequest("tier_config", "hit")
			return &cfg, nil
		}
	}

	metrics.IncCacheRequest("tier_config", "miss")
	cfg, err := d.inner.FindByRank(ctx, tx, rank)
	if err != nil {
		// Absence is a normal outcome and is not cached: a freshly
		// configured tier becomes visible on the next read.
		return nil, err
	}
	if raw, err := json.Marshal(cfg); err == nil {
		d.cache.Set(key, raw)
	}
	return cfg, nil
}

// Save writes through and invalidates so admins see their change immediately.
func (d *tierConfigCacheDecorator) Save(ctx context.Context, tx repository.Tx, cfg *model.TierConfig) error {
	d.cache.Delete(tierKey(cfg.Rank))
	return d.inner.Save(ctx, tx, cfg)
}
