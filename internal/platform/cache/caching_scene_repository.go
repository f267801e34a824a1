// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"roomscene_backend/internal/feature/scene/domain/entity"
	"roomscene_backend/internal/feature/scene/usecase"
)

// CachingSceneRepository decorates a SceneRepository with Redis caching.
// Scene records are immutable once saved, so entries are written through on
// Save and read through on FindByProject without invalidation.
type CachingSceneRepository struct {
	inner     usecase.SceneRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.SceneRepository = (*CachingSceneRepository)(nil)

// NewCachingSceneRepository decorates a SceneRepository with Redis caching.
// If ttl is 0, it defaults to 1 hour. If namespace is empty, it uses "scenes".
func NewCachingSceneRepository(rdb *redis.Client, ttl time.Duration, inner usecase.SceneRepository, namespace string) *CachingSceneRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if namespace == "" {
		namespace = "scenes"
	}
	return &CachingSceneRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Save persists the record and then caches it.
func (c *CachingSceneRepository) Save(ctx context.Context, rec *entity.SceneRecord) error {
	if err := c.inner.Save(ctx, rec); err != nil {
		return err
	}
	if c.rdb == nil {
		return nil
	}
	c.store(ctx, c.cacheKey(rec.ProjectID), rec)
	return nil
}

// FindByProject checks the cache first and falls back to the inner repository.
func (c *CachingSceneRepository) FindByProject(ctx context.Context, projectID string) (*entity.SceneRecord, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.FindByProject(ctx, projectID)
	}

	key := c.cacheKey(projectID)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.SceneRecord
		if err := json.Unmarshal(b, &out); err == nil {
			return &out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := c.inner.FindByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	c.store(ctx, key, out)
	return out, nil
}

func (c *CachingSceneRepository) store(ctx context.Context, key string, rec *entity.SceneRecord) {
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		slog.Warn("failed to cache scene", "key", key, "error", err)
	}
}

// cacheKey generates the cache key for a project's scene.
func (c *CachingSceneRepository) cacheKey(projectID string) string {
	return fmt.Sprintf("%s:%s", c.namespace, safe(projectID))
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
