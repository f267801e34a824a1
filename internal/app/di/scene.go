package di

import (
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	sceneadapters "roomscene_backend/internal/feature/scene/adapters"
	"roomscene_backend/internal/feature/scene/usecase"
	"roomscene_backend/internal/platform/cache"
)

// NewSceneRepository creates a SceneRepository implementation.
// If Redis is available, the gorm repository is wrapped with a Redis cache.
func NewSceneRepository(rdb *redis.Client, db *gorm.DB) (usecase.SceneRepository, error) {
	repo := sceneadapters.NewSceneRepository(db)
	if rdb == nil {
		return repo, nil
	}
	ttl, err := durationEnv("SCENE_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	return cache.NewCachingSceneRepository(rdb, ttl, repo, "scenes"), nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", key, v, err)
	}
	return d, nil
}
