package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tutora_back_end/internal/models"
)

const CourseCacheTTL = 10 * time.Minute

// readThrough lit key dans Redis, sinon appelle load et met le résultat en cache.
// Seules les valeurs acceptées par cacheable (nil : toutes) sont servies ou écrites depuis Redis.
// Un résultat nil n'est pas mis en cache ; une panne Redis est journalisée puis ignorée.
func readThrough[T any](ctx context.Context, rdb redis.UniversalClient, log *zap.Logger, key string, ttl time.Duration,
	cacheable func(*T) bool, load func() (*T, error)) (*T, error) {
	keep := func(v *T) bool { return cacheable == nil || cacheable(v) }

	data, err := rdb.Get(ctx, key).Bytes()
	if err == nil {
		var v T
		if json.Unmarshal(data, &v) == nil && keep(&v) {
			return &v, nil
		}
	} else if err != redis.Nil {
		log.Warn("⚠️ cache Redis indisponible", zap.String("key", key), zap.Error(err))
	}

	v, err := load()
	if err != nil || v == nil || !keep(v) {
		return v, err
	}

	if payload, err := json.Marshal(v); err == nil {
		if err := rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
			log.Warn("⚠️ mise en cache échouée", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}

type courseSource interface {
	FindCourse(ctx context.Context, id string) (*models.Course, error)
}

// CourseCatalog met en cache les fiches cours lues pour le paiement
type CourseCatalog struct {
	next  courseSource
	redis redis.UniversalClient
	ttl   time.Duration
	log   *zap.Logger
}

func NewCourseCatalog(next courseSource, rdb redis.UniversalClient, ttl time.Duration, log *zap.Logger) *CourseCatalog {
	if ttl <= 0 {
		ttl = CourseCacheTTL
	}
	return &CourseCatalog{next: next, redis: rdb, ttl: ttl, log: log}
}

func (c *CourseCatalog) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	return readThrough(ctx, c.redis, c.log, "course:"+id, c.ttl, nil, func() (*models.Course, error) {
		return c.next.FindCourse(ctx, id)
	})
}

// InvalidateCourse à appeler quand le catalogue publie une modification
func (c *CourseCatalog) InvalidateCourse(ctx context.Context, id string) {
	if err := c.redis.Del(ctx, "course:"+id).Err(); err != nil {
		c.log.Warn("⚠️ invalidation cache cours échouée", zap.String("course_id", id), zap.Error(err))
	}
}
