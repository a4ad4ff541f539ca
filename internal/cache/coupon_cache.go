package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tutora_back_end/internal/models"
)

const DefaultCouponCacheTTL = 2 * time.Minute

type couponStore interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, c models.Coupon) error
	IncrementUsage(ctx context.Context, code string) (bool, error)
}

// CouponRepository met en cache Redis les lectures de coupons devant le dépôt Scylla.
// Un coupon plafonné n'est jamais mis en cache : son compteur se lit toujours dans le dépôt.
// Toute écriture invalide la clé.
type CouponRepository struct {
	next  couponStore
	redis redis.UniversalClient
	ttl   time.Duration
	log   *zap.Logger
}

func NewCouponRepository(next couponStore, rdb redis.UniversalClient, ttl time.Duration, log *zap.Logger) *CouponRepository {
	if ttl <= 0 {
		ttl = DefaultCouponCacheTTL
	}
	return &CouponRepository{next: next, redis: rdb, ttl: ttl, log: log}
}

func couponKey(code string) string {
	return "coupon:" + models.NormalizeCode(code)
}

func uncapped(c *models.Coupon) bool { return c.MaxUses == nil }

// FindByCode essaie Redis puis le dépôt ; une panne Redis ne bloque jamais la lecture
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return readThrough(ctx, r.redis, r.log, couponKey(code), r.ttl, uncapped, func() (*models.Coupon, error) {
		return r.next.FindByCode(ctx, code)
	})
}

func (r *CouponRepository) Create(ctx context.Context, c models.Coupon) error {
	if err := r.next.Create(ctx, c); err != nil {
		return err
	}
	r.invalidate(ctx, c.Code)
	return nil
}

func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) (bool, error) {
	applied, err := r.next.IncrementUsage(ctx, code)
	r.invalidate(ctx, code)
	return applied, err
}

func (r *CouponRepository) invalidate(ctx context.Context, code string) {
	if err := r.redis.Del(ctx, couponKey(code)).Err(); err != nil {
		r.log.Warn("⚠️ invalidation cache coupon échouée", zap.String("code", code), zap.Error(err))
	}
}
