// Package memory fournit des dépôts en mémoire pour les tests et le développement local.
// Chaque méthode s'exécute sous verrou pour reproduire l'atomicité d'une écriture
// conditionnelle de la base.
package memory

import (
	"context"
	"sync"

	"tutora_back_end/internal/apperr"
	"tutora_back_end/internal/models"
)

type CouponRepository struct {
	mu      sync.Mutex
	coupons map[string]models.Coupon
}

func NewCouponRepository(seed ...models.Coupon) *CouponRepository {
	r := &CouponRepository{coupons: make(map[string]models.Coupon)}
	for _, c := range seed {
		c.Code = models.NormalizeCode(c.Code)
		r.coupons[c.Code] = c
	}
	return r
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[models.NormalizeCode(code)]
	if !ok {
		return nil, nil
	}
	c.ApplicableCourseIDs = append([]string(nil), c.ApplicableCourseIDs...)
	return &c, nil
}

func (r *CouponRepository) Create(ctx context.Context, c models.Coupon) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.coupons[c.Code]; exists {
		return apperr.Rule(apperr.ReasonCodeTaken, "Ce code coupon existe déjà")
	}
	r.coupons[c.Code] = c
	return nil
}

func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[models.NormalizeCode(code)]
	if !ok || c.Exhausted() {
		return false, nil
	}
	c.UsedCount++
	r.coupons[c.Code] = c
	return true, nil
}
