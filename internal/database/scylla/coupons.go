package scylla

import (
	"context"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"tutora_back_end/internal/apperr"
	"tutora_back_end/internal/models"
)

type CouponRepository struct {
	session *gocql.Session
}

func NewCouponRepository(session *gocql.Session) *CouponRepository {
	return &CouponRepository{session: session}
}

const couponColumns = `code, discount_type, discount_value, applicable_to_all, applicable_course_ids,
	min_amount, max_uses, used_count, valid_from, valid_until, active, created_by, created_at, updated_at`

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var (
		c                       models.Coupon
		discountType, discountV string
		minAmount               string
		maxUses                 int
	)
	err := r.session.Query(`SELECT `+couponColumns+` FROM coupons WHERE code = ?`, models.NormalizeCode(code)).
		WithContext(ctx).
		Scan(&c.Code, &discountType, &discountV, &c.ApplicableToAll, &c.ApplicableCourseIDs,
			&minAmount, &maxUses, &c.UsedCount, &c.ValidFrom, &c.ValidUntil, &c.Active, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lecture coupon")
	}

	c.DiscountType = models.DiscountType(discountType)
	if c.DiscountValue, err = parseDecimal(discountV); err != nil {
		return nil, errors.Wrapf(err, "coupon %s", c.Code)
	}
	if minAmount != "" {
		v, err := parseDecimal(minAmount)
		if err != nil {
			return nil, errors.Wrapf(err, "coupon %s", c.Code)
		}
		c.MinAmount = &v
	}
	// 0 en base = pas de plafond
	if maxUses > 0 {
		c.MaxUses = &maxUses
	}
	return &c, nil
}

func (r *CouponRepository) Create(ctx context.Context, c models.Coupon) error {
	minAmount := ""
	if c.MinAmount != nil {
		minAmount = decimalText(*c.MinAmount)
	}
	maxUses := 0
	if c.MaxUses != nil {
		maxUses = *c.MaxUses
	}

	applied, err := cas(ctx, r.session.Query(`INSERT INTO coupons (`+couponColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		c.Code, string(c.DiscountType), decimalText(c.DiscountValue), c.ApplicableToAll, c.ApplicableCourseIDs,
		minAmount, maxUses, c.UsedCount, c.ValidFrom, c.ValidUntil, c.Active, c.CreatedBy, c.CreatedAt, c.UpdatedAt))
	if err != nil {
		return err
	}
	if !applied {
		return apperr.Rule(apperr.ReasonCodeTaken, "Ce code coupon existe déjà")
	}
	return nil
}

// IncrementUsage : lecture sérielle puis UPDATE ... IF used_count = lu, rejoué tant
// qu'un autre consommateur passe devant et que le plafond n'est pas atteint
func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) (bool, error) {
	code = models.NormalizeCode(code)
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		var used, maxUses int
		err := r.session.Query(`SELECT used_count, max_uses FROM coupons WHERE code = ?`, code).
			WithContext(ctx).
			Consistency(serialRead).
			Scan(&used, &maxUses)
		if errors.Is(err, gocql.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, errors.Wrap(err, "lecture compteur coupon")
		}
		if maxUses > 0 && used >= maxUses {
			return false, nil
		}

		applied, err := cas(ctx, r.session.Query(
			`UPDATE coupons SET used_count = ?, updated_at = ? WHERE code = ? IF used_count = ?`,
			used+1, time.Now(), code, used))
		if err != nil {
			return false, err
		}
		if applied {
			return true, nil
		}
	}
	return false, ErrContention
}
