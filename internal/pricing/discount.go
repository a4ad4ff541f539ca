package pricing

import (
	"github.com/shopspring/decimal"

	"tutora_back_end/internal/models"
)

var (
	hundred        = decimal.NewFromInt(100)
	twoChildrenPct = decimal.NewFromInt(10)
	threePlusPct   = decimal.NewFromInt(15)
)

// MultiChildRate renvoie le pourcentage de réduction selon le nombre d'enfants inscrits
func MultiChildRate(childrenCount int) decimal.Decimal {
	switch {
	case childrenCount >= 3:
		return threePlusPct
	case childrenCount == 2:
		return twoChildrenPct
	default:
		return decimal.Zero
	}
}

// CouponDiscount calcule la réduction du coupon sur le montant d'origine, bornée à [0, original]
func CouponDiscount(original decimal.Decimal, coupon *models.Coupon) decimal.Decimal {
	if coupon == nil || !original.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch coupon.DiscountType {
	case models.DiscountPercentage:
		discount = original.Mul(coupon.DiscountValue).Div(hundred)
	case models.DiscountFixed:
		discount = coupon.DiscountValue
	}

	return clamp(discount, decimal.Zero, original)
}

// ComputeFinalAmount combine coupon puis multi-enfants, tous deux sur le montant d'origine.
// Les réductions s'additionnent sans se composer ; si elles dépassent l'origine le
// montant final plafonne à 0 et Clamped est positionné, ce n'est pas une erreur.
func ComputeFinalAmount(original decimal.Decimal, coupon *models.Coupon, childrenCount int) models.DiscountComputation {
	if original.IsNegative() {
		original = decimal.Zero
	}

	couponDiscount := CouponDiscount(original, coupon)
	multiChild := original.Mul(MultiChildRate(childrenCount)).Div(hundred)

	final := original.Sub(couponDiscount).Sub(multiChild)
	clamped := final.IsNegative()
	if clamped {
		final = decimal.Zero
	}

	return models.DiscountComputation{
		OriginalAmount:     original,
		CouponDiscount:     couponDiscount,
		MultiChildDiscount: multiChild,
		FinalAmount:        final,
		Clamped:            clamped,
	}
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
