package pricing

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"tutora_back_end/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func percent(v string) *models.Coupon {
	return &models.Coupon{Code: "PCT", DiscountType: models.DiscountPercentage, DiscountValue: d(v), ApplicableToAll: true}
}

func fixed(v string) *models.Coupon {
	return &models.Coupon{Code: "FIX", DiscountType: models.DiscountFixed, DiscountValue: d(v), ApplicableToAll: true}
}

func TestComputeFinalAmount(t *testing.T) {
	tests := []struct {
		name           string
		original       string
		coupon         *models.Coupon
		children       int
		wantCoupon     string
		wantMultiChild string
		wantFinal      string
		wantClamped    bool
	}{
		{name: "sans réduction", original: "100", wantCoupon: "0", wantMultiChild: "0", wantFinal: "100"},
		{name: "pourcentage 20 sur 100", original: "100", coupon: percent("20"), children: 1, wantCoupon: "20", wantMultiChild: "0", wantFinal: "80"},
		{name: "deux enfants sans coupon", original: "100", children: 2, wantCoupon: "0", wantMultiChild: "10", wantFinal: "90"},
		{name: "trois enfants sans coupon", original: "100", children: 3, wantCoupon: "0", wantMultiChild: "15", wantFinal: "85"},
		{name: "cinq enfants", original: "100", children: 5, wantCoupon: "0", wantMultiChild: "15", wantFinal: "85"},
		{name: "un enfant avec coupon", original: "100", coupon: fixed("5"), children: 1, wantCoupon: "5", wantMultiChild: "0", wantFinal: "95"},
		{name: "zéro enfant", original: "100", children: 0, wantCoupon: "0", wantMultiChild: "0", wantFinal: "100"},
		{name: "additif sur la base", original: "200", coupon: percent("10"), children: 2, wantCoupon: "20", wantMultiChild: "20", wantFinal: "160"},
		{name: "fixe plafonné au montant", original: "50", coupon: fixed("80"), wantCoupon: "50", wantMultiChild: "0", wantFinal: "0"},
		{name: "cumul dépassant la base", original: "200", coupon: fixed("190"), children: 3, wantCoupon: "190", wantMultiChild: "30", wantFinal: "0", wantClamped: true},
		{name: "fixe 150 et trois enfants", original: "200", coupon: fixed("150"), children: 3, wantCoupon: "150", wantMultiChild: "30", wantFinal: "20"},
		{name: "100% et deux enfants", original: "100", coupon: percent("100"), children: 2, wantCoupon: "100", wantMultiChild: "10", wantFinal: "0", wantClamped: true},
		{name: "montant nul", original: "0", coupon: percent("50"), children: 3, wantCoupon: "0", wantMultiChild: "0", wantFinal: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeFinalAmount(d(tt.original), tt.coupon, tt.children)
			assert.True(t, got.CouponDiscount.Equal(d(tt.wantCoupon)), "coupon = %s", got.CouponDiscount)
			assert.True(t, got.MultiChildDiscount.Equal(d(tt.wantMultiChild)), "multi = %s", got.MultiChildDiscount)
			assert.True(t, got.FinalAmount.Equal(d(tt.wantFinal)), "final = %s", got.FinalAmount)
			assert.Equal(t, tt.wantClamped, got.Clamped)
			assert.True(t, got.OriginalAmount.Equal(d(tt.original)))
		})
	}
}

func TestMultiChildRateIgnoresCoupon(t *testing.T) {
	for _, coupon := range []*models.Coupon{nil, percent("30"), fixed("10")} {
		assert.True(t, ComputeFinalAmount(d("100"), coupon, 1).MultiChildDiscount.IsZero())
		assert.True(t, ComputeFinalAmount(d("100"), coupon, 2).MultiChildDiscount.Equal(d("10")))
		assert.True(t, ComputeFinalAmount(d("100"), coupon, 3).MultiChildDiscount.Equal(d("15")))
	}
}

func TestFinalAmountAlwaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		original := decimal.New(rng.Int63n(1_000_000)+1, -2)

		var coupon *models.Coupon
		switch rng.Intn(3) {
		case 1:
			coupon = percent(decimal.New(rng.Int63n(10000)+1, -2).String())
		case 2:
			coupon = fixed(decimal.New(rng.Int63n(2_000_000)+1, -2).String())
		}
		children := rng.Intn(6)

		got := ComputeFinalAmount(original, coupon, children)
		assert.False(t, got.FinalAmount.IsNegative(), "final négatif pour %s", original)
		assert.True(t, got.FinalAmount.LessThanOrEqual(original), "final > original pour %s", original)
		if !got.Clamped {
			assert.True(t, got.FinalAmount.Equal(original.Sub(got.CouponDiscount).Sub(got.MultiChildDiscount)))
		}
		assert.True(t, got.DiscountApplied().Add(got.FinalAmount).Equal(original))
	}
}
