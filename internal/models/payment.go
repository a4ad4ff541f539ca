package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountComputation n'est jamais persistée : c'est le détail d'un calcul de prix
type DiscountComputation struct {
	OriginalAmount     decimal.Decimal `json:"original_amount"`
	CouponDiscount     decimal.Decimal `json:"coupon_discount"`
	MultiChildDiscount decimal.Decimal `json:"multi_child_discount"`
	FinalAmount        decimal.Decimal `json:"final_amount"`
	// Clamped vaut true quand la somme des réductions dépassait le montant d'origine
	Clamped bool `json:"clamped"`
}

// DiscountApplied est ce qui a réellement été retiré du montant d'origine
func (d DiscountComputation) DiscountApplied() decimal.Decimal {
	return d.OriginalAmount.Sub(d.FinalAmount)
}

// PaymentIntentRecord documente ce qui a été demandé au processeur, pas ce qui a été payé
type PaymentIntentRecord struct {
	IntentID           string          `json:"intent_id"`
	EnrollmentID       string          `json:"enrollment_id,omitempty"`
	UserID             string          `json:"user_id"`
	CourseID           string          `json:"course_id"`
	Currency           string          `json:"currency"`
	OriginalAmount     decimal.Decimal `json:"original_amount"`
	CouponDiscount     decimal.Decimal `json:"coupon_discount"`
	MultiChildDiscount decimal.Decimal `json:"multi_child_discount"`
	DiscountApplied    decimal.Decimal `json:"discount_applied"`
	CouponCode         string          `json:"coupon_code,omitempty"`
	ChildrenCount      int             `json:"children_count"`
	FinalAmountCents   int64           `json:"final_amount_cents"`
	IdempotencyKey     string          `json:"-"`
	CreatedAt          time.Time       `json:"created_at"`
}
