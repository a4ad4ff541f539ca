package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tutora_back_end/internal/apperr"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

type Coupon struct {
	Code                string           `json:"code"`
	DiscountType        DiscountType     `json:"discount_type"`
	DiscountValue       decimal.Decimal  `json:"discount_value"`
	ApplicableToAll     bool             `json:"applicable_to_all"`
	ApplicableCourseIDs []string         `json:"applicable_course_ids,omitempty"`
	MinAmount           *decimal.Decimal `json:"min_amount,omitempty"`
	MaxUses             *int             `json:"max_uses,omitempty"`
	UsedCount           int              `json:"used_count"`
	ValidFrom           time.Time        `json:"valid_from"`
	ValidUntil          time.Time        `json:"valid_until"`
	Active              bool             `json:"active"`
	CreatedBy           string           `json:"created_by,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// NormalizeCode met un code coupon sous sa forme de stockage (majuscules)
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CheckInvariants vérifie les bornes de valeur avant toute écriture
func (c Coupon) CheckInvariants() error {
	var fields []apperr.FieldError

	if c.Code == "" {
		fields = append(fields, apperr.FieldError{Field: "code", Error: "code requis"})
	}

	switch c.DiscountType {
	case DiscountPercentage:
		if !c.DiscountValue.IsPositive() || c.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			fields = append(fields, apperr.FieldError{Field: "discount_value", Error: "le pourcentage doit être dans ]0, 100]"})
		}
	case DiscountFixed:
		if !c.DiscountValue.IsPositive() {
			fields = append(fields, apperr.FieldError{Field: "discount_value", Error: "le montant fixe doit être positif"})
		}
	default:
		fields = append(fields, apperr.FieldError{Field: "discount_type", Error: "type de réduction invalide"})
	}

	if c.MinAmount != nil && c.MinAmount.IsNegative() {
		fields = append(fields, apperr.FieldError{Field: "min_amount", Error: "ne peut pas être négatif"})
	}
	if c.MaxUses != nil && *c.MaxUses <= 0 {
		fields = append(fields, apperr.FieldError{Field: "max_uses", Error: "doit être positif"})
	}
	if c.UsedCount < 0 {
		fields = append(fields, apperr.FieldError{Field: "used_count", Error: "ne peut pas être négatif"})
	}
	if !c.ValidFrom.IsZero() && !c.ValidUntil.IsZero() && c.ValidUntil.Before(c.ValidFrom) {
		fields = append(fields, apperr.FieldError{Field: "valid_until", Error: "doit être après valid_from"})
	}
	if !c.ApplicableToAll && len(c.ApplicableCourseIDs) == 0 {
		fields = append(fields, apperr.FieldError{Field: "applicable_course_ids", Error: "au moins un cours, ou applicable_to_all"})
	}

	if len(fields) > 0 {
		return apperr.Validation("coupon invalide", fields...)
	}
	return nil
}

// InWindow : actif et dans [ValidFrom, ValidUntil], une borne nulle est ouverte
func (c Coupon) InWindow(now time.Time) bool {
	if !c.Active {
		return false
	}
	if !c.ValidFrom.IsZero() && now.Before(c.ValidFrom) {
		return false
	}
	if !c.ValidUntil.IsZero() && now.After(c.ValidUntil) {
		return false
	}
	return true
}

func (c Coupon) Exhausted() bool {
	return c.MaxUses != nil && c.UsedCount >= *c.MaxUses
}

func (c Coupon) AppliesTo(courseID string) bool {
	if c.ApplicableToAll {
		return true
	}
	for _, id := range c.ApplicableCourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}

func (c Coupon) MeetsMinimum(amount decimal.Decimal) bool {
	return c.MinAmount == nil || amount.GreaterThanOrEqual(*c.MinAmount)
}
