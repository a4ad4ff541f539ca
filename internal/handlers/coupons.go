package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tutora_back_end/internal/apperr"
	"tutora_back_end/internal/middleware"
	"tutora_back_end/internal/models"
)

type validateCouponQuery struct {
	Code     string `form:"code" binding:"required,coupon_code"`
	CourseID string `form:"course_id" binding:"required"`
	Amount   string `form:"amount" binding:"required"`
}

// 🟢 GET /api/coupons/validate?code=...&course_id=...&amount=...
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var q validateCouponQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return
	}
	amount, err := decimal.NewFromString(q.Amount)
	if err != nil {
		h.respondError(c, apperr.Validation("montant invalide", apperr.FieldError{Field: "amount", Error: "nombre attendu"}))
		return
	}

	res, err := h.coupons.Validate(c.Request.Context(), q.Code, q.CourseID, amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	// un refus est une réponse normale : valid=false et la raison
	c.JSON(http.StatusOK, res)
}

type createCouponBody struct {
	Code                string           `json:"code" binding:"required,coupon_code"`
	DiscountType        string           `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue       decimal.Decimal  `json:"discount_value"`
	ApplicableToAll     bool             `json:"applicable_to_all"`
	ApplicableCourseIDs []string         `json:"applicable_course_ids"`
	MinAmount           *decimal.Decimal `json:"min_amount"`
	MaxUses             *int             `json:"max_uses" binding:"omitempty,gt=0"`
	ValidFrom           time.Time        `json:"valid_from"`
	ValidUntil          time.Time        `json:"valid_until"`
	Active              *bool            `json:"active"`
}

// 🔐 POST /api/admin/coupons
func (h *Handler) CreateCoupon(c *gin.Context) {
	var body createCouponBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}

	active := true
	if body.Active != nil {
		active = *body.Active
	}
	created, err := h.coupons.Create(c.Request.Context(), models.Coupon{
		Code:                body.Code,
		DiscountType:        models.DiscountType(body.DiscountType),
		DiscountValue:       body.DiscountValue,
		ApplicableToAll:     body.ApplicableToAll,
		ApplicableCourseIDs: body.ApplicableCourseIDs,
		MinAmount:           body.MinAmount,
		MaxUses:             body.MaxUses,
		ValidFrom:           body.ValidFrom,
		ValidUntil:          body.ValidUntil,
		Active:              active,
		CreatedBy:           middleware.CurrentUser(c).ID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// 🔒 POST /internal/coupons/:code/consume
func (h *Handler) ConsumeCoupon(c *gin.Context) {
	code := c.Param("code")
	if err := h.coupons.Consume(c.Request.Context(), code); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Coupon consommé", "code": models.NormalizeCode(code)})
}

type quoteBody struct {
	CourseID      string `json:"course_id" binding:"required"`
	CouponCode    string `json:"coupon_code" binding:"omitempty,coupon_code"`
	ChildrenCount int    `json:"children_count" binding:"gte=0"`
}

// 🟢 POST /api/pricing/quote
func (h *Handler) Quote(c *gin.Context) {
	var body quoteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}

	breakdown, coupon, err := h.checkout.Quote(c.Request.Context(), body.CourseID, body.CouponCode, body.ChildrenCount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"breakdown":          breakdown,
		"coupon":             coupon,
		"final_amount_cents": models.ToMinorUnits(breakdown.FinalAmount),
	})
}
