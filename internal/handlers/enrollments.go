package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tutora_back_end/internal/enrollment"
	"tutora_back_end/internal/middleware"
	"tutora_back_end/internal/notify"
)

const IdempotencyHeader = "Idempotency-Key"

type checkoutBody struct {
	CourseID      string `json:"course_id" binding:"required"`
	ChildID       string `json:"child_id"`
	BatchID       string `json:"batch_id"`
	ChildrenCount int    `json:"children_count" binding:"gte=0"`
	CouponCode    string `json:"coupon_code" binding:"omitempty,coupon_code"`
}

// 🟢 POST /api/checkout
// Avec un en-tête Idempotency-Key, une requête rejouée renvoie la première réponse
// sans créer de nouvelle inscription ni de nouvel intent.
func (h *Handler) Checkout(c *gin.Context) {
	var body checkoutBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	key := c.GetHeader(IdempotencyHeader)
	useKey := key != "" && h.idempotency != nil
	if useKey {
		replay, err := h.idempotency.Begin(ctx, "checkout", user.ID, key)
		switch {
		case err != nil:
			// Redis indisponible : on traite la requête sans protection de rejeu
			h.log.Warn("⚠️ idempotence indisponible", zap.Error(err))
			useKey = false
		case replay.Pending:
			c.JSON(http.StatusConflict, gin.H{"error": "Une requête avec cette clé est déjà en cours"})
			return
		case replay.Found:
			c.Header("Idempotent-Replayed", "true")
			c.Data(http.StatusCreated, "application/json; charset=utf-8", replay.Body)
			return
		}
	}

	res, err := h.checkout.Start(ctx, enrollment.CheckoutRequest{
		UserID:        user.ID,
		Email:         user.Email,
		CourseID:      body.CourseID,
		ChildID:       body.ChildID,
		BatchID:       body.BatchID,
		ChildrenCount: body.ChildrenCount,
		CouponCode:    body.CouponCode,
	})
	if err != nil {
		if useKey {
			if aerr := h.idempotency.Abort(ctx, "checkout", user.ID, key); aerr != nil {
				h.log.Warn("⚠️ libération de la clé d'idempotence échouée", zap.Error(aerr))
			}
		}
		h.respondError(c, err)
		return
	}

	payload, err := json.Marshal(res)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if useKey {
		if err := h.idempotency.Complete(ctx, "checkout", user.ID, key, payload); err != nil {
			h.log.Warn("⚠️ mémorisation de la réponse échouée", zap.Error(err))
		}
	}
	c.Data(http.StatusCreated, "application/json; charset=utf-8", payload)
}

// 🟢 GET /api/enrollments
func (h *Handler) ListEnrollments(c *gin.Context) {
	list, err := h.enrollments.ListByUser(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// 🟢 GET /api/enrollments/:id
func (h *Handler) GetEnrollment(c *gin.Context) {
	e, err := h.enrollments.Get(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// 🟢 POST /api/enrollments/:id/cancel
func (h *Handler) CancelEnrollment(c *gin.Context) {
	e, err := h.enrollments.Cancel(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// 🟢 GET /api/enrollments/:id/pass.png
func (h *Handler) EnrollmentPass(c *gin.Context) {
	e, err := h.enrollments.Get(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	png, err := notify.PassPNG(e, notify.PassSize)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

type confirmBody struct {
	IntentID string `json:"intent_id" binding:"required"`
}

// 🔒 POST /internal/enrollments/:id/confirm
func (h *Handler) ConfirmPayment(c *gin.Context) {
	var body confirmBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}
	e, err := h.enrollments.ConfirmPayment(c.Request.Context(), c.Param("id"), body.IntentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// 🔒 POST /internal/enrollments/:id/payment-failed
func (h *Handler) PaymentFailed(c *gin.Context) {
	e, err := h.enrollments.FailPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// 🔒 POST /internal/enrollments/:id/complete
func (h *Handler) CompleteEnrollment(c *gin.Context) {
	e, err := h.enrollments.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}
