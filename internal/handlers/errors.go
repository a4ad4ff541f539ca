package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"tutora_back_end/internal/apperr"
	"tutora_back_end/internal/payment"
)

// refus métier sur le contenu de la demande plutôt que sur l'état du serveur
var unprocessable = map[apperr.Reason]bool{
	apperr.ReasonExpired:          true,
	apperr.ReasonExhausted:        true,
	apperr.ReasonNotApplicable:    true,
	apperr.ReasonBelowMinimum:     true,
	apperr.ReasonAmountMismatch:   true,
	payment.ReasonNothingToCharge: true,
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindRuleViolation:
		reason := apperr.ReasonOf(err)
		if reason == apperr.ReasonForbidden {
			return http.StatusForbidden
		}
		if unprocessable[reason] {
			return http.StatusUnprocessableEntity
		}
		return http.StatusConflict
	case apperr.KindExternalFailure:
		if apperr.HasReason(err, apperr.ReasonProcessor) {
			return http.StatusBadGateway
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError est le seul endroit où une erreur devient une réponse HTTP
func (h *Handler) respondError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Données invalides",
			"reason": apperr.ReasonInvalidInput,
			"fields": fieldMessages(verrs),
		})
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("❌ erreur serveur",
			zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		c.JSON(status, gin.H{"error": "Erreur interne"})
		return
	}

	body := gin.H{"error": appErr.Message, "reason": appErr.Reason}
	if len(appErr.Fields) > 0 {
		fields := make(map[string]string, len(appErr.Fields))
		for _, f := range appErr.Fields {
			fields[f.Field] = f.Error
		}
		body["fields"] = fields
	}
	c.JSON(status, body)
}

// badRequest pour les corps de requête illisibles (JSON mal formé, multipart absent)
func (h *Handler) badRequest(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "reason": apperr.ReasonInvalidInput})
}
