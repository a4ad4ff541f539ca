package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tutora_back_end/internal/apperr"
	"tutora_back_end/internal/payment"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperr.Validation("x"), http.StatusBadRequest},
		{"introuvable", apperr.NotFound("x"), http.StatusNotFound},
		{"déjà remis", apperr.Rule(apperr.ReasonAlreadySubmitted, "x"), http.StatusConflict},
		{"transition", apperr.Rule(apperr.ReasonInvalidTransition, "x"), http.StatusConflict},
		{"minimum", apperr.Rule(apperr.ReasonBelowMinimum, "x"), http.StatusUnprocessableEntity},
		{"montant", apperr.Rule(apperr.ReasonAmountMismatch, "x"), http.StatusUnprocessableEntity},
		{"gratuit", apperr.Rule(payment.ReasonNothingToCharge, "x"), http.StatusUnprocessableEntity},
		{"interdit", apperr.Rule(apperr.ReasonForbidden, "x"), http.StatusForbidden},
		{"processeur", apperr.External(apperr.ReasonProcessor, errors.New("down"), "x"), http.StatusBadGateway},
		{"stockage", apperr.Storage(errors.New("down"), "x"), http.StatusServiceUnavailable},
		{"enveloppée", errors.Wrap(apperr.NotFound("x"), "contexte"), http.StatusNotFound},
		{"inconnue", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}

func TestRespondErrorBody(t *testing.T) {
	h := &Handler{log: zap.NewNop()}
	r := gin.New()
	r.GET("/rule", func(c *gin.Context) { h.respondError(c, apperr.Rule(apperr.ReasonExhausted, "Coupon épuisé")) })
	r.GET("/fields", func(c *gin.Context) {
		h.respondError(c, apperr.Validation("invalide", apperr.FieldError{Field: "score", Error: "hors bornes"}))
	})
	r.GET("/boom", func(c *gin.Context) { h.respondError(c, errors.New("détail interne")) })

	get := func(path string) (int, map[string]interface{}) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return w.Code, body
	}

	code, body := get("/rule")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "EXHAUSTED", body["reason"])
	assert.Equal(t, "Coupon épuisé", body["error"])

	code, body = get("/fields")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, map[string]interface{}{"score": "hors bornes"}, body["fields"])

	code, body = get("/boom")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Erreur interne", body["error"])
}

func TestBindingErrorsUseJSONNames(t *testing.T) {
	h := &Handler{log: zap.NewNop()}
	r := gin.New()
	r.POST("/quote", func(c *gin.Context) {
		var body quoteBody
		if err := c.ShouldBindJSON(&body); err != nil {
			h.badRequest(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		body   string
		status int
		fields map[string]interface{}
	}{
		{"valide", `{"course_id":"c1","coupon_code":"RENTREE-20","children_count":2}`, http.StatusNoContent, nil},
		{"sans coupon", `{"course_id":"c1"}`, http.StatusNoContent, nil},
		{"cours manquant", `{}`, http.StatusBadRequest, map[string]interface{}{"course_id": "ce champ est requis"}},
		{"code trop court", `{"course_id":"c1","coupon_code":"AB"}`, http.StatusBadRequest,
			map[string]interface{}{"coupon_code": "3 à 32 caractères : lettres, chiffres, - ou _"}},
		{"enfants négatifs", `{"course_id":"c1","children_count":-1}`, http.StatusBadRequest,
			map[string]interface{}{"children_count": "doit être supérieur ou égal à 0"}},
		{"json cassé", `{`, http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/quote", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.fields != nil {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.fields, body["fields"])
			}
		})
	}
}
