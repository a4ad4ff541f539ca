package handlers

import (
	"context"
	"mime/multipart"

	"go.uber.org/zap"

	"tutora_back_end/internal/cache"
	"tutora_back_end/internal/coupon"
	"tutora_back_end/internal/enrollment"
	"tutora_back_end/internal/submission"
)

// FileStore reçoit les fichiers joints aux remises de devoirs
type FileStore interface {
	Upload(ctx context.Context, assignmentID, userID string, file *multipart.FileHeader) (string, error)
	Remove(ctx context.Context, key string) error
}

// Handler regroupe les dépendances des routes HTTP
type Handler struct {
	coupons     *coupon.Validator
	checkout    *enrollment.Checkout
	enrollments *enrollment.Service
	submissions *submission.Service
	files       FileStore
	idempotency *cache.IdempotencyStore
	log         *zap.Logger
}

type Deps struct {
	Coupons     *coupon.Validator
	Checkout    *enrollment.Checkout
	Enrollments *enrollment.Service
	Submissions *submission.Service
	Files       FileStore
	// Idempotency peut être nil : l'en-tête Idempotency-Key est alors ignoré
	Idempotency *cache.IdempotencyStore
	Log         *zap.Logger
}

func New(d Deps) *Handler {
	return &Handler{
		coupons:     d.Coupons,
		checkout:    d.Checkout,
		enrollments: d.Enrollments,
		submissions: d.Submissions,
		files:       d.Files,
		idempotency: d.Idempotency,
		log:         d.Log,
	}
}
