package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tutora_back_end/internal/config"
	"tutora_back_end/internal/handlers"
	"tutora_back_end/internal/middleware"
)

// RegisterRoutes branche toutes les routes ; rdb peut être nil (pas de rate limit)
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, cfg config.Config, rdb redis.UniversalClient, log *zap.Logger) {
	handlers.RegisterValidators()

	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api")
	api.Use(middleware.AuthRequired([]byte(cfg.JWTSecret), log))
	{
		api.GET("/coupons/validate", h.ValidateCoupon)
		api.POST("/pricing/quote", h.Quote)

		checkout := []gin.HandlerFunc{h.Checkout}
		if rdb != nil {
			checkout = append([]gin.HandlerFunc{
				middleware.RateLimit(rdb, "checkout", cfg.CheckoutMaxRequests, cfg.CheckoutWindow, log),
			}, checkout...)
		}
		api.POST("/checkout", checkout...)

		api.GET("/enrollments", h.ListEnrollments)
		api.GET("/enrollments/:id", h.GetEnrollment)
		api.POST("/enrollments/:id/cancel", h.CancelEnrollment)
		api.GET("/enrollments/:id/pass.png", h.EnrollmentPass)

		api.POST("/assignments/:id/submissions", h.Submit)
	}

	admin := api.Group("/admin")
	{
		admin.POST("/coupons", middleware.RequireAdmin, h.CreateCoupon)

		admin.GET("/submissions/:id", middleware.RequireGrader, h.GetSubmission)
		admin.POST("/submissions/:id/resubmit", middleware.RequireGrader, h.RequestResubmission)
		admin.POST("/submissions/:id/grade", middleware.RequireGrader, h.Grade)
	}

	// appelées par le service de paiement, jamais par le navigateur
	internal := r.Group("/internal")
	internal.Use(middleware.InternalOnly(cfg.InternalToken))
	{
		internal.POST("/enrollments/:id/confirm", h.ConfirmPayment)
		internal.POST("/enrollments/:id/payment-failed", h.PaymentFailed)
		internal.POST("/enrollments/:id/complete", h.CompleteEnrollment)
		internal.POST("/coupons/:code/consume", h.ConsumeCoupon)
	}
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", handlers.IdempotencyHeader},
		ExposeHeaders: []string{"Retry-After", "Idempotent-Replayed"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		// cors.New refuse une liste vide
		cc.AllowAllOrigins = true
		return cc
	}
	cc.AllowOrigins = origins
	cc.AllowCredentials = true
	return cc
}
