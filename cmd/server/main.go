package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tutora_back_end/internal/cache"
	"tutora_back_end/internal/config"
	"tutora_back_end/internal/coupon"
	"tutora_back_end/internal/database"
	"tutora_back_end/internal/database/scylla"
	"tutora_back_end/internal/enrollment"
	"tutora_back_end/internal/handlers"
	"tutora_back_end/internal/logger"
	"tutora_back_end/internal/middleware"
	"tutora_back_end/internal/models"
	"tutora_back_end/internal/notify"
	"tutora_back_end/internal/payment"
	"tutora_back_end/internal/routes"
	"tutora_back_end/internal/services"
	"tutora_back_end/internal/submission"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("❌ Impossible d'initialiser le logger : %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if cfg.StripeSecretKey == "" {
		zlog.Fatal("❌ Impossible d'initialiser Stripe : clé manquante")
	}
	if cfg.JWTSecret == "" {
		zlog.Fatal("❌ JWT_SECRET manquant")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conns, err := database.Connect(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("❌ Connexion aux bases impossible", zap.Error(err))
	}
	defer conns.Close()

	learning, err := conns.Learning()
	if err != nil {
		zlog.Fatal("❌ Session ks_learning indisponible", zap.Error(err))
	}
	billing, err := conns.Billing()
	if err != nil {
		zlog.Fatal("❌ Session ks_billing indisponible", zap.Error(err))
	}

	coupons := cache.NewCouponRepository(scylla.NewCouponRepository(billing), conns.Redis, cfg.CouponCacheTTL, zlog)
	courses := cache.NewCourseCatalog(scylla.NewCourseCatalog(learning), conns.Redis, cache.CourseCacheTTL, zlog)
	intents := scylla.NewIntentStore(billing)
	enrollments := scylla.NewEnrollmentRepository(learning)

	validator := coupon.NewValidator(coupons, zlog, cfg.StorageTimeout)
	issuer := payment.NewIssuer(
		payment.NewStripeProcessor(cfg.StripeSecretKey, cfg.ProcessorTimeout),
		intents, cfg.Currency, cfg.ProcessorTimeout, cfg.StorageTimeout, zlog,
	)
	zlog.Info("✅ Stripe initialisé", zap.String("currency", cfg.Currency))

	enrollSvc := enrollment.NewService(enrollments, courses, intents, zlog, cfg.StorageTimeout)
	mailer := notify.NewMailer(cfg, zlog)
	enrollSvc.OnActivated = func(e models.Enrollment) {
		bg, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		title := e.CourseID
		if c, err := courses.FindCourse(bg, e.CourseID); err == nil && c != nil {
			title = c.Title
		}
		_ = mailer.SendActivation(bg, e, title)
	}

	h := handlers.New(handlers.Deps{
		Coupons:     validator,
		Checkout:    enrollment.NewCheckout(enrollSvc, validator, issuer, zlog),
		Enrollments: enrollSvc,
		Submissions: submission.NewService(scylla.NewSubmissionRepository(learning, zlog), enrollments, zlog, cfg.StorageTimeout),
		Files:       services.NewFileStore(conns.MinIO, conns.Bucket),
		Idempotency: cache.NewIdempotencyStore(conns.Redis, cfg.IdempotencyTTL),
		Log:         zlog,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(zlog))
	routes.RegisterRoutes(r, h, cfg, conns.Redis, zlog)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zlog.Info("🚀 Serveur Tutora lancé", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("❌ Serveur arrêté", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("🛑 Arrêt demandé, fermeture des connexions")
	shutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		zlog.Error("❌ Arrêt du serveur incomplet", zap.Error(err))
	}
}
