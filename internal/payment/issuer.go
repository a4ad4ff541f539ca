package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tutora_back_end/internal/apperr"
	"tutora_back_end/internal/models"
	"tutora_back_end/internal/pricing"
)

// ReasonNothingToCharge : le processeur ne sait pas créer d'intent à 0
const ReasonNothingToCharge apperr.Reason = "NOTHING_TO_CHARGE"

// Processor est le processeur de paiement externe. Ses appels ne sont jamais rejoués.
type Processor interface {
	CreateIntent(ctx context.Context, req ProcessorRequest) (ProcessorIntent, error)
}

type ProcessorRequest struct {
	AmountMinorUnits int64
	Currency         string
	Metadata         map[string]string
	IdempotencyKey   string
}

type ProcessorIntent struct {
	IntentID     string
	ClientSecret string
}

// RecordStore persiste les métadonnées d'intent. Find renvoie (nil, nil) si absent.
type RecordStore interface {
	Save(ctx context.Context, rec models.PaymentIntentRecord) error
	Find(ctx context.Context, intentID string) (*models.PaymentIntentRecord, error)
}

// IntentRequest porte des données déjà résolues côté serveur : le coupon vient du
// validateur et le montant d'origine du catalogue, jamais du client.
type IntentRequest struct {
	EnrollmentID   string
	UserID         string
	CourseID       string
	OriginalAmount decimal.Decimal
	Coupon         *models.Coupon
	ChildrenCount  int
	// IdempotencyKey n'est utilisée que sans EnrollmentID
	IdempotencyKey string
}

type Intent struct {
	IntentID         string                     `json:"intent_id"`
	ClientSecret     string                     `json:"client_secret"`
	Currency         string                     `json:"currency"`
	OriginalAmount   decimal.Decimal            `json:"original_amount"`
	DiscountApplied  decimal.Decimal            `json:"discount_applied"`
	FinalAmount      decimal.Decimal            `json:"final_amount"`
	FinalAmountCents int64                      `json:"final_amount_cents"`
	Breakdown        models.DiscountComputation `json:"breakdown"`
}

type Issuer struct {
	processor        Processor
	records          RecordStore
	currency         string
	processorTimeout time.Duration
	storageTimeout   time.Duration
	log              *zap.Logger
	now              func() time.Time
}

func NewIssuer(processor Processor, records RecordStore, currency string, processorTimeout, storageTimeout time.Duration, log *zap.Logger) *Issuer {
	if currency == "" {
		currency = "eur"
	}
	if processorTimeout <= 0 {
		processorTimeout = 10 * time.Second
	}
	if storageTimeout <= 0 {
		storageTimeout = 5 * time.Second
	}
	return &Issuer{
		processor:        processor,
		records:          records,
		currency:         currency,
		processorTimeout: processorTimeout,
		storageTimeout:   storageTimeout,
		log:              log,
		now:              time.Now,
	}
}

// IdempotencyKey dérive une clé stable d'une inscription et du montant facturé
func IdempotencyKey(enrollmentID string, amountCents int64) string {
	sum := sha256.Sum256([]byte(enrollmentID + "|" + strconv.FormatInt(amountCents, 10)))
	return "enr_" + hex.EncodeToString(sum[:16])
}

func validate(req IntentRequest) error {
	var fields []apperr.FieldError
	if req.UserID == "" {
		fields = append(fields, apperr.FieldError{Field: "user_id", Error: "requis"})
	}
	if req.CourseID == "" {
		fields = append(fields, apperr.FieldError{Field: "course_id", Error: "requis"})
	}
	if !req.OriginalAmount.IsPositive() {
		fields = append(fields, apperr.FieldError{Field: "original_amount", Error: "doit être positif"})
	}
	if req.ChildrenCount < 0 {
		fields = append(fields, apperr.FieldError{Field: "children_count", Error: "ne peut pas être négatif"})
	}
	if len(fields) > 0 {
		return apperr.Validation("demande de paiement invalide", fields...)
	}
	return nil
}

// CreateIntent recalcule la remise, convertit en centimes juste avant l'appel au
// processeur, puis enregistre les métadonnées. Un échec du processeur remonte tel quel.
func (i *Issuer) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if err := validate(req); err != nil {
		return Intent{}, err
	}

	breakdown := pricing.ComputeFinalAmount(req.OriginalAmount, req.Coupon, req.ChildrenCount)
	cents := models.ToMinorUnits(breakdown.FinalAmount)
	if cents <= 0 {
		return Intent{}, apperr.Rule(ReasonNothingToCharge, "Le montant final est nul, aucun paiement à créer")
	}

	key := req.IdempotencyKey
	if req.EnrollmentID != "" {
		key = IdempotencyKey(req.EnrollmentID, cents)
	}

	couponCode := ""
	if req.Coupon != nil {
		couponCode = req.Coupon.Code
	}

	metadata := map[string]string{
		"user_id":              req.UserID,
		"course_id":            req.CourseID,
		"original_amount":      breakdown.OriginalAmount.StringFixed(2),
		"coupon_discount":      breakdown.CouponDiscount.StringFixed(2),
		"multi_child_discount": breakdown.MultiChildDiscount.StringFixed(2),
		"discount_applied":     breakdown.DiscountApplied().StringFixed(2),
		"children_count":       strconv.Itoa(req.ChildrenCount),
		"final_amount_cents":   strconv.FormatInt(cents, 10),
	}
	if req.EnrollmentID != "" {
		metadata["enrollment_id"] = req.EnrollmentID
	}
	if couponCode != "" {
		metadata["coupon_code"] = couponCode
	}

	pctx, cancel := context.WithTimeout(ctx, i.processorTimeout)
	defer cancel()

	pi, err := i.processor.CreateIntent(pctx, ProcessorRequest{
		AmountMinorUnits: cents,
		Currency:         i.currency,
		Metadata:         metadata,
		IdempotencyKey:   key,
	})
	if err != nil {
		i.log.Error("❌ création intent refusée par le processeur",
			zap.String("user_id", req.UserID), zap.Int64("amount_cents", cents), zap.Error(err))
		return Intent{}, apperr.External(apperr.ReasonProcessor, err, "création du paiement impossible")
	}

	rec := models.PaymentIntentRecord{
		IntentID:           pi.IntentID,
		EnrollmentID:       req.EnrollmentID,
		UserID:             req.UserID,
		CourseID:           req.CourseID,
		Currency:           i.currency,
		OriginalAmount:     breakdown.OriginalAmount,
		CouponDiscount:     breakdown.CouponDiscount,
		MultiChildDiscount: breakdown.MultiChildDiscount,
		DiscountApplied:    breakdown.DiscountApplied(),
		CouponCode:         couponCode,
		ChildrenCount:      req.ChildrenCount,
		FinalAmountCents:   cents,
		IdempotencyKey:     key,
		CreatedAt:          i.now(),
	}

	sctx, scancel := context.WithTimeout(ctx, i.storageTimeout)
	defer scancel()
	if err := i.records.Save(sctx, rec); err != nil {
		// l'intent existe chez le processeur : le client peut rejouer avec la même clé
		i.log.Error("❌ enregistrement intent échoué", zap.String("intent_id", pi.IntentID), zap.Error(err))
		return Intent{}, apperr.Storage(err, fmt.Sprintf("enregistrement de l'intent %s", pi.IntentID))
	}

	i.log.Info("💳 intent créé",
		zap.String("intent_id", pi.IntentID),
		zap.String("user_id", req.UserID),
		zap.String("original", breakdown.OriginalAmount.StringFixed(2)),
		zap.Int64("final_cents", cents))

	return Intent{
		IntentID:         pi.IntentID,
		ClientSecret:     pi.ClientSecret,
		Currency:         i.currency,
		OriginalAmount:   breakdown.OriginalAmount,
		DiscountApplied:  breakdown.DiscountApplied(),
		FinalAmount:      breakdown.FinalAmount,
		FinalAmountCents: cents,
		Breakdown:        breakdown,
	}, nil
}

// FindRecord relit les métadonnées d'un intent
func (i *Issuer) FindRecord(ctx context.Context, intentID string) (*models.PaymentIntentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, i.storageTimeout)
	defer cancel()
	rec, err := i.records.Find(ctx, intentID)
	if err != nil {
		return nil, apperr.Storage(err, "lecture intent")
	}
	return rec, nil
}
