package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tutora_back_end/internal/apperr"
	"tutora_back_end/internal/models"
)

// Repository est l'accès stockage des coupons.
// FindByCode renvoie (nil, nil) quand le code n'existe pas.
// IncrementUsage incrémente used_count seulement si used_count < max_uses, en une
// seule opération conditionnelle ; false signifie que le plafond est atteint.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, c models.Coupon) error
	IncrementUsage(ctx context.Context, code string) (bool, error)
}

// Result est la réponse de validation : Valid, ou la raison du refus
type Result struct {
	Valid   bool           `json:"valid"`
	Coupon  *models.Coupon `json:"coupon,omitempty"`
	Reason  apperr.Reason  `json:"reason,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Err convertit un refus en RuleViolation (nil si valide)
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return apperr.Rule(r.Reason, r.Message)
}

type Validator struct {
	repo    Repository
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewValidator(repo Repository, log *zap.Logger, timeout time.Duration) *Validator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Validator{repo: repo, log: log, timeout: timeout, now: time.Now}
}

func invalid(reason apperr.Reason, msg string) Result {
	return Result{Valid: false, Reason: reason, Message: msg}
}

// Validate vérifie un code dans l'ordre : existence, validité, plafond, cours, minimum.
// Le premier échec l'emporte. Aucun effet de bord.
func (v *Validator) Validate(ctx context.Context, code, courseID string, amount decimal.Decimal) (Result, error) {
	code = models.NormalizeCode(code)
	if code == "" {
		return Result{}, apperr.Validation("code coupon requis", apperr.FieldError{Field: "code", Error: "requis"})
	}
	if courseID == "" {
		return Result{}, apperr.Validation("cours requis", apperr.FieldError{Field: "course_id", Error: "requis"})
	}
	if amount.IsNegative() {
		return Result{}, apperr.Validation("montant invalide", apperr.FieldError{Field: "amount", Error: "ne peut pas être négatif"})
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		return Result{}, apperr.Storage(err, "lecture coupon")
	}

	if c == nil {
		return invalid(apperr.ReasonNotFound, "Code coupon invalide"), nil
	}
	if !c.InWindow(v.now()) {
		return invalid(apperr.ReasonExpired, "Ce coupon n'est plus valide"), nil
	}
	if c.Exhausted() {
		return invalid(apperr.ReasonExhausted, "Ce coupon a atteint sa limite d'utilisation"), nil
	}
	if !c.AppliesTo(courseID) {
		return invalid(apperr.ReasonNotApplicable, "Ce coupon ne s'applique pas à ce cours"), nil
	}
	if !c.MeetsMinimum(amount) {
		return invalid(apperr.ReasonBelowMinimum, fmt.Sprintf("Montant minimum requis: %s", c.MinAmount.StringFixed(2))), nil
	}

	return Result{Valid: true, Coupon: c}, nil
}

// Resolve valide un code et renvoie le coupon, ou l'erreur métier correspondante
func (v *Validator) Resolve(ctx context.Context, code, courseID string, amount decimal.Decimal) (*models.Coupon, error) {
	res, err := v.Validate(ctx, code, courseID, amount)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Coupon, nil
}

// Consume enregistre une utilisation confirmée, à appeler une seule fois par paiement réussi.
// La fenêtre de validité n'est pas revérifiée : le paiement a déjà eu lieu.
func (v *Validator) Consume(ctx context.Context, code string) error {
	code = models.NormalizeCode(code)
	if code == "" {
		return apperr.Validation("code coupon requis", apperr.FieldError{Field: "code", Error: "requis"})
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		return apperr.Storage(err, "lecture coupon")
	}
	if c == nil {
		return apperr.NotFound("coupon introuvable")
	}

	applied, err := v.repo.IncrementUsage(ctx, code)
	if err != nil {
		return apperr.Storage(err, "incrément coupon")
	}
	if !applied {
		v.log.Warn("coupon épuisé à la consommation", zap.String("code", code))
		return apperr.Rule(apperr.ReasonExhausted, "Ce coupon a atteint sa limite d'utilisation")
	}

	v.log.Info("🎟️ coupon consommé", zap.String("code", code))
	return nil
}

// Create enregistre un nouveau coupon après vérification des invariants
func (v *Validator) Create(ctx context.Context, c models.Coupon) (models.Coupon, error) {
	now := v.now()
	c.Code = models.NormalizeCode(c.Code)
	c.UsedCount = 0
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.ValidFrom.IsZero() {
		c.ValidFrom = now
	}

	if err := c.CheckInvariants(); err != nil {
		return models.Coupon{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	if err := v.repo.Create(ctx, c); err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			return models.Coupon{}, err
		}
		return models.Coupon{}, apperr.Storage(err, "création coupon")
	}

	v.log.Info("✅ coupon créé", zap.String("code", c.Code), zap.String("type", string(c.DiscountType)))
	return c, nil
}
