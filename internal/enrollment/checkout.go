package enrollment

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tutora_back_end/internal/models"
	"tutora_back_end/internal/payment"
	"tutora_back_end/internal/pricing"
)

type CouponResolver interface {
	Resolve(ctx context.Context, code, courseID string, amount decimal.Decimal) (*models.Coupon, error)
}

type IntentIssuer interface {
	CreateIntent(ctx context.Context, req payment.IntentRequest) (payment.Intent, error)
}

type CheckoutRequest struct {
	UserID        string
	Email         string
	CourseID      string
	ChildID       string
	BatchID       string
	ChildrenCount int
	CouponCode    string
}

type CheckoutResult struct {
	Enrollment models.Enrollment `json:"enrollment"`
	Intent     payment.Intent    `json:"payment"`
}

// Checkout enchaîne coupon, remise, inscription et intent. Le prix vient du catalogue.
type Checkout struct {
	enrollments *Service
	coupons     CouponResolver
	issuer      IntentIssuer
	log         *zap.Logger
}

func NewCheckout(enrollments *Service, coupons CouponResolver, issuer IntentIssuer, log *zap.Logger) *Checkout {
	return &Checkout{enrollments: enrollments, coupons: coupons, issuer: issuer, log: log}
}

// Quote calcule le détail du prix sans rien écrire
func (c *Checkout) Quote(ctx context.Context, courseID, couponCode string, childrenCount int) (models.DiscountComputation, *models.Coupon, error) {
	course, err := c.enrollments.Course(ctx, courseID)
	if err != nil {
		return models.DiscountComputation{}, nil, err
	}

	var coupon *models.Coupon
	if couponCode != "" {
		coupon, err = c.coupons.Resolve(ctx, couponCode, course.ID, course.Price)
		if err != nil {
			return models.DiscountComputation{}, nil, err
		}
	}
	return pricing.ComputeFinalAmount(course.Price, coupon, childrenCount), coupon, nil
}

func (c *Checkout) Start(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	course, err := c.enrollments.Course(ctx, req.CourseID)
	if err != nil {
		return CheckoutResult{}, err
	}

	var coupon *models.Coupon
	if req.CouponCode != "" {
		coupon, err = c.coupons.Resolve(ctx, req.CouponCode, course.ID, course.Price)
		if err != nil {
			return CheckoutResult{}, err
		}
	}
	breakdown := pricing.ComputeFinalAmount(course.Price, coupon, req.ChildrenCount)

	couponCode := ""
	if coupon != nil {
		couponCode = coupon.Code
	}
	e, err := c.enrollments.Create(ctx, CreateRequest{
		UserID:        req.UserID,
		Email:         req.Email,
		CourseID:      course.ID,
		ChildID:       req.ChildID,
		BatchID:       req.BatchID,
		ChildrenCount: req.ChildrenCount,
		CouponCode:    couponCode,
		Amount:        breakdown.FinalAmount,
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	intent, err := c.issuer.CreateIntent(ctx, payment.IntentRequest{
		EnrollmentID:   e.ID,
		UserID:         e.UserID,
		CourseID:       course.ID,
		OriginalAmount: course.Price,
		Coupon:         coupon,
		ChildrenCount:  req.ChildrenCount,
	})
	if err != nil {
		// une inscription sans intent est annulée
		if _, cerr := c.enrollments.Cancel(ctx, e.ID, ""); cerr != nil {
			c.log.Error("❌ annulation après échec de paiement impossible",
				zap.String("enrollment_id", e.ID), zap.Error(cerr))
		}
		return CheckoutResult{}, err
	}

	e, err = c.enrollments.AttachIntent(ctx, e.ID, intent.IntentID)
	if err != nil {
		return CheckoutResult{}, err
	}
	return CheckoutResult{Enrollment: e, Intent: intent}, nil
}
