package enrollment

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tutora_back_end/internal/apperr"
	"tutora_back_end/internal/coupon"
	"tutora_back_end/internal/database/memory"
	"tutora_back_end/internal/models"
	"tutora_back_end/internal/payment"
)

type stubProcessor struct {
	calls int
	err   error
}

func (p *stubProcessor) CreateIntent(_ context.Context, req payment.ProcessorRequest) (payment.ProcessorIntent, error) {
	p.calls++
	if p.err != nil {
		return payment.ProcessorIntent{}, p.err
	}
	return payment.ProcessorIntent{IntentID: "pi_" + req.Metadata["enrollment_id"], ClientSecret: "secret"}, nil
}

func newCheckout(t *testing.T, proc payment.Processor) (*Checkout, *fixture) {
	t.Helper()
	f := newFixture(t)
	coupons := memory.NewCouponRepository(models.Coupon{
		Code:            "RENTREE20",
		DiscountType:    models.DiscountPercentage,
		DiscountValue:   decimal.NewFromInt(20),
		ApplicableToAll: true,
		Active:          true,
	}, models.Coupon{
		Code:            "OFFERT100",
		DiscountType:    models.DiscountPercentage,
		DiscountValue:   decimal.NewFromInt(100),
		ApplicableToAll: true,
		Active:          true,
	})
	validator := coupon.NewValidator(coupons, zap.NewNop(), time.Second)
	issuer := payment.NewIssuer(proc, f.intents, "eur", time.Second, time.Second, zap.NewNop())
	return NewCheckout(f.svc, validator, issuer, zap.NewNop()), f
}

func TestCheckoutThenConfirm(t *testing.T) {
	proc := &stubProcessor{}
	co, f := newCheckout(t, proc)
	ctx := context.Background()

	res, err := co.Start(ctx, CheckoutRequest{UserID: "user-1", CourseID: "course-1", CouponCode: "rentree20", ChildrenCount: 2})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentPending, res.Enrollment.Status)
	assert.Equal(t, "RENTREE20", res.Enrollment.CouponCode)
	assert.True(t, res.Enrollment.Amount.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, res.Intent.IntentID, res.Enrollment.IntentID)
	assert.Equal(t, int64(7000), res.Intent.FinalAmountCents)
	assert.Equal(t, 1, proc.calls)

	active, err := f.svc.ConfirmPayment(ctx, res.Enrollment.ID, res.Intent.IntentID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, active.Status)
}

func TestCheckoutRejectsBeforeCharging(t *testing.T) {
	proc := &stubProcessor{}
	co, f := newCheckout(t, proc)
	ctx := context.Background()

	_, err := co.Start(ctx, CheckoutRequest{UserID: "user-1", CourseID: "draft"})
	assert.True(t, apperr.HasReason(err, apperr.ReasonCourseNotVerified))

	_, err = co.Start(ctx, CheckoutRequest{UserID: "user-1", CourseID: "course-1", CouponCode: "NOPE"})
	assert.True(t, apperr.HasReason(err, apperr.ReasonNotFound))

	assert.Zero(t, proc.calls)
	list, _ := f.svc.ListByUser(ctx, "user-1")
	assert.Empty(t, list)
}

func TestCheckoutProcessorFailureCancelsEnrollment(t *testing.T) {
	proc := &stubProcessor{err: errors.New("stripe: connexion refusée")}
	co, f := newCheckout(t, proc)
	ctx := context.Background()

	_, err := co.Start(ctx, CheckoutRequest{UserID: "user-1", CourseID: "course-1"})
	assert.Equal(t, apperr.KindExternalFailure, apperr.KindOf(err))
	assert.Equal(t, 1, proc.calls)

	list, _ := f.svc.ListByUser(ctx, "user-1")
	require.Len(t, list, 1)
	assert.Equal(t, models.EnrollmentCancelled, list[0].Status)
}

func TestCheckoutFullDiscountRefusedWithoutCharging(t *testing.T) {
	proc := &stubProcessor{}
	co, f := newCheckout(t, proc)
	ctx := context.Background()

	q, _, err := co.Quote(ctx, "course-1", "OFFERT100", 0)
	require.NoError(t, err)
	assert.True(t, q.FinalAmount.IsZero())

	_, err = co.Start(ctx, CheckoutRequest{UserID: "user-1", CourseID: "course-1", CouponCode: "OFFERT100"})
	require.Error(t, err)
	assert.True(t, apperr.HasReason(err, payment.ReasonNothingToCharge))
	assert.Zero(t, proc.calls)

	list, _ := f.svc.ListByUser(ctx, "user-1")
	require.Len(t, list, 1)
	assert.Equal(t, models.EnrollmentCancelled, list[0].Status)
}

func TestQuote(t *testing.T) {
	co, _ := newCheckout(t, &stubProcessor{})

	q, c, err := co.Quote(context.Background(), "course-1", "RENTREE20", 3)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, q.CouponDiscount.Equal(decimal.NewFromInt(20)))
	assert.True(t, q.MultiChildDiscount.Equal(decimal.NewFromInt(15)))
	assert.True(t, q.FinalAmount.Equal(decimal.NewFromInt(65)))

	q, c, err = co.Quote(context.Background(), "course-1", "", 0)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.True(t, q.FinalAmount.Equal(decimal.NewFromInt(100)))
}
