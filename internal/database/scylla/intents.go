package scylla

import (
	"context"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"tutora_back_end/internal/models"
)

type IntentStore struct {
	session *gocql.Session
}

func NewIntentStore(session *gocql.Session) *IntentStore {
	return &IntentStore{session: session}
}

const intentColumns = `intent_id, enrollment_id, user_id, course_id, currency, original_amount, coupon_discount,
	multi_child_discount, discount_applied, coupon_code, children_count, final_amount_cents, idempotency_key, created_at`

// Save est un upsert : rejouer la même clé d'idempotence renvoie le même intent
func (s *IntentStore) Save(ctx context.Context, rec models.PaymentIntentRecord) error {
	err := s.session.Query(`INSERT INTO payment_intents (`+intentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.IntentID, rec.EnrollmentID, rec.UserID, rec.CourseID, rec.Currency,
		decimalText(rec.OriginalAmount), decimalText(rec.CouponDiscount), decimalText(rec.MultiChildDiscount),
		decimalText(rec.DiscountApplied), rec.CouponCode, rec.ChildrenCount, rec.FinalAmountCents,
		rec.IdempotencyKey, rec.CreatedAt).
		WithContext(ctx).Exec()
	return errors.Wrap(err, "enregistrement intent")
}

func (s *IntentStore) Find(ctx context.Context, intentID string) (*models.PaymentIntentRecord, error) {
	var (
		rec                                    models.PaymentIntentRecord
		original, coupon, multiChild, discount string
	)
	err := s.session.Query(`SELECT `+intentColumns+` FROM payment_intents WHERE intent_id = ?`, intentID).
		WithContext(ctx).
		Scan(&rec.IntentID, &rec.EnrollmentID, &rec.UserID, &rec.CourseID, &rec.Currency,
			&original, &coupon, &multiChild, &discount, &rec.CouponCode, &rec.ChildrenCount,
			&rec.FinalAmountCents, &rec.IdempotencyKey, &rec.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lecture intent")
	}

	for _, f := range []struct {
		dst *decimal.Decimal
		raw string
	}{
		{&rec.OriginalAmount, original},
		{&rec.CouponDiscount, coupon},
		{&rec.MultiChildDiscount, multiChild},
		{&rec.DiscountApplied, discount},
	} {
		if *f.dst, err = parseDecimal(f.raw); err != nil {
			return nil, errors.Wrapf(err, "intent %s", intentID)
		}
	}
	return &rec, nil
}
