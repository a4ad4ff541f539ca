package scylla

import (
	"context"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"tutora_back_end/internal/models"
)

type EnrollmentRepository struct {
	session *gocql.Session
}

func NewEnrollmentRepository(session *gocql.Session) *EnrollmentRepository {
	return &EnrollmentRepository{session: session}
}

const enrollmentColumns = `enrollment_id, user_id, contact_email, course_id, child_id, batch_id, status, payment_status,
	amount_cents, children_count, coupon_code, intent_id, enrolled_at, paid_at, updated_at`

func (r *EnrollmentRepository) Create(ctx context.Context, e models.Enrollment) error {
	batch := r.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO enrollments (`+enrollmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.ContactEmail, e.CourseID, e.ChildID, e.BatchID, string(e.Status), string(e.PaymentStatus),
		e.AmountCents(), e.ChildrenCount, e.CouponCode, e.IntentID, e.EnrolledAt, paidAt(e), e.UpdatedAt)
	batch.Query(`INSERT INTO enrollments_by_user (user_id, enrolled_at, enrollment_id) VALUES (?, ?, ?)`,
		e.UserID, e.EnrolledAt, e.ID)
	return errors.Wrap(r.session.ExecuteBatch(batch), "création inscription")
}

func paidAt(e models.Enrollment) interface{} {
	if e.PaidAt == nil {
		return nil
	}
	return *e.PaidAt
}

func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	var (
		e                     models.Enrollment
		status, paymentStatus string
		cents                 int64
		paid                  time.Time
	)
	err := r.session.Query(`SELECT `+enrollmentColumns+` FROM enrollments WHERE enrollment_id = ?`, id).
		WithContext(ctx).
		Scan(&e.ID, &e.UserID, &e.ContactEmail, &e.CourseID, &e.ChildID, &e.BatchID, &status, &paymentStatus,
			&cents, &e.ChildrenCount, &e.CouponCode, &e.IntentID, &e.EnrolledAt, &paid, &e.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lecture inscription")
	}

	e.Status = models.EnrollmentStatus(status)
	e.PaymentStatus = models.PaymentStatus(paymentStatus)
	e.Amount = models.FromMinorUnits(cents)
	if !paid.IsZero() {
		e.PaidAt = &paid
	}
	return &e, nil
}

func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	iter := r.session.Query(`SELECT enrollment_id FROM enrollments_by_user WHERE user_id = ?`, userID).
		WithContext(ctx).Iter()

	var ids []string
	var id string
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrap(err, "liste inscriptions")
	}

	out := make([]models.Enrollment, 0, len(ids))
	for _, id := range ids {
		e, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *EnrollmentRepository) UpdateIf(ctx context.Context, next models.Enrollment, status models.EnrollmentStatus, payment models.PaymentStatus) (bool, error) {
	return cas(ctx, r.session.Query(`UPDATE enrollments
		SET status = ?, payment_status = ?, intent_id = ?, paid_at = ?, updated_at = ?
		WHERE enrollment_id = ?
		IF status = ? AND payment_status = ?`,
		string(next.Status), string(next.PaymentStatus), next.IntentID, paidAt(next), next.UpdatedAt,
		next.ID, string(status), string(payment)))
}
