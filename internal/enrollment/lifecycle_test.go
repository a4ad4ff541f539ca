package enrollment

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tutora_back_end/internal/apperr"
	"tutora_back_end/internal/database/memory"
	"tutora_back_end/internal/models"
)

var testNow = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc         *Service
	enrollments *memory.EnrollmentRepository
	intents     *memory.IntentStore
	courses     *memory.CourseCatalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		enrollments: memory.NewEnrollmentRepository(),
		intents:     memory.NewIntentStore(),
		courses: memory.NewCourseCatalog(
			models.Course{ID: "course-1", Title: "Maths CM2", Price: decimal.NewFromInt(100), Verified: true},
			models.Course{ID: "draft", Title: "Brouillon", Price: decimal.NewFromInt(80)},
		),
	}
	f.svc = NewService(f.enrollments, f.courses, f.intents, zap.NewNop(), time.Second)
	f.svc.now = func() time.Time { return testNow }
	var seq int64
	f.svc.newID = func() string { return fmt.Sprintf("enr-%d", atomic.AddInt64(&seq, 1)) }
	return f
}

func (f *fixture) pending(t *testing.T, amount string) models.Enrollment {
	t.Helper()
	e, err := f.svc.Create(context.Background(), CreateRequest{
		UserID:   "user-1",
		CourseID: "course-1",
		Amount:   decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) intent(t *testing.T, id string, e models.Enrollment, cents int64) {
	t.Helper()
	require.NoError(t, f.intents.Save(context.Background(), models.PaymentIntentRecord{
		IntentID:         id,
		EnrollmentID:     e.ID,
		UserID:           e.UserID,
		CourseID:         e.CourseID,
		FinalAmountCents: cents,
	}))
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	e := f.pending(t, "70")
	assert.Equal(t, models.EnrollmentPending, e.Status)
	assert.Equal(t, models.PaymentPending, e.PaymentStatus)
	assert.Equal(t, testNow, e.EnrolledAt)
	assert.Equal(t, int64(7000), e.AmountCents())

	_, err := f.svc.Create(context.Background(), CreateRequest{UserID: "user-1", CourseID: "draft", Amount: decimal.NewFromInt(80)})
	assert.True(t, apperr.HasReason(err, apperr.ReasonCourseNotVerified))

	_, err = f.svc.Create(context.Background(), CreateRequest{UserID: "user-1", CourseID: "nope", Amount: decimal.NewFromInt(80)})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.Create(context.Background(), CreateRequest{CourseID: "course-1", Amount: decimal.NewFromInt(-1)})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestConfirmPayment(t *testing.T) {
	f := newFixture(t)
	e := f.pending(t, "70")
	f.intent(t, "pi_1", e, 7000)

	activated := make(chan models.Enrollment, 1)
	f.svc.OnActivated = func(e models.Enrollment) { activated <- e }

	got, err := f.svc.ConfirmPayment(context.Background(), e.ID, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, got.Status)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, "pi_1", got.IntentID)
	require.NotNil(t, got.PaidAt)

	select {
	case a := <-activated:
		assert.Equal(t, e.ID, a.ID)
	case <-time.After(time.Second):
		t.Fatal("activation non notifiée")
	}

	// rejouer la même confirmation ne change rien
	again, err := f.svc.ConfirmPayment(context.Background(), e.ID, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestConfirmPaymentAmountMismatch(t *testing.T) {
	f := newFixture(t)
	e := f.pending(t, "70")
	f.intent(t, "pi_short", e, 6999)

	_, err := f.svc.ConfirmPayment(context.Background(), e.ID, "pi_short")
	assert.True(t, apperr.HasReason(err, apperr.ReasonAmountMismatch))

	stored, _ := f.enrollments.FindByID(context.Background(), e.ID)
	assert.Equal(t, models.EnrollmentPending, stored.Status)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
}

func TestConfirmPaymentIntentMismatch(t *testing.T) {
	f := newFixture(t)
	e := f.pending(t, "70")
	other := f.pending(t, "70")
	f.intent(t, "pi_other", other, 6000)

	// l'intent d'une autre inscription est refusé avant la comparaison des montants
	_, err := f.svc.ConfirmPayment(context.Background(), e.ID, "pi_other")
	assert.True(t, apperr.HasReason(err, apperr.ReasonIntentMismatch))

	_, err = f.svc.ConfirmPayment(context.Background(), e.ID, "pi_unknown")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	f.intent(t, "pi_mine", e, 7000)
	_, err = f.svc.AttachIntent(context.Background(), e.ID, "pi_attached")
	require.NoError(t, err)
	_, err = f.svc.ConfirmPayment(context.Background(), e.ID, "pi_mine")
	assert.True(t, apperr.HasReason(err, apperr.ReasonIntentMismatch))
}

func TestConfirmPaymentRequiresPending(t *testing.T) {
	f := newFixture(t)
	e := f.pending(t, "70")
	f.intent(t, "pi_1", e, 7000)

	_, err := f.svc.Cancel(context.Background(), e.ID, "user-1")
	require.NoError(t, err)

	_, err = f.svc.ConfirmPayment(context.Background(), e.ID, "pi_1")
	assert.True(t, apperr.HasReason(err, apperr.ReasonInvalidTransition))

	_, err = f.svc.ConfirmPayment(context.Background(), e.ID, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestFailedPaymentCanBeRetried(t *testing.T) {
	f := newFixture(t)
	e := f.pending(t, "70")

	failed, err := f.svc.FailPayment(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPending, failed.Status)
	assert.Equal(t, models.PaymentFailed, failed.PaymentStatus)

	f.intent(t, "pi_retry", e, 7000)
	got, err := f.svc.ConfirmPayment(context.Background(), e.ID, "pi_retry")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)

	_, err = f.svc.FailPayment(context.Background(), e.ID)
	assert.True(t, apperr.HasReason(err, apperr.ReasonInvalidTransition))
}

func TestTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := f.pending(t, "70")
	_, err := f.svc.Complete(ctx, e.ID)
	assert.True(t, apperr.HasReason(err, apperr.ReasonInvalidTransition), "pending → completed")

	f.intent(t, "pi_1", e, 7000)
	_, err = f.svc.ConfirmPayment(ctx, e.ID, "pi_1")
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, e.ID, "user-1")
	assert.True(t, apperr.HasReason(err, apperr.ReasonInvalidTransition), "active → cancelled")

	done, err := f.svc.Complete(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCompleted, done.Status)

	_, err = f.svc.Complete(ctx, e.ID)
	assert.True(t, apperr.HasReason(err, apperr.ReasonInvalidTransition), "completed est terminal")
}

func TestOwnership(t *testing.T) {
	f := newFixture(t)
	e := f.pending(t, "70")

	_, err := f.svc.Get(context.Background(), e.ID, "intruder")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.Cancel(context.Background(), e.ID, "intruder")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	list, err := f.svc.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.svc.ListByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestConcurrentConfirmActivatesOnce(t *testing.T) {
	f := newFixture(t)
	e := f.pending(t, "70")
	f.intent(t, "pi_1", e, 7000)

	var activations int32
	f.svc.OnActivated = func(models.Enrollment) { atomic.AddInt32(&activations, 1) }

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ConfirmPayment(context.Background(), e.ID, "pi_1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&activations) == 1 }, time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return atomic.LoadInt32(&activations) > 1 }, 100*time.Millisecond, 10*time.Millisecond)
}
