package memory

import (
	"context"
	"sort"
	"sync"

	"tutora_back_end/internal/models"
)

type EnrollmentRepository struct {
	mu          sync.Mutex
	enrollments map[string]models.Enrollment
}

func NewEnrollmentRepository(seed ...models.Enrollment) *EnrollmentRepository {
	r := &EnrollmentRepository{enrollments: make(map[string]models.Enrollment)}
	for _, e := range seed {
		r.enrollments[e.ID] = e
	}
	return r
}

func (r *EnrollmentRepository) Create(ctx context.Context, e models.Enrollment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enrollments[e.ID] = e
	return nil
}

func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.enrollments[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Enrollment
	for _, e := range r.enrollments {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.After(out[j].EnrolledAt) })
	return out, nil
}

func (r *EnrollmentRepository) UpdateIf(ctx context.Context, next models.Enrollment, status models.EnrollmentStatus, payment models.PaymentStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.enrollments[next.ID]
	if !ok || cur.Status != status || cur.PaymentStatus != payment {
		return false, nil
	}
	r.enrollments[next.ID] = next
	return true, nil
}
