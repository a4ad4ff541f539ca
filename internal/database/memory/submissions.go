package memory

import (
	"context"
	"sync"

	"tutora_back_end/internal/models"
)

type headKey struct{ assignmentID, userID string }

type SubmissionRepository struct {
	mu          sync.Mutex
	submissions map[string]models.Submission
	heads       map[headKey]string
}

func NewSubmissionRepository() *SubmissionRepository {
	return &SubmissionRepository{
		submissions: make(map[string]models.Submission),
		heads:       make(map[headKey]string),
	}
}

func clone(s models.Submission) *models.Submission {
	s.SubmittedFiles = append([]string(nil), s.SubmittedFiles...)
	return &s
}

func (r *SubmissionRepository) Latest(ctx context.Context, assignmentID, userID string) (*models.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.heads[headKey{assignmentID, userID}]
	if !ok {
		return nil, nil
	}
	return clone(r.submissions[id]), nil
}

func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.submissions[id]
	if !ok {
		return nil, nil
	}
	return clone(s), nil
}

func (r *SubmissionRepository) CreateFirst(ctx context.Context, s models.Submission) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := headKey{s.AssignmentID, s.UserID}
	if _, exists := r.heads[key]; exists {
		return false, nil
	}
	r.heads[key] = s.ID
	r.submissions[s.ID] = s
	return true, nil
}

func (r *SubmissionRepository) Supersede(ctx context.Context, previousID string, s models.Submission) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := headKey{s.AssignmentID, s.UserID}
	head, ok := r.heads[key]
	if !ok || head != previousID || r.submissions[head].Status != models.SubmissionResubmitRequested {
		return false, nil
	}
	r.heads[key] = s.ID
	r.submissions[s.ID] = s
	return true, nil
}

func (r *SubmissionRepository) UpdateIf(ctx context.Context, next models.Submission, expected models.SubmissionStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.submissions[next.ID]
	if !ok || cur.Status != expected || r.heads[headKey{cur.AssignmentID, cur.UserID}] != cur.ID {
		return false, nil
	}
	r.submissions[next.ID] = next
	return true, nil
}
