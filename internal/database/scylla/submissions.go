package scylla

import (
	"context"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"tutora_back_end/internal/models"
)

// SubmissionRepository : la table submission_heads, clé (assignment_id, user_id),
// porte la dernière remise (identifiant, statut, note). C'est elle que visent les LWT
// et elle fait foi ; la ligne de submissions n'en est qu'une copie.
type SubmissionRepository struct {
	session *gocql.Session
	log     *zap.Logger
}

func NewSubmissionRepository(session *gocql.Session, log *zap.Logger) *SubmissionRepository {
	return &SubmissionRepository{session: session, log: log}
}

const submissionColumns = `submission_id, assignment_id, enrollment_id, user_id, submitted_text, submitted_files,
	submitted_at, status, supersedes, score, feedback, graded_by, updated_at`

type submissionHead struct {
	id        string
	status    string
	score     *float64
	feedback  string
	gradedBy  string
	updatedAt time.Time
}

// overlay reporte l'état de la tête sur la remise qu'elle désigne
func (h *submissionHead) overlay(s *models.Submission) {
	s.Status = models.SubmissionStatus(h.status)
	s.Score = h.score
	s.Feedback = h.feedback
	s.GradedBy = h.gradedBy
	if !h.updatedAt.IsZero() {
		s.UpdatedAt = h.updatedAt
	}
}

func (r *SubmissionRepository) head(ctx context.Context, assignmentID, userID string) (*submissionHead, error) {
	var h submissionHead
	err := r.session.Query(`SELECT submission_id, status, score, feedback, graded_by, updated_at
		FROM submission_heads WHERE assignment_id = ? AND user_id = ?`,
		assignmentID, userID).
		WithContext(ctx).
		Consistency(serialRead).
		Scan(&h.id, &h.status, &h.score, &h.feedback, &h.gradedBy, &h.updatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lecture tête de remise")
	}
	return &h, nil
}

func (r *SubmissionRepository) row(ctx context.Context, id string) (*models.Submission, error) {
	var (
		s      models.Submission
		status string
	)
	err := r.session.Query(`SELECT `+submissionColumns+` FROM submissions WHERE submission_id = ?`, id).
		WithContext(ctx).
		Scan(&s.ID, &s.AssignmentID, &s.EnrollmentID, &s.UserID, &s.SubmittedText, &s.SubmittedFiles,
			&s.SubmittedAt, &status, &s.Supersedes, &s.Score, &s.Feedback, &s.GradedBy, &s.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lecture remise")
	}
	s.Status = models.SubmissionStatus(status)
	return &s, nil
}

func (r *SubmissionRepository) Latest(ctx context.Context, assignmentID, userID string) (*models.Submission, error) {
	h, err := r.head(ctx, assignmentID, userID)
	if err != nil || h == nil {
		return nil, err
	}
	s, err := r.row(ctx, h.id)
	if err != nil || s == nil {
		return s, err
	}
	h.overlay(s)
	return s, nil
}

// FindByID préfère l'état de la tête quand la remise est la dernière
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	s, err := r.row(ctx, id)
	if err != nil || s == nil {
		return s, err
	}
	h, err := r.head(ctx, s.AssignmentID, s.UserID)
	if err != nil {
		return nil, err
	}
	if h != nil && h.id == s.ID {
		h.overlay(s)
	}
	return s, nil
}

func (r *SubmissionRepository) insertRow(ctx context.Context, s models.Submission) error {
	err := r.session.Query(`INSERT INTO submissions (`+submissionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.AssignmentID, s.EnrollmentID, s.UserID, s.SubmittedText, s.SubmittedFiles,
		s.SubmittedAt, string(s.Status), s.Supersedes, s.Score, s.Feedback, s.GradedBy, s.UpdatedAt).
		WithContext(ctx).Exec()
	return errors.Wrap(err, "écriture remise")
}

// dropRow retire la ligne d'une remise dont la tête n'a pas été acquise
func (r *SubmissionRepository) dropRow(ctx context.Context, id string) {
	err := r.session.Query(`DELETE FROM submissions WHERE submission_id = ?`, id).WithContext(ctx).Exec()
	if err != nil {
		r.log.Warn("⚠️ ligne de remise orpheline", zap.String("submission_id", id), zap.Error(err))
	}
}

func (r *SubmissionRepository) CreateFirst(ctx context.Context, s models.Submission) (bool, error) {
	if err := r.insertRow(ctx, s); err != nil {
		return false, err
	}
	applied, err := cas(ctx, r.session.Query(`INSERT INTO submission_heads
		(assignment_id, user_id, submission_id, status, score, feedback, graded_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		s.AssignmentID, s.UserID, s.ID, string(s.Status), s.Score, s.Feedback, s.GradedBy, s.UpdatedAt))
	if err != nil || !applied {
		r.dropRow(ctx, s.ID)
	}
	return applied, err
}

func (r *SubmissionRepository) Supersede(ctx context.Context, previousID string, s models.Submission) (bool, error) {
	if err := r.insertRow(ctx, s); err != nil {
		return false, err
	}
	applied, err := cas(ctx, r.session.Query(`UPDATE submission_heads
		SET submission_id = ?, status = ?, score = ?, feedback = ?, graded_by = ?, updated_at = ?
		WHERE assignment_id = ? AND user_id = ?
		IF submission_id = ? AND status = ?`,
		s.ID, string(s.Status), s.Score, s.Feedback, s.GradedBy, s.UpdatedAt,
		s.AssignmentID, s.UserID,
		previousID, string(models.SubmissionResubmitRequested)))
	if err != nil || !applied {
		r.dropRow(ctx, s.ID)
	}
	return applied, err
}

// UpdateIf fait transiter la tête, note comprise, en une seule LWT. La recopie sur la
// ligne de submissions suit ; si elle échoue la tête reste la référence.
func (r *SubmissionRepository) UpdateIf(ctx context.Context, next models.Submission, expected models.SubmissionStatus) (bool, error) {
	applied, err := cas(ctx, r.session.Query(`UPDATE submission_heads
		SET status = ?, score = ?, feedback = ?, graded_by = ?, updated_at = ?
		WHERE assignment_id = ? AND user_id = ?
		IF submission_id = ? AND status = ?`,
		string(next.Status), next.Score, next.Feedback, next.GradedBy, next.UpdatedAt,
		next.AssignmentID, next.UserID, next.ID, string(expected)))
	if err != nil || !applied {
		return applied, err
	}

	err = r.session.Query(`UPDATE submissions SET status = ?, score = ?, feedback = ?, graded_by = ?, updated_at = ?
		WHERE submission_id = ?`,
		string(next.Status), next.Score, next.Feedback, next.GradedBy, next.UpdatedAt, next.ID).
		WithContext(ctx).Exec()
	if err != nil {
		r.log.Warn("⚠️ recopie de la remise en retard sur la tête",
			zap.String("submission_id", next.ID), zap.Error(err))
	}
	return true, nil
}
