package submission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"tutora_back_end/internal/apperr"
	"tutora_back_end/internal/models"
)

// Repository garde une tête par couple (assignment, user) qui pointe la dernière remise.
// CreateFirst et Supersede sont des écritures conditionnelles sur cette tête : false
// signifie qu'une autre remise est passée entre-temps.
type Repository interface {
	Latest(ctx context.Context, assignmentID, userID string) (*models.Submission, error)
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	CreateFirst(ctx context.Context, s models.Submission) (bool, error)
	Supersede(ctx context.Context, previousID string, s models.Submission) (bool, error)
	UpdateIf(ctx context.Context, next models.Submission, expected models.SubmissionStatus) (bool, error)
}

// EnrollmentLookup lit une inscription ; (nil, nil) si absente
type EnrollmentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type SubmitRequest struct {
	AssignmentID string
	EnrollmentID string
	UserID       string
	Text         string
	Files        []string
}

const MaxScore = 100

type Service struct {
	repo        Repository
	enrollments EnrollmentLookup
	log         *zap.Logger
	timeout     time.Duration
	now         func() time.Time
	newID       func() string
}

// timeID : identifiants triés par date de remise
func timeID() string { return gocql.TimeUUID().String() }

func NewService(repo Repository, enrollments EnrollmentLookup, log *zap.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		repo:        repo,
		enrollments: enrollments,
		log:         log,
		timeout:     timeout,
		now:         time.Now,
		newID:       timeID,
	}
}

func (s *Service) checkRequest(req SubmitRequest) error {
	var fields []apperr.FieldError
	if req.AssignmentID == "" {
		fields = append(fields, apperr.FieldError{Field: "assignment_id", Error: "requis"})
	}
	if req.EnrollmentID == "" {
		fields = append(fields, apperr.FieldError{Field: "enrollment_id", Error: "requis"})
	}
	if req.UserID == "" {
		fields = append(fields, apperr.FieldError{Field: "user_id", Error: "requis"})
	}
	if strings.TrimSpace(req.Text) == "" && len(req.Files) == 0 {
		fields = append(fields, apperr.FieldError{Field: "submitted_text", Error: "texte ou fichier requis"})
	}
	if len(fields) > 0 {
		return apperr.Validation("remise invalide", fields...)
	}
	return nil
}

// Admissible vérifie, sans rien écrire, qu'une remise serait acceptée.
// Sert à refuser avant de téléverser des fichiers.
func (s *Service) Admissible(ctx context.Context, assignmentID, enrollmentID, userID string) (*models.Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	e, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, apperr.Storage(err, "lecture de l'inscription")
	}
	if e == nil || e.UserID != userID {
		return nil, apperr.NotFound("Inscription introuvable")
	}
	if e.Status != models.EnrollmentActive {
		return nil, apperr.Rule(apperr.ReasonNotEnrolled,
			fmt.Sprintf("remise impossible pour une inscription %s", e.Status))
	}

	latest, err := s.repo.Latest(ctx, assignmentID, userID)
	if err != nil {
		return nil, apperr.Storage(err, "lecture de la dernière remise")
	}
	if err := models.CanSupersede(latest); err != nil {
		return nil, err
	}
	return latest, nil
}

// Submit crée la première remise ou remplace une remise dont la reprise a été demandée
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (models.Submission, error) {
	if err := s.checkRequest(req); err != nil {
		return models.Submission{}, err
	}

	latest, err := s.Admissible(ctx, req.AssignmentID, req.EnrollmentID, req.UserID)
	if err != nil {
		return models.Submission{}, err
	}

	now := s.now()
	sub := models.Submission{
		ID:             s.newID(),
		AssignmentID:   req.AssignmentID,
		EnrollmentID:   req.EnrollmentID,
		UserID:         req.UserID,
		SubmittedText:  req.Text,
		SubmittedFiles: req.Files,
		SubmittedAt:    now,
		Status:         models.SubmissionSubmitted,
		UpdatedAt:      now,
	}

	wctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var applied bool
	if latest == nil {
		applied, err = s.repo.CreateFirst(wctx, sub)
	} else {
		sub.Supersedes = latest.ID
		applied, err = s.repo.Supersede(wctx, latest.ID, sub)
	}
	if err != nil {
		return models.Submission{}, apperr.Storage(err, "enregistrement de la remise")
	}
	if !applied {
		return models.Submission{}, apperr.Rule(apperr.ReasonAlreadySubmitted, "Un devoir a déjà été remis pour cette consigne")
	}

	s.log.Info("📤 devoir remis",
		zap.String("submission_id", sub.ID),
		zap.String("assignment_id", sub.AssignmentID),
		zap.String("user_id", sub.UserID),
		zap.String("supersedes", sub.Supersedes))
	return sub, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return models.Submission{}, apperr.Storage(err, "lecture de la remise")
	}
	if sub == nil {
		return models.Submission{}, apperr.NotFound("Remise introuvable")
	}
	return *sub, nil
}

func (s *Service) update(ctx context.Context, grader models.User, id string, apply func(models.Submission, time.Time) (models.Submission, error)) (models.Submission, error) {
	if !grader.CanGrade() {
		return models.Submission{}, apperr.Rule(apperr.ReasonForbidden, "Action réservée aux correcteurs")
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return models.Submission{}, err
	}
	next, err := apply(cur, s.now())
	if err != nil {
		return models.Submission{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	applied, err := s.repo.UpdateIf(ctx, next, cur.Status)
	if err != nil {
		return models.Submission{}, apperr.Storage(err, "mise à jour de la remise")
	}
	if !applied {
		return models.Submission{}, apperr.Rule(apperr.ReasonConflict, "La remise a été modifiée entre-temps, réessayez")
	}

	s.log.Info("🔄 remise mise à jour",
		zap.String("submission_id", id),
		zap.String("from", string(cur.Status)),
		zap.String("to", string(next.Status)),
		zap.String("by", grader.ID))
	return next, nil
}

func (s *Service) RequestResubmission(ctx context.Context, grader models.User, id string) (models.Submission, error) {
	return s.update(ctx, grader, id, models.Submission.RequestResubmission)
}

func (s *Service) Grade(ctx context.Context, grader models.User, id string, score float64, feedback string) (models.Submission, error) {
	if score < 0 || score > MaxScore {
		return models.Submission{}, apperr.Validation("note invalide",
			apperr.FieldError{Field: "score", Error: fmt.Sprintf("doit être entre 0 et %d", MaxScore)})
	}
	return s.update(ctx, grader, id, func(sub models.Submission, now time.Time) (models.Submission, error) {
		return sub.Grade(score, feedback, grader.ID, now)
	})
}
