package models

import (
	"fmt"
	"time"

	"tutora_back_end/internal/apperr"
)

type SubmissionStatus string

const (
	SubmissionSubmitted         SubmissionStatus = "submitted"
	SubmissionResubmitRequested SubmissionStatus = "resubmit-requested"
	SubmissionGraded            SubmissionStatus = "graded"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionSubmitted, SubmissionResubmitRequested, SubmissionGraded:
		return true
	}
	return false
}

type Submission struct {
	ID             string           `json:"id"`
	AssignmentID   string           `json:"assignment_id"`
	EnrollmentID   string           `json:"enrollment_id"`
	UserID         string           `json:"user_id"`
	SubmittedText  string           `json:"submitted_text,omitempty"`
	SubmittedFiles []string         `json:"submitted_files,omitempty"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	Status         SubmissionStatus `json:"status"`
	Supersedes     string           `json:"supersedes,omitempty"`
	Score          *float64         `json:"score,omitempty"`
	Feedback       string           `json:"feedback,omitempty"`
	GradedBy       string           `json:"graded_by,omitempty"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// CanSupersede dit si une nouvelle remise est permise compte tenu de la dernière
func CanSupersede(latest *Submission) error {
	if latest == nil || latest.Status == SubmissionResubmitRequested {
		return nil
	}
	return apperr.Rule(apperr.ReasonAlreadySubmitted,
		fmt.Sprintf("un devoir a déjà été remis (statut %s)", latest.Status))
}

// RequestResubmission : seul chemin pour rouvrir un devoir remis ou noté
func (s Submission) RequestResubmission(now time.Time) (Submission, error) {
	if s.Status != SubmissionSubmitted && s.Status != SubmissionGraded {
		return s, apperr.Rule(apperr.ReasonInvalidTransition,
			fmt.Sprintf("demande de nouvelle remise impossible depuis %s", s.Status))
	}
	s.Status = SubmissionResubmitRequested
	s.UpdatedAt = now
	return s, nil
}

func (s Submission) Grade(score float64, feedback, grader string, now time.Time) (Submission, error) {
	if s.Status != SubmissionSubmitted {
		return s, apperr.Rule(apperr.ReasonInvalidTransition,
			fmt.Sprintf("notation impossible depuis %s", s.Status))
	}
	s.Status = SubmissionGraded
	s.Score = &score
	s.Feedback = feedback
	s.GradedBy = grader
	s.UpdatedAt = now
	return s, nil
}
