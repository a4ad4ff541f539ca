package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tutora_back_end/internal/apperr"
)

type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Aucun retour vers pending n'est possible
var enrollmentTransitions = map[EnrollmentStatus][]EnrollmentStatus{
	EnrollmentPending: {EnrollmentActive, EnrollmentCancelled},
	EnrollmentActive:  {EnrollmentCompleted},
}

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentPending, EnrollmentActive, EnrollmentCancelled, EnrollmentCompleted:
		return true
	}
	return false
}

func (s EnrollmentStatus) CanTransitionTo(next EnrollmentStatus) bool {
	for _, allowed := range enrollmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type Enrollment struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	ContactEmail  string           `json:"contact_email,omitempty"`
	CourseID      string           `json:"course_id"`
	ChildID       string           `json:"child_id,omitempty"`
	BatchID       string           `json:"batch_id,omitempty"`
	Status        EnrollmentStatus `json:"status"`
	PaymentStatus PaymentStatus    `json:"payment_status"`
	Amount        decimal.Decimal  `json:"amount"`
	ChildrenCount int              `json:"children_count"`
	CouponCode    string           `json:"coupon_code,omitempty"`
	IntentID      string           `json:"intent_id,omitempty"`
	EnrolledAt    time.Time        `json:"enrolled_at"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func invalidTransition(from, to EnrollmentStatus) error {
	return apperr.Rule(apperr.ReasonInvalidTransition,
		fmt.Sprintf("transition d'inscription impossible: %s → %s", from, to))
}

// Activate marque l'inscription payée et active pour l'intent donné
func (e Enrollment) Activate(intentID string, now time.Time) (Enrollment, error) {
	if !e.Status.CanTransitionTo(EnrollmentActive) {
		return e, invalidTransition(e.Status, EnrollmentActive)
	}
	e.Status = EnrollmentActive
	e.PaymentStatus = PaymentPaid
	e.IntentID = intentID
	e.PaidAt = &now
	e.UpdatedAt = now
	return e, nil
}

func (e Enrollment) Cancel(now time.Time) (Enrollment, error) {
	if !e.Status.CanTransitionTo(EnrollmentCancelled) {
		return e, invalidTransition(e.Status, EnrollmentCancelled)
	}
	e.Status = EnrollmentCancelled
	e.UpdatedAt = now
	return e, nil
}

func (e Enrollment) Complete(now time.Time) (Enrollment, error) {
	if !e.Status.CanTransitionTo(EnrollmentCompleted) {
		return e, invalidTransition(e.Status, EnrollmentCompleted)
	}
	e.Status = EnrollmentCompleted
	e.UpdatedAt = now
	return e, nil
}

// MarkPaymentFailed n'a de sens que tant que l'inscription attend son paiement
func (e Enrollment) MarkPaymentFailed(now time.Time) (Enrollment, error) {
	if e.Status != EnrollmentPending || e.PaymentStatus == PaymentPaid {
		return e, apperr.Rule(apperr.ReasonInvalidTransition,
			fmt.Sprintf("échec de paiement impossible pour une inscription %s/%s", e.Status, e.PaymentStatus))
	}
	e.PaymentStatus = PaymentFailed
	e.UpdatedAt = now
	return e, nil
}

// AmountCents est le montant attendu du processeur
func (e Enrollment) AmountCents() int64 {
	return ToMinorUnits(e.Amount)
}
