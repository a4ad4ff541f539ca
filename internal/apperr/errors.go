package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classe une erreur pour que la couche HTTP choisisse le bon statut
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindRuleViolation
	KindExternalFailure
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRuleViolation:
		return "rule_violation"
	case KindExternalFailure:
		return "external_failure"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Reason est le code stable renvoyé aux clients
type Reason string

const (
	ReasonInvalidInput      Reason = "INVALID_INPUT"
	ReasonNotFound          Reason = "NOT_FOUND"
	ReasonExpired           Reason = "EXPIRED"
	ReasonExhausted         Reason = "EXHAUSTED"
	ReasonNotApplicable     Reason = "NOT_APPLICABLE"
	ReasonBelowMinimum      Reason = "BELOW_MINIMUM"
	ReasonCodeTaken         Reason = "CODE_TAKEN"
	ReasonAlreadySubmitted  Reason = "ALREADY_SUBMITTED"
	ReasonAmountMismatch    Reason = "AMOUNT_MISMATCH"
	ReasonIntentMismatch    Reason = "INTENT_MISMATCH"
	ReasonInvalidTransition Reason = "INVALID_TRANSITION"
	ReasonCourseNotVerified Reason = "COURSE_NOT_VERIFIED"
	ReasonNotEnrolled       Reason = "ENROLLMENT_NOT_ACTIVE"
	ReasonConflict          Reason = "CONCURRENT_UPDATE"
	ReasonForbidden         Reason = "FORBIDDEN"
	ReasonStorage           Reason = "STORAGE_UNAVAILABLE"
	ReasonProcessor         Reason = "PROCESSOR_UNAVAILABLE"
)

// FieldError signale une erreur sur un champ précis de la requête
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is permet errors.Is(err, &Error{Reason: ...}) sur le code seul
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Reason != "" && t.Reason == e.Reason
}

func Validation(msg string, fields ...FieldError) error {
	return &Error{Kind: KindValidation, Reason: ReasonInvalidInput, Message: msg, Fields: fields}
}

func Rule(reason Reason, msg string) error {
	return &Error{Kind: KindRuleViolation, Reason: reason, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Reason: ReasonNotFound, Message: msg}
}

// External enveloppe une panne d'un collaborateur (stockage, processeur)
func External(reason Reason, err error, msg string) error {
	return &Error{Kind: KindExternalFailure, Reason: reason, Message: msg, Err: errors.WithStack(err)}
}

// Storage est un raccourci pour les erreurs de la base
func Storage(err error, op string) error {
	return External(ReasonStorage, err, op)
}

func as(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if e, ok := as(err); ok {
		return e.Kind
	}
	return KindUnknown
}

func ReasonOf(err error) Reason {
	if e, ok := as(err); ok {
		return e.Reason
	}
	return ""
}

// HasReason vérifie le code d'une erreur, quel que soit son niveau d'enveloppe
func HasReason(err error, reason Reason) bool {
	return ReasonOf(err) == reason
}

func FieldsOf(err error) []FieldError {
	if e, ok := as(err); ok {
		return e.Fields
	}
	return nil
}
