package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tutora_back_end/internal/apperr"
	"tutora_back_end/internal/models"
)

// Repository : FindByID renvoie (nil, nil) quand l'inscription n'existe pas.
// UpdateIf n'écrit que si le couple (status, payment_status) stocké est celui attendu.
type Repository interface {
	Create(ctx context.Context, e models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error)
	UpdateIf(ctx context.Context, next models.Enrollment, status models.EnrollmentStatus, payment models.PaymentStatus) (bool, error)
}

// CourseCatalog est le catalogue externe ; FindCourse renvoie (nil, nil) si absent
type CourseCatalog interface {
	FindCourse(ctx context.Context, id string) (*models.Course, error)
}

// IntentRecords donne accès aux métadonnées enregistrées à la création d'un intent
type IntentRecords interface {
	Find(ctx context.Context, intentID string) (*models.PaymentIntentRecord, error)
}

type CreateRequest struct {
	UserID        string
	Email         string
	CourseID      string
	ChildID       string
	BatchID       string
	ChildrenCount int
	CouponCode    string
	Amount        decimal.Decimal
}

type Service struct {
	repo    Repository
	courses CourseCatalog
	intents IntentRecords
	log     *zap.Logger
	timeout time.Duration

	// OnActivated est appelé dans sa propre goroutine après une activation
	OnActivated func(models.Enrollment)

	now   func() time.Time
	newID func() string
}

func NewService(repo Repository, courses CourseCatalog, intents IntentRecords, log *zap.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		repo:    repo,
		courses: courses,
		intents: intents,
		log:     log,
		timeout: timeout,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Course lit un cours et vérifie qu'il est ouvert à l'inscription
func (s *Service) Course(ctx context.Context, courseID string) (*models.Course, error) {
	if courseID == "" {
		return nil, apperr.Validation("cours requis", apperr.FieldError{Field: "course_id", Error: "requis"})
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	course, err := s.courses.FindCourse(ctx, courseID)
	if err != nil {
		return nil, apperr.Storage(err, "lecture du cours")
	}
	if course == nil {
		return nil, apperr.NotFound("Cours introuvable")
	}
	if !course.Verified {
		return nil, apperr.Rule(apperr.ReasonCourseNotVerified, "Ce cours n'est pas encore vérifié")
	}
	return course, nil
}

// Create enregistre une inscription pending/pending pour un cours vérifié
func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Enrollment, error) {
	var fields []apperr.FieldError
	if req.UserID == "" {
		fields = append(fields, apperr.FieldError{Field: "user_id", Error: "requis"})
	}
	if req.ChildrenCount < 0 {
		fields = append(fields, apperr.FieldError{Field: "children_count", Error: "ne peut pas être négatif"})
	}
	if req.Amount.IsNegative() {
		fields = append(fields, apperr.FieldError{Field: "amount", Error: "ne peut pas être négatif"})
	}
	if len(fields) > 0 {
		return models.Enrollment{}, apperr.Validation("inscription invalide", fields...)
	}

	if _, err := s.Course(ctx, req.CourseID); err != nil {
		return models.Enrollment{}, err
	}

	now := s.now()
	e := models.Enrollment{
		ID:            s.newID(),
		UserID:        req.UserID,
		ContactEmail:  req.Email,
		CourseID:      req.CourseID,
		ChildID:       req.ChildID,
		BatchID:       req.BatchID,
		Status:        models.EnrollmentPending,
		PaymentStatus: models.PaymentPending,
		Amount:        req.Amount,
		ChildrenCount: req.ChildrenCount,
		CouponCode:    models.NormalizeCode(req.CouponCode),
		EnrolledAt:    now,
		UpdatedAt:     now,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Create(ctx, e); err != nil {
		return models.Enrollment{}, apperr.Storage(err, "création de l'inscription")
	}

	s.log.Info("📝 inscription créée",
		zap.String("enrollment_id", e.ID), zap.String("user_id", e.UserID), zap.String("course_id", e.CourseID))
	return e, nil
}

func (s *Service) load(ctx context.Context, id string) (models.Enrollment, error) {
	if id == "" {
		return models.Enrollment{}, apperr.Validation("inscription requise", apperr.FieldError{Field: "id", Error: "requis"})
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return models.Enrollment{}, apperr.Storage(err, "lecture de l'inscription")
	}
	if e == nil {
		return models.Enrollment{}, apperr.NotFound("Inscription introuvable")
	}
	return *e, nil
}

// Get renvoie l'inscription si elle appartient à userID (vide = pas de contrôle)
func (s *Service) Get(ctx context.Context, id, userID string) (models.Enrollment, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return models.Enrollment{}, err
	}
	if userID != "" && e.UserID != userID {
		// même réponse qu'une inscription absente
		return models.Enrollment{}, apperr.NotFound("Inscription introuvable")
	}
	return e, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Storage(err, "liste des inscriptions")
	}
	if list == nil {
		list = []models.Enrollment{}
	}
	return list, nil
}

// save écrit next à condition que l'inscription n'ait pas bougé depuis prev
func (s *Service) save(ctx context.Context, prev, next models.Enrollment) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	applied, err := s.repo.UpdateIf(ctx, next, prev.Status, prev.PaymentStatus)
	if err != nil {
		return apperr.Storage(err, "mise à jour de l'inscription")
	}
	if !applied {
		return apperr.Rule(apperr.ReasonConflict, "L'inscription a été modifiée entre-temps, réessayez")
	}
	return nil
}

func (s *Service) transition(ctx context.Context, e models.Enrollment, apply func(models.Enrollment, time.Time) (models.Enrollment, error)) (models.Enrollment, error) {
	next, err := apply(e, s.now())
	if err != nil {
		return models.Enrollment{}, err
	}
	if err := s.save(ctx, e, next); err != nil {
		return models.Enrollment{}, err
	}
	s.log.Info("🔄 inscription mise à jour",
		zap.String("enrollment_id", e.ID),
		zap.String("from", fmt.Sprintf("%s/%s", e.Status, e.PaymentStatus)),
		zap.String("to", fmt.Sprintf("%s/%s", next.Status, next.PaymentStatus)))
	return next, nil
}

// AttachIntent lie un intent à une inscription en attente de paiement
func (s *Service) AttachIntent(ctx context.Context, id, intentID string) (models.Enrollment, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return models.Enrollment{}, err
	}
	return s.transition(ctx, e, func(e models.Enrollment, now time.Time) (models.Enrollment, error) {
		if e.Status != models.EnrollmentPending {
			return e, apperr.Rule(apperr.ReasonInvalidTransition, "Seule une inscription en attente peut recevoir un paiement")
		}
		e.IntentID = intentID
		e.PaymentStatus = models.PaymentPending
		e.UpdatedAt = now
		return e, nil
	})
}

// ConfirmPayment active l'inscription quand le processeur a encaissé intentID.
// Le montant de l'intent doit correspondre au centime près, sinon l'inscription reste pending.
func (s *Service) ConfirmPayment(ctx context.Context, enrollmentID, intentID string) (models.Enrollment, error) {
	if intentID == "" {
		return models.Enrollment{}, apperr.Validation("intent requis", apperr.FieldError{Field: "intent_id", Error: "requis"})
	}
	e, err := s.load(ctx, enrollmentID)
	if err != nil {
		return models.Enrollment{}, err
	}

	if e.Status == models.EnrollmentActive && e.IntentID == intentID {
		return e, nil
	}
	if e.Status != models.EnrollmentPending {
		return models.Enrollment{}, apperr.Rule(apperr.ReasonInvalidTransition,
			fmt.Sprintf("confirmation impossible pour une inscription %s", e.Status))
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	rec, err := s.intents.Find(rctx, intentID)
	cancel()
	if err != nil {
		return models.Enrollment{}, apperr.Storage(err, "lecture de l'intent")
	}
	if rec == nil {
		return models.Enrollment{}, apperr.NotFound("Intent de paiement introuvable")
	}

	if (e.IntentID != "" && e.IntentID != intentID) ||
		(rec.EnrollmentID != "" && rec.EnrollmentID != e.ID) ||
		rec.UserID != e.UserID || rec.CourseID != e.CourseID {
		s.log.Warn("⚠️ intent ne correspondant pas à l'inscription",
			zap.String("enrollment_id", e.ID), zap.String("intent_id", intentID))
		return models.Enrollment{}, apperr.Rule(apperr.ReasonIntentMismatch, "Cet intent ne concerne pas cette inscription")
	}

	if rec.FinalAmountCents != e.AmountCents() {
		s.log.Warn("⚠️ montant encaissé différent du montant attendu",
			zap.String("enrollment_id", e.ID),
			zap.Int64("expected_cents", e.AmountCents()),
			zap.Int64("intent_cents", rec.FinalAmountCents))
		return models.Enrollment{}, apperr.Rule(apperr.ReasonAmountMismatch,
			fmt.Sprintf("montant de l'intent (%d) différent du montant de l'inscription (%d)", rec.FinalAmountCents, e.AmountCents()))
	}

	next, err := s.transition(ctx, e, func(e models.Enrollment, now time.Time) (models.Enrollment, error) {
		return e.Activate(intentID, now)
	})
	if err != nil {
		if apperr.HasReason(err, apperr.ReasonConflict) {
			// une confirmation concurrente du même intent a pu gagner
			if cur, lerr := s.load(ctx, enrollmentID); lerr == nil && cur.Status == models.EnrollmentActive && cur.IntentID == intentID {
				return cur, nil
			}
		}
		return models.Enrollment{}, err
	}

	s.log.Info("✅ paiement confirmé", zap.String("enrollment_id", next.ID), zap.String("intent_id", intentID))
	if s.OnActivated != nil {
		go s.OnActivated(next)
	}
	return next, nil
}

// FailPayment note l'échec du paiement ; l'inscription reste pending et peut être repayée
func (s *Service) FailPayment(ctx context.Context, id string) (models.Enrollment, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return models.Enrollment{}, err
	}
	return s.transition(ctx, e, models.Enrollment.MarkPaymentFailed)
}

// Cancel : userID vide pour un appel interne
func (s *Service) Cancel(ctx context.Context, id, userID string) (models.Enrollment, error) {
	e, err := s.Get(ctx, id, userID)
	if err != nil {
		return models.Enrollment{}, err
	}
	return s.transition(ctx, e, models.Enrollment.Cancel)
}

func (s *Service) Complete(ctx context.Context, id string) (models.Enrollment, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return models.Enrollment{}, err
	}
	return s.transition(ctx, e, models.Enrollment.Complete)
}
