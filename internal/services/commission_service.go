package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saeid-a/CoachPayBack/internal/models"
	"github.com/saeid-a/CoachPayBack/internal/repository"
)

var (
	ErrConfigurationMissing = errors.New("commission configuration missing")
	ErrInvalidPercentage    = errors.New("percentage must be greater than 0 and at most 100")
	ErrInvalidFixedAmount   = errors.New("fixed amount must be greater than 0")
	ErrDuplicateCommission  = errors.New("client payment already commissioned")
	ErrPaymentNotCompleted  = errors.New("payment is not completed")
)

type coachClientPaymentSource interface {
	GetByID(ctx context.Context, paymentID int64) (*models.Payment, error)
	ListCompletedForCoachClients(ctx context.Context, coachID int64) ([]models.ClientPayment, error)
}

type commissionConfigStore interface {
	GetByCoachID(ctx context.Context, coachID int64) (*models.CommissionConfig, error)
	Upsert(ctx context.Context, input repository.UpsertCommissionConfigInput) (*models.CommissionConfig, error)
}

type coachPaymentStore interface {
	Create(ctx context.Context, input repository.CreateCoachPaymentInput) (*models.CoachPayment, error)
	GetByID(ctx context.Context, paymentID int64) (*models.CoachPayment, error)
	ListByCoachID(ctx context.Context, coachID int64, limit, offset int) ([]models.CoachPayment, error)
	CountByCoachID(ctx context.Context, coachID int64) (int, error)
	ListLinkedClientPaymentIDs(ctx context.Context, coachID int64) (map[int64]struct{}, error)
	CompleteIfPending(ctx context.Context, paymentID int64, paymentDate time.Time) (*models.CoachPayment, error)
	CancelIfPending(ctx context.Context, paymentID int64) (*models.CoachPayment, error)
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// LedgerNotifier receives coach payment lifecycle events. Implementations
// must not block; the feed is informational only.
type LedgerNotifier interface {
	NotifyCoachPayment(eventType string, payment *models.CoachPayment)
}

type CommissionService struct {
	paymentRepo      coachClientPaymentSource
	configRepo       commissionConfigStore
	coachPaymentRepo coachPaymentStore
	clientRepo       clientReader
	userRepo         userReader
	notifier         LedgerNotifier
}

func NewCommissionService(
	paymentRepo coachClientPaymentSource,
	configRepo commissionConfigStore,
	coachPaymentRepo coachPaymentStore,
	clientRepo clientReader,
	userRepo userReader,
	notifier LedgerNotifier,
) *CommissionService {
	return &CommissionService{
		paymentRepo:      paymentRepo,
		configRepo:       configRepo,
		coachPaymentRepo: coachPaymentRepo,
		clientRepo:       clientRepo,
		userRepo:         userRepo,
		notifier:         notifier,
	}
}

// ComputeCommission derives the coach's cut of a completed client
// payment from the coach's commission rule. The result is stored as a
// frozen snapshot; it is never recomputed from a later config.
func ComputeCommission(payment *models.Payment, config *models.CommissionConfig) (float64, error) {
	if payment == nil || payment.Status != "completed" {
		return 0, ErrPaymentNotCompleted
	}
	if config == nil {
		return 0, ErrConfigurationMissing
	}

	switch config.Type {
	case models.CommissionTypePercentage:
		if config.PercentageValue == nil {
			return 0, ErrConfigurationMissing
		}
		return payment.Amount * *config.PercentageValue / 100, nil
	case models.CommissionTypeFixed:
		if config.FixedAmount == nil {
			return 0, ErrConfigurationMissing
		}
		return *config.FixedAmount, nil
	default:
		return 0, ErrConfigurationMissing
	}
}

type CommissionConfigInput struct {
	Type            string
	PercentageValue *float64
	FixedAmount     *float64
}

// UpsertConfig replaces the coach's commission rule. Values are
// validated here, at write time; reads and computations trust them.
func (s *CommissionService) UpsertConfig(
	ctx context.Context,
	adminID int64,
	coachID int64,
	input CommissionConfigInput,
) (*models.CommissionConfig, error) {
	coach, err := s.userRepo.GetByID(ctx, coachID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCoachNotFound
		}
		return nil, err
	}
	if coach.Role != "coach" {
		return nil, ErrCoachNotFound
	}

	upsert := repository.UpsertCommissionConfigInput{
		CoachID:   coachID,
		Type:      input.Type,
		UpdatedBy: adminID,
	}

	switch input.Type {
	case models.CommissionTypePercentage:
		if input.PercentageValue == nil || *input.PercentageValue <= 0 || *input.PercentageValue > 100 {
			return nil, ErrInvalidPercentage
		}
		if input.FixedAmount != nil {
			return nil, ErrInvalidInput
		}
		upsert.PercentageValue = input.PercentageValue
	case models.CommissionTypeFixed:
		if input.FixedAmount == nil || *input.FixedAmount <= 0 {
			return nil, ErrInvalidFixedAmount
		}
		if input.PercentageValue != nil {
			return nil, ErrInvalidInput
		}
		upsert.FixedAmount = input.FixedAmount
	default:
		return nil, ErrInvalidInput
	}

	return s.configRepo.Upsert(ctx, upsert)
}

func (s *CommissionService) GetConfig(ctx context.Context, coachID int64) (*models.CommissionConfig, error) {
	return s.configRepo.GetByCoachID(ctx, coachID)
}

// ResolvePending computes the completed client payments not yet
// converted into a coach payment, and the total owed. A coach without a
// config gets an empty result, not an error: admins may look before
// configuring. The read is a snapshot; callers must not assume it is
// still accurate by the time they commit a line.
func (s *CommissionService) ResolvePending(ctx context.Context, coachID int64) (*models.PendingCommissions, error) {
	pending := &models.PendingCommissions{Lines: make([]models.PendingCommissionLine, 0)}

	config, err := s.configRepo.GetByCoachID(ctx, coachID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pending, nil
		}
		return nil, err
	}

	payments, err := s.paymentRepo.ListCompletedForCoachClients(ctx, coachID)
	if err != nil {
		return nil, err
	}

	linked, err := s.coachPaymentRepo.ListLinkedClientPaymentIDs(ctx, coachID)
	if err != nil {
		return nil, err
	}

	for _, payment := range payments {
		if _, alreadyLinked := linked[payment.ID]; alreadyLinked {
			continue
		}

		coachAmount, err := ComputeCommission(&payment.Payment, config)
		if err != nil {
			return nil, err
		}

		pending.Lines = append(pending.Lines, models.PendingCommissionLine{
			ClientPaymentID: payment.ID,
			ClientName:      payment.ClientName,
			ClientAmount:    payment.Amount,
			CoachAmount:     coachAmount,
			PaymentDate:     payment.PaidOn,
		})
		pending.TotalPending += coachAmount
	}

	return pending, nil
}

type CreateCoachPaymentInput struct {
	CoachID         int64
	ClientPaymentID *int64
	Amount          *float64
	Notes           *string
}

// CreateCoachPayment opens a pending ledger entry. Entries derived from
// a client payment snapshot the current config; manual entries carry an
// operator-supplied amount. The storage layer's uniqueness constraint
// on (coach_id, client_payment_id) is the double-payment guard; a
// violation surfaces as ErrDuplicateCommission.
func (s *CommissionService) CreateCoachPayment(
	ctx context.Context,
	adminID int64,
	input CreateCoachPaymentInput,
) (*models.CoachPayment, error) {
	if input.CoachID <= 0 {
		return nil, ErrInvalidInput
	}

	create := repository.CreateCoachPaymentInput{
		CoachID:         input.CoachID,
		AdminID:         adminID,
		ClientPaymentID: input.ClientPaymentID,
		Notes:           input.Notes,
	}

	if input.ClientPaymentID != nil {
		if input.Amount != nil {
			return nil, ErrInvalidInput
		}

		payment, err := s.paymentRepo.GetByID(ctx, *input.ClientPaymentID)
		if err != nil {
			return nil, err
		}
		if payment.Status != "completed" {
			return nil, ErrPaymentNotCompleted
		}
		if payment.ClientID == nil {
			return nil, ErrInvalidInput
		}

		client, err := s.clientRepo.GetByID(ctx, *payment.ClientID)
		if err != nil {
			return nil, err
		}
		if client.CoachID != input.CoachID {
			return nil, ErrForbidden
		}

		config, err := s.configRepo.GetByCoachID(ctx, input.CoachID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrConfigurationMissing
			}
			return nil, err
		}

		amount, err := ComputeCommission(payment, config)
		if err != nil {
			return nil, err
		}

		create.Amount = amount
		create.Type = config.Type
		create.PercentageValue = config.PercentageValue
		create.FixedAmount = config.FixedAmount
	} else {
		if input.Amount == nil || *input.Amount <= 0 {
			return nil, ErrInvalidInput
		}
		// Manual entries are recorded as a fixed amount snapshot.
		create.Amount = *input.Amount
		create.Type = models.CommissionTypeFixed
		create.FixedAmount = input.Amount
	}

	payment, err := s.coachPaymentRepo.Create(ctx, create)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateCommission
		}
		return nil, err
	}

	s.notify("coach_payment_created", payment)
	return payment, nil
}

// CompleteCoachPayment settles a pending entry. Completion stamps the
// payment date (defaulting to now) and is terminal.
func (s *CommissionService) CompleteCoachPayment(
	ctx context.Context,
	paymentID int64,
	paymentDate *time.Time,
) (*models.CoachPayment, error) {
	date := time.Now().UTC()
	if paymentDate != nil {
		date = *paymentDate
	}

	payment, err := s.coachPaymentRepo.CompleteIfPending(ctx, paymentID, date)
	if err != nil {
		return nil, s.mapTransitionError(ctx, paymentID, err)
	}

	s.notify("coach_payment_completed", payment)
	return payment, nil
}

func (s *CommissionService) CancelCoachPayment(ctx context.Context, paymentID int64) (*models.CoachPayment, error) {
	payment, err := s.coachPaymentRepo.CancelIfPending(ctx, paymentID)
	if err != nil {
		return nil, s.mapTransitionError(ctx, paymentID, err)
	}

	s.notify("coach_payment_cancelled", payment)
	return payment, nil
}

func (s *CommissionService) ListCoachPayments(
	ctx context.Context,
	coachID int64,
	limit, offset int,
) ([]models.CoachPayment, int, error) {
	payments, err := s.coachPaymentRepo.ListByCoachID(ctx, coachID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.coachPaymentRepo.CountByCoachID(ctx, coachID)
	if err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

func (s *CommissionService) mapTransitionError(ctx context.Context, paymentID int64, err error) error {
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if _, getErr := s.coachPaymentRepo.GetByID(ctx, paymentID); getErr != nil {
		return getErr
	}
	return ErrInvalidStateTransition
}

func (s *CommissionService) notify(eventType string, payment *models.CoachPayment) {
	if s.notifier != nil {
		s.notifier.NotifyCoachPayment(eventType, payment)
	}
}
