package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachPayBack/internal/models"
	"github.com/saeid-a/CoachPayBack/internal/repository"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidInput           = errors.New("invalid input")
	ErrCoachNotFound          = errors.New("coach not found")
	ErrClientNotFound         = errors.New("client not found")
)

type paymentStore interface {
	Create(ctx context.Context, input repository.CreatePaymentInput) (*models.Payment, error)
	GetByID(ctx context.Context, paymentID int64) (*models.Payment, error)
	ListForClient(ctx context.Context, clientID int64) ([]models.Payment, error)
	ListForGuest(ctx context.Context, guestEmail string) ([]models.Payment, error)
	UpdateStatusIfCurrent(ctx context.Context, paymentID int64, currentStatus, nextStatus string) (*models.Payment, error)
}

type clientReader interface {
	GetByID(ctx context.Context, clientID int64) (*models.Client, error)
}

type PaymentService struct {
	paymentRepo    paymentStore
	clientRepo     clientReader
	reconciliation *ReconciliationService
}

func NewPaymentService(
	paymentRepo paymentStore,
	clientRepo clientReader,
	reconciliation *ReconciliationService,
) *PaymentService {
	return &PaymentService{
		paymentRepo:    paymentRepo,
		clientRepo:     clientRepo,
		reconciliation: reconciliation,
	}
}

type CreatePaymentInput struct {
	ClientID   *int64
	GuestEmail *string
	Amount     float64
	PaidOn     time.Time
}

// CreatePayment records a client or guest purchase. Payments start
// pending and are mutated only by status transitions.
func (s *PaymentService) CreatePayment(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	if input.Amount <= 0 {
		return nil, ErrInvalidInput
	}
	if (input.ClientID == nil) == (input.GuestEmail == nil) {
		return nil, ErrInvalidInput
	}
	if input.GuestEmail != nil && strings.TrimSpace(*input.GuestEmail) == "" {
		return nil, ErrInvalidInput
	}

	var coachID *int64
	if input.ClientID != nil {
		client, err := s.clientRepo.GetByID(ctx, *input.ClientID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrClientNotFound
			}
			return nil, err
		}
		coachID = &client.CoachID
	}

	paidOn := input.PaidOn
	if paidOn.IsZero() {
		paidOn = time.Now().UTC()
	}

	return s.paymentRepo.Create(ctx, repository.CreatePaymentInput{
		ClientID:   input.ClientID,
		GuestEmail: input.GuestEmail,
		CoachID:    coachID,
		Amount:     input.Amount,
		PaidOn:     paidOn,
		Status:     "pending",
	})
}

// UpdateStatus moves a pending payment to completed or failed. Both
// outcomes are terminal.
func (s *PaymentService) UpdateStatus(ctx context.Context, paymentID int64, requestedStatus string) (*models.Payment, error) {
	nextStatus, err := normalizePaymentStatus(requestedStatus)
	if err != nil {
		return nil, err
	}

	updated, err := s.paymentRepo.UpdateStatusIfCurrent(ctx, paymentID, "pending", nextStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.paymentRepo.GetByID(ctx, paymentID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	return updated, nil
}

// ListClientHistory returns a client's payments annotated with their
// reconciled categories, newest first.
func (s *PaymentService) ListClientHistory(ctx context.Context, clientID int64) ([]models.PaymentDetail, error) {
	payments, err := s.paymentRepo.ListForClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return s.reconciliation.AnnotatePayments(ctx, payments)
}

func (s *PaymentService) ListGuestHistory(ctx context.Context, guestEmail string) ([]models.PaymentDetail, error) {
	payments, err := s.paymentRepo.ListForGuest(ctx, guestEmail)
	if err != nil {
		return nil, err
	}
	return s.reconciliation.AnnotatePayments(ctx, payments)
}

func normalizePaymentStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "complete", "completed":
		return "completed", nil
	case "fail", "failed":
		return "failed", nil
	default:
		return "", ErrInvalidStatus
	}
}
