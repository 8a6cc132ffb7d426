package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachPayBack/internal/models"
)

const (
	// amountTolerance absorbs float rounding when comparing money.
	amountTolerance = 0.01

	// matchWindow is the widest plausible gap between a payment and the
	// event registration it pays for. A gap of exactly 30 days is still
	// a match; anything beyond is not.
	matchWindow = 30 * 24 * time.Hour
)

type planCostReader interface {
	GetPlanCost(ctx context.Context, clientID int64) (*float64, error)
}

type registrationLister interface {
	ListRegistrationsForClient(ctx context.Context, clientID int64) ([]models.RegistrationWithEvent, error)
	ListRegistrationsForGuest(ctx context.Context, guestEmail string) ([]models.RegistrationWithEvent, error)
}

// ReconciliationService annotates raw payments with a semantic category
// (plan, event, general) for display. The annotation is a best-effort
// heuristic and is never an input to commission accounting.
type ReconciliationService struct {
	clientRepo planCostReader
	eventRepo  registrationLister
}

func NewReconciliationService(clientRepo planCostReader, eventRepo registrationLister) *ReconciliationService {
	return &ReconciliationService{clientRepo: clientRepo, eventRepo: eventRepo}
}

// IsPlanCharge reports whether the payment amount matches the client's
// active plan cost. A client without a plan never produces a plan charge.
func IsPlanCharge(amount float64, planCost *float64) bool {
	if planCost == nil {
		return false
	}
	return math.Abs(amount-*planCost) < amountTolerance
}

// MatchEventRegistration finds the event registration a payment most
// plausibly pays for: the price must equal the payment amount within
// tolerance and the registration must fall within the match window of
// the payment date. The closest registration wins; ties go to the
// earliest registered_at. Returns nil when nothing qualifies.
func MatchEventRegistration(payment *models.Payment, registrations []models.RegistrationWithEvent) *models.Event {
	var matched *models.Event
	var matchedGap time.Duration
	var matchedRegisteredAt time.Time

	for _, registration := range registrations {
		if math.Abs(registration.Event.Price-payment.Amount) >= amountTolerance {
			continue
		}

		gap := payment.PaidOn.Sub(registration.RegisteredAt)
		if gap < 0 {
			gap = -gap
		}
		if gap > matchWindow {
			continue
		}

		if matched == nil ||
			gap < matchedGap ||
			(gap == matchedGap && registration.RegisteredAt.Before(matchedRegisteredAt)) {
			event := registration.Event
			matched = &event
			matchedGap = gap
			matchedRegisteredAt = registration.RegisteredAt
		}
	}

	return matched
}

// ClassifyPayment assigns exactly one category. The plan check always
// short-circuits event matching, so a payment is never both.
func ClassifyPayment(
	payment *models.Payment,
	planCost *float64,
	registrations []models.RegistrationWithEvent,
) (string, *models.Event) {
	if IsPlanCharge(payment.Amount, planCost) {
		return models.PaymentCategoryPlan, nil
	}
	if event := MatchEventRegistration(payment, registrations); event != nil {
		return models.PaymentCategoryEvent, event
	}
	return models.PaymentCategoryGeneral, nil
}

// AnnotatePayments classifies a payer's payment history. All payments
// must belong to the same payer; plan cost and registrations are
// fetched once and reused across the list.
func (s *ReconciliationService) AnnotatePayments(
	ctx context.Context,
	payments []models.Payment,
) ([]models.PaymentDetail, error) {
	details := make([]models.PaymentDetail, 0, len(payments))
	if len(payments) == 0 {
		return details, nil
	}

	planCost, err := s.lookupPlanCost(ctx, payments[0].ClientID)
	if err != nil {
		return nil, err
	}

	registrations, err := s.lookupRegistrations(ctx, &payments[0])
	if err != nil {
		return nil, err
	}

	for _, payment := range payments {
		category, event := ClassifyPayment(&payment, planCost, registrations)
		details = append(details, models.PaymentDetail{
			Payment:      payment,
			Category:     category,
			MatchedEvent: event,
		})
	}

	return details, nil
}

func (s *ReconciliationService) lookupPlanCost(ctx context.Context, clientID *int64) (*float64, error) {
	if clientID == nil {
		return nil, nil
	}
	cost, err := s.clientRepo.GetPlanCost(ctx, *clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return cost, nil
}

func (s *ReconciliationService) lookupRegistrations(ctx context.Context, payment *models.Payment) ([]models.RegistrationWithEvent, error) {
	if payment.ClientID != nil {
		return s.eventRepo.ListRegistrationsForClient(ctx, *payment.ClientID)
	}
	if payment.GuestEmail != nil {
		return s.eventRepo.ListRegistrationsForGuest(ctx, *payment.GuestEmail)
	}
	return nil, nil
}
