package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saeid-a/CoachPayBack/internal/models"
	"github.com/saeid-a/CoachPayBack/internal/repository"
)

type stubPaymentSource struct {
	payments  map[int64]*models.Payment
	completed []models.ClientPayment
}

func (s *stubPaymentSource) GetByID(_ context.Context, paymentID int64) (*models.Payment, error) {
	payment, ok := s.payments[paymentID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return payment, nil
}

func (s *stubPaymentSource) ListCompletedForCoachClients(_ context.Context, _ int64) ([]models.ClientPayment, error) {
	return s.completed, nil
}

type stubConfigStore struct {
	configs    map[int64]*models.CommissionConfig
	lastUpsert repository.UpsertCommissionConfigInput
}

func (s *stubConfigStore) GetByCoachID(_ context.Context, coachID int64) (*models.CommissionConfig, error) {
	config, ok := s.configs[coachID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return config, nil
}

func (s *stubConfigStore) Upsert(_ context.Context, input repository.UpsertCommissionConfigInput) (*models.CommissionConfig, error) {
	s.lastUpsert = input
	config := &models.CommissionConfig{
		CoachID:         input.CoachID,
		Type:            input.Type,
		PercentageValue: input.PercentageValue,
		FixedAmount:     input.FixedAmount,
		UpdatedBy:       input.UpdatedBy,
		UpdatedAt:       time.Now().UTC(),
	}
	if s.configs == nil {
		s.configs = make(map[int64]*models.CommissionConfig)
	}
	s.configs[input.CoachID] = config
	return config, nil
}

// stubCoachPaymentStore emulates the storage layer's partial unique
// index on (coach_id, client_payment_id) for non-cancelled rows.
type stubCoachPaymentStore struct {
	nextID   int64
	payments map[int64]*models.CoachPayment
}

func newStubCoachPaymentStore() *stubCoachPaymentStore {
	return &stubCoachPaymentStore{payments: make(map[int64]*models.CoachPayment)}
}

func (s *stubCoachPaymentStore) Create(_ context.Context, input repository.CreateCoachPaymentInput) (*models.CoachPayment, error) {
	if input.ClientPaymentID != nil {
		for _, existing := range s.payments {
			if existing.CoachID == input.CoachID &&
				existing.Status != "cancelled" &&
				existing.ClientPaymentID != nil &&
				*existing.ClientPaymentID == *input.ClientPaymentID {
				return nil, &pgconn.PgError{Code: "23505"}
			}
		}
	}

	s.nextID++
	payment := &models.CoachPayment{
		ID:              s.nextID,
		CoachID:         input.CoachID,
		AdminID:         input.AdminID,
		Amount:          input.Amount,
		Type:            input.Type,
		PercentageValue: input.PercentageValue,
		FixedAmount:     input.FixedAmount,
		ClientPaymentID: input.ClientPaymentID,
		Status:          "pending",
		Notes:           input.Notes,
		CreatedAt:       time.Now().UTC(),
	}
	s.payments[payment.ID] = payment
	return payment, nil
}

func (s *stubCoachPaymentStore) GetByID(_ context.Context, paymentID int64) (*models.CoachPayment, error) {
	payment, ok := s.payments[paymentID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return payment, nil
}

func (s *stubCoachPaymentStore) ListByCoachID(_ context.Context, coachID int64, limit, offset int) ([]models.CoachPayment, error) {
	listed := make([]models.CoachPayment, 0)
	for _, payment := range s.payments {
		if payment.CoachID == coachID {
			listed = append(listed, *payment)
		}
	}
	return listed, nil
}

func (s *stubCoachPaymentStore) CountByCoachID(_ context.Context, coachID int64) (int, error) {
	total := 0
	for _, payment := range s.payments {
		if payment.CoachID == coachID {
			total++
		}
	}
	return total, nil
}

func (s *stubCoachPaymentStore) ListLinkedClientPaymentIDs(_ context.Context, coachID int64) (map[int64]struct{}, error) {
	linked := make(map[int64]struct{})
	for _, payment := range s.payments {
		if payment.CoachID == coachID && payment.Status != "cancelled" && payment.ClientPaymentID != nil {
			linked[*payment.ClientPaymentID] = struct{}{}
		}
	}
	return linked, nil
}

func (s *stubCoachPaymentStore) CompleteIfPending(_ context.Context, paymentID int64, paymentDate time.Time) (*models.CoachPayment, error) {
	payment, ok := s.payments[paymentID]
	if !ok || payment.Status != "pending" {
		return nil, pgx.ErrNoRows
	}
	completedAt := time.Now().UTC()
	payment.Status = "completed"
	payment.PaymentDate = &paymentDate
	payment.CompletedAt = &completedAt
	return payment, nil
}

func (s *stubCoachPaymentStore) CancelIfPending(_ context.Context, paymentID int64) (*models.CoachPayment, error) {
	payment, ok := s.payments[paymentID]
	if !ok || payment.Status != "pending" {
		return nil, pgx.ErrNoRows
	}
	payment.Status = "cancelled"
	return payment, nil
}

type stubClientReader struct {
	clients map[int64]*models.Client
}

func (s *stubClientReader) GetByID(_ context.Context, clientID int64) (*models.Client, error) {
	client, ok := s.clients[clientID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return client, nil
}

type stubUserReader struct {
	users map[int64]*models.User
}

func (s *stubUserReader) GetByID(_ context.Context, id int64) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) NotifyCoachPayment(eventType string, _ *models.CoachPayment) {
	n.events = append(n.events, eventType)
}

type commissionFixture struct {
	service       *CommissionService
	paymentSource *stubPaymentSource
	configStore   *stubConfigStore
	ledgerStore   *stubCoachPaymentStore
	notifier      *recordingNotifier
}

func newCommissionFixture() *commissionFixture {
	clientID := int64(40)
	percentage := 30.0

	paymentSource := &stubPaymentSource{
		payments: map[int64]*models.Payment{
			100: {ID: 100, ClientID: &clientID, Amount: 100.0, PaidOn: date(2024, 3, 10), Status: "completed"},
			101: {ID: 101, ClientID: &clientID, Amount: 80.0, PaidOn: date(2024, 3, 15), Status: "completed"},
			102: {ID: 102, ClientID: &clientID, Amount: 55.0, PaidOn: date(2024, 3, 20), Status: "pending"},
		},
		completed: []models.ClientPayment{
			{Payment: models.Payment{ID: 101, ClientID: &clientID, Amount: 80.0, PaidOn: date(2024, 3, 15), Status: "completed"}, ClientName: "Dana"},
			{Payment: models.Payment{ID: 100, ClientID: &clientID, Amount: 100.0, PaidOn: date(2024, 3, 10), Status: "completed"}, ClientName: "Dana"},
		},
	}
	configStore := &stubConfigStore{
		configs: map[int64]*models.CommissionConfig{
			7: {CoachID: 7, Type: models.CommissionTypePercentage, PercentageValue: &percentage},
		},
	}
	ledgerStore := newStubCoachPaymentStore()
	notifier := &recordingNotifier{}

	service := NewCommissionService(
		paymentSource,
		configStore,
		ledgerStore,
		&stubClientReader{clients: map[int64]*models.Client{
			40: {ID: 40, CoachID: 7, FullName: "Dana"},
		}},
		&stubUserReader{users: map[int64]*models.User{
			1: {ID: 1, Role: "admin"},
			7: {ID: 7, Role: "coach"},
			8: {ID: 8, Role: "client"},
		}},
		notifier,
	)

	return &commissionFixture{
		service:       service,
		paymentSource: paymentSource,
		configStore:   configStore,
		ledgerStore:   ledgerStore,
		notifier:      notifier,
	}
}

func TestComputeCommissionPercentage(t *testing.T) {
	percentage := 30.0
	payment := &models.Payment{Amount: 100.0, Status: "completed"}
	config := &models.CommissionConfig{Type: models.CommissionTypePercentage, PercentageValue: &percentage}

	amount, err := ComputeCommission(payment, config)
	if err != nil {
		t.Fatalf("ComputeCommission: %v", err)
	}
	if amount != 30.0 {
		t.Fatalf("expected 30.00 commission, got %v", amount)
	}
}

func TestComputeCommissionFixedIgnoresPaymentAmount(t *testing.T) {
	fixed := 50.0
	config := &models.CommissionConfig{Type: models.CommissionTypeFixed, FixedAmount: &fixed}

	for _, paymentAmount := range []float64{10.0, 100.0, 9999.0} {
		amount, err := ComputeCommission(&models.Payment{Amount: paymentAmount, Status: "completed"}, config)
		if err != nil {
			t.Fatalf("ComputeCommission: %v", err)
		}
		if amount != 50.0 {
			t.Fatalf("expected fixed 50 commission on %v payment, got %v", paymentAmount, amount)
		}
	}
}

func TestComputeCommissionRequiresConfig(t *testing.T) {
	_, err := ComputeCommission(&models.Payment{Amount: 100.0, Status: "completed"}, nil)
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
}

func TestComputeCommissionRequiresCompletedPayment(t *testing.T) {
	percentage := 30.0
	config := &models.CommissionConfig{Type: models.CommissionTypePercentage, PercentageValue: &percentage}

	_, err := ComputeCommission(&models.Payment{Amount: 100.0, Status: "pending"}, config)
	if !errors.Is(err, ErrPaymentNotCompleted) {
		t.Fatalf("expected ErrPaymentNotCompleted, got %v", err)
	}
}

func TestUpsertConfigValidation(t *testing.T) {
	fixture := newCommissionFixture()

	float := func(v float64) *float64 { return &v }
	cases := []struct {
		name    string
		input   CommissionConfigInput
		wantErr error
	}{
		{"zero percentage", CommissionConfigInput{Type: "percentage", PercentageValue: float(0)}, ErrInvalidPercentage},
		{"percentage above 100", CommissionConfigInput{Type: "percentage", PercentageValue: float(150)}, ErrInvalidPercentage},
		{"missing percentage", CommissionConfigInput{Type: "percentage"}, ErrInvalidPercentage},
		{"zero fixed amount", CommissionConfigInput{Type: "fixed", FixedAmount: float(0)}, ErrInvalidFixedAmount},
		{"negative fixed amount", CommissionConfigInput{Type: "fixed", FixedAmount: float(-10)}, ErrInvalidFixedAmount},
		{"unknown type", CommissionConfigInput{Type: "tiered"}, ErrInvalidInput},
		{"both values set", CommissionConfigInput{Type: "fixed", FixedAmount: float(10), PercentageValue: float(5)}, ErrInvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fixture.service.UpsertConfig(context.Background(), 1, 7, tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestUpsertConfigRejectsNonCoach(t *testing.T) {
	fixture := newCommissionFixture()
	percentage := 20.0

	_, err := fixture.service.UpsertConfig(context.Background(), 1, 8, CommissionConfigInput{
		Type:            "percentage",
		PercentageValue: &percentage,
	})
	if !errors.Is(err, ErrCoachNotFound) {
		t.Fatalf("expected ErrCoachNotFound, got %v", err)
	}
}

func TestUpsertConfigReplacesPriorRule(t *testing.T) {
	fixture := newCommissionFixture()
	fixed := 25.0

	config, err := fixture.service.UpsertConfig(context.Background(), 1, 7, CommissionConfigInput{
		Type:        "fixed",
		FixedAmount: &fixed,
	})
	if err != nil {
		t.Fatalf("UpsertConfig: %v", err)
	}
	if config.Type != models.CommissionTypeFixed || config.FixedAmount == nil || *config.FixedAmount != 25.0 {
		t.Fatalf("expected fixed 25 config, got %+v", config)
	}
	if config.PercentageValue != nil {
		t.Fatalf("expected percentage value cleared on type switch")
	}
}

func TestResolvePendingWithoutConfigIsEmpty(t *testing.T) {
	fixture := newCommissionFixture()
	delete(fixture.configStore.configs, 7)

	pending, err := fixture.service.ResolvePending(context.Background(), 7)
	if err != nil {
		t.Fatalf("ResolvePending: %v", err)
	}
	if pending.TotalPending != 0 || len(pending.Lines) != 0 {
		t.Fatalf("expected empty pending result without config, got %+v", pending)
	}
}

func TestResolvePendingComputesLinesAndTotal(t *testing.T) {
	fixture := newCommissionFixture()

	pending, err := fixture.service.ResolvePending(context.Background(), 7)
	if err != nil {
		t.Fatalf("ResolvePending: %v", err)
	}

	if len(pending.Lines) != 2 {
		t.Fatalf("expected 2 pending lines, got %d", len(pending.Lines))
	}
	if pending.Lines[0].ClientPaymentID != 101 || pending.Lines[0].CoachAmount != 24.0 {
		t.Fatalf("expected payment 101 owing 24.00 first, got %+v", pending.Lines[0])
	}
	if pending.Lines[1].ClientPaymentID != 100 || pending.Lines[1].CoachAmount != 30.0 {
		t.Fatalf("expected payment 100 owing 30.00 second, got %+v", pending.Lines[1])
	}
	if pending.TotalPending != 54.0 {
		t.Fatalf("expected 54.00 total pending, got %v", pending.TotalPending)
	}
}

func TestResolvePendingIsIdempotent(t *testing.T) {
	fixture := newCommissionFixture()

	first, err := fixture.service.ResolvePending(context.Background(), 7)
	if err != nil {
		t.Fatalf("ResolvePending: %v", err)
	}
	second, err := fixture.service.ResolvePending(context.Background(), 7)
	if err != nil {
		t.Fatalf("ResolvePending: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results without intervening writes")
	}
}

func TestResolvePendingShrinksAfterCommit(t *testing.T) {
	fixture := newCommissionFixture()
	clientPaymentID := int64(100)

	if _, err := fixture.service.CreateCoachPayment(context.Background(), 1, CreateCoachPaymentInput{
		CoachID:         7,
		ClientPaymentID: &clientPaymentID,
	}); err != nil {
		t.Fatalf("CreateCoachPayment: %v", err)
	}

	pending, err := fixture.service.ResolvePending(context.Background(), 7)
	if err != nil {
		t.Fatalf("ResolvePending: %v", err)
	}
	if len(pending.Lines) != 1 || pending.Lines[0].ClientPaymentID != 101 {
		t.Fatalf("expected only payment 101 to remain pending, got %+v", pending.Lines)
	}
	if pending.TotalPending != 24.0 {
		t.Fatalf("expected 24.00 total after commit, got %v", pending.TotalPending)
	}
}

func TestCreateCoachPaymentSnapshotsConfig(t *testing.T) {
	fixture := newCommissionFixture()
	clientPaymentID := int64(100)

	payment, err := fixture.service.CreateCoachPayment(context.Background(), 1, CreateCoachPaymentInput{
		CoachID:         7,
		ClientPaymentID: &clientPaymentID,
	})
	if err != nil {
		t.Fatalf("CreateCoachPayment: %v", err)
	}

	if payment.Amount != 30.0 {
		t.Fatalf("expected 30.00 commission, got %v", payment.Amount)
	}
	if payment.Type != models.CommissionTypePercentage || payment.PercentageValue == nil || *payment.PercentageValue != 30.0 {
		t.Fatalf("expected percentage snapshot on the ledger entry, got %+v", payment)
	}
	if payment.Status != "pending" {
		t.Fatalf("expected new entry to start pending, got %s", payment.Status)
	}

	// A later config change must not touch the stored snapshot.
	newPercentage := 50.0
	fixture.configStore.configs[7].PercentageValue = &newPercentage

	stored, err := fixture.ledgerStore.GetByID(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Amount != 30.0 || *stored.PercentageValue != 30.0 {
		t.Fatalf("expected frozen snapshot, got %+v", stored)
	}
}

func TestCreateCoachPaymentRequiresCompletedPayment(t *testing.T) {
	fixture := newCommissionFixture()
	clientPaymentID := int64(102)

	_, err := fixture.service.CreateCoachPayment(context.Background(), 1, CreateCoachPaymentInput{
		CoachID:         7,
		ClientPaymentID: &clientPaymentID,
	})
	if !errors.Is(err, ErrPaymentNotCompleted) {
		t.Fatalf("expected ErrPaymentNotCompleted, got %v", err)
	}
}

func TestCreateCoachPaymentRequiresConfigForDerivedEntries(t *testing.T) {
	fixture := newCommissionFixture()
	delete(fixture.configStore.configs, 7)
	clientPaymentID := int64(100)

	_, err := fixture.service.CreateCoachPayment(context.Background(), 1, CreateCoachPaymentInput{
		CoachID:         7,
		ClientPaymentID: &clientPaymentID,
	})
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
}

func TestCreateCoachPaymentRejectsDuplicateLink(t *testing.T) {
	fixture := newCommissionFixture()
	clientPaymentID := int64(100)

	if _, err := fixture.service.CreateCoachPayment(context.Background(), 1, CreateCoachPaymentInput{
		CoachID:         7,
		ClientPaymentID: &clientPaymentID,
	}); err != nil {
		t.Fatalf("first CreateCoachPayment: %v", err)
	}

	_, err := fixture.service.CreateCoachPayment(context.Background(), 1, CreateCoachPaymentInput{
		CoachID:         7,
		ClientPaymentID: &clientPaymentID,
	})
	if !errors.Is(err, ErrDuplicateCommission) {
		t.Fatalf("expected ErrDuplicateCommission, got %v", err)
	}
}

func TestCreateCoachPaymentCancelledLinkFreesThePayment(t *testing.T) {
	fixture := newCommissionFixture()
	clientPaymentID := int64(100)

	first, err := fixture.service.CreateCoachPayment(context.Background(), 1, CreateCoachPaymentInput{
		CoachID:         7,
		ClientPaymentID: &clientPaymentID,
	})
	if err != nil {
		t.Fatalf("CreateCoachPayment: %v", err)
	}
	if _, err := fixture.service.CancelCoachPayment(context.Background(), first.ID); err != nil {
		t.Fatalf("CancelCoachPayment: %v", err)
	}

	if _, err := fixture.service.CreateCoachPayment(context.Background(), 1, CreateCoachPaymentInput{
		CoachID:         7,
		ClientPaymentID: &clientPaymentID,
	}); err != nil {
		t.Fatalf("expected cancelled link to free the payment, got %v", err)
	}
}

func TestCreateCoachPaymentManualEntry(t *testing.T) {
	fixture := newCommissionFixture()
	amount := 75.0
	notes := "reimbursement for workshop materials"

	payment, err := fixture.service.CreateCoachPayment(context.Background(), 1, CreateCoachPaymentInput{
		CoachID: 7,
		Amount:  &amount,
		Notes:   &notes,
	})
	if err != nil {
		t.Fatalf("CreateCoachPayment: %v", err)
	}

	if payment.ClientPaymentID != nil {
		t.Fatalf("expected manual entry without a client payment link")
	}
	if payment.Amount != 75.0 || payment.Type != models.CommissionTypeFixed {
		t.Fatalf("expected manual fixed 75 entry, got %+v", payment)
	}
}

func TestCoachPaymentLifecycle(t *testing.T) {
	fixture := newCommissionFixture()
	amount := 40.0

	payment, err := fixture.service.CreateCoachPayment(context.Background(), 1, CreateCoachPaymentInput{
		CoachID: 7,
		Amount:  &amount,
	})
	if err != nil {
		t.Fatalf("CreateCoachPayment: %v", err)
	}

	paymentDate := date(2024, 4, 1)
	completed, err := fixture.service.CompleteCoachPayment(context.Background(), payment.ID, &paymentDate)
	if err != nil {
		t.Fatalf("CompleteCoachPayment: %v", err)
	}
	if completed.Status != "completed" {
		t.Fatalf("expected completed status, got %s", completed.Status)
	}
	if completed.PaymentDate == nil || !completed.PaymentDate.Equal(paymentDate) {
		t.Fatalf("expected payment date stamped on completion")
	}
	if completed.CompletedAt == nil {
		t.Fatalf("expected completion timestamp")
	}

	// Completed is terminal.
	if _, err := fixture.service.CancelCoachPayment(context.Background(), payment.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition cancelling a completed entry, got %v", err)
	}
	if _, err := fixture.service.CompleteCoachPayment(context.Background(), payment.ID, nil); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition completing twice, got %v", err)
	}

	wantEvents := []string{"coach_payment_created", "coach_payment_completed"}
	if !reflect.DeepEqual(fixture.notifier.events, wantEvents) {
		t.Fatalf("expected events %v, got %v", wantEvents, fixture.notifier.events)
	}
}

func TestCancelCoachPaymentIsTerminal(t *testing.T) {
	fixture := newCommissionFixture()
	amount := 40.0

	payment, err := fixture.service.CreateCoachPayment(context.Background(), 1, CreateCoachPaymentInput{
		CoachID: 7,
		Amount:  &amount,
	})
	if err != nil {
		t.Fatalf("CreateCoachPayment: %v", err)
	}

	cancelled, err := fixture.service.CancelCoachPayment(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("CancelCoachPayment: %v", err)
	}
	if cancelled.Status != "cancelled" {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}

	if _, err := fixture.service.CompleteCoachPayment(context.Background(), payment.ID, nil); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition completing a cancelled entry, got %v", err)
	}
}

func TestCreateCoachPaymentForeignClientForbidden(t *testing.T) {
	fixture := newCommissionFixture()
	clientPaymentID := int64(100)

	_, err := fixture.service.CreateCoachPayment(context.Background(), 1, CreateCoachPaymentInput{
		CoachID:         9,
		ClientPaymentID: &clientPaymentID,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for another coach's client payment, got %v", err)
	}
}
