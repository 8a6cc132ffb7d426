package repository

import (
	"context"
	"time"

	"github.com/saeid-a/CoachPayBack/internal/models"
)

type CreatePaymentInput struct {
	ClientID   *int64
	GuestEmail *string
	CoachID    *int64
	Amount     float64
	PaidOn     time.Time
	Status     string
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := `
		INSERT INTO payments (client_id, guest_email, coach_id, amount, paid_on, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, client_id, guest_email, coach_id, amount, paid_on, status, created_at
	`

	var payment models.Payment
	err := r.db.QueryRow(
		ctx,
		query,
		input.ClientID,
		input.GuestEmail,
		input.CoachID,
		input.Amount,
		input.PaidOn,
		input.Status,
	).Scan(
		&payment.ID,
		&payment.ClientID,
		&payment.GuestEmail,
		&payment.CoachID,
		&payment.Amount,
		&payment.PaidOn,
		&payment.Status,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, paymentID int64) (*models.Payment, error) {
	query := `
		SELECT id, client_id, guest_email, coach_id, amount, paid_on, status, created_at
		FROM payments
		WHERE id = $1
	`
	var payment models.Payment
	err := r.db.QueryRow(ctx, query, paymentID).Scan(
		&payment.ID,
		&payment.ClientID,
		&payment.GuestEmail,
		&payment.CoachID,
		&payment.Amount,
		&payment.PaidOn,
		&payment.Status,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) ListForClient(ctx context.Context, clientID int64) ([]models.Payment, error) {
	query := `
		SELECT id, client_id, guest_email, coach_id, amount, paid_on, status, created_at
		FROM payments
		WHERE client_id = $1
		ORDER BY paid_on DESC, id DESC
	`
	return r.list(ctx, query, clientID)
}

func (r *PaymentRepository) ListForGuest(ctx context.Context, guestEmail string) ([]models.Payment, error) {
	query := `
		SELECT id, client_id, guest_email, coach_id, amount, paid_on, status, created_at
		FROM payments
		WHERE guest_email = $1
		ORDER BY paid_on DESC, id DESC
	`
	return r.list(ctx, query, guestEmail)
}

func (r *PaymentRepository) list(ctx context.Context, query string, arg any) ([]models.Payment, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		var payment models.Payment
		if err := rows.Scan(
			&payment.ID,
			&payment.ClientID,
			&payment.GuestEmail,
			&payment.CoachID,
			&payment.Amount,
			&payment.PaidOn,
			&payment.Status,
			&payment.CreatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

// ListCompletedForCoachClients returns every completed payment made by
// the coach's clients, newest first, joined with the client's name.
func (r *PaymentRepository) ListCompletedForCoachClients(ctx context.Context, coachID int64) ([]models.ClientPayment, error) {
	query := `
		SELECT p.id, p.client_id, p.guest_email, p.coach_id, p.amount, p.paid_on, p.status, p.created_at, c.full_name
		FROM payments p
		JOIN clients c ON c.id = p.client_id
		WHERE c.coach_id = $1
		  AND p.status = 'completed'
		ORDER BY p.paid_on DESC, p.id DESC
	`

	rows, err := r.db.Query(ctx, query, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]models.ClientPayment, 0)
	for rows.Next() {
		var payment models.ClientPayment
		if err := rows.Scan(
			&payment.ID,
			&payment.ClientID,
			&payment.GuestEmail,
			&payment.CoachID,
			&payment.Amount,
			&payment.PaidOn,
			&payment.Status,
			&payment.CreatedAt,
			&payment.ClientName,
		); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *PaymentRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	paymentID int64,
	currentStatus string,
	nextStatus string,
) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING id, client_id, guest_email, coach_id, amount, paid_on, status, created_at
	`
	var payment models.Payment
	err := r.db.QueryRow(ctx, query, paymentID, currentStatus, nextStatus).Scan(
		&payment.ID,
		&payment.ClientID,
		&payment.GuestEmail,
		&payment.CoachID,
		&payment.Amount,
		&payment.PaidOn,
		&payment.Status,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
