package repository

import (
	"context"
	"time"

	"github.com/saeid-a/CoachPayBack/internal/models"
)

type CreateCoachPaymentInput struct {
	CoachID         int64
	AdminID         int64
	Amount          float64
	Type            string
	PercentageValue *float64
	FixedAmount     *float64
	ClientPaymentID *int64
	Notes           *string
}

type CoachPaymentRepository struct {
	db DBTX
}

func NewCoachPaymentRepository(db DBTX) *CoachPaymentRepository {
	return &CoachPaymentRepository{db: db}
}

const coachPaymentColumns = `id, coach_id, admin_id, amount, type, percentage_value, fixed_amount,
		client_payment_id, status, payment_date, completed_at, notes, created_at`

func (r *CoachPaymentRepository) Create(ctx context.Context, input CreateCoachPaymentInput) (*models.CoachPayment, error) {
	query := `
		INSERT INTO coach_payments (coach_id, admin_id, amount, type, percentage_value, fixed_amount, client_payment_id, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8)
		RETURNING ` + coachPaymentColumns

	var payment models.CoachPayment
	err := r.db.QueryRow(
		ctx,
		query,
		input.CoachID,
		input.AdminID,
		input.Amount,
		input.Type,
		input.PercentageValue,
		input.FixedAmount,
		input.ClientPaymentID,
		input.Notes,
	).Scan(r.scanTargets(&payment)...)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *CoachPaymentRepository) GetByID(ctx context.Context, paymentID int64) (*models.CoachPayment, error) {
	query := `
		SELECT ` + coachPaymentColumns + `
		FROM coach_payments
		WHERE id = $1
	`
	var payment models.CoachPayment
	err := r.db.QueryRow(ctx, query, paymentID).Scan(r.scanTargets(&payment)...)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *CoachPaymentRepository) ListByCoachID(ctx context.Context, coachID int64, limit, offset int) ([]models.CoachPayment, error) {
	query := `
		SELECT ` + coachPaymentColumns + `
		FROM coach_payments
		WHERE coach_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, coachID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]models.CoachPayment, 0)
	for rows.Next() {
		var payment models.CoachPayment
		if err := rows.Scan(r.scanTargets(&payment)...); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *CoachPaymentRepository) CountByCoachID(ctx context.Context, coachID int64) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM coach_payments WHERE coach_id = $1`, coachID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ListLinkedClientPaymentIDs returns the client payment ids already
// referenced by a non-cancelled coach payment of this coach.
func (r *CoachPaymentRepository) ListLinkedClientPaymentIDs(ctx context.Context, coachID int64) (map[int64]struct{}, error) {
	query := `
		SELECT client_payment_id
		FROM coach_payments
		WHERE coach_id = $1
		  AND client_payment_id IS NOT NULL
		  AND status <> 'cancelled'
	`

	rows, err := r.db.Query(ctx, query, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	linked := make(map[int64]struct{})
	for rows.Next() {
		var clientPaymentID int64
		if err := rows.Scan(&clientPaymentID); err != nil {
			return nil, err
		}
		linked[clientPaymentID] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return linked, nil
}

// CompleteIfPending moves a pending entry to completed, stamping the
// payment date and completion time. Returns pgx.ErrNoRows when the
// entry is not pending.
func (r *CoachPaymentRepository) CompleteIfPending(ctx context.Context, paymentID int64, paymentDate time.Time) (*models.CoachPayment, error) {
	query := `
		UPDATE coach_payments
		SET status = 'completed', payment_date = $2, completed_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + coachPaymentColumns

	var payment models.CoachPayment
	err := r.db.QueryRow(ctx, query, paymentID, paymentDate).Scan(r.scanTargets(&payment)...)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *CoachPaymentRepository) CancelIfPending(ctx context.Context, paymentID int64) (*models.CoachPayment, error) {
	query := `
		UPDATE coach_payments
		SET status = 'cancelled'
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + coachPaymentColumns

	var payment models.CoachPayment
	err := r.db.QueryRow(ctx, query, paymentID).Scan(r.scanTargets(&payment)...)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *CoachPaymentRepository) scanTargets(payment *models.CoachPayment) []any {
	return []any{
		&payment.ID,
		&payment.CoachID,
		&payment.AdminID,
		&payment.Amount,
		&payment.Type,
		&payment.PercentageValue,
		&payment.FixedAmount,
		&payment.ClientPaymentID,
		&payment.Status,
		&payment.PaymentDate,
		&payment.CompletedAt,
		&payment.Notes,
		&payment.CreatedAt,
	}
}
