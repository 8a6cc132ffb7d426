package repository

import (
	"context"

	"github.com/saeid-a/CoachPayBack/internal/models"
)

type UpsertCommissionConfigInput struct {
	CoachID         int64
	Type            string
	PercentageValue *float64
	FixedAmount     *float64
	UpdatedBy       int64
}

type CommissionConfigRepository struct {
	db DBTX
}

func NewCommissionConfigRepository(db DBTX) *CommissionConfigRepository {
	return &CommissionConfigRepository{db: db}
}

func (r *CommissionConfigRepository) GetByCoachID(ctx context.Context, coachID int64) (*models.CommissionConfig, error) {
	query := `
		SELECT coach_id, type, percentage_value, fixed_amount, updated_by, updated_at
		FROM commission_configs
		WHERE coach_id = $1
	`
	var config models.CommissionConfig
	err := r.db.QueryRow(ctx, query, coachID).Scan(
		&config.CoachID,
		&config.Type,
		&config.PercentageValue,
		&config.FixedAmount,
		&config.UpdatedBy,
		&config.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// Upsert replaces the coach's commission rule wholesale. A coach has at
// most one active config, keyed by coach_id.
func (r *CommissionConfigRepository) Upsert(ctx context.Context, input UpsertCommissionConfigInput) (*models.CommissionConfig, error) {
	query := `
		INSERT INTO commission_configs (coach_id, type, percentage_value, fixed_amount, updated_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (coach_id) DO UPDATE
		SET type = EXCLUDED.type,
		    percentage_value = EXCLUDED.percentage_value,
		    fixed_amount = EXCLUDED.fixed_amount,
		    updated_by = EXCLUDED.updated_by,
		    updated_at = NOW()
		RETURNING coach_id, type, percentage_value, fixed_amount, updated_by, updated_at
	`

	var config models.CommissionConfig
	err := r.db.QueryRow(
		ctx,
		query,
		input.CoachID,
		input.Type,
		input.PercentageValue,
		input.FixedAmount,
		input.UpdatedBy,
	).Scan(
		&config.CoachID,
		&config.Type,
		&config.PercentageValue,
		&config.FixedAmount,
		&config.UpdatedBy,
		&config.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &config, nil
}
