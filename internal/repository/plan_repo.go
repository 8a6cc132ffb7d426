package repository

import (
	"context"

	"github.com/saeid-a/CoachPayBack/internal/models"
)

type PlanRepository struct {
	db DBTX
}

func NewPlanRepository(db DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) Create(ctx context.Context, name string, cost float64) (*models.Plan, error) {
	query := `
		INSERT INTO plans (name, cost)
		VALUES ($1, $2)
		RETURNING id, name, cost, created_at
	`
	var plan models.Plan
	err := r.db.QueryRow(ctx, query, name, cost).
		Scan(&plan.ID, &plan.Name, &plan.Cost, &plan.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) GetByID(ctx context.Context, planID int64) (*models.Plan, error) {
	query := `
		SELECT id, name, cost, created_at
		FROM plans
		WHERE id = $1
	`
	var plan models.Plan
	err := r.db.QueryRow(ctx, query, planID).
		Scan(&plan.ID, &plan.Name, &plan.Cost, &plan.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) List(ctx context.Context) ([]models.Plan, error) {
	query := `
		SELECT id, name, cost, created_at
		FROM plans
		ORDER BY name ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]models.Plan, 0)
	for rows.Next() {
		var plan models.Plan
		if err := rows.Scan(&plan.ID, &plan.Name, &plan.Cost, &plan.CreatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return plans, nil
}
