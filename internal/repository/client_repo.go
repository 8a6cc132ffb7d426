package repository

import (
	"context"

	"github.com/saeid-a/CoachPayBack/internal/models"
)

type CreateClientInput struct {
	CoachID  int64
	FullName string
	Email    string
	PlanID   *int64
}

type ClientRepository struct {
	db DBTX
}

func NewClientRepository(db DBTX) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(ctx context.Context, input CreateClientInput) (*models.Client, error) {
	query := `
		INSERT INTO clients (coach_id, full_name, email, plan_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, coach_id, plan_id, full_name, email, created_at, updated_at
	`

	var client models.Client
	err := r.db.QueryRow(ctx, query, input.CoachID, input.FullName, input.Email, input.PlanID).Scan(
		&client.ID,
		&client.CoachID,
		&client.PlanID,
		&client.FullName,
		&client.Email,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) GetByID(ctx context.Context, clientID int64) (*models.Client, error) {
	query := `
		SELECT id, coach_id, plan_id, full_name, email, created_at, updated_at
		FROM clients
		WHERE id = $1
	`
	var client models.Client
	err := r.db.QueryRow(ctx, query, clientID).Scan(
		&client.ID,
		&client.CoachID,
		&client.PlanID,
		&client.FullName,
		&client.Email,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) ListByCoachID(ctx context.Context, coachID int64) ([]models.Client, error) {
	query := `
		SELECT id, coach_id, plan_id, full_name, email, created_at, updated_at
		FROM clients
		WHERE coach_id = $1
		ORDER BY full_name ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]models.Client, 0)
	for rows.Next() {
		var client models.Client
		if err := rows.Scan(
			&client.ID,
			&client.CoachID,
			&client.PlanID,
			&client.FullName,
			&client.Email,
			&client.CreatedAt,
			&client.UpdatedAt,
		); err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return clients, nil
}

func (r *ClientRepository) SetPlan(ctx context.Context, clientID int64, planID *int64) (*models.Client, error) {
	query := `
		UPDATE clients
		SET plan_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, coach_id, plan_id, full_name, email, created_at, updated_at
	`
	var client models.Client
	err := r.db.QueryRow(ctx, query, clientID, planID).Scan(
		&client.ID,
		&client.CoachID,
		&client.PlanID,
		&client.FullName,
		&client.Email,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// GetPlanCost returns the cost of the client's active plan, or nil when
// the client has no plan assigned.
func (r *ClientRepository) GetPlanCost(ctx context.Context, clientID int64) (*float64, error) {
	query := `
		SELECT p.cost
		FROM clients c
		JOIN plans p ON p.id = c.plan_id
		WHERE c.id = $1
	`
	var cost float64
	err := r.db.QueryRow(ctx, query, clientID).Scan(&cost)
	if err != nil {
		return nil, err
	}
	return &cost, nil
}
