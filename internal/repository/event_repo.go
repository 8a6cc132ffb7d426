package repository

import (
	"context"
	"time"

	"github.com/saeid-a/CoachPayBack/internal/models"
)

type CreateEventInput struct {
	Name  string
	Price float64
	Date  time.Time
}

type CreateRegistrationInput struct {
	EventID    int64
	ClientID   *int64
	GuestEmail *string
}

type EventRepository struct {
	db DBTX
}

func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, input CreateEventInput) (*models.Event, error) {
	query := `
		INSERT INTO events (name, price, date)
		VALUES ($1, $2, $3)
		RETURNING id, name, price, date, created_at
	`
	var event models.Event
	err := r.db.QueryRow(ctx, query, input.Name, input.Price, input.Date).
		Scan(&event.ID, &event.Name, &event.Price, &event.Date, &event.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepository) GetByID(ctx context.Context, eventID int64) (*models.Event, error) {
	query := `
		SELECT id, name, price, date, created_at
		FROM events
		WHERE id = $1
	`
	var event models.Event
	err := r.db.QueryRow(ctx, query, eventID).
		Scan(&event.ID, &event.Name, &event.Price, &event.Date, &event.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	query := `
		SELECT id, name, price, date, created_at
		FROM events
		ORDER BY date DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.Name, &event.Price, &event.Date, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *EventRepository) CreateRegistration(ctx context.Context, input CreateRegistrationInput) (*models.EventRegistration, error) {
	query := `
		INSERT INTO event_registrations (event_id, client_id, guest_email)
		VALUES ($1, $2, $3)
		RETURNING id, event_id, client_id, guest_email, registered_at
	`
	var registration models.EventRegistration
	err := r.db.QueryRow(ctx, query, input.EventID, input.ClientID, input.GuestEmail).Scan(
		&registration.ID,
		&registration.EventID,
		&registration.ClientID,
		&registration.GuestEmail,
		&registration.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}
	return &registration, nil
}

// ListRegistrationsForClient returns the client's registrations joined
// with their events, the shape the event payment matcher consumes.
func (r *EventRepository) ListRegistrationsForClient(ctx context.Context, clientID int64) ([]models.RegistrationWithEvent, error) {
	query := `
		SELECT e.id, e.name, e.price, e.date, e.created_at, er.registered_at
		FROM event_registrations er
		JOIN events e ON e.id = er.event_id
		WHERE er.client_id = $1
		ORDER BY er.registered_at ASC, er.id ASC
	`
	return r.listRegistrations(ctx, query, clientID)
}

func (r *EventRepository) ListRegistrationsForGuest(ctx context.Context, guestEmail string) ([]models.RegistrationWithEvent, error) {
	query := `
		SELECT e.id, e.name, e.price, e.date, e.created_at, er.registered_at
		FROM event_registrations er
		JOIN events e ON e.id = er.event_id
		WHERE er.guest_email = $1
		ORDER BY er.registered_at ASC, er.id ASC
	`
	return r.listRegistrations(ctx, query, guestEmail)
}

func (r *EventRepository) listRegistrations(ctx context.Context, query string, arg any) ([]models.RegistrationWithEvent, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	registrations := make([]models.RegistrationWithEvent, 0)
	for rows.Next() {
		var registration models.RegistrationWithEvent
		if err := rows.Scan(
			&registration.Event.ID,
			&registration.Event.Name,
			&registration.Event.Price,
			&registration.Event.Date,
			&registration.Event.CreatedAt,
			&registration.RegisteredAt,
		); err != nil {
			return nil, err
		}
		registrations = append(registrations, registration)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return registrations, nil
}
