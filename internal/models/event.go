package models

import "time"

type Event struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

type EventRegistration struct {
	ID           int64     `json:"id"`
	EventID      int64     `json:"event_id"`
	ClientID     *int64    `json:"client_id"`
	GuestEmail   *string   `json:"guest_email"`
	RegisteredAt time.Time `json:"registered_at"`
}

// RegistrationWithEvent joins a registration with its event, the shape
// the event payment matcher consumes.
type RegistrationWithEvent struct {
	Event        Event     `json:"event"`
	RegisteredAt time.Time `json:"registered_at"`
}
