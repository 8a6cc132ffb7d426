package models

import "time"

// Payment categories assigned by reconciliation. They are a display
// annotation only; commission accounting never reads them.
const (
	PaymentCategoryPlan    = "plan"
	PaymentCategoryEvent   = "event"
	PaymentCategoryGeneral = "general"
)

type Payment struct {
	ID         int64     `json:"id"`
	ClientID   *int64    `json:"client_id"`
	GuestEmail *string   `json:"guest_email"`
	CoachID    *int64    `json:"coach_id"`
	Amount     float64   `json:"amount"`
	PaidOn     time.Time `json:"paid_on"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// ClientPayment is a payment joined with the owning client's name,
// as returned by the coach-client payment listing.
type ClientPayment struct {
	Payment
	ClientName string `json:"client_name"`
}

// PaymentDetail is a payment annotated with its reconciled category
// and, for event payments, the event it most plausibly funds.
type PaymentDetail struct {
	Payment
	Category     string `json:"category"`
	MatchedEvent *Event `json:"matched_event,omitempty"`
}
