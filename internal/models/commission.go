package models

import "time"

const (
	CommissionTypePercentage = "percentage"
	CommissionTypeFixed      = "fixed"
)

// CommissionConfig is a coach's single active commission rule. Exactly
// one of PercentageValue/FixedAmount is set, matching Type.
type CommissionConfig struct {
	CoachID         int64    `json:"coach_id"`
	Type            string   `json:"type"`
	PercentageValue *float64 `json:"percentage_value"`
	FixedAmount     *float64 `json:"fixed_amount"`
	UpdatedBy       int64    `json:"updated_by"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CoachPayment is a ledger entry for money owed to a coach. Amount and
// the type/value fields are frozen snapshots taken at creation; a later
// config change never rewrites them. ClientPaymentID, when set, links
// the entry to the client payment it commissions and is immutable.
type CoachPayment struct {
	ID              int64      `json:"id"`
	CoachID         int64      `json:"coach_id"`
	AdminID         int64      `json:"admin_id"`
	Amount          float64    `json:"amount"`
	Type            string     `json:"type"`
	PercentageValue *float64   `json:"percentage_value"`
	FixedAmount     *float64   `json:"fixed_amount"`
	ClientPaymentID *int64     `json:"client_payment_id"`
	Status          string     `json:"status"`
	PaymentDate     *time.Time `json:"payment_date"`
	CompletedAt     *time.Time `json:"completed_at"`
	Notes           *string    `json:"notes"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PendingCommissionLine is one completed client payment that has not
// yet been converted into a coach payment.
type PendingCommissionLine struct {
	ClientPaymentID int64     `json:"client_payment_id"`
	ClientName      string    `json:"client_name"`
	ClientAmount    float64   `json:"client_amount"`
	CoachAmount     float64   `json:"coach_amount"`
	PaymentDate     time.Time `json:"payment_date"`
}

type PendingCommissions struct {
	TotalPending float64                 `json:"total_pending"`
	Lines        []PendingCommissionLine `json:"lines"`
}
