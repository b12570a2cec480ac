package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sjperalta/village-settlement-api/pkg/money"
)

// Ledger is a payment pool entry: funds received through an accepted pay-in
// report. Amount is fixed; Remaining is what can still be allocated to
// invoices and only ever decreases.
type Ledger struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	PayinID    uint            `gorm:"not null;uniqueIndex" json:"payin_id"`
	HouseID    uint            `gorm:"not null;index" json:"house_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(15,2);not null;check:chk_ledgers_amount_positive,amount > 0" json:"amount"`
	Remaining  decimal.Decimal `gorm:"type:decimal(15,2);not null;check:chk_ledgers_remaining_bounds,remaining >= 0 AND remaining <= amount" json:"remaining"`
	ReceivedAt time.Time       `gorm:"not null" json:"received_at"`
	Version    uint            `gorm:"not null;default:1" json:"-"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Ledger
func (Ledger) TableName() string {
	return "ledgers"
}

// WithinBounds reports whether 0 <= remaining <= amount.
func (l *Ledger) WithinBounds() bool {
	return !l.Remaining.IsNegative() && l.Remaining.LessThanOrEqual(l.Amount)
}

// LedgerResponse is the JSON response format for payment pool entries
type LedgerResponse struct {
	ID           uint                         `json:"id"`
	PayinID      uint                         `json:"payin_id"`
	HouseID      uint                         `json:"house_id"`
	Amount       string                       `json:"amount"`
	Remaining    string                       `json:"remaining"`
	ReceivedAt   time.Time                    `json:"received_at"`
	Applications []PaymentApplicationResponse `json:"applications,omitempty"`
}

// ToResponse converts Ledger to LedgerResponse
func (l *Ledger) ToResponse() LedgerResponse {
	return LedgerResponse{
		ID:         l.ID,
		PayinID:    l.PayinID,
		HouseID:    l.HouseID,
		Amount:     money.Format(l.Amount),
		Remaining:  money.Format(l.Remaining),
		ReceivedAt: l.ReceivedAt,
	}
}
