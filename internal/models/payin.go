package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sjperalta/village-settlement-api/pkg/money"
)

// PayinReport is a resident-submitted payment claim. Once accepted it backs
// exactly one Ledger. BankTransactionID is the reconciliation cross-reference
// and is unique so that no two bank rows can claim the same pay-in.
type PayinReport struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	HouseID           uint            `gorm:"not null;index" json:"house_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(15,2);not null;check:chk_payin_reports_amount_positive,amount > 0" json:"amount"`
	PaidAt            time.Time       `gorm:"not null;index" json:"paid_at"`
	Status            string          `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	Note              string          `gorm:"type:text" json:"note"`
	BankTransactionID *uint           `gorm:"uniqueIndex:idx_payin_reports_bank_transaction,where:bank_transaction_id IS NOT NULL" json:"bank_transaction_id"`
	AcceptedAt        *time.Time      `json:"accepted_at"`
	AcceptedBy        *uint           `json:"accepted_by"`
	Version           uint            `gorm:"not null;default:1" json:"-"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName specifies the table name for PayinReport
func (PayinReport) TableName() string {
	return "payin_reports"
}

// Pay-in status constants
const (
	PayinStatusPending  = "PENDING"
	PayinStatusAccepted = "ACCEPTED"
	PayinStatusRejected = "REJECTED"
)

// MayAccept returns true if the pay-in can become a payment pool entry
func (p *PayinReport) MayAccept() bool {
	return p.Status == PayinStatusPending
}

// IsLinked reports whether a bank transaction is currently matched to this pay-in.
func (p *PayinReport) IsLinked() bool {
	return p.BankTransactionID != nil
}

// PayinResponse is the JSON response format for pay-in reports
type PayinResponse struct {
	ID                uint       `json:"id"`
	HouseID           uint       `json:"house_id"`
	Amount            string     `json:"amount"`
	PaidAt            time.Time  `json:"paid_at"`
	Status            string     `json:"status"`
	Note              string     `json:"note"`
	BankTransactionID *uint      `json:"bank_transaction_id"`
	AcceptedAt        *time.Time `json:"accepted_at"`
}

// ToResponse converts PayinReport to PayinResponse
func (p *PayinReport) ToResponse() PayinResponse {
	return PayinResponse{
		ID:                p.ID,
		HouseID:           p.HouseID,
		Amount:            money.Format(p.Amount),
		PaidAt:            p.PaidAt,
		Status:            p.Status,
		Note:              p.Note,
		BankTransactionID: p.BankTransactionID,
		AcceptedAt:        p.AcceptedAt,
	}
}
