package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sjperalta/village-settlement-api/pkg/money"
)

// PaymentApplication moves Amount from one ledger into one invoice. Rows are
// append-only.
type PaymentApplication struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	InvoiceID uint            `gorm:"not null;index" json:"invoice_id"`
	LedgerID  uint            `gorm:"not null;index" json:"ledger_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(15,2);not null;check:chk_payment_applications_amount_positive,amount > 0" json:"amount"`
	Note      string          `gorm:"type:text" json:"note"`
	AppliedAt time.Time       `gorm:"not null;index" json:"applied_at"`
	CreatedBy uint            `gorm:"not null" json:"created_by"`
}

// TableName specifies the table name for PaymentApplication
func (PaymentApplication) TableName() string {
	return "payment_applications"
}

// BeforeUpdate rejects any attempt to rewrite an application.
func (PaymentApplication) BeforeUpdate(*gorm.DB) error {
	return ErrImmutableRecord
}

// BeforeDelete rejects any attempt to remove an application.
func (PaymentApplication) BeforeDelete(*gorm.DB) error {
	return ErrImmutableRecord
}

// PaymentApplicationResponse is the JSON response format for applications
type PaymentApplicationResponse struct {
	ID        uint      `json:"id"`
	InvoiceID uint      `json:"invoice_id"`
	LedgerID  uint      `json:"ledger_id"`
	Amount    string    `json:"amount"`
	Note      string    `json:"note"`
	AppliedAt time.Time `json:"applied_at"`
	CreatedBy uint      `json:"created_by"`
}

// ToResponse converts PaymentApplication to PaymentApplicationResponse
func (a *PaymentApplication) ToResponse() PaymentApplicationResponse {
	return PaymentApplicationResponse{
		ID:        a.ID,
		InvoiceID: a.InvoiceID,
		LedgerID:  a.LedgerID,
		Amount:    money.Format(a.Amount),
		Note:      a.Note,
		AppliedAt: a.AppliedAt,
		CreatedBy: a.CreatedBy,
	}
}
