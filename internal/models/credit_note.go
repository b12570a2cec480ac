package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sjperalta/village-settlement-api/pkg/money"
)

// CreditNote irrevocably reduces an invoice's outstanding balance. There is
// no edit or delete path; a reversal would be a new, separate entry.
type CreditNote struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	InvoiceID    uint            `gorm:"not null;index" json:"invoice_id"`
	CreditAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;check:chk_credit_notes_amount_positive,credit_amount > 0" json:"credit_amount"`
	Reason       string          `gorm:"type:text;not null" json:"reason"`
	IsFullCredit bool            `gorm:"not null;default:false" json:"is_full_credit"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
	CreatedBy    uint            `gorm:"not null" json:"created_by"`
}

// TableName specifies the table name for CreditNote
func (CreditNote) TableName() string {
	return "credit_notes"
}

// BeforeUpdate rejects any attempt to edit a credit note.
func (CreditNote) BeforeUpdate(*gorm.DB) error {
	return ErrImmutableRecord
}

// BeforeDelete rejects any attempt to remove a credit note.
func (CreditNote) BeforeDelete(*gorm.DB) error {
	return ErrImmutableRecord
}

// CreditNoteResponse is the JSON response format for credit notes
type CreditNoteResponse struct {
	ID           uint      `json:"id"`
	InvoiceID    uint      `json:"invoice_id"`
	CreditAmount string    `json:"credit_amount"`
	Reason       string    `json:"reason"`
	IsFullCredit bool      `json:"is_full_credit"`
	CreatedAt    time.Time `json:"created_at"`
	CreatedBy    uint      `json:"created_by"`
}

// ToResponse converts CreditNote to CreditNoteResponse
func (c *CreditNote) ToResponse() CreditNoteResponse {
	return CreditNoteResponse{
		ID:           c.ID,
		InvoiceID:    c.InvoiceID,
		CreditAmount: money.Format(c.CreditAmount),
		Reason:       c.Reason,
		IsFullCredit: c.IsFullCredit,
		CreatedAt:    c.CreatedAt,
		CreatedBy:    c.CreatedBy,
	}
}
