package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sjperalta/village-settlement-api/pkg/money"
)

// InvoiceEvent is the immutable audit trail of every balance mutation on an
// invoice. SourceID points at the payment application or credit note that
// caused it.
type InvoiceEvent struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	InvoiceID         uint            `json:"invoice_id" gorm:"not null;index"`
	EventType         string          `json:"event_type" gorm:"size:32;not null;index"`
	SourceID          *uint           `json:"source_id,omitempty" gorm:"index"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:decimal(15,2);not null"`
	OutstandingBefore decimal.Decimal `json:"outstanding_before" gorm:"type:decimal(15,2);not null"`
	OutstandingAfter  decimal.Decimal `json:"outstanding_after" gorm:"type:decimal(15,2);not null"`
	StatusAfter       string          `json:"status_after" gorm:"size:32;not null"`
	Description       string          `json:"description" gorm:"not null"`
	ActorID           uint            `json:"actor_id" gorm:"not null"`
	CreatedAt         time.Time       `json:"created_at" gorm:"index"`
}

// Event type constants
const (
	EventTypeIssued         = "issued"          // invoice created
	EventTypePaymentApplied = "payment_applied" // outstanding drawn down by a payment application
	EventTypeCreditIssued   = "credit_issued"   // outstanding drawn down by a credit note
	EventTypeStatusChanged  = "status_changed"  // status recomputed with no balance change (overdue sweep)
)

// TableName specifies the table name for GORM
func (InvoiceEvent) TableName() string {
	return "invoice_events"
}

// BeforeUpdate rejects edits of the audit trail.
func (InvoiceEvent) BeforeUpdate(*gorm.DB) error {
	return ErrImmutableRecord
}

// BeforeDelete rejects removal from the audit trail.
func (InvoiceEvent) BeforeDelete(*gorm.DB) error {
	return ErrImmutableRecord
}

// InvoiceEventResponse is the JSON response format for invoice events
type InvoiceEventResponse struct {
	ID                uint      `json:"id"`
	InvoiceID         uint      `json:"invoice_id"`
	EventType         string    `json:"event_type"`
	SourceID          *uint     `json:"source_id,omitempty"`
	Amount            string    `json:"amount"`
	OutstandingBefore string    `json:"outstanding_before"`
	OutstandingAfter  string    `json:"outstanding_after"`
	StatusAfter       string    `json:"status_after"`
	Description       string    `json:"description"`
	ActorID           uint      `json:"actor_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// ToResponse converts InvoiceEvent to InvoiceEventResponse
func (e *InvoiceEvent) ToResponse() InvoiceEventResponse {
	return InvoiceEventResponse{
		ID:                e.ID,
		InvoiceID:         e.InvoiceID,
		EventType:         e.EventType,
		SourceID:          e.SourceID,
		Amount:            money.Format(e.Amount),
		OutstandingBefore: money.Format(e.OutstandingBefore),
		OutstandingAfter:  money.Format(e.OutstandingAfter),
		StatusAfter:       e.StatusAfter,
		Description:       e.Description,
		ActorID:           e.ActorID,
		CreatedAt:         e.CreatedAt,
	}
}
