package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sjperalta/village-settlement-api/pkg/money"
)

// Invoice is a charge against a house. TotalAmount never changes after issue;
// OutstandingAmount is the cached balance that the allocation engine and the
// credit note issuer draw down inside the same transaction as their records.
type Invoice struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	HouseID           uint            `gorm:"not null;index" json:"house_id"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(15,2);not null;check:chk_invoices_total_positive,total_amount > 0" json:"total_amount"`
	OutstandingAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;check:chk_invoices_outstanding_bounds,outstanding_amount >= 0 AND outstanding_amount <= total_amount" json:"outstanding_amount"`
	Status            string          `gorm:"size:32;not null;default:ISSUED;index" json:"status"`
	DueDate           time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	IsManual          bool            `gorm:"not null;default:false" json:"is_manual"`
	Label             string          `gorm:"size:120" json:"label"` // billing cycle ("2026-10") or manual reason
	Version           uint            `gorm:"not null;default:1" json:"-"`
	CreatedBy         uint            `json:"created_by"`
	CreatedAt         time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Invoice
func (Invoice) TableName() string {
	return "invoices"
}

// Invoice status constants
const (
	InvoiceStatusIssued            = "ISSUED"
	InvoiceStatusPartiallyPaid     = "PARTIALLY_PAID"
	InvoiceStatusPaid              = "PAID"
	InvoiceStatusPartiallyCredited = "PARTIALLY_CREDITED"
	InvoiceStatusCredited          = "CREDITED"
	InvoiceStatusOverdue           = "OVERDUE"
)

// WithinBounds reports whether 0 <= outstanding <= total.
func (i *Invoice) WithinBounds() bool {
	return !i.OutstandingAmount.IsNegative() && i.OutstandingAmount.LessThanOrEqual(i.TotalAmount)
}

// IsSettled returns true once nothing is left to pay or credit.
func (i *Invoice) IsSettled() bool {
	return i.OutstandingAmount.IsZero()
}

// IsPastDue reports whether now falls after the due date. The due date itself
// is still payable.
func (i *Invoice) IsPastDue(now time.Time) bool {
	y, m, d := i.DueDate.Date()
	firstLateDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return !now.Before(firstLateDay)
}

// DeriveStatus computes the invoice status from its balances. paid and
// credited are the sums of payment applications and credit notes.
//
// Priority: a zero balance is CREDITED when any credit note contributed and
// PAID otherwise; a partial balance is PARTIALLY_CREDITED only when credits
// strictly exceed payments; an untouched balance is OVERDUE past the due date.
func (i *Invoice) DeriveStatus(paid, credited decimal.Decimal, now time.Time) string {
	switch {
	case i.OutstandingAmount.IsZero() && i.TotalAmount.IsPositive():
		if credited.IsPositive() {
			return InvoiceStatusCredited
		}
		return InvoiceStatusPaid
	case i.OutstandingAmount.LessThan(i.TotalAmount):
		if credited.GreaterThan(paid) {
			return InvoiceStatusPartiallyCredited
		}
		return InvoiceStatusPartiallyPaid
	default:
		if i.IsPastDue(now) {
			return InvoiceStatusOverdue
		}
		return InvoiceStatusIssued
	}
}

// InvoiceResponse is the JSON response format for invoices
type InvoiceResponse struct {
	ID                uint      `json:"id"`
	HouseID           uint      `json:"house_id"`
	TotalAmount       string    `json:"total_amount"`
	OutstandingAmount string    `json:"outstanding_amount"`
	Status            string    `json:"status"`
	DueDate           string    `json:"due_date"`
	IsManual          bool      `json:"is_manual"`
	Label             string    `json:"label"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ToResponse converts Invoice to InvoiceResponse
func (i *Invoice) ToResponse() InvoiceResponse {
	return InvoiceResponse{
		ID:                i.ID,
		HouseID:           i.HouseID,
		TotalAmount:       money.Format(i.TotalAmount),
		OutstandingAmount: money.Format(i.OutstandingAmount),
		Status:            i.Status,
		DueDate:           i.DueDate.Format("2006-01-02"),
		IsManual:          i.IsManual,
		Label:             i.Label,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
	}
}
