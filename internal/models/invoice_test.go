package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestInvoice_DeriveStatus(t *testing.T) {
	due := time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC)
	beforeDue := time.Date(2026, 10, 31, 23, 0, 0, 0, time.UTC)
	afterDue := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		outstanding string
		paid        string
		credited    string
		now         time.Time
		want        string
	}{
		{"untouched before due", "1000", "0", "0", beforeDue, InvoiceStatusIssued},
		{"untouched after due", "1000", "0", "0", afterDue, InvoiceStatusOverdue},
		{"partially paid", "400", "600", "0", beforeDue, InvoiceStatusPartiallyPaid},
		{"partially paid after due stays partial", "400", "600", "0", afterDue, InvoiceStatusPartiallyPaid},
		{"partially credited", "700", "0", "300", beforeDue, InvoiceStatusPartiallyCredited},
		{"credits dominate mixed", "100", "300", "600", beforeDue, InvoiceStatusPartiallyCredited},
		{"tie goes to paid", "200", "400", "400", beforeDue, InvoiceStatusPartiallyPaid},
		{"fully paid", "0", "1000", "0", beforeDue, InvoiceStatusPaid},
		{"fully credited", "0", "0", "1000", beforeDue, InvoiceStatusCredited},
		{"mixed closure is credited", "0", "600", "400", beforeDue, InvoiceStatusCredited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invoice{
				TotalAmount:       dec("1000"),
				OutstandingAmount: dec(tt.outstanding),
				DueDate:           due,
			}
			assert.Equal(t, tt.want, inv.DeriveStatus(dec(tt.paid), dec(tt.credited), tt.now))
		})
	}
}

func TestInvoice_WithinBounds(t *testing.T) {
	inv := &Invoice{TotalAmount: dec("100"), OutstandingAmount: dec("100")}
	assert.True(t, inv.WithinBounds())

	inv.OutstandingAmount = dec("-0.01")
	assert.False(t, inv.WithinBounds())

	inv.OutstandingAmount = dec("100.01")
	assert.False(t, inv.WithinBounds())
}

func TestBankTransaction_MayMatch(t *testing.T) {
	payin := uint(7)
	other := uint(8)

	tx := &BankTransaction{MatchState: MatchStateUnmatched}
	assert.True(t, tx.MayMatch(payin))

	tx.MatchState = MatchStateMatched
	tx.MatchedPayinID = &payin
	assert.True(t, tx.MayMatch(payin))
	assert.False(t, tx.MayMatch(other))
}

func TestPromotion_InWindow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	p := &Promotion{Active: true, StartsAt: &start, EndsAt: &end}

	assert.True(t, p.InWindow(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.InWindow(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.InWindow(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))

	p.Active = false
	assert.False(t, p.InWindow(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))
}
