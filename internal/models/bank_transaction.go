package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sjperalta/village-settlement-api/pkg/money"
)

// BankTransaction is one imported bank statement row. Matching it to a pay-in
// is a bookkeeping cross-reference only; it never moves money.
type BankTransaction struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	BatchID        string          `gorm:"size:36;not null;index" json:"batch_id"`
	ImportID       uint            `gorm:"not null;index" json:"import_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Date           time.Time       `gorm:"type:date;not null;index" json:"date"`
	Description    string          `gorm:"type:text" json:"description"`
	RowHash        string          `gorm:"size:64;not null;index" json:"-"`
	MatchState     string          `gorm:"size:16;not null;default:UNMATCHED;index" json:"match_state"`
	MatchedPayinID *uint           `gorm:"uniqueIndex:idx_bank_transactions_matched_payin,where:matched_payin_id IS NOT NULL" json:"matched_payin_id"`
	MatchedAt      *time.Time      `json:"matched_at"`
	MatchedBy      *uint           `json:"matched_by"`
	Version        uint            `gorm:"not null;default:1" json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name for BankTransaction
func (BankTransaction) TableName() string {
	return "bank_transactions"
}

// Match state constants
const (
	MatchStateUnmatched = "UNMATCHED"
	MatchStateMatched   = "MATCHED"
)

// IsMatched returns true when the row is linked to a pay-in
func (t *BankTransaction) IsMatched() bool {
	return t.MatchState == MatchStateMatched
}

// MayMatch reports whether the row can be linked to payinID. Re-matching the
// same pair is allowed and is a no-op.
func (t *BankTransaction) MayMatch(payinID uint) bool {
	if !t.IsMatched() {
		return true
	}
	return t.MatchedPayinID != nil && *t.MatchedPayinID == payinID
}

// BankTransactionResponse is the JSON response format for bank transactions
type BankTransactionResponse struct {
	ID             uint       `json:"id"`
	BatchID        string     `json:"batch_id"`
	Amount         string     `json:"amount"`
	Date           string     `json:"date"`
	Description    string     `json:"description"`
	MatchState     string     `json:"match_state"`
	MatchedPayinID *uint      `json:"matched_payin_id"`
	MatchedAt      *time.Time `json:"matched_at"`
}

// ToResponse converts BankTransaction to BankTransactionResponse
func (t *BankTransaction) ToResponse() BankTransactionResponse {
	return BankTransactionResponse{
		ID:             t.ID,
		BatchID:        t.BatchID,
		Amount:         money.Format(t.Amount),
		Date:           t.Date.Format("2006-01-02"),
		Description:    t.Description,
		MatchState:     t.MatchState,
		MatchedPayinID: t.MatchedPayinID,
		MatchedAt:      t.MatchedAt,
	}
}
