package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sjperalta/village-settlement-api/pkg/money"
)

// StatementImport stages an uploaded bank statement between preview and
// confirmation. Only a CONFIRMED import has bank transactions; the partial
// unique index on Fingerprint stops the same file being confirmed twice.
type StatementImport struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Token       string          `gorm:"size:36;not null;uniqueIndex" json:"token"`
	Filename    string          `gorm:"size:255;not null" json:"filename"`
	FilePath    string          `gorm:"size:512;not null" json:"-"`
	Fingerprint string          `gorm:"size:64;not null;index;uniqueIndex:idx_statement_imports_confirmed_fingerprint,where:status = 'CONFIRMED'" json:"fingerprint"`
	Status      string          `gorm:"size:16;not null;default:PREVIEWED;index" json:"status"`
	RowCount    int             `gorm:"not null;default:0" json:"row_count"`
	NewCount    int             `gorm:"not null;default:0" json:"new_count"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_amount"`
	BatchID     *string         `gorm:"size:36" json:"batch_id"`
	CreatedBy   uint            `gorm:"not null" json:"created_by"`
	ConfirmedAt *time.Time      `json:"confirmed_at"`
	ConfirmedBy *uint           `json:"confirmed_by"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for StatementImport
func (StatementImport) TableName() string {
	return "statement_imports"
}

// Statement import status constants
const (
	ImportStatusPreviewed = "PREVIEWED"
	ImportStatusConfirmed = "CONFIRMED"
	ImportStatusDiscarded = "DISCARDED"
)

// StatementImportResponse is the JSON response format for statement imports
type StatementImportResponse struct {
	ID          uint       `json:"id"`
	Token       string     `json:"token"`
	Filename    string     `json:"filename"`
	Fingerprint string     `json:"fingerprint"`
	Status      string     `json:"status"`
	RowCount    int        `json:"row_count"`
	NewCount    int        `json:"new_count"`
	TotalAmount string     `json:"total_amount"`
	BatchID     *string    `json:"batch_id"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToResponse converts StatementImport to StatementImportResponse
func (s *StatementImport) ToResponse() StatementImportResponse {
	return StatementImportResponse{
		ID:          s.ID,
		Token:       s.Token,
		Filename:    s.Filename,
		Fingerprint: s.Fingerprint,
		Status:      s.Status,
		RowCount:    s.RowCount,
		NewCount:    s.NewCount,
		TotalAmount: money.Format(s.TotalAmount),
		BatchID:     s.BatchID,
		ConfirmedAt: s.ConfirmedAt,
		CreatedAt:   s.CreatedAt,
	}
}
