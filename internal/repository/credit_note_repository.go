package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sjperalta/village-settlement-api/internal/models"
)

// CreditNoteRepository defines the interface for credit note data access.
// Credit notes are immutable once created.
type CreditNoteRepository interface {
	Create(ctx context.Context, note *models.CreditNote) error
	FindByInvoiceID(ctx context.Context, invoiceID uint) ([]models.CreditNote, error)
	SumByInvoiceID(ctx context.Context, invoiceID uint) (decimal.Decimal, error)
}

type creditNoteRepository struct {
	db *gorm.DB
}

// NewCreditNoteRepository creates a new credit note repository
func NewCreditNoteRepository(db *gorm.DB) CreditNoteRepository {
	return &creditNoteRepository{db: db}
}

func (r *creditNoteRepository) Create(ctx context.Context, note *models.CreditNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *creditNoteRepository) FindByInvoiceID(ctx context.Context, invoiceID uint) ([]models.CreditNote, error) {
	var notes []models.CreditNote
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC, id ASC").
		Find(&notes).Error
	return notes, err
}

func (r *creditNoteRepository) SumByInvoiceID(ctx context.Context, invoiceID uint) (decimal.Decimal, error) {
	return sumColumn(r.db.WithContext(ctx), &models.CreditNote{}, "credit_amount", "invoice_id = ?", invoiceID)
}
