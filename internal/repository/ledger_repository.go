package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sjperalta/village-settlement-api/internal/models"
)

// LedgerRepository defines the interface for payment pool data access
type LedgerRepository interface {
	Create(ctx context.Context, ledger *models.Ledger) error
	FindByID(ctx context.Context, id uint) (*models.Ledger, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Ledger, error)
	FindByPayinID(ctx context.Context, payinID uint) (*models.Ledger, error)
	// UpdateRemaining persists remaining if the version is unchanged.
	UpdateRemaining(ctx context.Context, ledger *models.Ledger) error
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Create(ctx context.Context, ledger *models.Ledger) error {
	return r.db.WithContext(ctx).Create(ledger).Error
}

func (r *ledgerRepository) FindByID(ctx context.Context, id uint) (*models.Ledger, error) {
	var ledger models.Ledger
	if err := r.db.WithContext(ctx).First(&ledger, id).Error; err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *ledgerRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Ledger, error) {
	var ledger models.Ledger
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&ledger, id).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *ledgerRepository) FindByPayinID(ctx context.Context, payinID uint) (*models.Ledger, error) {
	var ledger models.Ledger
	err := r.db.WithContext(ctx).
		Where("payin_id = ?", payinID).
		First(&ledger).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *ledgerRepository) UpdateRemaining(ctx context.Context, ledger *models.Ledger) error {
	err := updateVersioned(r.db.WithContext(ctx), &models.Ledger{}, ledger.ID, ledger.Version, map[string]interface{}{
		"remaining": ledger.Remaining,
	})
	if err != nil {
		return err
	}
	ledger.Version++
	return nil
}

// PaymentApplicationRepository defines the interface for payment applications.
// Applications are append-only, so there is no update or delete.
type PaymentApplicationRepository interface {
	Create(ctx context.Context, application *models.PaymentApplication) error
	FindByInvoiceID(ctx context.Context, invoiceID uint) ([]models.PaymentApplication, error)
	FindByLedgerID(ctx context.Context, ledgerID uint) ([]models.PaymentApplication, error)
	SumByInvoiceID(ctx context.Context, invoiceID uint) (decimal.Decimal, error)
	SumByLedgerID(ctx context.Context, ledgerID uint) (decimal.Decimal, error)
}

type paymentApplicationRepository struct {
	db *gorm.DB
}

// NewPaymentApplicationRepository creates a new payment application repository
func NewPaymentApplicationRepository(db *gorm.DB) PaymentApplicationRepository {
	return &paymentApplicationRepository{db: db}
}

func (r *paymentApplicationRepository) Create(ctx context.Context, application *models.PaymentApplication) error {
	return r.db.WithContext(ctx).Create(application).Error
}

func (r *paymentApplicationRepository) FindByInvoiceID(ctx context.Context, invoiceID uint) ([]models.PaymentApplication, error) {
	var applications []models.PaymentApplication
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("applied_at ASC, id ASC").
		Find(&applications).Error
	return applications, err
}

func (r *paymentApplicationRepository) FindByLedgerID(ctx context.Context, ledgerID uint) ([]models.PaymentApplication, error) {
	var applications []models.PaymentApplication
	err := r.db.WithContext(ctx).
		Where("ledger_id = ?", ledgerID).
		Order("applied_at ASC, id ASC").
		Find(&applications).Error
	return applications, err
}

func (r *paymentApplicationRepository) SumByInvoiceID(ctx context.Context, invoiceID uint) (decimal.Decimal, error) {
	return sumColumn(r.db.WithContext(ctx), &models.PaymentApplication{}, "amount", "invoice_id = ?", invoiceID)
}

func (r *paymentApplicationRepository) SumByLedgerID(ctx context.Context, ledgerID uint) (decimal.Decimal, error) {
	return sumColumn(r.db.WithContext(ctx), &models.PaymentApplication{}, "amount", "ledger_id = ?", ledgerID)
}

func sumColumn(db *gorm.DB, model interface{}, column, where string, args ...interface{}) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := db.Model(model).
		Select("COALESCE(SUM("+column+"), 0) as total").
		Where(where, args...).
		Scan(&result).Error
	return result.Total, err
}
