package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sjperalta/village-settlement-api/internal/models"
)

// InvoiceRepository defines the interface for invoice data access
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, id uint) (*models.Invoice, error)
	// FindByIDForUpdate row-locks the invoice until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Invoice, error)
	// UpdateBalance persists outstanding and status if the version is unchanged.
	UpdateBalance(ctx context.Context, invoice *models.Invoice) error
	List(ctx context.Context, query *ListQuery) ([]models.Invoice, int64, error)
	FindIDs(ctx context.Context) ([]uint, error)
	// FindPastDue returns untouched ISSUED invoices whose due date is before day.
	FindPastDue(ctx context.Context, day time.Time) ([]models.Invoice, error)
	FindLatestRecurringByHouse(ctx context.Context, houseID uint) (*models.Invoice, error)
	SumOutstandingByHouse(ctx context.Context, houseID uint) (decimal.Decimal, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) UpdateBalance(ctx context.Context, invoice *models.Invoice) error {
	err := updateVersioned(r.db.WithContext(ctx), &models.Invoice{}, invoice.ID, invoice.Version, map[string]interface{}{
		"outstanding_amount": invoice.OutstandingAmount,
		"status":             invoice.Status,
	})
	if err != nil {
		return err
	}
	invoice.Version++
	return nil
}

func (r *invoiceRepository) List(ctx context.Context, query *ListQuery) ([]models.Invoice, int64, error) {
	var invoices []models.Invoice
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Invoice{})

	if val := query.Filters["house_id"]; val != "" {
		db = db.Where("house_id = ?", val)
	}
	if val := query.Filters["status"]; val != "" {
		db = db.Where("status = ?", val)
	}

	countDb := db.Session(&gorm.Session{})
	if err := countDb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.paginate(db.Order(query.order("due_date")).Order("id ASC")).Find(&invoices).Error
	return invoices, total, err
}

func (r *invoiceRepository) FindIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *invoiceRepository) FindPastDue(ctx context.Context, day time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ? AND outstanding_amount = total_amount", models.InvoiceStatusIssued, day).
		Order("due_date ASC").
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepository) FindLatestRecurringByHouse(ctx context.Context, houseID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Where("house_id = ? AND is_manual = ?", houseID, false).
		Order("due_date DESC, id DESC").
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) SumOutstandingByHouse(ctx context.Context, houseID uint) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Select("COALESCE(SUM(outstanding_amount), 0) as total").
		Where("house_id = ?", houseID).
		Scan(&result).Error
	return result.Total, err
}

// InvoiceEventRepository defines the interface for the invoice history
type InvoiceEventRepository interface {
	Create(ctx context.Context, event *models.InvoiceEvent) error
	FindByInvoiceID(ctx context.Context, invoiceID uint) ([]models.InvoiceEvent, error)
}

type invoiceEventRepository struct {
	db *gorm.DB
}

// NewInvoiceEventRepository creates a new invoice event repository
func NewInvoiceEventRepository(db *gorm.DB) InvoiceEventRepository {
	return &invoiceEventRepository{db: db}
}

func (r *invoiceEventRepository) Create(ctx context.Context, event *models.InvoiceEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *invoiceEventRepository) FindByInvoiceID(ctx context.Context, invoiceID uint) ([]models.InvoiceEvent, error) {
	var events []models.InvoiceEvent
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	return events, err
}
