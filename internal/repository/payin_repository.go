package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sjperalta/village-settlement-api/internal/models"
)

// PayinRepository defines the interface for pay-in report data access
type PayinRepository interface {
	Create(ctx context.Context, payin *models.PayinReport) error
	FindByID(ctx context.Context, id uint) (*models.PayinReport, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.PayinReport, error)
	// Update persists status, acceptance and bank link if the version is unchanged.
	Update(ctx context.Context, payin *models.PayinReport) error
}

type payinRepository struct {
	db *gorm.DB
}

// NewPayinRepository creates a new pay-in repository
func NewPayinRepository(db *gorm.DB) PayinRepository {
	return &payinRepository{db: db}
}

func (r *payinRepository) Create(ctx context.Context, payin *models.PayinReport) error {
	return r.db.WithContext(ctx).Create(payin).Error
}

func (r *payinRepository) FindByID(ctx context.Context, id uint) (*models.PayinReport, error) {
	var payin models.PayinReport
	if err := r.db.WithContext(ctx).First(&payin, id).Error; err != nil {
		return nil, err
	}
	return &payin, nil
}

func (r *payinRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.PayinReport, error) {
	var payin models.PayinReport
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payin, id).Error
	if err != nil {
		return nil, err
	}
	return &payin, nil
}

func (r *payinRepository) Update(ctx context.Context, payin *models.PayinReport) error {
	err := updateVersioned(r.db.WithContext(ctx), &models.PayinReport{}, payin.ID, payin.Version, map[string]interface{}{
		"status":              payin.Status,
		"accepted_at":         payin.AcceptedAt,
		"accepted_by":         payin.AcceptedBy,
		"bank_transaction_id": payin.BankTransactionID,
	})
	if err != nil {
		return err
	}
	payin.Version++
	return nil
}
