package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sjperalta/village-settlement-api/internal/models"
)

// PromotionRepository defines the interface for promotion rule definitions
type PromotionRepository interface {
	Create(ctx context.Context, promotion *models.Promotion) error
	FindByID(ctx context.Context, id uint) (*models.Promotion, error)
	FindAll(ctx context.Context) ([]models.Promotion, error)
}

type promotionRepository struct {
	db *gorm.DB
}

// NewPromotionRepository creates a new promotion repository
func NewPromotionRepository(db *gorm.DB) PromotionRepository {
	return &promotionRepository{db: db}
}

func (r *promotionRepository) Create(ctx context.Context, promotion *models.Promotion) error {
	return r.db.WithContext(ctx).Create(promotion).Error
}

func (r *promotionRepository) FindByID(ctx context.Context, id uint) (*models.Promotion, error) {
	var promotion models.Promotion
	if err := r.db.WithContext(ctx).First(&promotion, id).Error; err != nil {
		return nil, err
	}
	return &promotion, nil
}

func (r *promotionRepository) FindAll(ctx context.Context) ([]models.Promotion, error) {
	var promotions []models.Promotion
	err := r.db.WithContext(ctx).Order("id ASC").Find(&promotions).Error
	return promotions, err
}
