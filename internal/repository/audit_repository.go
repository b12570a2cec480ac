package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sjperalta/village-settlement-api/internal/models"
)

// AuditRepository defines the interface for audit log data access
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, query *ListQuery) ([]models.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, query *ListQuery) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	db := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if val := query.Filters["entity"]; val != "" {
		db = db.Where("entity = ?", val)
	}
	if val := query.Filters["action"]; val != "" {
		db = db.Where("action = ?", val)
	}
	if val := query.Filters["actor_id"]; val != "" {
		db = db.Where("actor_id = ?", val)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.paginate(db.Order(query.order("created_at"))).Find(&logs).Error
	return logs, total, err
}
