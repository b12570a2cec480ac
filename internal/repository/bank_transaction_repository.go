package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sjperalta/village-settlement-api/internal/models"
)

// BankTransactionRepository defines the interface for imported statement rows
type BankTransactionRepository interface {
	CreateBatch(ctx context.Context, transactions []models.BankTransaction) error
	FindByID(ctx context.Context, id uint) (*models.BankTransaction, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.BankTransaction, error)
	// UpdateMatch persists the match columns if the version is unchanged.
	UpdateMatch(ctx context.Context, transaction *models.BankTransaction) error
	List(ctx context.Context, query *ListQuery) ([]models.BankTransaction, int64, error)
	FindUnmatchedBetween(ctx context.Context, from, to time.Time) ([]models.BankTransaction, error)
	// FindExistingHashes returns the subset of hashes already stored.
	FindExistingHashes(ctx context.Context, hashes []string) (map[string]bool, error)
}

type bankTransactionRepository struct {
	db *gorm.DB
}

// NewBankTransactionRepository creates a new bank transaction repository
func NewBankTransactionRepository(db *gorm.DB) BankTransactionRepository {
	return &bankTransactionRepository{db: db}
}

func (r *bankTransactionRepository) CreateBatch(ctx context.Context, transactions []models.BankTransaction) error {
	if len(transactions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&transactions, 200).Error
}

func (r *bankTransactionRepository) FindByID(ctx context.Context, id uint) (*models.BankTransaction, error) {
	var transaction models.BankTransaction
	if err := r.db.WithContext(ctx).First(&transaction, id).Error; err != nil {
		return nil, err
	}
	return &transaction, nil
}

func (r *bankTransactionRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.BankTransaction, error) {
	var transaction models.BankTransaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&transaction, id).Error
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

func (r *bankTransactionRepository) UpdateMatch(ctx context.Context, transaction *models.BankTransaction) error {
	err := updateVersioned(r.db.WithContext(ctx), &models.BankTransaction{}, transaction.ID, transaction.Version, map[string]interface{}{
		"match_state":      transaction.MatchState,
		"matched_payin_id": transaction.MatchedPayinID,
		"matched_at":       transaction.MatchedAt,
		"matched_by":       transaction.MatchedBy,
	})
	if err != nil {
		return err
	}
	transaction.Version++
	return nil
}

func (r *bankTransactionRepository) List(ctx context.Context, query *ListQuery) ([]models.BankTransaction, int64, error) {
	var transactions []models.BankTransaction
	var total int64

	db := r.db.WithContext(ctx).Model(&models.BankTransaction{})

	if val := query.Filters["batch_id"]; val != "" {
		db = db.Where("batch_id = ?", val)
	}
	if val := query.Filters["match_state"]; val != "" {
		db = db.Where("match_state = ?", val)
	}

	countDb := db.Session(&gorm.Session{})
	if err := countDb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.paginate(db.Order(query.order("date")).Order("id ASC")).Find(&transactions).Error
	return transactions, total, err
}

func (r *bankTransactionRepository) FindUnmatchedBetween(ctx context.Context, from, to time.Time) ([]models.BankTransaction, error) {
	var transactions []models.BankTransaction
	err := r.db.WithContext(ctx).
		Where("match_state = ? AND date BETWEEN ? AND ?", models.MatchStateUnmatched, from, to).
		Order("date ASC, id ASC").
		Find(&transactions).Error
	return transactions, err
}

func (r *bankTransactionRepository) FindExistingHashes(ctx context.Context, hashes []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(hashes) == 0 {
		return existing, nil
	}
	var found []string
	err := r.db.WithContext(ctx).
		Model(&models.BankTransaction{}).
		Where("row_hash IN ?", hashes).
		Distinct().
		Pluck("row_hash", &found).Error
	if err != nil {
		return nil, err
	}
	for _, h := range found {
		existing[h] = true
	}
	return existing, nil
}

// StatementImportRepository defines the interface for statement uploads
type StatementImportRepository interface {
	Create(ctx context.Context, imp *models.StatementImport) error
	FindByToken(ctx context.Context, token string) (*models.StatementImport, error)
	FindByTokenForUpdate(ctx context.Context, token string) (*models.StatementImport, error)
	FindConfirmedByFingerprint(ctx context.Context, fingerprint string) (*models.StatementImport, error)
	Update(ctx context.Context, imp *models.StatementImport) error
	List(ctx context.Context, query *ListQuery) ([]models.StatementImport, int64, error)
}

type statementImportRepository struct {
	db *gorm.DB
}

// NewStatementImportRepository creates a new statement import repository
func NewStatementImportRepository(db *gorm.DB) StatementImportRepository {
	return &statementImportRepository{db: db}
}

func (r *statementImportRepository) Create(ctx context.Context, imp *models.StatementImport) error {
	return r.db.WithContext(ctx).Create(imp).Error
}

func (r *statementImportRepository) FindByToken(ctx context.Context, token string) (*models.StatementImport, error) {
	var imp models.StatementImport
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&imp).Error; err != nil {
		return nil, err
	}
	return &imp, nil
}

func (r *statementImportRepository) FindByTokenForUpdate(ctx context.Context, token string) (*models.StatementImport, error) {
	var imp models.StatementImport
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).
		First(&imp).Error
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

func (r *statementImportRepository) FindConfirmedByFingerprint(ctx context.Context, fingerprint string) (*models.StatementImport, error) {
	var imp models.StatementImport
	err := r.db.WithContext(ctx).
		Where("fingerprint = ? AND status = ?", fingerprint, models.ImportStatusConfirmed).
		First(&imp).Error
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

func (r *statementImportRepository) Update(ctx context.Context, imp *models.StatementImport) error {
	return r.db.WithContext(ctx).Save(imp).Error
}

func (r *statementImportRepository) List(ctx context.Context, query *ListQuery) ([]models.StatementImport, int64, error) {
	var imports []models.StatementImport
	var total int64

	db := r.db.WithContext(ctx).Model(&models.StatementImport{})
	if val := query.Filters["status"]; val != "" {
		db = db.Where("status = ?", val)
	}

	countDb := db.Session(&gorm.Session{})
	if err := countDb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.paginate(db.Order(query.order("created_at"))).Find(&imports).Error
	return imports, total, err
}
