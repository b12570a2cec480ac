package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// lockTimeout bounds how long a transaction waits on a row lock before it
// gives up with a retryable error.
const lockTimeout = 5 * time.Second

// Transactor runs fn inside one database transaction. The Repositories handed
// to fn are bound to that transaction; returning an error rolls everything back.
type Transactor interface {
	Atomic(ctx context.Context, fn func(tx *Repositories) error) error
}

// Repositories holds all repository instances
type Repositories struct {
	Transactor

	Invoice            InvoiceRepository
	InvoiceEvent       InvoiceEventRepository
	Ledger             LedgerRepository
	PaymentApplication PaymentApplicationRepository
	CreditNote         CreditNoteRepository
	Payin              PayinRepository
	BankTransaction    BankTransactionRepository
	StatementImport    StatementImportRepository
	Promotion          PromotionRepository
	Audit              AuditRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Transactor:         &gormTransactor{db: db},
		Invoice:            NewInvoiceRepository(db),
		InvoiceEvent:       NewInvoiceEventRepository(db),
		Ledger:             NewLedgerRepository(db),
		PaymentApplication: NewPaymentApplicationRepository(db),
		CreditNote:         NewCreditNoteRepository(db),
		Payin:              NewPayinRepository(db),
		BankTransaction:    NewBankTransactionRepository(db),
		StatementImport:    NewStatementImportRepository(db),
		Promotion:          NewPromotionRepository(db),
		Audit:              NewAuditRepository(db),
	}
}

type gormTransactor struct {
	db *gorm.DB
}

func (t *gormTransactor) Atomic(ctx context.Context, fn func(tx *Repositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			// SET does not take bind parameters
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(NewRepositories(tx))
	})
}

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// Offset returns the row offset for the current page.
func (q *ListQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}

func (q *ListQuery) paginate(db *gorm.DB) *gorm.DB {
	if q.PerPage > 0 {
		db = db.Offset(q.Offset()).Limit(q.PerPage)
	}
	return db
}

func (q *ListQuery) order(column string) string {
	if q.SortDir == "asc" {
		return column + " ASC"
	}
	return column + " DESC"
}
