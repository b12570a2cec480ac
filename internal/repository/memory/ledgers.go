package memory

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/repository"
)

type ledgerRepository struct {
	base
}

func (r *ledgerRepository) Create(ctx context.Context, ledger *models.Ledger) error {
	return r.with(ctx, func(st *state) error {
		for _, existing := range st.ledgers {
			if existing.PayinID == ledger.PayinID {
				return gorm.ErrDuplicatedKey
			}
		}
		ledger.ID = st.next("ledgers")
		if ledger.Version == 0 {
			ledger.Version = 1
		}
		now := r.now()
		ledger.CreatedAt, ledger.UpdatedAt = now, now
		st.ledgers[ledger.ID] = *ledger
		return nil
	})
}

func (r *ledgerRepository) FindByID(ctx context.Context, id uint) (*models.Ledger, error) {
	var out *models.Ledger
	err := r.with(ctx, func(st *state) error {
		ledger, ok := st.ledgers[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &ledger
		return nil
	})
	return out, err
}

func (r *ledgerRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Ledger, error) {
	return r.FindByID(ctx, id)
}

func (r *ledgerRepository) FindByPayinID(ctx context.Context, payinID uint) (*models.Ledger, error) {
	var out *models.Ledger
	err := r.with(ctx, func(st *state) error {
		for _, ledger := range st.ledgers {
			if ledger.PayinID == payinID {
				found := ledger
				out = &found
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	return out, err
}

func (r *ledgerRepository) UpdateRemaining(ctx context.Context, ledger *models.Ledger) error {
	return r.with(ctx, func(st *state) error {
		stored, ok := st.ledgers[ledger.ID]
		if !ok || stored.Version != ledger.Version {
			return repository.ErrStaleVersion
		}
		stored.Remaining = ledger.Remaining
		stored.Version++
		stored.UpdatedAt = r.now()
		st.ledgers[ledger.ID] = stored
		ledger.Version = stored.Version
		ledger.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

type paymentApplicationRepository struct {
	base
}

func (r *paymentApplicationRepository) Create(ctx context.Context, application *models.PaymentApplication) error {
	return r.with(ctx, func(st *state) error {
		application.ID = st.next("payment_applications")
		if application.AppliedAt.IsZero() {
			application.AppliedAt = r.now()
		}
		st.applications[application.ID] = *application
		return nil
	})
}

func (r *paymentApplicationRepository) FindByInvoiceID(ctx context.Context, invoiceID uint) ([]models.PaymentApplication, error) {
	return r.filter(ctx, func(a models.PaymentApplication) bool { return a.InvoiceID == invoiceID })
}

func (r *paymentApplicationRepository) FindByLedgerID(ctx context.Context, ledgerID uint) ([]models.PaymentApplication, error) {
	return r.filter(ctx, func(a models.PaymentApplication) bool { return a.LedgerID == ledgerID })
}

func (r *paymentApplicationRepository) SumByInvoiceID(ctx context.Context, invoiceID uint) (decimal.Decimal, error) {
	return r.sum(ctx, func(a models.PaymentApplication) bool { return a.InvoiceID == invoiceID })
}

func (r *paymentApplicationRepository) SumByLedgerID(ctx context.Context, ledgerID uint) (decimal.Decimal, error) {
	return r.sum(ctx, func(a models.PaymentApplication) bool { return a.LedgerID == ledgerID })
}

func (r *paymentApplicationRepository) filter(ctx context.Context, keep func(models.PaymentApplication) bool) ([]models.PaymentApplication, error) {
	var out []models.PaymentApplication
	err := r.with(ctx, func(st *state) error {
		for _, a := range st.applications {
			if keep(a) {
				out = append(out, a)
			}
		}
		out = sortByID(out, func(a models.PaymentApplication) uint { return a.ID })
		return nil
	})
	return out, err
}

func (r *paymentApplicationRepository) sum(ctx context.Context, keep func(models.PaymentApplication) bool) (decimal.Decimal, error) {
	rows, err := r.filter(ctx, keep)
	total := decimal.Zero
	for _, a := range rows {
		total = total.Add(a.Amount)
	}
	return total, err
}

type creditNoteRepository struct {
	base
}

func (r *creditNoteRepository) Create(ctx context.Context, note *models.CreditNote) error {
	return r.with(ctx, func(st *state) error {
		note.ID = st.next("credit_notes")
		if note.CreatedAt.IsZero() {
			note.CreatedAt = r.now()
		}
		st.creditNotes[note.ID] = *note
		return nil
	})
}

func (r *creditNoteRepository) FindByInvoiceID(ctx context.Context, invoiceID uint) ([]models.CreditNote, error) {
	var out []models.CreditNote
	err := r.with(ctx, func(st *state) error {
		for _, note := range st.creditNotes {
			if note.InvoiceID == invoiceID {
				out = append(out, note)
			}
		}
		out = sortByID(out, func(n models.CreditNote) uint { return n.ID })
		return nil
	})
	return out, err
}

func (r *creditNoteRepository) SumByInvoiceID(ctx context.Context, invoiceID uint) (decimal.Decimal, error) {
	notes, err := r.FindByInvoiceID(ctx, invoiceID)
	total := decimal.Zero
	for _, note := range notes {
		total = total.Add(note.CreditAmount)
	}
	return total, err
}
