package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sjperalta/village-settlement-api/internal/config"
	"github.com/sjperalta/village-settlement-api/internal/jobs"
	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/repository"
	"github.com/sjperalta/village-settlement-api/internal/repository/memory"
	"github.com/sjperalta/village-settlement-api/internal/storage"
)

const testActor uint = 42

// farFuture keeps invoices out of the overdue rule unless a test wants it.
var farFuture = time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC)

type fixture struct {
	ctx   context.Context
	repos *repository.Repositories
	svc   *Services
	store *storage.LocalStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	worker := jobs.NewWorker(1)
	t.Cleanup(worker.Shutdown)

	repos := memory.New()
	cfg := &config.Config{
		CandidateAmountTolerance: decimal.Zero,
		CandidateDateWindowDays:  3,
	}

	return &fixture{
		ctx:   context.Background(),
		repos: repos,
		svc:   NewServices(repos, worker, store, cfg),
		store: store,
	}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) invoice(t *testing.T, houseID uint, total string) *models.Invoice {
	t.Helper()
	inv, err := f.svc.Intake.IssueInvoice(f.ctx, IssueInvoiceInput{
		HouseID: houseID,
		Total:   d(total),
		DueDate: farFuture,
		Label:   "2026-10",
		ActorID: testActor,
	})
	require.NoError(t, err)
	return inv
}

func (f *fixture) payin(t *testing.T, houseID uint, amount string, paidAt time.Time) *models.PayinReport {
	t.Helper()
	p, err := f.svc.Intake.SubmitPayin(f.ctx, SubmitPayinInput{
		HouseID: houseID,
		Amount:  d(amount),
		PaidAt:  paidAt,
		ActorID: testActor,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) ledger(t *testing.T, houseID uint, amount string) *models.Ledger {
	t.Helper()
	p := f.payin(t, houseID, amount, time.Now())
	l, err := f.svc.Intake.AcceptPayin(f.ctx, p.ID, testActor)
	require.NoError(t, err)
	return l
}

func (f *fixture) apply(invoiceID, ledgerID uint, amount string) (*models.PaymentApplication, error) {
	return f.svc.Allocation.ApplyPayment(f.ctx, ApplyPaymentInput{
		InvoiceID: invoiceID,
		LedgerID:  ledgerID,
		Amount:    d(amount),
		ActorID:   testActor,
	})
}

func (f *fixture) credit(invoiceID uint, amount, reason string, full bool) (*models.CreditNote, error) {
	in := IssueCreditNoteInput{
		InvoiceID:    invoiceID,
		Reason:       reason,
		IsFullCredit: full,
		ActorID:      testActor,
	}
	if amount != "" {
		in.Amount = d(amount)
	}
	return f.svc.CreditNote.Issue(f.ctx, in)
}

func (f *fixture) reloadInvoice(t *testing.T, id uint) *models.Invoice {
	t.Helper()
	inv, err := f.repos.Invoice.FindByID(f.ctx, id)
	require.NoError(t, err)
	return inv
}

func (f *fixture) reloadLedger(t *testing.T, id uint) *models.Ledger {
	t.Helper()
	l, err := f.repos.Ledger.FindByID(f.ctx, id)
	require.NoError(t, err)
	return l
}

// assertConserved checks outstanding = total - applications - credits and the bounds.
func (f *fixture) assertConserved(t *testing.T, invoiceID uint) {
	t.Helper()
	v, err := f.svc.InvoiceLedger.VerifyInvoice(f.ctx, invoiceID)
	require.NoError(t, err)
	require.True(t, v.OK, v.Problems)
}

func (f *fixture) bankRows(t *testing.T, rows ...models.BankTransaction) []models.BankTransaction {
	t.Helper()
	for i := range rows {
		if rows[i].BatchID == "" {
			rows[i].BatchID = "batch-test"
		}
		rows[i].MatchState = models.MatchStateUnmatched
		if rows[i].RowHash == "" {
			rows[i].RowHash = rows[i].Date.Format("2006-01-02") + rows[i].Amount.String() + rows[i].Description
		}
	}
	require.NoError(t, f.repos.BankTransaction.CreateBatch(f.ctx, rows))
	return rows
}
