package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/repository"
)

func TestSettlement_ScenarioAThroughC(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, 1, "1000")
	ledger := f.ledger(t, 1, "800")

	// A: partial payment
	_, err := f.apply(inv.ID, ledger.ID, "600")
	require.NoError(t, err)

	got := f.reloadInvoice(t, inv.ID)
	assert.Equal(t, "400.00", got.OutstandingAmount.StringFixed(2))
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, got.Status)
	assert.Equal(t, "200.00", f.reloadLedger(t, ledger.ID).Remaining.StringFixed(2))
	f.assertConserved(t, inv.ID)

	// B: credit closes the rest
	_, err = f.credit(inv.ID, "400", "overcharge", false)
	require.NoError(t, err)

	got = f.reloadInvoice(t, inv.ID)
	assert.True(t, got.OutstandingAmount.IsZero())
	assert.Equal(t, models.InvoiceStatusCredited, got.Status)
	f.assertConserved(t, inv.ID)

	// C: nothing left to credit
	_, err = f.credit(inv.ID, "50", "again", false)
	assert.ErrorIs(t, err, ErrInvoiceFullyCredited)

	detail, err := f.svc.Intake.GetInvoiceDetail(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Applications, 1)
	assert.Len(t, detail.CreditNotes, 1)
	require.Len(t, detail.Events, 3)
	assert.Equal(t, models.EventTypeIssued, detail.Events[0].EventType)
	assert.Equal(t, models.EventTypePaymentApplied, detail.Events[1].EventType)
	assert.Equal(t, models.EventTypeCreditIssued, detail.Events[2].EventType)
	assert.Equal(t, "400.00", detail.Events[2].OutstandingBefore.StringFixed(2))
}

func TestApplyPayment_Rejections(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, 1, "100")
	ledger := f.ledger(t, 1, "50")
	big := f.ledger(t, 1, "500")

	tests := []struct {
		name      string
		invoiceID uint
		ledgerID  uint
		amount    string
		want      error
	}{
		{"zero amount", inv.ID, ledger.ID, "0", ErrInvalidAmount},
		{"negative amount", inv.ID, ledger.ID, "-5", ErrInvalidAmount},
		{"sub-minor precision", inv.ID, ledger.ID, "10.005", ErrInvalidAmount},
		{"exceeds ledger remaining", inv.ID, ledger.ID, "50.01", ErrAmountExceedsLedgerRemaining},
		{"exceeds outstanding", inv.ID, big.ID, "100.01", ErrAmountExceedsOutstanding},
		{"unknown invoice", 999, ledger.ID, "10", ErrInvoiceNotFound},
		{"unknown ledger", inv.ID, 999, "10", ErrLedgerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.apply(tt.invoiceID, tt.ledgerID, tt.amount)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// nothing moved
	assert.Equal(t, "100.00", f.reloadInvoice(t, inv.ID).OutstandingAmount.StringFixed(2))
	assert.Equal(t, "50.00", f.reloadLedger(t, ledger.ID).Remaining.StringFixed(2))
	assert.Equal(t, "500.00", f.reloadLedger(t, big.ID).Remaining.StringFixed(2))
}

func TestApplyPayment_ExactBalancesReachZero(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, 1, "250.50")
	ledger := f.ledger(t, 1, "250.50")

	_, err := f.apply(inv.ID, ledger.ID, "250.50")
	require.NoError(t, err)

	got := f.reloadInvoice(t, inv.ID)
	assert.True(t, got.OutstandingAmount.IsZero())
	assert.Equal(t, models.InvoiceStatusPaid, got.Status)
	assert.True(t, f.reloadLedger(t, ledger.ID).Remaining.IsZero())

	_, err = f.apply(inv.ID, ledger.ID, "0.01")
	assert.ErrorIs(t, err, ErrAmountExceedsLedgerRemaining)
}

func TestApplyPayment_ConcurrentPaymentsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, 1, "100")
	first := f.ledger(t, 1, "80")
	second := f.ledger(t, 1, "80")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, l := range []*models.Ledger{first, second} {
		wg.Add(1)
		go func(i int, ledgerID uint) {
			defer wg.Done()
			_, errs[i] = f.apply(inv.ID, ledgerID, "80")
		}(i, l.ID)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAmountExceedsOutstanding):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	assert.Equal(t, "20.00", f.reloadInvoice(t, inv.ID).OutstandingAmount.StringFixed(2))
	remaining := f.reloadLedger(t, first.ID).Remaining.Add(f.reloadLedger(t, second.ID).Remaining)
	assert.Equal(t, "80.00", remaining.StringFixed(2))
	f.assertConserved(t, inv.ID)
}

func TestApplyPayment_CreditAndPaymentRace(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, 1, "100")
	ledger := f.ledger(t, 1, "100")

	var wg sync.WaitGroup
	var payErr, creditErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, payErr = f.apply(inv.ID, ledger.ID, "70")
	}()
	go func() {
		defer wg.Done()
		_, creditErr = f.credit(inv.ID, "70", "goodwill", false)
	}()
	wg.Wait()

	// exactly one of the two fits
	assert.True(t, (payErr == nil) != (creditErr == nil), "pay=%v credit=%v", payErr, creditErr)
	assert.Equal(t, "30.00", f.reloadInvoice(t, inv.ID).OutstandingAmount.StringFixed(2))
	f.assertConserved(t, inv.ID)
}

func TestCreditNote_Rules(t *testing.T) {
	f := newFixture(t)

	t.Run("reason required", func(t *testing.T) {
		inv := f.invoice(t, 1, "100")
		_, err := f.credit(inv.ID, "10", "   ", false)
		assert.ErrorIs(t, err, ErrReasonRequired)
	})

	t.Run("exceeds outstanding", func(t *testing.T) {
		inv := f.invoice(t, 1, "100")
		_, err := f.credit(inv.ID, "100.01", "too much", false)
		assert.ErrorIs(t, err, ErrCreditExceedsOutstanding)
	})

	t.Run("invalid amount", func(t *testing.T) {
		inv := f.invoice(t, 1, "100")
		_, err := f.credit(inv.ID, "0", "zero", false)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		_, err := f.credit(999, "10", "x", false)
		assert.ErrorIs(t, err, ErrInvoiceNotFound)
	})

	t.Run("partial credit status", func(t *testing.T) {
		inv := f.invoice(t, 1, "100")
		_, err := f.credit(inv.ID, "30", "discount", false)
		require.NoError(t, err)
		got := f.reloadInvoice(t, inv.ID)
		assert.Equal(t, models.InvoiceStatusPartiallyCredited, got.Status)
		assert.Equal(t, "70.00", got.OutstandingAmount.StringFixed(2))
	})

	t.Run("full credit takes the outstanding", func(t *testing.T) {
		inv := f.invoice(t, 1, "100")
		ledger := f.ledger(t, 1, "35.25")
		_, err := f.apply(inv.ID, ledger.ID, "35.25")
		require.NoError(t, err)

		note, err := f.credit(inv.ID, "", "write off", true)
		require.NoError(t, err)
		assert.Equal(t, "64.75", note.CreditAmount.StringFixed(2))
		assert.True(t, note.IsFullCredit)

		got := f.reloadInvoice(t, inv.ID)
		assert.True(t, got.OutstandingAmount.IsZero())
		assert.Equal(t, models.InvoiceStatusCredited, got.Status)
		f.assertConserved(t, inv.ID)

		_, err = f.credit(inv.ID, "", "write off again", true)
		assert.ErrorIs(t, err, ErrInvoiceFullyCredited)
	})
}

func TestCreditNote_IsImmutable(t *testing.T) {
	assert.ErrorIs(t, models.CreditNote{}.BeforeUpdate(nil), models.ErrImmutableRecord)
	assert.ErrorIs(t, models.CreditNote{}.BeforeDelete(nil), models.ErrImmutableRecord)
	assert.ErrorIs(t, models.PaymentApplication{}.BeforeUpdate(nil), models.ErrImmutableRecord)
	assert.ErrorIs(t, models.InvoiceEvent{}.BeforeDelete(nil), models.ErrImmutableRecord)
}

func TestDecrementOutstanding_Insufficient(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, 1, "10")

	err := f.repos.Atomic(f.ctx, func(tx *repository.Repositories) error {
		locked, err := tx.Invoice.FindByIDForUpdate(f.ctx, inv.ID)
		require.NoError(t, err)
		return f.svc.InvoiceLedger.DecrementOutstanding(f.ctx, tx, locked, d("10.01"), BalanceSource{Kind: models.EventTypeCreditIssued})
	})
	assert.ErrorIs(t, err, ErrInsufficientOutstanding)
}

func TestDecrementOutstanding_ConservationViolation(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, 1, "100")

	// no application backs this decrement, so history disagrees
	err := f.repos.Atomic(f.ctx, func(tx *repository.Repositories) error {
		locked, err := tx.Invoice.FindByIDForUpdate(f.ctx, inv.ID)
		require.NoError(t, err)
		return f.svc.InvoiceLedger.DecrementOutstanding(f.ctx, tx, locked, d("10"), BalanceSource{Kind: models.EventTypePaymentApplied})
	})
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvariant, e.Kind)

	assert.Equal(t, "100.00", f.reloadInvoice(t, inv.ID).OutstandingAmount.StringFixed(2))
}

// staleInvoiceRepository loses every optimistic race.
type staleInvoiceRepository struct {
	repository.InvoiceRepository
}

func (m *staleInvoiceRepository) UpdateBalance(ctx context.Context, invoice *models.Invoice) error {
	return repository.ErrStaleVersion
}

type staleTransactor struct {
	inner repository.Transactor
}

func (s *staleTransactor) Atomic(ctx context.Context, fn func(tx *repository.Repositories) error) error {
	return s.inner.Atomic(ctx, func(tx *repository.Repositories) error {
		wrapped := *tx
		wrapped.Invoice = &staleInvoiceRepository{InvoiceRepository: tx.Invoice}
		return fn(&wrapped)
	})
}

func TestApplyPayment_StaleVersionIsRetryable(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, 1, "100")
	ledger := f.ledger(t, 1, "100")

	repos := *f.repos
	repos.Transactor = &staleTransactor{inner: f.repos.Transactor}
	ledgerSvc := NewInvoiceLedgerService(&repos)
	svc := NewAllocationService(&repos, ledgerSvc)

	_, err := svc.ApplyPayment(f.ctx, ApplyPaymentInput{InvoiceID: inv.ID, LedgerID: ledger.ID, Amount: d("10"), ActorID: testActor})
	require.ErrorIs(t, err, ErrConcurrentModification)
	e, _ := AsError(err)
	assert.True(t, e.Retryable())

	// rolled back, ledger untouched
	assert.Equal(t, "100.00", f.reloadLedger(t, ledger.ID).Remaining.StringFixed(2))
	assert.Equal(t, "100.00", f.reloadInvoice(t, inv.ID).OutstandingAmount.StringFixed(2))
}

func TestRecomputeStatus_AndOverdueSweep(t *testing.T) {
	f := newFixture(t)

	past, err := f.svc.Intake.IssueInvoice(f.ctx, IssueInvoiceInput{
		HouseID: 1, Total: d("500"), DueDate: time.Now().AddDate(0, 0, -10), Label: "2026-09", ActorID: testActor,
	})
	require.NoError(t, err)
	dueToday, err := f.svc.Intake.IssueInvoice(f.ctx, IssueInvoiceInput{
		HouseID: 1, Total: d("500"), DueDate: time.Now(), Label: "2026-10", ActorID: testActor,
	})
	require.NoError(t, err)
	partial, err := f.svc.Intake.IssueInvoice(f.ctx, IssueInvoiceInput{
		HouseID: 1, Total: d("500"), DueDate: time.Now().AddDate(0, 0, -10), Label: "2026-08", ActorID: testActor,
	})
	require.NoError(t, err)
	ledger := f.ledger(t, 1, "100")
	_, err = f.apply(partial.ID, ledger.ID, "100")
	require.NoError(t, err)

	marked, err := f.svc.InvoiceLedger.MarkOverdue(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	assert.Equal(t, models.InvoiceStatusOverdue, f.reloadInvoice(t, past.ID).Status)
	assert.Equal(t, models.InvoiceStatusIssued, f.reloadInvoice(t, dueToday.ID).Status)
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, f.reloadInvoice(t, partial.ID).Status)

	// second sweep has nothing to do
	marked, err = f.svc.InvoiceLedger.MarkOverdue(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, marked)

	_, changed, err := f.svc.InvoiceLedger.RecomputeStatus(f.ctx, past.ID, testActor)
	require.NoError(t, err)
	assert.False(t, changed)

	events, err := f.repos.InvoiceEvent.FindByInvoiceID(f.ctx, past.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventTypeStatusChanged, events[1].EventType)
	assert.Equal(t, SystemActorID, events[1].ActorID)
}

func TestVerifyAll_ReportsDrift(t *testing.T) {
	f := newFixture(t)
	good := f.invoice(t, 1, "100")
	bad := f.invoice(t, 1, "100")

	// corrupt the cached balance behind the engine's back
	stored := f.reloadInvoice(t, bad.ID)
	stored.OutstandingAmount = d("90")
	require.NoError(t, f.repos.Invoice.UpdateBalance(f.ctx, stored))

	checked, drifted, err := f.svc.InvoiceLedger.VerifyAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, checked)
	require.Len(t, drifted, 1)
	assert.Equal(t, bad.ID, drifted[0].InvoiceID)
	assert.Equal(t, "100.00", drifted[0].Expected)

	v, err := f.svc.InvoiceLedger.VerifyInvoice(f.ctx, bad.ID)
	require.Error(t, err)
	assert.False(t, v.OK)

	v, err = f.svc.InvoiceLedger.VerifyInvoice(f.ctx, good.ID)
	require.NoError(t, err)
	assert.True(t, v.OK)
}

func TestGetOutstanding(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, 1, "75.50")

	out, err := f.svc.InvoiceLedger.GetOutstanding(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "75.50", out.StringFixed(2))

	_, err = f.svc.InvoiceLedger.GetOutstanding(f.ctx, 999)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}
