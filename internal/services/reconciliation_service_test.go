package services

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/repository"
)

var oct10 = time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)

func TestMatch_ScenarioD(t *testing.T) {
	f := newFixture(t)
	p := f.payin(t, 1, "600", oct10)
	other := f.payin(t, 2, "600", oct10)
	rows := f.bankRows(t,
		models.BankTransaction{Amount: d("600"), Date: oct10, Description: "transfer A"},
		models.BankTransaction{Amount: d("600"), Date: oct10.AddDate(0, 0, 1), Description: "transfer B"},
	)

	candidates, err := f.svc.Reconciliation.ListCandidates(f.ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	matched, err := f.svc.Reconciliation.Match(f.ctx, rows[0].ID, p.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStateMatched, matched.MatchState)
	require.NotNil(t, matched.MatchedPayinID)
	assert.Equal(t, p.ID, *matched.MatchedPayinID)

	linked, err := f.svc.Intake.GetPayin(f.ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.BankTransactionID)
	assert.Equal(t, rows[0].ID, *linked.BankTransactionID)

	candidates, err = f.svc.Reconciliation.ListCandidates(f.ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, rows[1].ID, candidates[0].Transaction.ID)
}

func TestMatch_OneToOne(t *testing.T) {
	f := newFixture(t)
	p1 := f.payin(t, 1, "100", oct10)
	p2 := f.payin(t, 2, "100", oct10)
	rows := f.bankRows(t,
		models.BankTransaction{Amount: d("100"), Date: oct10, Description: "one"},
		models.BankTransaction{Amount: d("100"), Date: oct10, Description: "two"},
	)

	_, err := f.svc.Reconciliation.Match(f.ctx, rows[0].ID, p1.ID, testActor)
	require.NoError(t, err)

	t.Run("same pair again is a no-op", func(t *testing.T) {
		got, err := f.svc.Reconciliation.Match(f.ctx, rows[0].ID, p1.ID, testActor)
		require.NoError(t, err)
		assert.Equal(t, p1.ID, *got.MatchedPayinID)
	})

	t.Run("transaction already matched elsewhere", func(t *testing.T) {
		_, err := f.svc.Reconciliation.Match(f.ctx, rows[0].ID, p2.ID, testActor)
		assert.ErrorIs(t, err, ErrAlreadyMatched)
	})

	t.Run("pay-in already linked", func(t *testing.T) {
		_, err := f.svc.Reconciliation.Match(f.ctx, rows[1].ID, p1.ID, testActor)
		assert.ErrorIs(t, err, ErrPayinAlreadyLinked)

		// the failed attempt left the row untouched
		row, err := f.svc.Reconciliation.GetTransaction(f.ctx, rows[1].ID)
		require.NoError(t, err)
		assert.Equal(t, models.MatchStateUnmatched, row.MatchState)
	})

	t.Run("unknown ids", func(t *testing.T) {
		_, err := f.svc.Reconciliation.Match(f.ctx, 999, p2.ID, testActor)
		assert.ErrorIs(t, err, ErrTransactionNotFound)
		_, err = f.svc.Reconciliation.Match(f.ctx, rows[1].ID, 999, testActor)
		assert.ErrorIs(t, err, ErrPayinNotFound)
	})
}

func TestUnmatch_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	p := f.payin(t, 1, "100", oct10)
	rows := f.bankRows(t, models.BankTransaction{Amount: d("100"), Date: oct10, Description: "one"})

	_, err := f.svc.Reconciliation.Match(f.ctx, rows[0].ID, p.ID, testActor)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := f.svc.Reconciliation.Unmatch(f.ctx, rows[0].ID, testActor)
		require.NoError(t, err)
		assert.Equal(t, models.MatchStateUnmatched, got.MatchState)
		assert.Nil(t, got.MatchedPayinID)
	}

	payin, err := f.svc.Intake.GetPayin(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, payin.BankTransactionID)

	// free again on both sides
	_, err = f.svc.Reconciliation.Match(f.ctx, rows[0].ID, p.ID, testActor)
	require.NoError(t, err)

	_, err = f.svc.Reconciliation.Unmatch(f.ctx, 999, testActor)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	q := repository.NewListQuery()
	q.Filters["action"] = models.AuditActionUnmatch
	logs, total, err := f.svc.Audit.List(f.ctx, q)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, testActor, logs[0].ActorID)
}

// lockedPayinRepository times out on every row lock, like postgres lock_timeout.
type lockedPayinRepository struct {
	repository.PayinRepository
}

func (m *lockedPayinRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.PayinReport, error) {
	return nil, &pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"}
}

type lockedPayinTransactor struct {
	inner repository.Transactor
}

func (l *lockedPayinTransactor) Atomic(ctx context.Context, fn func(tx *repository.Repositories) error) error {
	return l.inner.Atomic(ctx, func(tx *repository.Repositories) error {
		wrapped := *tx
		wrapped.Payin = &lockedPayinRepository{PayinRepository: tx.Payin}
		return fn(&wrapped)
	})
}

func TestUnmatch_LockTimeoutIsRetryable(t *testing.T) {
	f := newFixture(t)
	p := f.payin(t, 1, "100", oct10)
	rows := f.bankRows(t, models.BankTransaction{Amount: d("100"), Date: oct10, Description: "one"})

	_, err := f.svc.Reconciliation.Match(f.ctx, rows[0].ID, p.ID, testActor)
	require.NoError(t, err)

	repos := *f.repos
	repos.Transactor = &lockedPayinTransactor{inner: f.repos.Transactor}
	svc := NewReconciliationService(&repos, f.store, NewAuditService(&repos), nil, ReconciliationConfig{})

	_, err = svc.Unmatch(f.ctx, rows[0].ID, testActor)
	require.ErrorIs(t, err, ErrConcurrentModification)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.True(t, e.Retryable())

	// rolled back, still matched on both sides
	got, err := f.svc.Reconciliation.GetTransaction(f.ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStateMatched, got.MatchState)
	payin, err := f.svc.Intake.GetPayin(f.ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, payin.BankTransactionID)
	assert.Equal(t, rows[0].ID, *payin.BankTransactionID)
}

func TestMatch_NeverTouchesBalances(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, 1, "100")
	p := f.payin(t, 1, "100", oct10)
	rows := f.bankRows(t, models.BankTransaction{Amount: d("100"), Date: oct10, Description: "one"})

	_, err := f.svc.Reconciliation.Match(f.ctx, rows[0].ID, p.ID, testActor)
	require.NoError(t, err)

	assert.Equal(t, "100.00", f.reloadInvoice(t, inv.ID).OutstandingAmount.StringFixed(2))
	f.assertConserved(t, inv.ID)
}

func TestListCandidates_WindowAndOrder(t *testing.T) {
	f := newFixture(t)
	f.svc.Reconciliation.cfg.AmountTolerance = d("5")
	p := f.payin(t, 1, "500", oct10)
	rows := f.bankRows(t,
		models.BankTransaction{Amount: d("503"), Date: oct10, Description: "close amount"},
		models.BankTransaction{Amount: d("500"), Date: oct10.AddDate(0, 0, 2), Description: "exact, two days"},
		models.BankTransaction{Amount: d("500"), Date: oct10.AddDate(0, 0, -1), Description: "exact, one day"},
		models.BankTransaction{Amount: d("500"), Date: oct10.AddDate(0, 0, 4), Description: "outside window"},
		models.BankTransaction{Amount: d("510"), Date: oct10, Description: "outside tolerance"},
	)

	candidates, err := f.svc.Reconciliation.ListCandidates(f.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, rows[2].ID, candidates[0].Transaction.ID)
	assert.Equal(t, 1, candidates[0].DaysApart)
	assert.Equal(t, rows[1].ID, candidates[1].Transaction.ID)
	assert.Equal(t, rows[0].ID, candidates[2].Transaction.ID)
	assert.Equal(t, "3.00", candidates[2].AmountDifference.StringFixed(2))

	_, err = f.svc.Reconciliation.ListCandidates(f.ctx, 999)
	assert.ErrorIs(t, err, ErrPayinNotFound)
}

func TestListCandidates_LinkedPayinHasNone(t *testing.T) {
	f := newFixture(t)
	p := f.payin(t, 1, "100", oct10)
	rows := f.bankRows(t,
		models.BankTransaction{Amount: d("100"), Date: oct10, Description: "one"},
		models.BankTransaction{Amount: d("100"), Date: oct10, Description: "two"},
	)

	_, err := f.svc.Reconciliation.Match(f.ctx, rows[0].ID, p.ID, testActor)
	require.NoError(t, err)

	candidates, err := f.svc.Reconciliation.ListCandidates(f.ctx, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)

	_, err = f.svc.Reconciliation.Unmatch(f.ctx, rows[0].ID, testActor)
	require.NoError(t, err)
	candidates, err = f.svc.Reconciliation.ListCandidates(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

const octoberCSV = "Date,Description,Amount\n" +
	"2026-10-01,Transfer house 12,1500.00\n" +
	"2026-10-02,Transfer house 7,600\n" +
	"2026-10-03,Bad amount,abc\n"

func TestStatementImport_PreviewConfirm(t *testing.T) {
	f := newFixture(t)

	preview, err := f.svc.Reconciliation.PreviewStatement(f.ctx, "october.csv", []byte(octoberCSV), testActor)
	require.NoError(t, err)
	assert.NotEmpty(t, preview.Token)
	assert.Equal(t, 2, preview.RowCount)
	assert.Equal(t, 2, preview.NewCount)
	assert.Equal(t, "2100.00", preview.TotalAmount)
	assert.False(t, preview.AlreadyImported)
	require.Len(t, preview.Errors, 1)
	assert.Equal(t, 4, preview.Errors[0].Line)

	// preview writes no bank rows
	_, total, err := f.svc.Reconciliation.ListTransactions(f.ctx, repository.NewListQuery())
	require.NoError(t, err)
	assert.Zero(t, total)

	imp, err := f.svc.Reconciliation.ConfirmImport(f.ctx, preview.Token, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusConfirmed, imp.Status)
	require.NotNil(t, imp.BatchID)
	assert.Equal(t, 2, imp.NewCount)

	q := repository.NewListQuery()
	q.Filters["batch_id"] = *imp.BatchID
	txns, total, err := f.svc.Reconciliation.ListTransactions(f.ctx, q)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, txn := range txns {
		assert.Equal(t, models.MatchStateUnmatched, txn.MatchState)
		assert.Equal(t, imp.ID, txn.ImportID)
	}

	_, err = f.svc.Reconciliation.ConfirmImport(f.ctx, preview.Token, testActor)
	assert.ErrorIs(t, err, ErrImportAlreadyConfirmed)
}

func TestStatementImport_DuplicateGuards(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Reconciliation.PreviewStatement(f.ctx, "october.csv", []byte(octoberCSV), testActor)
	require.NoError(t, err)
	second, err := f.svc.Reconciliation.PreviewStatement(f.ctx, "october-copy.csv", []byte(octoberCSV), testActor)
	require.NoError(t, err)

	_, err = f.svc.Reconciliation.ConfirmImport(f.ctx, first.Token, testActor)
	require.NoError(t, err)

	_, err = f.svc.Reconciliation.ConfirmImport(f.ctx, second.Token, testActor)
	assert.ErrorIs(t, err, ErrDuplicateImport)

	again, err := f.svc.Reconciliation.PreviewStatement(f.ctx, "october.csv", []byte(octoberCSV), testActor)
	require.NoError(t, err)
	assert.True(t, again.AlreadyImported)
	assert.Equal(t, 2, again.DuplicateCount)
	assert.Zero(t, again.NewCount)

	// a different file overlapping one row only imports the new row
	overlap := "Date,Description,Amount\n" +
		"2026-10-02,Transfer house 7,600\n" +
		"2026-10-05,Transfer house 3,750\n"
	preview, err := f.svc.Reconciliation.PreviewStatement(f.ctx, "overlap.csv", []byte(overlap), testActor)
	require.NoError(t, err)
	assert.Equal(t, 1, preview.DuplicateCount)
	assert.Equal(t, 1, preview.NewCount)
	assert.True(t, preview.Rows[0].Duplicate)

	imp, err := f.svc.Reconciliation.ConfirmImport(f.ctx, preview.Token, testActor)
	require.NoError(t, err)
	assert.Equal(t, 1, imp.NewCount)

	_, total, err := f.svc.Reconciliation.ListTransactions(f.ctx, repository.NewListQuery())
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestStatementImport_Discard(t *testing.T) {
	f := newFixture(t)

	preview, err := f.svc.Reconciliation.PreviewStatement(f.ctx, "october.csv", []byte(octoberCSV), testActor)
	require.NoError(t, err)

	imp, err := f.svc.Reconciliation.DiscardImport(f.ctx, preview.Token, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusDiscarded, imp.Status)

	assert.Eventually(t, func() bool {
		return !f.store.Exists(imp.FilePath)
	}, 2*time.Second, 10*time.Millisecond)

	_, err = f.svc.Reconciliation.DiscardImport(f.ctx, preview.Token, testActor)
	require.NoError(t, err)

	_, err = f.svc.Reconciliation.ConfirmImport(f.ctx, preview.Token, testActor)
	assert.ErrorIs(t, err, ErrInvalidImportState)

	_, err = f.svc.Reconciliation.ConfirmImport(f.ctx, "no-such-token", testActor)
	assert.ErrorIs(t, err, ErrImportNotFound)
}

func TestPreviewStatement_RejectsBadFiles(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Reconciliation.PreviewStatement(f.ctx, "october.pdf", []byte("%PDF"), testActor)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Reconciliation.PreviewStatement(f.ctx, "empty.csv", []byte(""), testActor)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Reconciliation.PreviewStatement(f.ctx, "cols.csv", []byte("foo,bar\n1,2\n"), testActor)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
