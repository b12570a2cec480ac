package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sjperalta/village-settlement-api/internal/jobs"
	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/repository"
	"github.com/sjperalta/village-settlement-api/internal/statement"
	"github.com/sjperalta/village-settlement-api/internal/statemachine"
	"github.com/sjperalta/village-settlement-api/internal/storage"
	"github.com/sjperalta/village-settlement-api/pkg/logger"
	"github.com/sjperalta/village-settlement-api/pkg/money"
)

// FileStore keeps uploaded statement files between preview and confirm.
type FileStore interface {
	Save(data []byte, filename string, subDir string) (string, error)
	Read(relativePath string) ([]byte, error)
	Delete(relativePath string) error
}

// ReconciliationConfig tunes candidate search.
type ReconciliationConfig struct {
	AmountTolerance decimal.Decimal
	DateWindowDays  int
}

// Candidate is an unmatched bank row that could belong to a pay-in.
type Candidate struct {
	Transaction      models.BankTransaction
	AmountDifference decimal.Decimal
	DaysApart        int
}

// PreviewRow is one parsed line with its duplicate flag.
type PreviewRow struct {
	Line        int    `json:"line"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Duplicate   bool   `json:"duplicate"`
}

// StatementPreview is what the operator reviews before confirming.
type StatementPreview struct {
	Token           string               `json:"token"`
	Filename        string               `json:"filename"`
	Fingerprint     string               `json:"fingerprint"`
	RowCount        int                  `json:"row_count"`
	NewCount        int                  `json:"new_count"`
	DuplicateCount  int                  `json:"duplicate_count"`
	TotalAmount     string               `json:"total_amount"`
	AlreadyImported bool                 `json:"already_imported"`
	Rows            []PreviewRow         `json:"rows"`
	Errors          []statement.RowError `json:"errors"`
}

// ReconciliationService links bank statement rows to pay-in reports and runs
// the upload, preview and confirm pipeline. It never changes a balance.
type ReconciliationService struct {
	repos  *repository.Repositories
	store  FileStore
	audit  *AuditService
	worker *jobs.Worker
	cfg    ReconciliationConfig
	now    func() time.Time
	log    *slog.Logger
}

// NewReconciliationService creates the bank transaction reconciler
func NewReconciliationService(repos *repository.Repositories, store FileStore, audit *AuditService, worker *jobs.Worker, cfg ReconciliationConfig) *ReconciliationService {
	return &ReconciliationService{
		repos:  repos,
		store:  store,
		audit:  audit,
		worker: worker,
		cfg:    cfg,
		now:    time.Now,
		log:    logger.With("reconciliation"),
	}
}

// Match links a bank transaction and a pay-in, 1:1 from both sides.
// Matching the same pair again is a no-op.
func (s *ReconciliationService) Match(ctx context.Context, transactionID, payinID, actorID uint) (*models.BankTransaction, error) {
	var out *models.BankTransaction
	err := s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		t, err := tx.BankTransaction.FindByIDForUpdate(ctx, transactionID)
		if err != nil {
			return translate(err, ErrTransactionNotFound)
		}
		p, err := tx.Payin.FindByIDForUpdate(ctx, payinID)
		if err != nil {
			return translate(err, ErrPayinNotFound)
		}
		out = t

		if t.IsMatched() {
			if t.MatchedPayinID != nil && *t.MatchedPayinID == p.ID {
				return nil
			}
			return ErrAlreadyMatched.WithMessage("bank transaction %d is matched to pay-in %d", t.ID, derefID(t.MatchedPayinID))
		}
		if p.IsLinked() && *p.BankTransactionID != t.ID {
			return ErrPayinAlreadyLinked.WithMessage("pay-in %d is linked to bank transaction %d", p.ID, *p.BankTransactionID)
		}

		if err := statemachine.NewBankTransactionFSM(t).Match(ctx, p.ID, actorID, s.now()); err != nil {
			return ErrAlreadyMatched.WithMessage("%v", err)
		}
		if err := tx.BankTransaction.UpdateMatch(ctx, t); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrPayinAlreadyLinked
			}
			return translate(err, ErrTransactionNotFound)
		}

		transactionRef := t.ID
		p.BankTransactionID = &transactionRef
		if err := tx.Payin.Update(ctx, p); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrAlreadyMatched
			}
			return translate(err, ErrPayinNotFound)
		}

		return s.audit.Log(ctx, tx.Audit, actorID, models.AuditActionMatch, "BankTransaction", t.ID,
			fmt.Sprintf("matched to pay-in %d (amount %s)", p.ID, money.Format(t.Amount)))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Unmatch clears the link. Unmatching an unmatched row succeeds and changes
// nothing.
func (s *ReconciliationService) Unmatch(ctx context.Context, transactionID, actorID uint) (*models.BankTransaction, error) {
	var out *models.BankTransaction
	err := s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		t, err := tx.BankTransaction.FindByIDForUpdate(ctx, transactionID)
		if err != nil {
			return translate(err, ErrTransactionNotFound)
		}
		out = t
		machine := statemachine.NewBankTransactionFSM(t)
		if !machine.Can("unmatch") {
			return nil
		}

		payinID := derefID(t.MatchedPayinID)
		if err := machine.Unmatch(ctx); err != nil {
			return err
		}
		if err := tx.BankTransaction.UpdateMatch(ctx, t); err != nil {
			return translate(err, ErrTransactionNotFound)
		}

		p, err := tx.Payin.FindByIDForUpdate(ctx, payinID)
		switch {
		case repository.IsNotFound(err):
		case err != nil:
			return translate(err, nil)
		case p.IsLinked() && *p.BankTransactionID == t.ID:
			p.BankTransactionID = nil
			if err := tx.Payin.Update(ctx, p); err != nil {
				return translate(err, ErrPayinNotFound)
			}
		}

		return s.audit.Log(ctx, tx.Audit, actorID, models.AuditActionUnmatch, "BankTransaction", t.ID,
			fmt.Sprintf("unmatched from pay-in %d", payinID))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListCandidates returns unmatched bank rows near the pay-in's amount and
// date, closest first. It never matches anything.
func (s *ReconciliationService) ListCandidates(ctx context.Context, payinID uint) ([]Candidate, error) {
	p, err := s.repos.Payin.FindByID(ctx, payinID)
	if err != nil {
		return nil, translate(err, ErrPayinNotFound)
	}
	if p.IsLinked() {
		return []Candidate{}, nil
	}

	day := dateOnly(p.PaidAt)
	window := s.cfg.DateWindowDays
	from := day.AddDate(0, 0, -window)
	to := day.AddDate(0, 0, window)

	rows, err := s.repos.BankTransaction.FindUnmatchedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, t := range rows {
		diff := money.Abs(t.Amount.Sub(p.Amount))
		if diff.GreaterThan(s.cfg.AmountTolerance) {
			continue
		}
		candidates = append(candidates, Candidate{
			Transaction:      t,
			AmountDifference: diff,
			DaysApart:        daysBetween(day, dateOnly(t.Date)),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.AmountDifference.Equal(b.AmountDifference) {
			return a.AmountDifference.LessThan(b.AmountDifference)
		}
		if a.DaysApart != b.DaysApart {
			return a.DaysApart < b.DaysApart
		}
		return a.Transaction.ID < b.Transaction.ID
	})
	return candidates, nil
}

// PreviewStatement parses an upload and diffs it against stored bank
// transactions. The file and a PREVIEWED import record are kept so the
// operator can confirm by token; no bank transaction is written.
func (s *ReconciliationService) PreviewStatement(ctx context.Context, filename string, data []byte, actorID uint) (*StatementPreview, error) {
	if !storage.IsStatementFile(filename) {
		return nil, ErrInvalidInput.WithMessage("unsupported statement file %q, expected .csv or .xlsx", filename)
	}
	parsed, err := statement.Parse(filename, data)
	if err != nil {
		return nil, ErrInvalidInput.WithMessage("%v", err)
	}

	fingerprint := statement.Fingerprint(data)
	alreadyImported := true
	if _, err := s.repos.StatementImport.FindConfirmedByFingerprint(ctx, fingerprint); err != nil {
		if !repository.IsNotFound(err) {
			return nil, err
		}
		alreadyImported = false
	}

	existing, err := s.repos.BankTransaction.FindExistingHashes(ctx, rowHashes(parsed.Rows))
	if err != nil {
		return nil, err
	}

	preview := &StatementPreview{
		Filename:        filename,
		Fingerprint:     fingerprint,
		RowCount:        len(parsed.Rows),
		TotalAmount:     money.Format(parsed.Total),
		AlreadyImported: alreadyImported,
		Rows:            make([]PreviewRow, 0, len(parsed.Rows)),
		Errors:          parsed.Errors,
	}
	for _, row := range parsed.Rows {
		dup := existing[row.Hash()]
		if dup {
			preview.DuplicateCount++
		} else {
			preview.NewCount++
		}
		preview.Rows = append(preview.Rows, PreviewRow{
			Line:        row.Line,
			Date:        row.Date.Format("2006-01-02"),
			Amount:      money.Format(row.Amount),
			Description: row.Description,
			Duplicate:   dup,
		})
	}

	path, err := s.store.Save(data, filename, storage.StatementsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to store statement: %w", err)
	}

	imp := &models.StatementImport{
		Token:       uuid.NewString(),
		Filename:    filename,
		FilePath:    path,
		Fingerprint: fingerprint,
		Status:      models.ImportStatusPreviewed,
		RowCount:    preview.RowCount,
		NewCount:    preview.NewCount,
		TotalAmount: parsed.Total,
		CreatedBy:   actorID,
	}
	if err := s.repos.StatementImport.Create(ctx, imp); err != nil {
		return nil, err
	}
	preview.Token = imp.Token

	s.log.Info("Statement previewed", "token", imp.Token, "rows", preview.RowCount,
		"new", preview.NewCount, "errors", len(preview.Errors), "already_imported", alreadyImported)
	return preview, nil
}

// ConfirmImport persists the previewed rows that are not already stored, as
// UNMATCHED bank transactions under a new batch id.
func (s *ReconciliationService) ConfirmImport(ctx context.Context, token string, actorID uint) (*models.StatementImport, error) {
	var out *models.StatementImport
	err := s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		imp, err := tx.StatementImport.FindByTokenForUpdate(ctx, token)
		if err != nil {
			return translate(err, ErrImportNotFound)
		}
		switch imp.Status {
		case models.ImportStatusConfirmed:
			return ErrImportAlreadyConfirmed
		case models.ImportStatusDiscarded:
			return ErrInvalidImportState.WithMessage("statement import %s was discarded", token)
		}
		machine := statemachine.NewStatementImportFSM(imp)
		if !machine.Can("confirm") {
			return ErrInvalidImportState.WithMessage("statement import %s is %s", token, imp.Status)
		}

		other, err := tx.StatementImport.FindConfirmedByFingerprint(ctx, imp.Fingerprint)
		if err == nil && other.ID != imp.ID {
			return ErrDuplicateImport.WithMessage("same file was confirmed as import %s", other.Token)
		}
		if err != nil && !repository.IsNotFound(err) {
			return err
		}

		data, err := s.store.Read(imp.FilePath)
		if err != nil {
			return fmt.Errorf("failed to read stored statement: %w", err)
		}
		parsed, err := statement.Parse(imp.Filename, data)
		if err != nil {
			return ErrInvalidInput.WithMessage("%v", err)
		}

		existing, err := tx.BankTransaction.FindExistingHashes(ctx, rowHashes(parsed.Rows))
		if err != nil {
			return err
		}

		batchID := uuid.NewString()
		rows := make([]models.BankTransaction, 0, len(parsed.Rows))
		total := decimal.Zero
		for _, row := range parsed.Rows {
			hash := row.Hash()
			if existing[hash] {
				continue
			}
			rows = append(rows, models.BankTransaction{
				BatchID:     batchID,
				ImportID:    imp.ID,
				Amount:      row.Amount,
				Date:        row.Date,
				Description: row.Description,
				RowHash:     hash,
				MatchState:  models.MatchStateUnmatched,
			})
			total = total.Add(row.Amount)
		}
		if err := tx.BankTransaction.CreateBatch(ctx, rows); err != nil {
			return err
		}

		if err := machine.Confirm(ctx, batchID, actorID, s.now()); err != nil {
			return ErrInvalidImportState.WithMessage("%v", err)
		}
		imp.NewCount = len(rows)
		if err := tx.StatementImport.Update(ctx, imp); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrDuplicateImport
			}
			return err
		}
		out = imp

		return s.audit.Log(ctx, tx.Audit, actorID, models.AuditActionImportConfirm, "StatementImport", imp.ID,
			fmt.Sprintf("batch %s: %d rows, total %s", batchID, len(rows), money.Format(total)))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Statement import confirmed", "token", token, "batch_id", *out.BatchID, "rows", out.NewCount, "actor_id", actorID)
	return out, nil
}

// DiscardImport drops a preview. Discarding twice is a no-op.
func (s *ReconciliationService) DiscardImport(ctx context.Context, token string, actorID uint) (*models.StatementImport, error) {
	var out *models.StatementImport
	discarded := false
	err := s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		imp, err := tx.StatementImport.FindByTokenForUpdate(ctx, token)
		if err != nil {
			return translate(err, ErrImportNotFound)
		}
		out = imp
		switch imp.Status {
		case models.ImportStatusDiscarded:
			return nil
		case models.ImportStatusConfirmed:
			return ErrImportAlreadyConfirmed
		}

		if err := statemachine.NewStatementImportFSM(imp).Discard(ctx); err != nil {
			return ErrInvalidImportState.WithMessage("%v", err)
		}
		if err := tx.StatementImport.Update(ctx, imp); err != nil {
			return err
		}
		discarded = true
		return s.audit.Log(ctx, tx.Audit, actorID, models.AuditActionImportDiscard, "StatementImport", imp.ID, imp.Filename)
	})
	if err != nil {
		return nil, err
	}

	if discarded && s.worker != nil {
		path := out.FilePath
		s.worker.EnqueueAsync("statement_cleanup", func(ctx context.Context) error {
			return s.store.Delete(path)
		})
	}
	return out, nil
}

// GetTransaction returns one bank transaction
func (s *ReconciliationService) GetTransaction(ctx context.Context, id uint) (*models.BankTransaction, error) {
	t, err := s.repos.BankTransaction.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrTransactionNotFound)
	}
	return t, nil
}

// ListTransactions lists bank transactions (filters: batch_id, match_state)
func (s *ReconciliationService) ListTransactions(ctx context.Context, query *repository.ListQuery) ([]models.BankTransaction, int64, error) {
	return s.repos.BankTransaction.List(ctx, query)
}

// ListImports lists statement uploads (filter: status)
func (s *ReconciliationService) ListImports(ctx context.Context, query *repository.ListQuery) ([]models.StatementImport, int64, error) {
	return s.repos.StatementImport.List(ctx, query)
}

func rowHashes(rows []statement.Row) []string {
	hashes := make([]string, len(rows))
	for i, row := range rows {
		hashes[i] = row.Hash()
	}
	return hashes
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	days := int(b.Sub(a).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

func derefID(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}
