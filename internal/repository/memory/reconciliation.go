package memory

import (
	"context"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/repository"
)

type payinRepository struct {
	base
}

func (r *payinRepository) Create(ctx context.Context, payin *models.PayinReport) error {
	return r.with(ctx, func(st *state) error {
		payin.ID = st.next("payin_reports")
		if payin.Version == 0 {
			payin.Version = 1
		}
		if payin.Status == "" {
			payin.Status = models.PayinStatusPending
		}
		now := r.now()
		payin.CreatedAt, payin.UpdatedAt = now, now
		st.payins[payin.ID] = *payin
		return nil
	})
}

func (r *payinRepository) FindByID(ctx context.Context, id uint) (*models.PayinReport, error) {
	var out *models.PayinReport
	err := r.with(ctx, func(st *state) error {
		payin, ok := st.payins[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &payin
		return nil
	})
	return out, err
}

func (r *payinRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.PayinReport, error) {
	return r.FindByID(ctx, id)
}

func (r *payinRepository) Update(ctx context.Context, payin *models.PayinReport) error {
	return r.with(ctx, func(st *state) error {
		stored, ok := st.payins[payin.ID]
		if !ok || stored.Version != payin.Version {
			return repository.ErrStaleVersion
		}
		if payin.BankTransactionID != nil {
			for id, other := range st.payins {
				if id != payin.ID && other.BankTransactionID != nil && *other.BankTransactionID == *payin.BankTransactionID {
					return gorm.ErrDuplicatedKey
				}
			}
		}
		stored.Status = payin.Status
		stored.AcceptedAt = payin.AcceptedAt
		stored.AcceptedBy = payin.AcceptedBy
		stored.BankTransactionID = payin.BankTransactionID
		stored.Version++
		stored.UpdatedAt = r.now()
		st.payins[payin.ID] = stored
		payin.Version = stored.Version
		payin.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

type bankTransactionRepository struct {
	base
}

func (r *bankTransactionRepository) CreateBatch(ctx context.Context, transactions []models.BankTransaction) error {
	return r.with(ctx, func(st *state) error {
		now := r.now()
		for i := range transactions {
			t := &transactions[i]
			t.ID = st.next("bank_transactions")
			if t.Version == 0 {
				t.Version = 1
			}
			if t.MatchState == "" {
				t.MatchState = models.MatchStateUnmatched
			}
			t.CreatedAt, t.UpdatedAt = now, now
			st.transactions[t.ID] = *t
		}
		return nil
	})
}

func (r *bankTransactionRepository) FindByID(ctx context.Context, id uint) (*models.BankTransaction, error) {
	var out *models.BankTransaction
	err := r.with(ctx, func(st *state) error {
		t, ok := st.transactions[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r *bankTransactionRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.BankTransaction, error) {
	return r.FindByID(ctx, id)
}

func (r *bankTransactionRepository) UpdateMatch(ctx context.Context, transaction *models.BankTransaction) error {
	return r.with(ctx, func(st *state) error {
		stored, ok := st.transactions[transaction.ID]
		if !ok || stored.Version != transaction.Version {
			return repository.ErrStaleVersion
		}
		if transaction.MatchedPayinID != nil {
			for id, other := range st.transactions {
				if id != transaction.ID && other.MatchedPayinID != nil && *other.MatchedPayinID == *transaction.MatchedPayinID {
					return gorm.ErrDuplicatedKey
				}
			}
		}
		stored.MatchState = transaction.MatchState
		stored.MatchedPayinID = transaction.MatchedPayinID
		stored.MatchedAt = transaction.MatchedAt
		stored.MatchedBy = transaction.MatchedBy
		stored.Version++
		stored.UpdatedAt = r.now()
		st.transactions[transaction.ID] = stored
		transaction.Version = stored.Version
		transaction.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

func (r *bankTransactionRepository) List(ctx context.Context, query *repository.ListQuery) ([]models.BankTransaction, int64, error) {
	var out []models.BankTransaction
	var total int64
	err := r.with(ctx, func(st *state) error {
		batchID := query.Filters["batch_id"]
		matchState := query.Filters["match_state"]
		rows := make([]models.BankTransaction, 0, len(st.transactions))
		for _, t := range st.transactions {
			if batchID != "" && t.BatchID != batchID {
				continue
			}
			if matchState != "" && t.MatchState != matchState {
				continue
			}
			rows = append(rows, t)
		}
		out, total = list(rows, query,
			func(t models.BankTransaction) time.Time { return t.Date },
			func(t models.BankTransaction) uint { return t.ID })
		return nil
	})
	return out, total, err
}

func (r *bankTransactionRepository) FindUnmatchedBetween(ctx context.Context, from, to time.Time) ([]models.BankTransaction, error) {
	var out []models.BankTransaction
	err := r.with(ctx, func(st *state) error {
		for _, t := range st.transactions {
			if t.MatchState == models.MatchStateUnmatched && !t.Date.Before(from) && !t.Date.After(to) {
				out = append(out, t)
			}
		}
		out = sortByID(out, func(t models.BankTransaction) uint { return t.ID })
		return nil
	})
	return out, err
}

func (r *bankTransactionRepository) FindExistingHashes(ctx context.Context, hashes []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	err := r.with(ctx, func(st *state) error {
		wanted := make(map[string]bool, len(hashes))
		for _, h := range hashes {
			wanted[h] = true
		}
		for _, t := range st.transactions {
			if wanted[t.RowHash] {
				existing[t.RowHash] = true
			}
		}
		return nil
	})
	return existing, err
}

type statementImportRepository struct {
	base
}

func (r *statementImportRepository) Create(ctx context.Context, imp *models.StatementImport) error {
	return r.with(ctx, func(st *state) error {
		if err := checkImportUnique(st, imp); err != nil {
			return err
		}
		imp.ID = st.next("statement_imports")
		if imp.Status == "" {
			imp.Status = models.ImportStatusPreviewed
		}
		now := r.now()
		imp.CreatedAt, imp.UpdatedAt = now, now
		st.imports[imp.ID] = *imp
		return nil
	})
}

func (r *statementImportRepository) FindByToken(ctx context.Context, token string) (*models.StatementImport, error) {
	return r.find(ctx, func(imp models.StatementImport) bool { return imp.Token == token })
}

func (r *statementImportRepository) FindByTokenForUpdate(ctx context.Context, token string) (*models.StatementImport, error) {
	return r.FindByToken(ctx, token)
}

func (r *statementImportRepository) FindConfirmedByFingerprint(ctx context.Context, fingerprint string) (*models.StatementImport, error) {
	return r.find(ctx, func(imp models.StatementImport) bool {
		return imp.Fingerprint == fingerprint && imp.Status == models.ImportStatusConfirmed
	})
}

func (r *statementImportRepository) Update(ctx context.Context, imp *models.StatementImport) error {
	return r.with(ctx, func(st *state) error {
		if _, ok := st.imports[imp.ID]; !ok {
			return gorm.ErrRecordNotFound
		}
		if err := checkImportUnique(st, imp); err != nil {
			return err
		}
		imp.UpdatedAt = r.now()
		st.imports[imp.ID] = *imp
		return nil
	})
}

func (r *statementImportRepository) List(ctx context.Context, query *repository.ListQuery) ([]models.StatementImport, int64, error) {
	var out []models.StatementImport
	var total int64
	err := r.with(ctx, func(st *state) error {
		status := query.Filters["status"]
		rows := make([]models.StatementImport, 0, len(st.imports))
		for _, imp := range st.imports {
			if status != "" && imp.Status != status {
				continue
			}
			rows = append(rows, imp)
		}
		out, total = list(rows, query,
			func(imp models.StatementImport) time.Time { return imp.CreatedAt },
			func(imp models.StatementImport) uint { return imp.ID })
		return nil
	})
	return out, total, err
}

func (r *statementImportRepository) find(ctx context.Context, match func(models.StatementImport) bool) (*models.StatementImport, error) {
	var out *models.StatementImport
	err := r.with(ctx, func(st *state) error {
		for _, imp := range sortByID(valuesOf(st.imports), func(i models.StatementImport) uint { return i.ID }) {
			if match(imp) {
				found := imp
				out = &found
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	return out, err
}

// checkImportUnique mirrors the token and confirmed-fingerprint indexes.
func checkImportUnique(st *state, imp *models.StatementImport) error {
	for id, other := range st.imports {
		if id == imp.ID {
			continue
		}
		if other.Token == imp.Token {
			return gorm.ErrDuplicatedKey
		}
		if imp.Status == models.ImportStatusConfirmed && other.Status == models.ImportStatusConfirmed &&
			other.Fingerprint == imp.Fingerprint {
			return gorm.ErrDuplicatedKey
		}
	}
	return nil
}

func valuesOf[K comparable, V any](m map[K]V) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

type promotionRepository struct {
	base
}

func (r *promotionRepository) Create(ctx context.Context, promotion *models.Promotion) error {
	return r.with(ctx, func(st *state) error {
		for _, other := range st.promotions {
			if other.Code == promotion.Code {
				return gorm.ErrDuplicatedKey
			}
		}
		promotion.ID = st.next("promotions")
		now := r.now()
		promotion.CreatedAt, promotion.UpdatedAt = now, now
		st.promotions[promotion.ID] = *promotion
		return nil
	})
}

func (r *promotionRepository) FindByID(ctx context.Context, id uint) (*models.Promotion, error) {
	var out *models.Promotion
	err := r.with(ctx, func(st *state) error {
		p, ok := st.promotions[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *promotionRepository) FindAll(ctx context.Context) ([]models.Promotion, error) {
	var out []models.Promotion
	err := r.with(ctx, func(st *state) error {
		out = sortByID(valuesOf(st.promotions), func(p models.Promotion) uint { return p.ID })
		return nil
	})
	return out, err
}

type auditRepository struct {
	base
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.with(ctx, func(st *state) error {
		entry.ID = st.next("audit_logs")
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = r.now()
		}
		st.audits[entry.ID] = *entry
		return nil
	})
}

func (r *auditRepository) List(ctx context.Context, query *repository.ListQuery) ([]models.AuditLog, int64, error) {
	var out []models.AuditLog
	var total int64
	err := r.with(ctx, func(st *state) error {
		entity := query.Filters["entity"]
		action := query.Filters["action"]
		actorID := query.Filters["actor_id"]
		rows := make([]models.AuditLog, 0, len(st.audits))
		for _, entry := range st.audits {
			if entity != "" && entry.Entity != entity {
				continue
			}
			if action != "" && entry.Action != action {
				continue
			}
			if actorID != "" && strconv.FormatUint(uint64(entry.ActorID), 10) != actorID {
				continue
			}
			rows = append(rows, entry)
		}
		out, total = list(rows, query,
			func(e models.AuditLog) time.Time { return e.CreatedAt },
			func(e models.AuditLog) uint { return e.ID })
		return nil
	})
	return out, total, err
}
