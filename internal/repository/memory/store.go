// Package memory is an in-process implementation of the repository
// interfaces. Transactions are serialized by a single mutex and rolled back by
// restoring a snapshot, which makes it suitable for tests and dry runs.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/repository"
)

type state struct {
	seq          map[string]uint
	invoices     map[uint]models.Invoice
	events       map[uint]models.InvoiceEvent
	ledgers      map[uint]models.Ledger
	applications map[uint]models.PaymentApplication
	creditNotes  map[uint]models.CreditNote
	payins       map[uint]models.PayinReport
	transactions map[uint]models.BankTransaction
	imports      map[uint]models.StatementImport
	promotions   map[uint]models.Promotion
	audits       map[uint]models.AuditLog
}

func newState() *state {
	return &state{
		seq:          make(map[string]uint),
		invoices:     make(map[uint]models.Invoice),
		events:       make(map[uint]models.InvoiceEvent),
		ledgers:      make(map[uint]models.Ledger),
		applications: make(map[uint]models.PaymentApplication),
		creditNotes:  make(map[uint]models.CreditNote),
		payins:       make(map[uint]models.PayinReport),
		transactions: make(map[uint]models.BankTransaction),
		imports:      make(map[uint]models.StatementImport),
		promotions:   make(map[uint]models.Promotion),
		audits:       make(map[uint]models.AuditLog),
	}
}

func (s *state) clone() *state {
	return &state{
		seq:          maps.Clone(s.seq),
		invoices:     maps.Clone(s.invoices),
		events:       maps.Clone(s.events),
		ledgers:      maps.Clone(s.ledgers),
		applications: maps.Clone(s.applications),
		creditNotes:  maps.Clone(s.creditNotes),
		payins:       maps.Clone(s.payins),
		transactions: maps.Clone(s.transactions),
		imports:      maps.Clone(s.imports),
		promotions:   maps.Clone(s.promotions),
		audits:       maps.Clone(s.audits),
	}
}

func (s *state) next(table string) uint {
	s.seq[table]++
	return s.seq[table]
}

// Store owns the in-memory tables.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// New returns repositories backed by a fresh, empty store.
func New() *repository.Repositories {
	return NewStore().Repositories()
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

// Repositories returns auto-committing repositories bound to the store.
func (s *Store) Repositories() *repository.Repositories {
	return s.repositories(false)
}

func (s *Store) repositories(inTx bool) *repository.Repositories {
	b := base{s: s, inTx: inTx}
	return &repository.Repositories{
		Transactor:         &transactor{base: b},
		Invoice:            &invoiceRepository{base: b},
		InvoiceEvent:       &invoiceEventRepository{base: b},
		Ledger:             &ledgerRepository{base: b},
		PaymentApplication: &paymentApplicationRepository{base: b},
		CreditNote:         &creditNoteRepository{base: b},
		Payin:              &payinRepository{base: b},
		BankTransaction:    &bankTransactionRepository{base: b},
		StatementImport:    &statementImportRepository{base: b},
		Promotion:          &promotionRepository{base: b},
		Audit:              &auditRepository{base: b},
	}
}

type base struct {
	s    *Store
	inTx bool
}

// with runs fn against the live tables. Outside a transaction each call takes
// the store lock; inside one the lock is already held by Atomic.
func (b base) with(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.inTx {
		b.s.mu.Lock()
		defer b.s.mu.Unlock()
	}
	return fn(b.s.st)
}

func (b base) now() time.Time {
	return b.s.now()
}

type transactor struct {
	base
}

func (t *transactor) Atomic(ctx context.Context, fn func(tx *repository.Repositories) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.inTx {
		return fn(t.s.repositories(true))
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	snapshot := t.s.st.clone()
	defer func() {
		if r := recover(); r != nil {
			t.s.st = snapshot
			panic(r)
		}
		if err != nil {
			t.s.st = snapshot
		}
	}()

	return fn(t.s.repositories(true))
}

// list sorts rows by key (ties broken by id) and applies paging.
func list[T any](rows []T, query *repository.ListQuery, key func(T) time.Time, id func(T) uint) ([]T, int64) {
	asc := query.SortDir == "asc"
	sort.SliceStable(rows, func(i, j int) bool {
		ki, kj := key(rows[i]), key(rows[j])
		if !ki.Equal(kj) {
			if asc {
				return ki.Before(kj)
			}
			return ki.After(kj)
		}
		return id(rows[i]) < id(rows[j])
	})

	total := int64(len(rows))
	if query.PerPage <= 0 {
		return rows, total
	}
	start := query.Offset()
	if start >= len(rows) {
		return []T{}, total
	}
	end := start + query.PerPage
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], total
}

func sortByID[T any](rows []T, id func(T) uint) []T {
	sort.Slice(rows, func(i, j int) bool { return id(rows[i]) < id(rows[j]) })
	return rows
}
