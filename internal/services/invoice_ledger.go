package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/repository"
	"github.com/sjperalta/village-settlement-api/pkg/logger"
	"github.com/sjperalta/village-settlement-api/pkg/money"
)

// SystemActorID attributes changes made by scheduled jobs.
const SystemActorID uint = 0

// BalanceSource describes what is drawing an invoice down.
type BalanceSource struct {
	Kind        string // models.EventTypePaymentApplied or models.EventTypeCreditIssued
	ID          uint   // payment application or credit note id
	ActorID     uint
	Description string
}

// Verification is the result of recomputing an invoice from its history.
type Verification struct {
	InvoiceID      uint     `json:"invoice_id"`
	Total          string   `json:"total"`
	Cached         string   `json:"cached_outstanding"`
	Expected       string   `json:"expected_outstanding"`
	Paid           string   `json:"paid"`
	Credited       string   `json:"credited"`
	Status         string   `json:"status"`
	ExpectedStatus string   `json:"expected_status"`
	OK             bool     `json:"ok"`
	Problems       []string `json:"problems,omitempty"`
}

// InvoiceLedgerService owns each invoice's outstanding balance and status.
// Every balance change goes through DecrementOutstanding.
type InvoiceLedgerService struct {
	repos *repository.Repositories
	now   func() time.Time
	log   *slog.Logger
}

// NewInvoiceLedgerService creates the invoice ledger
func NewInvoiceLedgerService(repos *repository.Repositories) *InvoiceLedgerService {
	return &InvoiceLedgerService{
		repos: repos,
		now:   time.Now,
		log:   logger.With("invoice_ledger"),
	}
}

// GetOutstanding returns the cached outstanding balance.
func (s *InvoiceLedgerService) GetOutstanding(ctx context.Context, invoiceID uint) (decimal.Decimal, error) {
	inv, err := s.repos.Invoice.FindByID(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, translate(err, ErrInvoiceNotFound)
	}
	return inv.OutstandingAmount, nil
}

// DecrementOutstanding lowers inv's outstanding by amount, recomputes its
// status and appends an invoice event. It must run inside tx with inv already
// row-locked, after the application or credit note for src has been created,
// so that conservation can be checked against the full history.
func (s *InvoiceLedgerService) DecrementOutstanding(ctx context.Context, tx *repository.Repositories, inv *models.Invoice, amount decimal.Decimal, src BalanceSource) error {
	if money.ValidatePositive(amount) != nil {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(inv.OutstandingAmount) {
		return ErrInsufficientOutstanding.WithMessage("decrement %s exceeds outstanding %s", money.Format(amount), money.Format(inv.OutstandingAmount))
	}

	before := inv.OutstandingAmount
	inv.OutstandingAmount = before.Sub(amount)
	if !inv.WithinBounds() {
		return invariantf("invoice %d outstanding %s outside [0, %s]", inv.ID, money.Format(inv.OutstandingAmount), money.Format(inv.TotalAmount))
	}

	paid, credited, err := s.totals(ctx, tx, inv.ID)
	if err != nil {
		return err
	}
	expected := inv.TotalAmount.Sub(paid).Sub(credited)
	if !expected.Equal(inv.OutstandingAmount) {
		return invariantf("invoice %d outstanding %s does not match history %s", inv.ID, money.Format(inv.OutstandingAmount), money.Format(expected))
	}

	inv.Status = inv.DeriveStatus(paid, credited, s.now())
	if err := tx.Invoice.UpdateBalance(ctx, inv); err != nil {
		return translate(err, ErrInvoiceNotFound)
	}

	sourceID := src.ID
	return tx.InvoiceEvent.Create(ctx, &models.InvoiceEvent{
		InvoiceID:         inv.ID,
		EventType:         src.Kind,
		SourceID:          &sourceID,
		Amount:            amount,
		OutstandingBefore: before,
		OutstandingAfter:  inv.OutstandingAmount,
		StatusAfter:       inv.Status,
		Description:       src.Description,
		ActorID:           src.ActorID,
		CreatedAt:         s.now(),
	})
}

// RecomputeStatus re-derives the status without touching the balance. It
// reports whether the status changed.
func (s *InvoiceLedgerService) RecomputeStatus(ctx context.Context, invoiceID, actorID uint) (*models.Invoice, bool, error) {
	var (
		out     *models.Invoice
		changed bool
	)
	err := s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		inv, err := tx.Invoice.FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return translate(err, ErrInvoiceNotFound)
		}
		out = inv

		paid, credited, err := s.totals(ctx, tx, inv.ID)
		if err != nil {
			return err
		}

		status := inv.DeriveStatus(paid, credited, s.now())
		if status == inv.Status {
			return nil
		}

		previous := inv.Status
		inv.Status = status
		if err := tx.Invoice.UpdateBalance(ctx, inv); err != nil {
			return translate(err, ErrInvoiceNotFound)
		}
		changed = true

		return tx.InvoiceEvent.Create(ctx, &models.InvoiceEvent{
			InvoiceID:         inv.ID,
			EventType:         models.EventTypeStatusChanged,
			Amount:            decimal.Zero,
			OutstandingBefore: inv.OutstandingAmount,
			OutstandingAfter:  inv.OutstandingAmount,
			StatusAfter:       status,
			Description:       fmt.Sprintf("status %s -> %s", previous, status),
			ActorID:           actorID,
			CreatedAt:         s.now(),
		})
	})
	if err != nil {
		return nil, false, err
	}
	return out, changed, nil
}

// MarkOverdue moves untouched invoices past their due date to OVERDUE, one
// transaction per invoice, and returns how many changed.
func (s *InvoiceLedgerService) MarkOverdue(ctx context.Context) (int, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	candidates, err := s.repos.Invoice.FindPastDue(ctx, today)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, inv := range candidates {
		if err := ctx.Err(); err != nil {
			return marked, err
		}
		_, changed, err := s.RecomputeStatus(ctx, inv.ID, SystemActorID)
		if err != nil {
			// one contended invoice must not stop the sweep
			s.log.Warn("Overdue sweep skipped invoice", "invoice_id", inv.ID, "error", err)
			continue
		}
		if changed {
			marked++
		}
	}

	s.log.Info("Overdue sweep finished", "candidates", len(candidates), "marked", marked)
	return marked, nil
}

// VerifyInvoice recomputes outstanding and status from the invoice's
// applications and credit notes. Drift is returned as an invariant error
// alongside the report.
func (s *InvoiceLedgerService) VerifyInvoice(ctx context.Context, invoiceID uint) (*Verification, error) {
	inv, err := s.repos.Invoice.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, translate(err, ErrInvoiceNotFound)
	}

	paid, credited, err := s.totals(ctx, s.repos, inv.ID)
	if err != nil {
		return nil, err
	}

	expected := inv.TotalAmount.Sub(paid).Sub(credited)
	expectedStatus := inv.DeriveStatus(paid, credited, s.now())

	v := &Verification{
		InvoiceID:      inv.ID,
		Total:          money.Format(inv.TotalAmount),
		Cached:         money.Format(inv.OutstandingAmount),
		Expected:       money.Format(expected),
		Paid:           money.Format(paid),
		Credited:       money.Format(credited),
		Status:         inv.Status,
		ExpectedStatus: expectedStatus,
	}

	if !expected.Equal(inv.OutstandingAmount) {
		v.Problems = append(v.Problems, fmt.Sprintf("cached outstanding %s, history gives %s", v.Cached, v.Expected))
	}
	if !inv.WithinBounds() {
		v.Problems = append(v.Problems, "outstanding outside [0, total]")
	}
	if expected.IsNegative() {
		v.Problems = append(v.Problems, "applications and credits exceed total")
	}
	// ISSUED vs OVERDUE only differs by the clock; the sweep reconciles it
	if expectedStatus != inv.Status && !(isUntouchedStatus(expectedStatus) && isUntouchedStatus(inv.Status)) {
		v.Problems = append(v.Problems, fmt.Sprintf("status %s, history gives %s", inv.Status, expectedStatus))
	}

	v.OK = len(v.Problems) == 0
	if !v.OK {
		return v, invariantf("invoice %d failed verification: %v", inv.ID, v.Problems)
	}
	return v, nil
}

// VerifyAll checks every invoice and returns the ones that drifted.
func (s *InvoiceLedgerService) VerifyAll(ctx context.Context) (int, []Verification, error) {
	ids, err := s.repos.Invoice.FindIDs(ctx)
	if err != nil {
		return 0, nil, err
	}

	var drifted []Verification
	for _, id := range ids {
		v, err := s.VerifyInvoice(ctx, id)
		if v == nil {
			return 0, nil, err
		}
		if !v.OK {
			s.log.Error("Invoice failed verification", "invoice_id", id, "problems", v.Problems)
			drifted = append(drifted, *v)
		}
	}
	return len(ids), drifted, nil
}

func (s *InvoiceLedgerService) totals(ctx context.Context, repos *repository.Repositories, invoiceID uint) (paid, credited decimal.Decimal, err error) {
	paid, err = repos.PaymentApplication.SumByInvoiceID(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	credited, err = repos.CreditNote.SumByInvoiceID(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return paid, credited, nil
}

func isUntouchedStatus(status string) bool {
	return status == models.InvoiceStatusIssued || status == models.InvoiceStatusOverdue
}
