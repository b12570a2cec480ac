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

// ApplyPaymentInput moves Amount from a payment pool entry into an invoice.
type ApplyPaymentInput struct {
	InvoiceID uint
	LedgerID  uint
	Amount    decimal.Decimal
	Note      string
	ActorID   uint
}

// AllocationService applies received funds to invoices.
type AllocationService struct {
	repos   *repository.Repositories
	invoice *InvoiceLedgerService
	now     func() time.Time
	log     *slog.Logger
}

// NewAllocationService creates the payment allocation engine
func NewAllocationService(repos *repository.Repositories, invoice *InvoiceLedgerService) *AllocationService {
	return &AllocationService{
		repos:   repos,
		invoice: invoice,
		now:     time.Now,
		log:     logger.With("allocation"),
	}
}

// ApplyPayment reads, checks and decrements the invoice and the pool entry in
// one transaction. The invoice row is locked before the ledger row.
func (s *AllocationService) ApplyPayment(ctx context.Context, in ApplyPaymentInput) (*models.PaymentApplication, error) {
	if err := money.ValidatePositive(in.Amount); err != nil {
		return nil, ErrInvalidAmount.WithMessage("%v", err)
	}

	var application *models.PaymentApplication
	err := s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		inv, err := tx.Invoice.FindByIDForUpdate(ctx, in.InvoiceID)
		if err != nil {
			return translate(err, ErrInvoiceNotFound)
		}
		ledger, err := tx.Ledger.FindByIDForUpdate(ctx, in.LedgerID)
		if err != nil {
			return translate(err, ErrLedgerNotFound)
		}

		if in.Amount.GreaterThan(ledger.Remaining) {
			return ErrAmountExceedsLedgerRemaining.WithMessage("amount %s exceeds remaining %s on ledger %d",
				money.Format(in.Amount), money.Format(ledger.Remaining), ledger.ID)
		}
		if in.Amount.GreaterThan(inv.OutstandingAmount) {
			return ErrAmountExceedsOutstanding.WithMessage("amount %s exceeds outstanding %s on invoice %d",
				money.Format(in.Amount), money.Format(inv.OutstandingAmount), inv.ID)
		}

		application = &models.PaymentApplication{
			InvoiceID: inv.ID,
			LedgerID:  ledger.ID,
			Amount:    in.Amount,
			Note:      in.Note,
			AppliedAt: s.now(),
			CreatedBy: in.ActorID,
		}
		if err := tx.PaymentApplication.Create(ctx, application); err != nil {
			return err
		}

		ledger.Remaining = ledger.Remaining.Sub(in.Amount)
		if !ledger.WithinBounds() {
			return invariantf("ledger %d remaining %s outside [0, %s]", ledger.ID, money.Format(ledger.Remaining), money.Format(ledger.Amount))
		}
		allocated, err := tx.PaymentApplication.SumByLedgerID(ctx, ledger.ID)
		if err != nil {
			return err
		}
		if !ledger.Amount.Sub(allocated).Equal(ledger.Remaining) {
			return invariantf("ledger %d remaining %s does not match allocations %s", ledger.ID, money.Format(ledger.Remaining), money.Format(allocated))
		}
		if err := tx.Ledger.UpdateRemaining(ctx, ledger); err != nil {
			return translate(err, ErrLedgerNotFound)
		}

		return s.invoice.DecrementOutstanding(ctx, tx, inv, in.Amount, BalanceSource{
			Kind:        models.EventTypePaymentApplied,
			ID:          application.ID,
			ActorID:     in.ActorID,
			Description: fmt.Sprintf("payment of %s from ledger %d", money.Format(in.Amount), ledger.ID),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Payment applied",
		"invoice_id", in.InvoiceID, "ledger_id", in.LedgerID,
		"amount", money.Format(in.Amount), "actor_id", in.ActorID)
	return application, nil
}
