package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/repository"
	"github.com/sjperalta/village-settlement-api/pkg/logger"
	"github.com/sjperalta/village-settlement-api/pkg/money"
)

// IssueCreditNoteInput describes a credit note. Amount is ignored when
// IsFullCredit is set; the note then covers whatever is outstanding.
type IssueCreditNoteInput struct {
	InvoiceID    uint
	Amount       decimal.Decimal
	Reason       string
	IsFullCredit bool
	ActorID      uint
}

// CreditNoteService issues immutable credit notes. There is no edit or void
// path; a mistaken credit is corrected with a new manual invoice.
type CreditNoteService struct {
	repos   *repository.Repositories
	invoice *InvoiceLedgerService
	now     func() time.Time
	log     *slog.Logger
}

// NewCreditNoteService creates the credit note issuer
func NewCreditNoteService(repos *repository.Repositories, invoice *InvoiceLedgerService) *CreditNoteService {
	return &CreditNoteService{
		repos:   repos,
		invoice: invoice,
		now:     time.Now,
		log:     logger.With("credit_notes"),
	}
}

// Issue creates the credit note and draws the invoice down in one transaction.
func (s *CreditNoteService) Issue(ctx context.Context, in IssueCreditNoteInput) (*models.CreditNote, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if !in.IsFullCredit {
		if err := money.ValidatePositive(in.Amount); err != nil {
			return nil, ErrInvalidAmount.WithMessage("%v", err)
		}
	}

	var note *models.CreditNote
	err := s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		inv, err := tx.Invoice.FindByIDForUpdate(ctx, in.InvoiceID)
		if err != nil {
			return translate(err, ErrInvoiceNotFound)
		}
		if inv.IsSettled() {
			return ErrInvoiceFullyCredited
		}

		amount := in.Amount
		if in.IsFullCredit {
			amount = inv.OutstandingAmount
		}
		if amount.GreaterThan(inv.OutstandingAmount) {
			return ErrCreditExceedsOutstanding.WithMessage("credit %s exceeds outstanding %s on invoice %d",
				money.Format(amount), money.Format(inv.OutstandingAmount), inv.ID)
		}

		note = &models.CreditNote{
			InvoiceID:    inv.ID,
			CreditAmount: amount,
			Reason:       reason,
			IsFullCredit: in.IsFullCredit,
			CreatedAt:    s.now(),
			CreatedBy:    in.ActorID,
		}
		if err := tx.CreditNote.Create(ctx, note); err != nil {
			return err
		}

		return s.invoice.DecrementOutstanding(ctx, tx, inv, amount, BalanceSource{
			Kind:        models.EventTypeCreditIssued,
			ID:          note.ID,
			ActorID:     in.ActorID,
			Description: fmt.Sprintf("credit note of %s: %s", money.Format(amount), reason),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Credit note issued",
		"invoice_id", in.InvoiceID, "credit_note_id", note.ID,
		"amount", money.Format(note.CreditAmount), "full", note.IsFullCredit, "actor_id", in.ActorID)
	return note, nil
}

// List returns the credit notes of an invoice
func (s *CreditNoteService) List(ctx context.Context, invoiceID uint) ([]models.CreditNote, error) {
	if _, err := s.repos.Invoice.FindByID(ctx, invoiceID); err != nil {
		return nil, translate(err, ErrInvoiceNotFound)
	}
	return s.repos.CreditNote.FindByInvoiceID(ctx, invoiceID)
}
