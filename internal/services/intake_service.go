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
	"github.com/sjperalta/village-settlement-api/internal/statemachine"
	"github.com/sjperalta/village-settlement-api/pkg/logger"
	"github.com/sjperalta/village-settlement-api/pkg/money"
)

// IssueInvoiceInput creates an invoice for a house.
type IssueInvoiceInput struct {
	HouseID  uint
	Total    decimal.Decimal
	DueDate  time.Time
	IsManual bool
	Label    string
	ActorID  uint
}

// SubmitPayinInput records a resident's payment claim.
type SubmitPayinInput struct {
	HouseID uint
	Amount  decimal.Decimal
	PaidAt  time.Time
	Note    string
	ActorID uint
}

// InvoiceDetail is an invoice with its full settlement history.
type InvoiceDetail struct {
	Invoice      *models.Invoice
	Applications []models.PaymentApplication
	CreditNotes  []models.CreditNote
	Events       []models.InvoiceEvent
}

// LedgerDetail is a payment pool entry with its allocations.
type LedgerDetail struct {
	Ledger       *models.Ledger
	Applications []models.PaymentApplication
}

// IntakeService is the collaborator surface: it creates the invoices and
// payment pool entries the engine works on, and serves their read models.
type IntakeService struct {
	repos *repository.Repositories
	audit *AuditService
	now   func() time.Time
	log   *slog.Logger
}

// NewIntakeService creates the intake service
func NewIntakeService(repos *repository.Repositories, audit *AuditService) *IntakeService {
	return &IntakeService{
		repos: repos,
		audit: audit,
		now:   time.Now,
		log:   logger.With("intake"),
	}
}

// IssueInvoice creates an ISSUED invoice whose outstanding equals its total.
func (s *IntakeService) IssueInvoice(ctx context.Context, in IssueInvoiceInput) (*models.Invoice, error) {
	if in.HouseID == 0 {
		return nil, ErrInvalidInput.WithMessage("house_id is required")
	}
	if err := money.ValidatePositive(in.Total); err != nil {
		return nil, ErrInvalidAmount.WithMessage("%v", err)
	}
	if in.DueDate.IsZero() {
		return nil, ErrInvalidInput.WithMessage("due_date is required")
	}
	label := strings.TrimSpace(in.Label)
	if in.IsManual && label == "" {
		return nil, ErrReasonRequired.WithMessage("manual invoices need a reason")
	}

	inv := &models.Invoice{
		HouseID:           in.HouseID,
		TotalAmount:       in.Total,
		OutstandingAmount: in.Total,
		Status:            models.InvoiceStatusIssued,
		DueDate:           dateOnly(in.DueDate),
		IsManual:          in.IsManual,
		Label:             label,
		Version:           1,
		CreatedBy:         in.ActorID,
	}

	err := s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		if err := tx.Invoice.Create(ctx, inv); err != nil {
			return err
		}
		if err := tx.InvoiceEvent.Create(ctx, &models.InvoiceEvent{
			InvoiceID:         inv.ID,
			EventType:         models.EventTypeIssued,
			Amount:            in.Total,
			OutstandingBefore: in.Total,
			OutstandingAfter:  in.Total,
			StatusAfter:       inv.Status,
			Description:       fmt.Sprintf("invoice issued for %s", money.Format(in.Total)),
			ActorID:           in.ActorID,
			CreatedAt:         s.now(),
		}); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx.Audit, in.ActorID, models.AuditActionIssue, "Invoice", inv.ID,
			fmt.Sprintf("house %d, total %s, due %s", inv.HouseID, money.Format(inv.TotalAmount), inv.DueDate.Format("2006-01-02")))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Invoice issued", "invoice_id", inv.ID, "house_id", inv.HouseID, "total", money.Format(inv.TotalAmount))
	return inv, nil
}

// SubmitPayin records a PENDING pay-in report.
func (s *IntakeService) SubmitPayin(ctx context.Context, in SubmitPayinInput) (*models.PayinReport, error) {
	if in.HouseID == 0 {
		return nil, ErrInvalidInput.WithMessage("house_id is required")
	}
	if err := money.ValidatePositive(in.Amount); err != nil {
		return nil, ErrInvalidAmount.WithMessage("%v", err)
	}
	paidAt := in.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}

	payin := &models.PayinReport{
		HouseID: in.HouseID,
		Amount:  in.Amount,
		PaidAt:  paidAt,
		Status:  models.PayinStatusPending,
		Note:    in.Note,
		Version: 1,
	}
	err := s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		if err := tx.Payin.Create(ctx, payin); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx.Audit, in.ActorID, models.AuditActionSubmit, "PayinReport", payin.ID,
			fmt.Sprintf("house %d, amount %s", payin.HouseID, money.Format(payin.Amount)))
	})
	if err != nil {
		return nil, err
	}
	return payin, nil
}

// AcceptPayin turns a PENDING pay-in into a payment pool entry holding its
// full amount. Accepting again returns the existing entry.
func (s *IntakeService) AcceptPayin(ctx context.Context, payinID, actorID uint) (*models.Ledger, error) {
	var ledger *models.Ledger
	err := s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		payin, err := tx.Payin.FindByIDForUpdate(ctx, payinID)
		if err != nil {
			return translate(err, ErrPayinNotFound)
		}

		if payin.Status == models.PayinStatusAccepted {
			existing, err := tx.Ledger.FindByPayinID(ctx, payin.ID)
			if err != nil {
				if repository.IsNotFound(err) {
					return invariantf("accepted pay-in %d has no payment pool entry", payin.ID)
				}
				return err
			}
			ledger = existing
			return nil
		}

		now := s.now()
		if err := statemachine.NewPayinFSM(payin).Accept(ctx, actorID, now); err != nil {
			return ErrPayinNotAcceptable.WithMessage("pay-in %d is %s", payin.ID, payin.Status)
		}
		if err := tx.Payin.Update(ctx, payin); err != nil {
			return translate(err, ErrPayinNotFound)
		}

		ledger = &models.Ledger{
			PayinID:    payin.ID,
			HouseID:    payin.HouseID,
			Amount:     payin.Amount,
			Remaining:  payin.Amount,
			ReceivedAt: payin.PaidAt,
			Version:    1,
		}
		if err := tx.Ledger.Create(ctx, ledger); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrConcurrentModification
			}
			return err
		}

		return s.audit.Log(ctx, tx.Audit, actorID, models.AuditActionAccept, "PayinReport", payin.ID,
			fmt.Sprintf("ledger %d created with %s", ledger.ID, money.Format(ledger.Amount)))
	})
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

// RejectPayin marks a PENDING pay-in as rejected.
func (s *IntakeService) RejectPayin(ctx context.Context, payinID, actorID uint) (*models.PayinReport, error) {
	var out *models.PayinReport
	err := s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		payin, err := tx.Payin.FindByIDForUpdate(ctx, payinID)
		if err != nil {
			return translate(err, ErrPayinNotFound)
		}
		out = payin
		if payin.Status == models.PayinStatusRejected {
			return nil
		}
		if err := statemachine.NewPayinFSM(payin).Reject(ctx); err != nil {
			return ErrPayinNotAcceptable.WithMessage("pay-in %d is %s", payin.ID, payin.Status)
		}
		if err := tx.Payin.Update(ctx, payin); err != nil {
			return translate(err, ErrPayinNotFound)
		}
		return s.audit.Log(ctx, tx.Audit, actorID, models.AuditActionReject, "PayinReport", payin.ID, "")
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetPayin returns a pay-in report
func (s *IntakeService) GetPayin(ctx context.Context, id uint) (*models.PayinReport, error) {
	payin, err := s.repos.Payin.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrPayinNotFound)
	}
	return payin, nil
}

// GetInvoiceDetail loads an invoice with its applications, credit notes and events
func (s *IntakeService) GetInvoiceDetail(ctx context.Context, id uint) (*InvoiceDetail, error) {
	inv, err := s.repos.Invoice.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrInvoiceNotFound)
	}
	applications, err := s.repos.PaymentApplication.FindByInvoiceID(ctx, id)
	if err != nil {
		return nil, err
	}
	notes, err := s.repos.CreditNote.FindByInvoiceID(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := s.repos.InvoiceEvent.FindByInvoiceID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &InvoiceDetail{Invoice: inv, Applications: applications, CreditNotes: notes, Events: events}, nil
}

// ListInvoices lists invoices (filters: house_id, status)
func (s *IntakeService) ListInvoices(ctx context.Context, query *repository.ListQuery) ([]models.Invoice, int64, error) {
	return s.repos.Invoice.List(ctx, query)
}

// GetLedger loads a payment pool entry with its applications
func (s *IntakeService) GetLedger(ctx context.Context, id uint) (*LedgerDetail, error) {
	ledger, err := s.repos.Ledger.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrLedgerNotFound)
	}
	applications, err := s.repos.PaymentApplication.FindByLedgerID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &LedgerDetail{Ledger: ledger, Applications: applications}, nil
}
