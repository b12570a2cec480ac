package services

import (
	"github.com/sjperalta/village-settlement-api/internal/config"
	"github.com/sjperalta/village-settlement-api/internal/jobs"
	"github.com/sjperalta/village-settlement-api/internal/repository"
)

// Services holds all service instances
type Services struct {
	InvoiceLedger  *InvoiceLedgerService
	Allocation     *AllocationService
	CreditNote     *CreditNoteService
	Reconciliation *ReconciliationService
	Promotion      *PromotionService
	Intake         *IntakeService
	Audit          *AuditService
	Job            *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, store FileStore, cfg *config.Config) *Services {
	auditSvc := NewAuditService(repos)
	ledgerSvc := NewInvoiceLedgerService(repos)

	return &Services{
		InvoiceLedger: ledgerSvc,
		Allocation:    NewAllocationService(repos, ledgerSvc),
		CreditNote:    NewCreditNoteService(repos, ledgerSvc),
		Reconciliation: NewReconciliationService(repos, store, auditSvc, worker, ReconciliationConfig{
			AmountTolerance: cfg.CandidateAmountTolerance,
			DateWindowDays:  cfg.CandidateDateWindowDays,
		}),
		Promotion: NewPromotionService(repos),
		Intake:    NewIntakeService(repos, auditSvc),
		Audit:     auditSvc,
		Job:       NewJobService(worker, ledgerSvc),
	}
}
