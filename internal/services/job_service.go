package services

import (
	"context"

	"github.com/sjperalta/village-settlement-api/internal/jobs"
	"github.com/sjperalta/village-settlement-api/pkg/logger"
)

// Job names
const (
	JobOverdueSweep = "overdue_sweep"
	JobVerifyAll    = "verify_all"
)

type JobService struct {
	worker *jobs.Worker
	ledger *InvoiceLedgerService
}

func NewJobService(worker *jobs.Worker, ledger *InvoiceLedgerService) *JobService {
	return &JobService{
		worker: worker,
		ledger: ledger,
	}
}

// OverdueSweep is the scheduled job body
func (s *JobService) OverdueSweep(ctx context.Context) error {
	_, err := s.ledger.MarkOverdue(ctx)
	return err
}

// VerifyAll checks conservation on every invoice and logs each drift.
func (s *JobService) VerifyAll(ctx context.Context) error {
	checked, drifted, err := s.ledger.VerifyAll(ctx)
	if err != nil {
		return err
	}
	for _, v := range drifted {
		logger.Error("Invoice balance drift", "invoice_id", v.InvoiceID, "cached", v.Cached, "expected", v.Expected, "problems", v.Problems)
	}
	if len(drifted) > 0 {
		return invariantf("%d of %d invoices failed verification", len(drifted), checked)
	}
	return nil
}

// Trigger queues a named job to run now
func (s *JobService) Trigger(name string) error {
	switch name {
	case JobOverdueSweep:
		s.worker.Enqueue(name, s.OverdueSweep)
		return nil
	case JobVerifyAll:
		s.worker.Enqueue(name, s.VerifyAll)
		return nil
	default:
		return ErrInvalidInput.WithMessage("unknown job %q", name)
	}
}

func (s *JobService) GetStatus() map[string]interface{} {
	stats := s.worker.GetStats()
	return map[string]interface{}{
		"active_jobs":    stats.ActiveJobs,
		"completed_jobs": stats.CompletedJobs,
		"failed_jobs":    stats.FailedJobs,
		"queue_length":   stats.QueueLength,
		"max_concurrent": stats.MaxConcurrent,
		"jobs":           s.worker.GetRuns(),
	}
}
