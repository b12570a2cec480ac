package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/sjperalta/village-settlement-api/internal/models"
)

// PayinFSM wraps a pay-in report with its state machine
type PayinFSM struct {
	payin *models.PayinReport
	fsm   *fsm.FSM
}

// NewPayinFSM creates a new pay-in state machine
func NewPayinFSM(payin *models.PayinReport) *PayinFSM {
	pfsm := &PayinFSM{
		payin: payin,
	}

	pfsm.fsm = fsm.NewFSM(
		payin.Status,
		fsm.Events{
			// pending → accepted (creates the payment pool entry)
			{Name: "accept", Src: []string{models.PayinStatusPending}, Dst: models.PayinStatusAccepted},

			// pending → rejected
			{Name: "reject", Src: []string{models.PayinStatusPending}, Dst: models.PayinStatusRejected},
		},
		fsm.Callbacks{},
	)

	return pfsm
}

// Accept transitions the pay-in to accepted and stamps who accepted it
func (p *PayinFSM) Accept(ctx context.Context, actorID uint, at time.Time) error {
	if !p.payin.MayAccept() {
		return fmt.Errorf("pay-in cannot be accepted in current state: %s", p.payin.Status)
	}

	if err := p.fsm.Event(ctx, "accept"); err != nil {
		return fmt.Errorf("failed to accept pay-in: %w", err)
	}

	p.payin.Status = p.fsm.Current()
	p.payin.AcceptedAt = &at
	p.payin.AcceptedBy = &actorID
	return nil
}

// Reject transitions the pay-in to rejected
func (p *PayinFSM) Reject(ctx context.Context) error {
	if err := p.fsm.Event(ctx, "reject"); err != nil {
		return fmt.Errorf("failed to reject pay-in: %w", err)
	}

	p.payin.Status = p.fsm.Current()
	return nil
}
