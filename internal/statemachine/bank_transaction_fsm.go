package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/sjperalta/village-settlement-api/internal/models"
)

// BankTransactionFSM wraps a bank statement row with its match state machine.
// Only the match columns change; amounts are never touched.
type BankTransactionFSM struct {
	transaction *models.BankTransaction
	fsm         *fsm.FSM
}

// NewBankTransactionFSM creates a new bank transaction state machine
func NewBankTransactionFSM(transaction *models.BankTransaction) *BankTransactionFSM {
	bfsm := &BankTransactionFSM{
		transaction: transaction,
	}

	bfsm.fsm = fsm.NewFSM(
		transaction.MatchState,
		fsm.Events{
			{Name: "match", Src: []string{models.MatchStateUnmatched}, Dst: models.MatchStateMatched},
			{Name: "unmatch", Src: []string{models.MatchStateMatched}, Dst: models.MatchStateUnmatched},
		},
		fsm.Callbacks{},
	)

	return bfsm
}

// Match links the row to payinID
func (b *BankTransactionFSM) Match(ctx context.Context, payinID, actorID uint, at time.Time) error {
	if !b.transaction.MayMatch(payinID) {
		return fmt.Errorf("bank transaction %d is already matched", b.transaction.ID)
	}

	if err := b.fsm.Event(ctx, "match"); err != nil {
		return fmt.Errorf("failed to match bank transaction: %w", err)
	}

	b.transaction.MatchState = b.fsm.Current()
	b.transaction.MatchedPayinID = &payinID
	b.transaction.MatchedAt = &at
	b.transaction.MatchedBy = &actorID
	return nil
}

// Unmatch clears the link
func (b *BankTransactionFSM) Unmatch(ctx context.Context) error {
	if err := b.fsm.Event(ctx, "unmatch"); err != nil {
		return fmt.Errorf("failed to unmatch bank transaction: %w", err)
	}

	b.transaction.MatchState = b.fsm.Current()
	b.transaction.MatchedPayinID = nil
	b.transaction.MatchedAt = nil
	b.transaction.MatchedBy = nil
	return nil
}

// Can checks if a transition is possible
func (b *BankTransactionFSM) Can(event string) bool {
	return b.fsm.Can(event)
}
