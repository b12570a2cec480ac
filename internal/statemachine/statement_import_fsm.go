package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/sjperalta/village-settlement-api/internal/models"
)

// StatementImportFSM wraps a statement upload with its state machine
type StatementImportFSM struct {
	imp *models.StatementImport
	fsm *fsm.FSM
}

// NewStatementImportFSM creates a new statement import state machine
func NewStatementImportFSM(imp *models.StatementImport) *StatementImportFSM {
	sfsm := &StatementImportFSM{
		imp: imp,
	}

	sfsm.fsm = fsm.NewFSM(
		imp.Status,
		fsm.Events{
			// previewed → confirmed (rows persisted)
			{Name: "confirm", Src: []string{models.ImportStatusPreviewed}, Dst: models.ImportStatusConfirmed},

			// previewed → discarded
			{Name: "discard", Src: []string{models.ImportStatusPreviewed}, Dst: models.ImportStatusDiscarded},
		},
		fsm.Callbacks{},
	)

	return sfsm
}

// Confirm transitions the import to confirmed under batchID
func (s *StatementImportFSM) Confirm(ctx context.Context, batchID string, actorID uint, at time.Time) error {
	if err := s.fsm.Event(ctx, "confirm"); err != nil {
		return fmt.Errorf("failed to confirm statement import: %w", err)
	}

	s.imp.Status = s.fsm.Current()
	s.imp.BatchID = &batchID
	s.imp.ConfirmedAt = &at
	s.imp.ConfirmedBy = &actorID
	return nil
}

// Discard transitions the import to discarded
func (s *StatementImportFSM) Discard(ctx context.Context) error {
	if err := s.fsm.Event(ctx, "discard"); err != nil {
		return fmt.Errorf("failed to discard statement import: %w", err)
	}

	s.imp.Status = s.fsm.Current()
	return nil
}

// Can checks if a transition is possible
func (s *StatementImportFSM) Can(event string) bool {
	return s.fsm.Can(event)
}
