package statemachine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjperalta/village-settlement-api/internal/models"
)

func TestBankTransactionFSM_MatchUnmatch(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	tx := &models.BankTransaction{ID: 1, MatchState: models.MatchStateUnmatched}
	assert.False(t, NewBankTransactionFSM(tx).Can("unmatch"))

	require.NoError(t, NewBankTransactionFSM(tx).Match(ctx, 7, 99, now))
	assert.Equal(t, models.MatchStateMatched, tx.MatchState)
	require.NotNil(t, tx.MatchedPayinID)
	assert.Equal(t, uint(7), *tx.MatchedPayinID)
	assert.Equal(t, uint(99), *tx.MatchedBy)

	assert.Error(t, NewBankTransactionFSM(tx).Match(ctx, 8, 99, now))
	assert.True(t, NewBankTransactionFSM(tx).Can("unmatch"))

	require.NoError(t, NewBankTransactionFSM(tx).Unmatch(ctx))
	assert.Equal(t, models.MatchStateUnmatched, tx.MatchState)
	assert.Nil(t, tx.MatchedPayinID)
	assert.Nil(t, tx.MatchedAt)

	assert.Error(t, NewBankTransactionFSM(tx).Unmatch(ctx))
}

func TestStatementImportFSM(t *testing.T) {
	ctx := context.Background()

	imp := &models.StatementImport{Status: models.ImportStatusPreviewed}
	require.NoError(t, NewStatementImportFSM(imp).Confirm(ctx, "batch-1", 3, time.Now()))
	assert.Equal(t, models.ImportStatusConfirmed, imp.Status)
	assert.Equal(t, "batch-1", *imp.BatchID)

	assert.Error(t, NewStatementImportFSM(imp).Confirm(ctx, "batch-2", 3, time.Now()))
	assert.Error(t, NewStatementImportFSM(imp).Discard(ctx))

	discarded := &models.StatementImport{Status: models.ImportStatusPreviewed}
	require.NoError(t, NewStatementImportFSM(discarded).Discard(ctx))
	assert.Equal(t, models.ImportStatusDiscarded, discarded.Status)
	assert.False(t, NewStatementImportFSM(discarded).Can("confirm"))
}

func TestPayinFSM(t *testing.T) {
	ctx := context.Background()

	payin := &models.PayinReport{Status: models.PayinStatusPending}
	require.NoError(t, NewPayinFSM(payin).Accept(ctx, 5, time.Now()))
	assert.Equal(t, models.PayinStatusAccepted, payin.Status)
	assert.Equal(t, uint(5), *payin.AcceptedBy)

	assert.Error(t, NewPayinFSM(payin).Reject(ctx))

	rejected := &models.PayinReport{Status: models.PayinStatusPending}
	require.NoError(t, NewPayinFSM(rejected).Reject(ctx))
	assert.Error(t, NewPayinFSM(rejected).Accept(ctx, 5, time.Now()))
}
