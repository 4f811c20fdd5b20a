package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/online-library/internal/model"
)

func seedTransaction(t *testing.T, repo *TransactionRepo, bookID uint64, borrower string, status model.TransactionStatus) uint64 {
	t.Helper()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	record := &model.BookTransaction{
		BookID:       bookID,
		BorrowerID:   borrower,
		BookName:     "Dune",
		BorrowerName: "Ada Test",
		Type:         model.TypeIssued,
		Status:       status,
		FromDate:     from,
		ToDate:       from.AddDate(0, 0, 7),
	}
	ctx := context.Background()
	tx, err := repo.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.CreateTx(ctx, tx, record))
	require.NoError(t, tx.Commit())
	return record.ID
}

func TestListByIDsPreservesOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewTransactionRepo(db)
	ctx := context.Background()

	a := seedTransaction(t, repo, 1, "M-100", model.StatusActive)
	b := seedTransaction(t, repo, 2, "M-100", model.StatusPending)
	c := seedTransaction(t, repo, 3, "M-100", model.StatusCompleted)

	got, err := repo.ListByIDs(ctx, []uint64{c, a, 9999, b})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, c, got[0].ID)
	assert.Equal(t, a, got[1].ID)
	assert.Equal(t, b, got[2].ID)
}

func TestGuardedTransitions(t *testing.T) {
	db := newTestDB(t)
	repo := NewTransactionRepo(db)
	ctx := context.Background()

	id := seedTransaction(t, repo, 1, "M-100", model.StatusPending)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	// a pending row cannot be completed or activated from Reserved
	done, err := repo.CompleteTx(ctx, tx, id, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, done)
	moved, err := repo.ActivateFromTx(ctx, tx, id, model.StatusReserved)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = repo.ActivateFromTx(ctx, tx, id, model.StatusPending)
	require.NoError(t, err)
	assert.True(t, moved)
	done, err = repo.CompleteTx(ctx, tx, id, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, done)
	require.NoError(t, tx.Commit())

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	require.NotNil(t, got.ReturnDate)
}

func TestHasOpenForPair(t *testing.T) {
	db := newTestDB(t)
	repo := NewTransactionRepo(db)
	ctx := context.Background()

	seedTransaction(t, repo, 1, "M-100", model.StatusCompleted)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	// a completed episode does not block a new request
	open, err := repo.HasOpenForPairTx(ctx, tx, 1, "M-100")
	require.NoError(t, err)
	assert.False(t, open)
}
