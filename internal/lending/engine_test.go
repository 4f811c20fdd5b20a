package lending

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/online-library/internal/model"
)

func issueParams(bookID uint64, borrowerID string, typ model.TransactionType) DirectIssueParams {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return DirectIssueParams{
		BookID:       bookID,
		BorrowerID:   borrowerID,
		BookName:     "The Go Programming Language",
		BorrowerName: "Ada Test",
		Type:         typ,
		FromDate:     from,
		ToDate:       from.AddDate(0, 0, 14),
	}
}

func TestDirectIssueActivatesAndDecrements(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 2)

	record, err := env.engine.DirectIssue(context.Background(), issueParams(bookID, "M-100", model.TypeIssued))
	require.NoError(t, err)

	assert.Equal(t, model.StatusActive, record.Status)
	assert.Equal(t, model.TypeIssued, record.Type)
	assert.Equal(t, "M-100", record.BorrowerID)
	assert.EqualValues(t, 1, env.bookCount(t, bookID))

	active, prev := env.lists(t, u.ID)
	assert.Equal(t, []uint64{record.ID}, active)
	assert.Empty(t, prev)
}

func TestDirectIssueReserveHoldsCopy(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 1)

	record, err := env.engine.DirectIssue(context.Background(), issueParams(bookID, "M-100", model.TypeReserved))
	require.NoError(t, err)

	// a reserved copy is off the shelf until picked up or returned
	assert.Equal(t, model.StatusReserved, record.Status)
	assert.Equal(t, model.TypeReserved, record.Type)
	assert.EqualValues(t, 0, env.bookCount(t, bookID))
}

func TestDirectIssueValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 1)

	missing := issueParams(bookID, "M-100", model.TypeIssued)
	missing.BookName = ""
	_, err := env.engine.DirectIssue(context.Background(), missing)
	assert.ErrorIs(t, err, ErrValidation)

	badType := issueParams(bookID, "M-100", model.TransactionType("Borrowed"))
	_, err = env.engine.DirectIssue(context.Background(), badType)
	assert.ErrorIs(t, err, ErrValidation)

	reversed := issueParams(bookID, "M-100", model.TypeIssued)
	reversed.ToDate = reversed.FromDate.AddDate(0, 0, -1)
	_, err = env.engine.DirectIssue(context.Background(), reversed)
	assert.ErrorIs(t, err, ErrValidation)

	// nothing was written
	assert.EqualValues(t, 1, env.bookCount(t, bookID))
	items, lerr := env.transactions.ListAll(context.Background())
	require.NoError(t, lerr)
	assert.Empty(t, items)
}

func TestDirectIssueUnknownBookAndBorrower(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 1)

	_, err := env.engine.DirectIssue(context.Background(), issueParams(9999, "M-100", model.TypeIssued))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.engine.DirectIssue(context.Background(), issueParams(bookID, "M-404", model.TypeIssued))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.EqualValues(t, 1, env.bookCount(t, bookID))
}

func TestDirectIssueExhaustedCopies(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	env.seedUser(t, "Grace Test", "M-200", "grace@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 1)

	_, err := env.engine.DirectIssue(context.Background(), issueParams(bookID, "M-100", model.TypeIssued))
	require.NoError(t, err)

	_, err = env.engine.DirectIssue(context.Background(), issueParams(bookID, "M-200", model.TypeIssued))
	assert.ErrorIs(t, err, ErrConflict)
	assert.EqualValues(t, 0, env.bookCount(t, bookID))
}

func TestConcurrentIssueOfLastCopy(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	env.seedUser(t, "Grace Test", "M-200", "grace@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 1)

	borrowers := []string{"M-100", "M-200"}
	errs := make([]error, len(borrowers))
	var wg sync.WaitGroup
	for i, b := range borrowers {
		wg.Add(1)
		go func(i int, b string) {
			defer wg.Done()
			_, errs[i] = env.engine.DirectIssue(context.Background(), issueParams(bookID, b, model.TypeIssued))
		}(i, b)
	}
	wg.Wait()

	var okCount, conflictCount int
	for _, err := range errs {
		switch {
		case err == nil:
			okCount++
		default:
			assert.ErrorIs(t, err, ErrConflict)
			conflictCount++
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, conflictCount)
	assert.EqualValues(t, 0, env.bookCount(t, bookID))
}

func TestRequestApproveReturnRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 1)

	ctx := context.Background()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	record, err := env.engine.Request(ctx, RequestParams{
		BookID: bookID, UserID: u.ID, FromDate: from, ToDate: from.AddDate(0, 0, 7),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, record.Status)
	assert.Equal(t, "M-100", record.BorrowerID)
	assert.Equal(t, "The Go Programming Language", record.BookName)
	// a pending request does not consume a copy
	assert.EqualValues(t, 1, env.bookCount(t, bookID))
	active, _ := env.lists(t, u.ID)
	assert.Empty(t, active)

	approved, err := env.engine.Approve(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, approved.Status)
	assert.EqualValues(t, 0, env.bookCount(t, bookID))
	active, _ = env.lists(t, u.ID)
	assert.Equal(t, []uint64{record.ID}, active)

	result, err := env.engine.Return(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, result.Transaction.Status)
	assert.EqualValues(t, 1, env.bookCount(t, bookID))
	active, prev := env.lists(t, u.ID)
	assert.Empty(t, active)
	assert.Equal(t, []uint64{record.ID}, prev)
}

func TestRequestDuplicateOpenPair(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 3)

	ctx := context.Background()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := RequestParams{BookID: bookID, UserID: u.ID, FromDate: from, ToDate: from.AddDate(0, 0, 7)}

	_, err := env.engine.Request(ctx, p)
	require.NoError(t, err)
	_, err = env.engine.Request(ctx, p)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestApproveRequiresPending(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 2)

	ctx := context.Background()
	record, err := env.engine.DirectIssue(ctx, issueParams(bookID, "M-100", model.TypeIssued))
	require.NoError(t, err)

	_, err = env.engine.Approve(ctx, record.ID)
	assert.ErrorIs(t, err, ErrConflict)
	// the double approval must not consume a second copy
	assert.EqualValues(t, 1, env.bookCount(t, bookID))

	_, err = env.engine.Approve(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApproveWithNoCopiesLeft(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	env.seedUser(t, "Grace Test", "M-200", "grace@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 1)

	ctx := context.Background()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	record, err := env.engine.Request(ctx, RequestParams{
		BookID: bookID, UserID: u.ID, FromDate: from, ToDate: from.AddDate(0, 0, 7),
	})
	require.NoError(t, err)

	// the last copy walks out the door before the request is reviewed
	_, err = env.engine.DirectIssue(ctx, issueParams(bookID, "M-200", model.TypeIssued))
	require.NoError(t, err)

	_, err = env.engine.Approve(ctx, record.ID)
	assert.ErrorIs(t, err, ErrConflict)
	assert.EqualValues(t, 0, env.bookCount(t, bookID))

	// the request survives the failed approval untouched
	got, err := env.transactions.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestRejectOnlyPending(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 2)

	ctx := context.Background()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	record, err := env.engine.Request(ctx, RequestParams{
		BookID: bookID, UserID: u.ID, FromDate: from, ToDate: from.AddDate(0, 0, 7),
	})
	require.NoError(t, err)

	require.NoError(t, env.engine.Reject(ctx, record.ID))
	_, err = env.transactions.GetByID(ctx, record.ID)
	assert.Error(t, err)

	issued, err := env.engine.DirectIssue(ctx, issueParams(bookID, "M-100", model.TypeIssued))
	require.NoError(t, err)
	err = env.engine.Reject(ctx, issued.ID)
	assert.ErrorIs(t, err, ErrConflict)

	assert.ErrorIs(t, env.engine.Reject(ctx, 9999), ErrNotFound)
}

func TestCancelOwnPendingOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	other := env.seedUser(t, "Grace Test", "M-200", "grace@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 2)

	ctx := context.Background()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	record, err := env.engine.Request(ctx, RequestParams{
		BookID: bookID, UserID: owner.ID, FromDate: from, ToDate: from.AddDate(0, 0, 7),
	})
	require.NoError(t, err)

	err = env.engine.Cancel(ctx, record.ID, other.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, env.engine.Cancel(ctx, record.ID, owner.ID))
	_, err = env.transactions.GetByID(ctx, record.ID)
	assert.Error(t, err)
}

func TestMarkIssuedOnlyReserved(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 2)

	ctx := context.Background()
	reserved, err := env.engine.DirectIssue(ctx, issueParams(bookID, "M-100", model.TypeReserved))
	require.NoError(t, err)
	assert.EqualValues(t, 1, env.bookCount(t, bookID))

	picked, err := env.engine.MarkIssued(ctx, reserved.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, picked.Status)
	assert.Equal(t, model.TypeIssued, picked.Type)
	// the copy was consumed at reservation time, not at pickup
	assert.EqualValues(t, 1, env.bookCount(t, bookID))

	_, err = env.engine.MarkIssued(ctx, reserved.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestReturnComputesOverdueFine(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 1)

	ctx := context.Background()
	p := issueParams(bookID, "M-100", model.TypeIssued)
	record, err := env.engine.DirectIssue(ctx, p)
	require.NoError(t, err)

	// five full days and change past the due date
	env.engine.now = func() time.Time { return p.ToDate.Add(5*24*time.Hour + 2*time.Hour) }
	result, err := env.engine.Return(ctx, record.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 50, result.Fine)
	require.NotNil(t, result.Transaction.ReturnDate)
}

func TestReturnOnTimeNoFine(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 1)

	ctx := context.Background()
	p := issueParams(bookID, "M-100", model.TypeIssued)
	record, err := env.engine.DirectIssue(ctx, p)
	require.NoError(t, err)

	env.engine.now = func() time.Time { return p.ToDate.Add(-time.Hour) }
	result, err := env.engine.Return(ctx, record.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, result.Fine)

	// less than a full day late still costs nothing
	record2, err := env.engine.DirectIssue(ctx, p)
	require.NoError(t, err)
	env.engine.now = func() time.Time { return p.ToDate.Add(23 * time.Hour) }
	result, err = env.engine.Return(ctx, record2.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, result.Fine)
}

func TestReturnIsNotRepeatable(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 1)

	ctx := context.Background()
	record, err := env.engine.DirectIssue(ctx, issueParams(bookID, "M-100", model.TypeIssued))
	require.NoError(t, err)

	_, err = env.engine.Return(ctx, record.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, env.bookCount(t, bookID))

	// a second return must not credit the counter again
	_, err = env.engine.Return(ctx, record.ID)
	assert.ErrorIs(t, err, ErrConflict)
	assert.EqualValues(t, 1, env.bookCount(t, bookID))

	_, prev := env.lists(t, u.ID)
	assert.Equal(t, []uint64{record.ID}, prev)
}

func TestReturnReservedCopy(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada Test", "M-100", "ada@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 1)

	ctx := context.Background()
	record, err := env.engine.DirectIssue(ctx, issueParams(bookID, "M-100", model.TypeReserved))
	require.NoError(t, err)
	assert.EqualValues(t, 0, env.bookCount(t, bookID))

	// an abandoned reservation goes straight back on the shelf
	_, err = env.engine.Return(ctx, record.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, env.bookCount(t, bookID))
}

func TestBorrowerEmailFallback(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "No Card", "", "nocard@example.com")
	bookID := env.seedBook(t, "The Go Programming Language", 1)

	record, err := env.engine.DirectIssue(context.Background(),
		issueParams(bookID, "nocard@example.com", model.TypeIssued))
	require.NoError(t, err)
	assert.Equal(t, "nocard@example.com", record.BorrowerID)

	active, _ := env.lists(t, u.ID)
	assert.Equal(t, []uint64{record.ID}, active)
}
