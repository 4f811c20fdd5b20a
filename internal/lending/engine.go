package lending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/online-library/internal/model"
	"github.com/iliyamo/online-library/internal/repository"
)

// DefaultFinePerDay is the per-day overdue charge applied when no rate
// is configured.
const DefaultFinePerDay = 10

// Engine owns every lifecycle transition.  All multi-store effects
// (ledger row, book counter, member lists) of one operation are applied
// inside one database transaction, so concurrent operations against
// the same book observe a consistent available count and partial
// application is never visible.
type Engine struct {
	db           *sql.DB
	books        *repository.BookRepo
	users        *repository.UserRepo
	transactions *repository.TransactionRepo
	finePerDay   int64
	now          func() time.Time
}

// NewEngine constructs an Engine.  A finePerDay of zero or less falls
// back to DefaultFinePerDay.
func NewEngine(db *sql.DB, books *repository.BookRepo, users *repository.UserRepo, transactions *repository.TransactionRepo, finePerDay int64) *Engine {
	if db == nil || books == nil || users == nil || transactions == nil {
		panic("nil dependency passed to NewEngine")
	}
	if finePerDay <= 0 {
		finePerDay = DefaultFinePerDay
	}
	return &Engine{
		db:           db,
		books:        books,
		users:        users,
		transactions: transactions,
		finePerDay:   finePerDay,
		now:          time.Now,
	}
}

// DirectIssueParams are the inputs of an admin-initiated immediate
// issue or reserve.
type DirectIssueParams struct {
	BookID       uint64
	BorrowerID   string
	BookName     string
	BorrowerName string
	Type         model.TransactionType
	FromDate     time.Time
	ToDate       time.Time
}

func (p DirectIssueParams) validate() error {
	switch {
	case p.BookID == 0, p.BorrowerID == "", p.BookName == "", p.BorrowerName == "",
		p.FromDate.IsZero(), p.ToDate.IsZero():
		return fmt.Errorf("%w: all fields are required", ErrValidation)
	case !model.ValidType(p.Type):
		return fmt.Errorf("%w: transaction type must be Issued or Reserved", ErrValidation)
	case p.ToDate.Before(p.FromDate):
		return fmt.Errorf("%w: to date cannot be earlier than from date", ErrValidation)
	}
	return nil
}

// DirectIssue creates a transaction that is live immediately: status
// Active for an issue, Reserved for a reservation.  Both variants take
// one copy off the shelf, since a reserved copy is held for pickup and
// is no longer lendable.  The borrower's active list gains the new
// transaction id.
func (e *Engine) DirectIssue(ctx context.Context, p DirectIssueParams) (*model.BookTransaction, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, _, err := e.books.GetForLendingTx(ctx, tx, p.BookID); err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, fmt.Errorf("%w: book %d", ErrNotFound, p.BookID)
		}
		return nil, err
	}
	borrower, err := e.users.ResolveBorrowerTx(ctx, tx, p.BorrowerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: borrower %q", ErrNotFound, p.BorrowerID)
		}
		return nil, err
	}

	// Availability re-check and decrement are one guarded UPDATE;
	// at most one of two concurrent issues of the last copy wins.
	ok, err := e.books.DecrementAvailableTx(ctx, tx, p.BookID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: book not available", ErrConflict)
	}

	status := model.StatusActive
	if p.Type == model.TypeReserved {
		status = model.StatusReserved
	}
	record := &model.BookTransaction{
		BookID:       p.BookID,
		BorrowerID:   p.BorrowerID,
		BookName:     p.BookName,
		BorrowerName: p.BorrowerName,
		Type:         p.Type,
		Status:       status,
		FromDate:     p.FromDate,
		ToDate:       p.ToDate,
	}
	if err := e.transactions.CreateTx(ctx, tx, record); err != nil {
		return nil, err
	}
	if err := e.users.AppendActiveTx(ctx, tx, borrower.ID, record.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return record, nil
}

// RequestParams are the inputs of a member-initiated borrow request.
type RequestParams struct {
	BookID   uint64
	UserID   uint64
	FromDate time.Time
	ToDate   time.Time
}

// Request files a Pending borrow request.  The book's availability is
// not consumed until an admin approves; a member may not hold more
// than one open (Pending or Active) transaction per book.
func (e *Engine) Request(ctx context.Context, p RequestParams) (*model.BookTransaction, error) {
	switch {
	case p.BookID == 0 || p.UserID == 0 || p.FromDate.IsZero() || p.ToDate.IsZero():
		return nil, fmt.Errorf("%w: book id, user id, from date and to date are required", ErrValidation)
	case p.ToDate.Before(p.FromDate):
		return nil, fmt.Errorf("%w: to date cannot be earlier than from date", ErrValidation)
	}
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	user, err := e.users.GetByIDTx(ctx, tx, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, p.UserID)
		}
		return nil, err
	}
	bookName, _, err := e.books.GetForLendingTx(ctx, tx, p.BookID)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, fmt.Errorf("%w: book %d", ErrNotFound, p.BookID)
		}
		return nil, err
	}

	open, err := e.transactions.HasOpenForPairTx(ctx, tx, p.BookID, user.ExternalID())
	if err != nil {
		return nil, err
	}
	if open {
		return nil, fmt.Errorf("%w: a request or active transaction already exists for this book", ErrConflict)
	}

	record := &model.BookTransaction{
		BookID:       p.BookID,
		BorrowerID:   user.ExternalID(),
		BookName:     bookName,
		BorrowerName: user.FullName,
		Type:         model.TypeIssued,
		Status:       model.StatusPending,
		FromDate:     p.FromDate,
		ToDate:       p.ToDate,
	}
	if err := e.transactions.CreateTx(ctx, tx, record); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return record, nil
}

// Approve turns a Pending request into an Active issue: the book's
// availability is consumed now, and the borrower's active list gains
// the transaction id.
func (e *Engine) Approve(ctx context.Context, id uint64) (*model.BookTransaction, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	record, err := e.transactions.GetByIDTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, fmt.Errorf("%w: transaction %d", ErrNotFound, id)
		}
		return nil, err
	}
	if record.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: only pending requests can be approved", ErrConflict)
	}
	borrower, err := e.users.ResolveBorrowerTx(ctx, tx, record.BorrowerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: borrower %q", ErrNotFound, record.BorrowerID)
		}
		return nil, err
	}

	moved, err := e.transactions.ActivateFromTx(ctx, tx, id, model.StatusPending)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fmt.Errorf("%w: only pending requests can be approved", ErrConflict)
	}
	ok, err := e.books.DecrementAvailableTx(ctx, tx, record.BookID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: book not available", ErrConflict)
	}
	if err := e.users.AppendActiveTx(ctx, tx, borrower.ID, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	record.Status = model.StatusActive
	record.Type = model.TypeIssued
	return record, nil
}

// Reject deletes a Pending request outright.  No inventory or list
// side effects were ever applied to a pending request, so none need
// undoing.
func (e *Engine) Reject(ctx context.Context, id uint64) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := e.transactions.GetByIDTx(ctx, tx, id); err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return fmt.Errorf("%w: transaction %d", ErrNotFound, id)
		}
		return err
	}
	gone, err := e.transactions.DeleteFromTx(ctx, tx, id, model.StatusPending)
	if err != nil {
		return err
	}
	if !gone {
		return fmt.Errorf("%w: only pending requests can be rejected", ErrConflict)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Cancel deletes a Pending request on behalf of its own borrower.  The
// caller's resolved external identifier must match the transaction's
// borrower id.
func (e *Engine) Cancel(ctx context.Context, id, callerUserID uint64) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	record, err := e.transactions.GetByIDTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return fmt.Errorf("%w: transaction %d", ErrNotFound, id)
		}
		return err
	}
	caller, err := e.users.GetByIDTx(ctx, tx, callerUserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("%w: user %d", ErrNotFound, callerUserID)
		}
		return err
	}
	if record.BorrowerID != caller.ExternalID() {
		return fmt.Errorf("%w: you can only cancel your own requests", ErrForbidden)
	}
	gone, err := e.transactions.DeleteFromTx(ctx, tx, id, model.StatusPending)
	if err != nil {
		return err
	}
	if !gone {
		return fmt.Errorf("%w: only pending requests can be cancelled", ErrConflict)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// MarkIssued records the pickup of a reserved copy: status Reserved
// becomes Active and the type becomes Issued.  The copy was already
// taken off the shelf at reservation time, so the counter is not
// touched.
func (e *Engine) MarkIssued(ctx context.Context, id uint64) (*model.BookTransaction, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	record, err := e.transactions.GetByIDTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, fmt.Errorf("%w: transaction %d", ErrNotFound, id)
		}
		return nil, err
	}
	moved, err := e.transactions.ActivateFromTx(ctx, tx, id, model.StatusReserved)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fmt.Errorf("%w: only reserved books can be marked as issued", ErrConflict)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	record.Status = model.StatusActive
	record.Type = model.TypeIssued
	return record, nil
}

// ReturnResult reports the outcome of a completed return.
type ReturnResult struct {
	Fine        int64
	ReturnDate  time.Time
	Transaction *model.BookTransaction
}

// Return completes an open (Active or Reserved) transaction: the copy
// goes back on the shelf, the id moves from the borrower's active list
// to the previous list, and the overdue fine is computed.  Returning a
// transaction that is already Completed fails with Conflict and never
// credits the counter twice.
func (e *Engine) Return(ctx context.Context, id uint64) (*ReturnResult, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	record, err := e.transactions.GetByIDTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, fmt.Errorf("%w: transaction %d", ErrNotFound, id)
		}
		return nil, err
	}
	borrower, err := e.users.ResolveBorrowerTx(ctx, tx, record.BorrowerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: borrower %q", ErrNotFound, record.BorrowerID)
		}
		return nil, err
	}

	now := e.now().UTC()
	done, err := e.transactions.CompleteTx(ctx, tx, id, now)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, fmt.Errorf("%w: only active or reserved transactions can be returned", ErrConflict)
	}
	if err := e.books.IncrementAvailableTx(ctx, tx, record.BookID); err != nil {
		return nil, err
	}
	if _, err := e.users.MoveToPrevTx(ctx, tx, borrower.ID, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	record.Status = model.StatusCompleted
	record.ReturnDate = &now
	return &ReturnResult{
		Fine:        e.fine(now, record.ToDate),
		ReturnDate:  now,
		Transaction: record,
	}, nil
}

// fine charges finePerDay for every full day past the due date.
func (e *Engine) fine(now, toDate time.Time) int64 {
	overdue := now.Sub(toDate)
	if overdue <= 0 {
		return 0
	}
	days := int64(overdue / (24 * time.Hour))
	return days * e.finePerDay
}
