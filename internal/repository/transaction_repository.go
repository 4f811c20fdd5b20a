package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/online-library/internal/model"
)

// TransactionRepo provides persistence for book transactions.  State
// transitions are expressed as guarded UPDATEs whose WHERE clause
// names the states a transition may leave from; callers check the
// boolean result to detect a lost race or an illegal transition.  The
// lending engine is the only caller of the ...Tx methods.
type TransactionRepo struct {
	db *sql.DB
}

// NewTransactionRepo returns a new TransactionRepo bound to the given database.
func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

const txColumns = `id, book_id, borrower_id, book_name, borrower_name, transaction_type,
	transaction_status, from_date, to_date, return_date, created_at, updated_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (*model.BookTransaction, error) {
	var t model.BookTransaction
	var ret sql.NullTime
	err := row.Scan(&t.ID, &t.BookID, &t.BorrowerID, &t.BookName, &t.BorrowerName,
		&t.Type, &t.Status, &t.FromDate, &t.ToDate, &ret, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if ret.Valid {
		rd := ret.Time
		t.ReturnDate = &rd
	}
	return &t, nil
}

// CreateTx inserts a transaction within the scope of an existing
// database transaction and populates the generated ID and timestamps
// on the passed record.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.BookTransaction) error {
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO book_transactions
		 (book_id, borrower_id, book_name, borrower_name, transaction_type, transaction_status, from_date, to_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.BookID, t.BorrowerID, t.BookName, t.BorrowerName, t.Type, t.Status, t.FromDate, t.ToDate, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// GetByID returns a transaction or ErrTransactionNotFound.
func (r *TransactionRepo) GetByID(ctx context.Context, id uint64) (*model.BookTransaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM book_transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	return t, err
}

// GetByIDTx is GetByID within an existing database transaction.
func (r *TransactionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.BookTransaction, error) {
	t, err := scanTransaction(tx.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM book_transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	return t, err
}

// ListAll returns every transaction, newest first.
func (r *TransactionRepo) ListAll(ctx context.Context) ([]model.BookTransaction, error) {
	return r.list(ctx, `SELECT `+txColumns+` FROM book_transactions ORDER BY created_at DESC, id DESC`)
}

// ListByBook returns the transactions referencing one book, newest first.
func (r *TransactionRepo) ListByBook(ctx context.Context, bookID uint64) ([]model.BookTransaction, error) {
	return r.list(ctx, `SELECT `+txColumns+` FROM book_transactions WHERE book_id = ? ORDER BY created_at DESC, id DESC`, bookID)
}

func (r *TransactionRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.BookTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.BookTransaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ListByIDs returns the transactions for the given ids preserving the
// order of the input slice.  Ids that no longer resolve are skipped.
func (r *TransactionRepo) ListByIDs(ctx context.Context, ids []uint64) ([]model.BookTransaction, error) {
	if len(ids) == 0 {
		return []model.BookTransaction{}, nil
	}
	args := make([]interface{}, 0, len(ids))
	placeholders := make([]string, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
		placeholders = append(placeholders, "?")
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM book_transactions WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := make(map[uint64]model.BookTransaction, len(ids))
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		byID[t.ID] = *t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]model.BookTransaction, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// HasOpenForPairTx reports whether the borrower already has a Pending
// or Active transaction for the book.
func (r *TransactionRepo) HasOpenForPairTx(ctx context.Context, tx *sql.Tx, bookID uint64, borrowerID string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM book_transactions
		 WHERE book_id = ? AND borrower_id = ? AND transaction_status IN (?, ?)`,
		bookID, borrowerID, model.StatusPending, model.StatusActive).Scan(&n)
	return n > 0, err
}

// ActivateFromTx moves a transaction from the given status to Active
// and forces its type to Issued.  The status check lives in the WHERE
// clause so a concurrent transition loses cleanly; the boolean result
// reports whether the row actually moved.
func (r *TransactionRepo) ActivateFromTx(ctx context.Context, tx *sql.Tx, id uint64, from model.TransactionStatus) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE book_transactions
		 SET transaction_status = ?, transaction_type = ?, updated_at = ?
		 WHERE id = ? AND transaction_status = ?`,
		model.StatusActive, model.TypeIssued, time.Now().UTC(), id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompleteTx closes an open transaction, stamping the return date.
// Only Active and Reserved rows qualify; a repeated return therefore
// changes nothing and the caller sees false.
func (r *TransactionRepo) CompleteTx(ctx context.Context, tx *sql.Tx, id uint64, returnDate time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE book_transactions
		 SET transaction_status = ?, return_date = ?, updated_at = ?
		 WHERE id = ? AND transaction_status IN (?, ?)`,
		model.StatusCompleted, returnDate, time.Now().UTC(), id, model.StatusActive, model.StatusReserved)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteFromTx removes a transaction only while it is still in the
// given status.  Used by reject and cancel, which may only delete
// Pending requests.
func (r *TransactionRepo) DeleteFromTx(ctx context.Context, tx *sql.Tx, id uint64, from model.TransactionStatus) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM book_transactions WHERE id = ? AND transaction_status = ?`, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateTransactionParams carries the optional fields of an
// administrative raw edit.  Nil fields are left untouched.
type UpdateTransactionParams struct {
	BookName     *string
	BorrowerName *string
	Type         *model.TransactionType
	Status       *model.TransactionStatus
	FromDate     *time.Time
	ToDate       *time.Time
	ReturnDate   *time.Time
}

// Update applies an administrative raw edit bypassing lifecycle rules.
// It exists for manual correction only and makes no attempt to keep
// inventory or membership lists consistent.
func (r *TransactionRepo) Update(ctx context.Context, id uint64, p UpdateTransactionParams) error {
	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 9)
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.BookName != nil {
		add("book_name", *p.BookName)
	}
	if p.BorrowerName != nil {
		add("borrower_name", *p.BorrowerName)
	}
	if p.Type != nil {
		add("transaction_type", *p.Type)
	}
	if p.Status != nil {
		add("transaction_status", *p.Status)
	}
	if p.FromDate != nil {
		add("from_date", *p.FromDate)
	}
	if p.ToDate != nil {
		add("to_date", *p.ToDate)
	}
	if p.ReturnDate != nil {
		add("return_date", *p.ReturnDate)
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		`UPDATE book_transactions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// DeleteTx removes a transaction unconditionally inside an existing
// database transaction.  Raw correction path; see Update.
func (r *TransactionRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM book_transactions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// Delete removes a transaction unconditionally.  Raw correction path;
// see Update.
func (r *TransactionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM book_transactions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTransactionNotFound
	}
	return nil
}
