package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/online-library/internal/model"
)

// BookRepo provides CRUD operations for books and their category
// memberships.  Membership is stored in the book_categories association
// table; every add or remove goes through this repository so the two
// directions of the relation (book→categories and category→books) can
// never diverge.  The available-copy counter is only ever changed
// through the guarded Tx methods below, which the lending engine calls
// inside its own transactions.
type BookRepo struct {
	db *sql.DB
}

// NewBookRepo returns a new BookRepo bound to the given database.
func NewBookRepo(db *sql.DB) *BookRepo { return &BookRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning multiple repositories.
func (r *BookRepo) DB() *sql.DB { return r.db }

// Create inserts a book and attaches it to the given categories in a
// single transaction.  Every referenced category must exist; otherwise
// ErrCategoryNotFound is returned and nothing is written.  The
// generated ID and timestamps are populated on the passed record.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO books (book_name, alternate_title, author, book_count_available, language, publisher, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name, b.AlternateTitle, b.Author, b.CountAvailable, b.Language, b.Publisher, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := r.attachCategoriesTx(ctx, tx, b.ID, b.CategoryIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// attachCategoriesTx inserts one association row per category id after
// verifying each category exists.  This is the single code path through
// which a book ever joins a category.
func (r *BookRepo) attachCategoriesTx(ctx context.Context, tx *sql.Tx, bookID uint64, categoryIDs []uint64) error {
	for _, cid := range categoryIDs {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE id = ?`, cid).Scan(&exists)
		if err != nil {
			return err
		}
		if exists == 0 {
			return ErrCategoryNotFound
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO book_categories (book_id, category_id) VALUES (?, ?)`, bookID, cid); err != nil {
			return err
		}
	}
	return nil
}

// GetByID returns a book with its category ids populated.  It returns
// ErrBookNotFound when no row matches.
func (r *BookRepo) GetByID(ctx context.Context, id uint64) (*model.Book, error) {
	var b model.Book
	err := r.db.QueryRowContext(ctx,
		`SELECT id, book_name, alternate_title, author, book_count_available, language, publisher, created_at, updated_at
		 FROM books WHERE id = ?`, id).Scan(
		&b.ID, &b.Name, &b.AlternateTitle, &b.Author, &b.CountAvailable, &b.Language, &b.Publisher, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	b.CategoryIDs, err = r.categoryIDs(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookRepo) categoryIDs(ctx context.Context, bookID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category_id FROM book_categories WHERE book_id = ? ORDER BY category_id`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListAll returns all books ordered newest first with category ids
// populated in a single follow-up query.
func (r *BookRepo) ListAll(ctx context.Context) ([]model.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, book_name, alternate_title, author, book_count_available, language, publisher, created_at, updated_at
		 FROM books ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := make([]model.Book, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Name, &b.AlternateTitle, &b.Author, &b.CountAvailable,
			&b.Language, &b.Publisher, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.CategoryIDs = []uint64{}
		index[b.ID] = len(books)
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return books, nil
	}

	ids := make([]interface{}, 0, len(books))
	placeholders := make([]string, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
		placeholders = append(placeholders, "?")
	}
	crows, err := r.db.QueryContext(ctx,
		`SELECT book_id, category_id FROM book_categories WHERE book_id IN (`+strings.Join(placeholders, ",")+`) ORDER BY category_id`,
		ids...)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	for crows.Next() {
		var bid, cid uint64
		if err := crows.Scan(&bid, &cid); err != nil {
			return nil, err
		}
		if i, ok := index[bid]; ok {
			books[i].CategoryIDs = append(books[i].CategoryIDs, cid)
		}
	}
	return books, crows.Err()
}

// UpdateBookParams carries the optional fields of an administrative
// book edit.  Nil fields are left untouched.  This is a raw correction
// path: it deliberately does not pass through the lending engine.
type UpdateBookParams struct {
	Name           *string
	AlternateTitle *string
	Author         *string
	CountAvailable *int64
	Language       *string
	Publisher      *string
}

// Update applies an administrative edit to a book.  It returns
// ErrBookNotFound when the id does not exist and is a no-op when no
// fields are set.
func (r *BookRepo) Update(ctx context.Context, id uint64, p UpdateBookParams) error {
	sets := make([]string, 0, 7)
	args := make([]interface{}, 0, 8)
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Name != nil {
		add("book_name", *p.Name)
	}
	if p.AlternateTitle != nil {
		add("alternate_title", *p.AlternateTitle)
	}
	if p.Author != nil {
		add("author", *p.Author)
	}
	if p.CountAvailable != nil {
		add("book_count_available", *p.CountAvailable)
	}
	if p.Language != nil {
		add("language", *p.Language)
	}
	if p.Publisher != nil {
		add("publisher", *p.Publisher)
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, `UPDATE books SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Delete removes a book after detaching it from every category.  Both
// steps run in one transaction so a crash can never leave a category
// pointing at a deleted book.  It returns ErrBookNotFound when the id
// does not exist.
func (r *BookRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM book_categories WHERE book_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetForLendingTx loads the fields the lending engine needs about a
// book within an existing transaction.  It returns ErrBookNotFound
// when no row matches.
func (r *BookRepo) GetForLendingTx(ctx context.Context, tx *sql.Tx, id uint64) (name string, available int64, err error) {
	err = tx.QueryRowContext(ctx,
		`SELECT book_name, book_count_available FROM books WHERE id = ?`, id).Scan(&name, &available)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrBookNotFound
	}
	return name, available, err
}

// DecrementAvailableTx atomically takes one copy off the shelf.  The
// WHERE clause re-checks availability so the counter can never go
// negative under concurrent issues; the boolean result reports whether
// a copy was actually taken.
func (r *BookRepo) DecrementAvailableTx(ctx context.Context, tx *sql.Tx, bookID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE books SET book_count_available = book_count_available - 1, updated_at = ?
		 WHERE id = ? AND book_count_available > 0`,
		time.Now().UTC(), bookID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IncrementAvailableTx puts one copy back on the shelf.
func (r *BookRepo) IncrementAvailableTx(ctx context.Context, tx *sql.Tx, bookID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE books SET book_count_available = book_count_available + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), bookID)
	return err
}
