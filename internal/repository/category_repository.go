package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/online-library/internal/model"
)

// CategoryRepo provides persistence for book categories.  The list of
// books in a category is read from the book_categories association
// table, which BookRepo maintains; this repository never writes
// association rows itself.
type CategoryRepo struct {
	db *sql.DB
}

// NewCategoryRepo returns a new CategoryRepo bound to the given database.
func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// Create inserts a category with a unique name.  A duplicate name
// yields ErrConflict.
func (r *CategoryRepo) Create(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	var exists int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE category_name = ?`, name).Scan(&exists); err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, ErrConflict
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (category_name, created_at) VALUES (?, ?)`, name, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Category{ID: uint64(id), Name: name, BookIDs: []uint64{}, CreatedAt: now}, nil
}

// ListAll returns all categories newest first with their book ids.
func (r *CategoryRepo) ListAll(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category_name, created_at FROM categories ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cats := make([]model.Category, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.BookIDs = []uint64{}
		index[c.ID] = len(cats)
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return cats, nil
	}
	brows, err := r.db.QueryContext(ctx, `SELECT category_id, book_id FROM book_categories ORDER BY book_id`)
	if err != nil {
		return nil, err
	}
	defer brows.Close()
	for brows.Next() {
		var cid, bid uint64
		if err := brows.Scan(&cid, &bid); err != nil {
			return nil, err
		}
		if i, ok := index[cid]; ok {
			cats[i].BookIDs = append(cats[i].BookIDs, bid)
		}
	}
	return cats, brows.Err()
}

// GetByName returns a category and its book ids, or ErrCategoryNotFound.
func (r *CategoryRepo) GetByName(ctx context.Context, name string) (*model.Category, error) {
	var c model.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, category_name, created_at FROM categories WHERE category_name = ?`,
		strings.TrimSpace(name)).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	c.BookIDs = []uint64{}
	rows, err := r.db.QueryContext(ctx,
		`SELECT book_id FROM book_categories WHERE category_id = ? ORDER BY book_id`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var bid uint64
		if err := rows.Scan(&bid); err != nil {
			return nil, err
		}
		c.BookIDs = append(c.BookIDs, bid)
	}
	return &c, rows.Err()
}
