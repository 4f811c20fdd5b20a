package model

import "time"

// Category groups books for browsing.  The set of member books lives in
// the book_categories association table; BookIDs is populated from it
// when a category is loaded.
type Category struct {
	ID        uint64    `json:"id"`           // categories.id
	Name      string    `json:"categoryName"` // categories.category_name (unique)
	BookIDs   []uint64  `json:"books"`        // book_categories.book_id
	CreatedAt time.Time `json:"createdAt"`    // categories.created_at
}
