package model

import "time"

// Book represents a catalog entry with its physical copy counter.
// CountAvailable is mutated only by the lending engine (issue, approve,
// return); catalog handlers never touch it after creation.  Category
// membership lives in the book_categories association table and is
// surfaced here as a plain id slice.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – book title.
//  AlternateTitle – optional secondary title.
//  Author         – author name.
//  CountAvailable – copies currently on the shelf (never negative).
//  Language       – optional language tag.
//  Publisher      – optional publisher name.
//  CategoryIDs    – ids of categories this book belongs to.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Book struct {
	ID             uint64    `json:"id"`                  // books.id
	Name           string    `json:"bookName"`            // books.book_name
	AlternateTitle string    `json:"alternateTitle"`      // books.alternate_title
	Author         string    `json:"author"`              // books.author
	CountAvailable int64     `json:"bookCountAvailable"`  // books.book_count_available
	Language       string    `json:"language"`            // books.language
	Publisher      string    `json:"publisher"`           // books.publisher
	CategoryIDs    []uint64  `json:"categories"`          // book_categories.category_id
	CreatedAt      time.Time `json:"createdAt"`           // books.created_at
	UpdatedAt      time.Time `json:"updatedAt"`           // books.updated_at
}
