// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the lending engine to distinguish between different
// failure scenarios. For example, ErrBookNotFound indicates that a
// referenced book does not exist, while ErrConflict signals that an
// operation cannot proceed due to conflicting state (e.g. creating a
// category whose name is already taken).
package repository

import "errors"

// ErrConflict is returned when an insert, update or delete cannot be
// performed because of conflicting state, such as a duplicate category
// name or deleting a book that is still attached to categories.
// Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo.Create when the email address
// is already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrMemberIDExists is returned by UserRepo.Create when the supplied
// member id is already taken by another user.
var ErrMemberIDExists = errors.New("member id already exists")

// ErrBookNotFound is returned when a book id does not resolve to a row.
var ErrBookNotFound = errors.New("book not found")

// ErrCategoryNotFound is returned when a category id or name does not
// resolve to a row.
var ErrCategoryNotFound = errors.New("category not found")

// ErrUserNotFound is returned when a user cannot be resolved by id,
// member id or email.
var ErrUserNotFound = errors.New("user not found")

// ErrTransactionNotFound is returned when a transaction id does not
// resolve to a row.
var ErrTransactionNotFound = errors.New("transaction not found")
