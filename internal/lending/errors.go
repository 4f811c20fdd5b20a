// Package lending implements the transaction lifecycle engine: the
// operations that move a book transaction through its states while
// keeping the inventory counter and the per-member transaction lists
// consistent with the ledger.  Every operation runs as a single
// database transaction; a failed transition leaves prior state
// untouched.
package lending

import "errors"

// The four domain error kinds callers may observe.  Handlers map them
// to HTTP status codes (400/404/409/403); anything else coming out of
// the engine is an internal storage failure.  Operations wrap these
// sentinels with context, so they must be matched with errors.Is.
var (
	// ErrValidation marks malformed or missing input.  The caller
	// must correct the request and retry.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound marks a referenced book, user or transaction that
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a state-machine precondition violation:
	// wrong status for the transition, no available copy, or a
	// duplicate open request for the same book and borrower.
	ErrConflict = errors.New("conflict")

	// ErrForbidden marks an ownership check failure on cancel.
	ErrForbidden = errors.New("forbidden")
)
