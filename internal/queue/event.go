// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names used for lending events.
const (
	LoanIssuedQueue   = "loan.issued"
	BookReturnedQueue = "book.returned"
)

// LoanIssuedEvent is published when a copy leaves the shelf, either
// through a direct issue/reserve or through the approval of a pending
// request.  It carries enough information for downstream consumers to
// log or notify without querying the primary database.
type LoanIssuedEvent struct {
	TransactionID uint64 `json:"transaction_id"`
	BookID        uint64 `json:"book_id"`
	BookName      string `json:"book_name"`
	BorrowerID    string `json:"borrower_id"`
	BorrowerName  string `json:"borrower_name"`
	Type          string `json:"transaction_type"`
	FromDate      string `json:"from_date"`
	ToDate        string `json:"to_date"`
	IssuedAt      string `json:"issued_at"`
}

// BookReturnedEvent is published when an open transaction completes.
// Fine is the computed overdue charge at return time.
type BookReturnedEvent struct {
	TransactionID uint64 `json:"transaction_id"`
	BookID        uint64 `json:"book_id"`
	BookName      string `json:"book_name"`
	BorrowerID    string `json:"borrower_id"`
	BorrowerName  string `json:"borrower_name"`
	Fine          int64  `json:"fine"`
	ReturnedAt    string `json:"returned_at"`
}
