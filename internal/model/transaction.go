package model

import "time"

// TransactionType distinguishes a lent copy from a held one.
type TransactionType string

// TransactionStatus is the lifecycle state of a lending episode.
type TransactionStatus string

const (
	TypeIssued   TransactionType = "Issued"
	TypeReserved TransactionType = "Reserved"

	StatusPending   TransactionStatus = "Pending"
	StatusActive    TransactionStatus = "Active"
	StatusReserved  TransactionStatus = "Reserved"
	StatusCompleted TransactionStatus = "Completed"
)

// ValidType reports whether t is one of the two accepted transaction types.
func ValidType(t TransactionType) bool {
	return t == TypeIssued || t == TypeReserved
}

// BookTransaction is the authoritative record of one lending episode.
// Book name and borrower name are denormalized snapshots taken at
// creation time so the record stays readable after catalog edits.
// BorrowerID holds the member's external identifier (member id when the
// user has one, email otherwise), not the users table primary key.
//
// Fields:
//  ID           – primary key identifier.
//  BookID       – the book being lent (must exist at creation).
//  BorrowerID   – external identifier of the borrower.
//  BookName     – snapshot of the book title.
//  BorrowerName – snapshot of the borrower's full name.
//  Type         – Issued or Reserved.
//  Status       – Pending, Active, Reserved or Completed.
//  FromDate     – requested start of the borrow window.
//  ToDate       – agreed due date (never before FromDate).
//  ReturnDate   – set when the episode completes.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type BookTransaction struct {
	ID           uint64            `json:"id"`                // book_transactions.id
	BookID       uint64            `json:"bookId"`            // book_transactions.book_id
	BorrowerID   string            `json:"borrowerId"`        // book_transactions.borrower_id
	BookName     string            `json:"bookName"`          // book_transactions.book_name
	BorrowerName string            `json:"borrowerName"`      // book_transactions.borrower_name
	Type         TransactionType   `json:"transactionType"`   // book_transactions.transaction_type
	Status       TransactionStatus `json:"transactionStatus"` // book_transactions.transaction_status
	FromDate     time.Time         `json:"fromDate"`          // book_transactions.from_date
	ToDate       time.Time         `json:"toDate"`            // book_transactions.to_date
	ReturnDate   *time.Time        `json:"returnDate"`        // book_transactions.return_date (nullable)
	CreatedAt    time.Time         `json:"createdAt"`         // book_transactions.created_at
	UpdatedAt    time.Time         `json:"updatedAt"`         // book_transactions.updated_at
}
