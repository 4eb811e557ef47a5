package types

import "time"

// BorrowStatus is the lifecycle state of a borrow request.
type BorrowStatus string

// Borrow request lifecycle states. A request starts pending and is
// decided exactly once; approved and denied are terminal.
const (
	StatusPending  BorrowStatus = "pending"
	StatusApproved BorrowStatus = "approved"
	StatusDenied   BorrowStatus = "denied"
)

// Valid reports whether s is a recognized lifecycle state.
func (s BorrowStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is permitted out of s.
func (s BorrowStatus) Terminal() bool {
	return s == StatusApproved || s == StatusDenied
}

// BorrowRequest represents a patron's ask to hold a book for a date range.
type BorrowRequest struct {
	// ID is the unique identifier of the borrow request.
	ID int `json:"id" db:"id"`

	// BookID identifies the book this request is for.
	BookID int `json:"book_id" db:"book_id"`

	// UserID identifies the patron who submitted the request.
	UserID int `json:"user_id" db:"user_id"`

	// BorrowDate is the first day of the requested hold.
	BorrowDate Date `json:"borrow_date" db:"borrow_date"`

	// ReturnDate is the day the hold ends. The interval is half-open:
	// [BorrowDate, ReturnDate). ReturnDate is strictly after BorrowDate.
	ReturnDate Date `json:"return_date" db:"return_date"`

	// Status is the lifecycle state of the request.
	Status BorrowStatus `json:"status" db:"status"`

	// DecidedBy identifies the librarian who approved or denied the
	// request, or nil while the request is pending.
	DecidedBy *int `json:"decided_by,omitempty" db:"decided_by"`

	// CreatedAt is the timestamp when the request was submitted.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the request.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Overlaps reports whether the request's interval shares at least one
// day with [borrow, ret) under half-open comparison.
func (r BorrowRequest) Overlaps(borrow, ret Date) bool {
	return r.BorrowDate.Before(ret) && r.ReturnDate.After(borrow)
}
