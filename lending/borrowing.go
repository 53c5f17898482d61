package lending

import (
	"time"

	"github.com/google/uuid"
)

// Borrowing is a record of one copy of a book held by one user for a bounded
// period. ReturnedAt is nil while the borrowing is open; it is set exactly
// once when the borrowing is closed and the copy is released back to the pool.
//
// Lifecycle: OPEN (ReturnedAt == nil) -> CLOSED (ReturnedAt set), one-way.
// Borrowings are historical records and are never deleted.
type Borrowing struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	BookID     uuid.UUID
	BorrowedAt time.Time
	DueAt      time.Time
	ReturnedAt *time.Time
}

// BuildBorrowing creates a new open Borrowing.
// It fails with ErrInvalidDueDate when dueAt is not after borrowedAt.
func BuildBorrowing(id uuid.UUID, userID uuid.UUID, bookID uuid.UUID, borrowedAt time.Time, dueAt time.Time) (Borrowing, error) {
	if !dueAt.After(borrowedAt) {
		return Borrowing{}, ErrInvalidDueDate
	}

	return Borrowing{
		ID:         id,
		UserID:     userID,
		BookID:     bookID,
		BorrowedAt: borrowedAt,
		DueAt:      dueAt,
	}, nil
}

// IsActive reports whether the borrowing is still open (no return date recorded).
func (b Borrowing) IsActive() bool {
	return b.ReturnedAt == nil
}

// Close returns a copy of the borrowing with the return date set.
// It fails with ErrAlreadyReturned when the borrowing is already closed and
// with ErrInvalidReturnDate when returnedAt lies before the borrow date.
func (b Borrowing) Close(returnedAt time.Time) (Borrowing, error) {
	if b.ReturnedAt != nil {
		return b, ErrAlreadyReturned
	}

	if returnedAt.Before(b.BorrowedAt) {
		return b, ErrInvalidReturnDate
	}

	closed := b
	closed.ReturnedAt = &returnedAt

	return closed, nil
}
