package lending

import (
	"errors"
)

var (
	// ErrBookNotFound is returned when the referenced book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrBorrowingNotFound is returned when the referenced borrowing does not exist.
	ErrBorrowingNotFound = errors.New("borrowing not found")

	// ErrInsufficientInventory is returned when a borrowing is requested for a book
	// with no available copies. The inventory is left unchanged.
	ErrInsufficientInventory = errors.New("no available copies of this book")

	// ErrDuplicateActiveBorrowing is returned when the user already holds an active
	// borrowing for this book. Enforced by the storage layer, never checked-then-inserted.
	ErrDuplicateActiveBorrowing = errors.New("user already has an active borrowing for this book")

	// ErrAlreadyReturned is returned when closing a borrowing whose return date is
	// already set. The repeated close has no side effects.
	ErrAlreadyReturned = errors.New("borrowing is already returned")

	// ErrTransactionConflict signals storage-layer contention (serialization failure
	// or deadlock). It is transient and safe to retry.
	ErrTransactionConflict = errors.New("transaction conflict, operation can be retried")

	// ErrConsistencyViolation signals that a release would push available copies
	// above the total, or that a row the engine owns has vanished mid-operation.
	// It indicates an upstream bug and is never silently repaired.
	ErrConsistencyViolation = errors.New("inventory consistency violation")

	// ErrInvalidDueDate is returned when the due date is not after the borrow date.
	ErrInvalidDueDate = errors.New("due date must be after the borrow date")

	// ErrInvalidReturnDate is returned when a supplied return date lies before the
	// borrow date.
	ErrInvalidReturnDate = errors.New("return date must not be before the borrow date")

	// ErrInvalidBookCopies is returned when a book is stored with a negative total
	// or with more available than total copies.
	ErrInvalidBookCopies = errors.New("book copies out of range")

	// ErrNilDatabaseConnection is returned by engine constructors when the supplied
	// database handle is nil.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned by engine options when an empty table name is supplied.
	ErrEmptyTableName = errors.New("empty table name supplied")
)

// IsRetryable reports whether the error is transient storage contention that a
// caller may safely retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionConflict)
}
