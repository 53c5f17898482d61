package memoryengine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookhive/lending-service-go/lending"
)

// LendingStore keeps books and borrowings in maps guarded by one mutex.
// Every state-changing operation holds the lock for its whole duration, which
// gives the same atomicity and serialization guarantees the Postgres engine
// gets from transactions and row locks.
type LendingStore struct {
	mu         sync.Mutex
	books      map[uuid.UUID]lending.Book
	borrowings map[uuid.UUID]lending.Borrowing
}

// NewLendingStore creates an empty in-memory lending store.
func NewLendingStore() *LendingStore {
	return &LendingStore{
		books:      make(map[uuid.UUID]lending.Book),
		borrowings: make(map[uuid.UUID]lending.Borrowing),
	}
}

// AddBook stores a new catalog entry.
func (s *LendingStore) AddBook(_ context.Context, book lending.Book) error {
	if err := book.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.books[book.ID] = book

	return nil
}

// GetBook retrieves a single catalog entry.
func (s *LendingStore) GetBook(_ context.Context, bookID uuid.UUID) (lending.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[bookID]
	if !ok {
		return lending.Book{}, lending.ErrBookNotFound
	}

	return book, nil
}

// ListBooks retrieves all catalog entries ordered by title.
func (s *LendingStore) ListBooks(_ context.Context) ([]lending.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	books := make([]lending.Book, 0, len(s.books))
	for _, book := range s.books {
		books = append(books, book)
	}

	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })

	return books, nil
}

// CreateBorrowing reserves one copy and records a new open borrowing, all
// under the store lock so the reservation and the record appear together or
// not at all.
func (s *LendingStore) CreateBorrowing(
	_ context.Context,
	userID uuid.UUID,
	bookID uuid.UUID,
	borrowedAt time.Time,
	dueAt time.Time,
) (lending.Borrowing, error) {

	var empty lending.Borrowing

	borrowing, buildErr := lending.BuildBorrowing(uuid.New(), userID, bookID, borrowedAt, dueAt)
	if buildErr != nil {
		return empty, buildErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[bookID]
	if !ok {
		return empty, lending.ErrBookNotFound
	}

	if book.AvailableCopies < 1 {
		return empty, lending.ErrInsufficientInventory
	}

	for _, existing := range s.borrowings {
		if existing.UserID == userID && existing.BookID == bookID && existing.IsActive() {
			return empty, lending.ErrDuplicateActiveBorrowing
		}
	}

	book.AvailableCopies--
	s.books[bookID] = book
	s.borrowings[borrowing.ID] = borrowing

	return borrowing, nil
}

// CloseBorrowing sets the return date and releases the copy, both under the
// store lock. Closing an already-closed borrowing fails with
// lending.ErrAlreadyReturned and changes nothing.
func (s *LendingStore) CloseBorrowing(
	_ context.Context,
	borrowingID uuid.UUID,
	returnedAt time.Time,
) (lending.Borrowing, error) {

	var empty lending.Borrowing

	s.mu.Lock()
	defer s.mu.Unlock()

	borrowing, ok := s.borrowings[borrowingID]
	if !ok {
		return empty, lending.ErrBorrowingNotFound
	}

	closed, closeErr := borrowing.Close(returnedAt)
	if closeErr != nil {
		return empty, closeErr
	}

	book, bookOK := s.books[closed.BookID]
	if !bookOK || book.AvailableCopies >= book.TotalCopies {
		return empty, lending.ErrConsistencyViolation
	}

	book.AvailableCopies++
	s.books[closed.BookID] = book
	s.borrowings[borrowingID] = closed

	return closed, nil
}

// GetBorrowing retrieves a single borrowing.
func (s *LendingStore) GetBorrowing(_ context.Context, borrowingID uuid.UUID) (lending.Borrowing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	borrowing, ok := s.borrowings[borrowingID]
	if !ok {
		return lending.Borrowing{}, lending.ErrBorrowingNotFound
	}

	return borrowing, nil
}

// ListBorrowings retrieves borrowings matching the query, oldest first.
func (s *LendingStore) ListBorrowings(_ context.Context, query lending.BorrowingQuery) ([]lending.Borrowing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	borrowings := make([]lending.Borrowing, 0)

	for _, borrowing := range s.borrowings {
		if query.UserID != nil && borrowing.UserID != *query.UserID {
			continue
		}

		if query.ActiveOnly && !borrowing.IsActive() {
			continue
		}

		borrowings = append(borrowings, borrowing)
	}

	sort.Slice(borrowings, func(i, j int) bool {
		if borrowings[i].BorrowedAt.Equal(borrowings[j].BorrowedAt) {
			return borrowings[i].ID.String() < borrowings[j].ID.String()
		}
		return borrowings[i].BorrowedAt.Before(borrowings[j].BorrowedAt)
	})

	return borrowings, nil
}
