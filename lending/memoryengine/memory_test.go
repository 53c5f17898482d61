package memoryengine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhive/lending-service-go/lending"
	"github.com/bookhive/lending-service-go/lending/memoryengine"
)

func fakeClock() time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
}

func addBookWithCopies(t *testing.T, store *memoryengine.LendingStore, copies int) lending.Book {
	t.Helper()

	book := lending.BuildBook(uuid.New(), "Learning Domain-Driven Design", "Vlad Khononov", lending.CoverSoft, "1.50", copies)
	require.NoError(t, store.AddBook(context.Background(), book))

	return book
}

func Test_LendingStore_CreateBorrowing_ReservesOneCopy(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewLendingStore()
	book := addBookWithCopies(t, store, 5)

	// act
	borrowing, err := store.CreateBorrowing(ctx, uuid.New(), book.ID, fakeClock(), fakeClock().AddDate(0, 0, 14))

	// assert
	assert.NoError(t, err)
	assert.True(t, borrowing.IsActive())

	stored, getErr := store.GetBook(ctx, book.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, 4, stored.AvailableCopies)
	assert.Equal(t, 5, stored.TotalCopies)
}

func Test_LendingStore_CreateBorrowing_Error_UnknownBook(t *testing.T) {
	store := memoryengine.NewLendingStore()

	_, err := store.CreateBorrowing(context.Background(), uuid.New(), uuid.New(), fakeClock(), fakeClock().AddDate(0, 0, 14))

	assert.ErrorIs(t, err, lending.ErrBookNotFound)
}

func Test_LendingStore_CreateBorrowing_Error_InsufficientInventory(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewLendingStore()
	book := addBookWithCopies(t, store, 1)

	_, err := store.CreateBorrowing(ctx, uuid.New(), book.ID, fakeClock(), fakeClock().AddDate(0, 0, 14))
	require.NoError(t, err)

	// act
	_, err = store.CreateBorrowing(ctx, uuid.New(), book.ID, fakeClock(), fakeClock().AddDate(0, 0, 14))

	// assert
	assert.ErrorIs(t, err, lending.ErrInsufficientInventory)

	stored, getErr := store.GetBook(ctx, book.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, 0, stored.AvailableCopies, "the failed attempt must not change inventory")
}

func Test_LendingStore_CreateBorrowing_Error_DuplicateActiveBorrowing(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewLendingStore()
	book := addBookWithCopies(t, store, 5)
	userID := uuid.New()

	_, err := store.CreateBorrowing(ctx, userID, book.ID, fakeClock(), fakeClock().AddDate(0, 0, 14))
	require.NoError(t, err)

	// act
	_, err = store.CreateBorrowing(ctx, userID, book.ID, fakeClock(), fakeClock().AddDate(0, 0, 14))

	// assert
	assert.ErrorIs(t, err, lending.ErrDuplicateActiveBorrowing)

	stored, getErr := store.GetBook(ctx, book.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, 4, stored.AvailableCopies, "the rejected duplicate must not reserve a second copy")
}

func Test_LendingStore_CreateBorrowing_AllowedAgainAfterReturn(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewLendingStore()
	book := addBookWithCopies(t, store, 5)
	userID := uuid.New()

	first, err := store.CreateBorrowing(ctx, userID, book.ID, fakeClock(), fakeClock().AddDate(0, 0, 14))
	require.NoError(t, err)

	_, err = store.CloseBorrowing(ctx, first.ID, fakeClock().AddDate(0, 0, 7))
	require.NoError(t, err)

	// act
	second, err := store.CreateBorrowing(ctx, userID, book.ID, fakeClock().AddDate(0, 0, 8), fakeClock().AddDate(0, 0, 22))

	// assert
	assert.NoError(t, err, "a closed borrowing must not block a new one for the same pair")
	assert.True(t, second.IsActive())
}

func Test_LendingStore_CloseBorrowing_ReleasesTheCopy(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewLendingStore()
	book := addBookWithCopies(t, store, 5)

	borrowing, err := store.CreateBorrowing(ctx, uuid.New(), book.ID, fakeClock(), fakeClock().AddDate(0, 0, 14))
	require.NoError(t, err)

	// act
	closed, closeErr := store.CloseBorrowing(ctx, borrowing.ID, fakeClock().AddDate(0, 0, 7))

	// assert
	assert.NoError(t, closeErr)
	assert.False(t, closed.IsActive())

	stored, getErr := store.GetBook(ctx, book.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, 5, stored.AvailableCopies)
}

func Test_LendingStore_CloseBorrowing_Error_AlreadyReturned_NoDoubleRelease(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewLendingStore()
	book := addBookWithCopies(t, store, 5)

	borrowing, err := store.CreateBorrowing(ctx, uuid.New(), book.ID, fakeClock(), fakeClock().AddDate(0, 0, 14))
	require.NoError(t, err)

	_, err = store.CloseBorrowing(ctx, borrowing.ID, fakeClock().AddDate(0, 0, 7))
	require.NoError(t, err)

	// act
	_, secondCloseErr := store.CloseBorrowing(ctx, borrowing.ID, fakeClock().AddDate(0, 0, 8))

	// assert
	assert.ErrorIs(t, secondCloseErr, lending.ErrAlreadyReturned)

	stored, getErr := store.GetBook(ctx, book.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, 5, stored.AvailableCopies, "the repeated close must not release a second copy")

	kept, getBorrowingErr := store.GetBorrowing(ctx, borrowing.ID)
	assert.NoError(t, getBorrowingErr)
	assert.Equal(t, fakeClock().AddDate(0, 0, 7), *kept.ReturnedAt, "the first return date must survive")
}

func Test_LendingStore_CloseBorrowing_Error_ConsistencyViolation_ReleaseOverCap(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewLendingStore()
	book := addBookWithCopies(t, store, 1)

	borrowing, err := store.CreateBorrowing(ctx, uuid.New(), book.ID, fakeClock(), fakeClock().AddDate(0, 0, 14))
	require.NoError(t, err)

	// re-adding the book restores the full pool while the borrowing stays open,
	// so the release would push available above total
	require.NoError(t, store.AddBook(ctx, book))

	// act
	_, closeErr := store.CloseBorrowing(ctx, borrowing.ID, fakeClock().AddDate(0, 0, 7))

	// assert
	assert.ErrorIs(t, closeErr, lending.ErrConsistencyViolation)

	stored, getErr := store.GetBook(ctx, book.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, 1, stored.AvailableCopies, "the failed release must not change inventory")
	assert.Equal(t, 1, stored.TotalCopies)

	kept, getBorrowingErr := store.GetBorrowing(ctx, borrowing.ID)
	assert.NoError(t, getBorrowingErr)
	assert.True(t, kept.IsActive(), "the violation must never be silently repaired")
}

func Test_LendingStore_CloseBorrowing_Error_Unknown(t *testing.T) {
	store := memoryengine.NewLendingStore()

	_, err := store.CloseBorrowing(context.Background(), uuid.New(), fakeClock())

	assert.ErrorIs(t, err, lending.ErrBorrowingNotFound)
}

func Test_LendingStore_ListBorrowings_Filters(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewLendingStore()
	book := addBookWithCopies(t, store, 5)
	otherBook := addBookWithCopies(t, store, 5)

	userA := uuid.New()
	userB := uuid.New()

	active, err := store.CreateBorrowing(ctx, userA, book.ID, fakeClock(), fakeClock().AddDate(0, 0, 14))
	require.NoError(t, err)

	returned, err := store.CreateBorrowing(ctx, userA, otherBook.ID, fakeClock().AddDate(0, 0, 1), fakeClock().AddDate(0, 0, 15))
	require.NoError(t, err)
	_, err = store.CloseBorrowing(ctx, returned.ID, fakeClock().AddDate(0, 0, 2))
	require.NoError(t, err)

	_, err = store.CreateBorrowing(ctx, userB, book.ID, fakeClock().AddDate(0, 0, 3), fakeClock().AddDate(0, 0, 17))
	require.NoError(t, err)

	// act
	all, err := store.ListBorrowings(ctx, lending.BorrowingQuery{})
	require.NoError(t, err)

	activeOnly, err := store.ListBorrowings(ctx, lending.BorrowingQuery{ActiveOnly: true})
	require.NoError(t, err)

	userAOnly, err := store.ListBorrowings(ctx, lending.BorrowingQuery{UserID: &userA})
	require.NoError(t, err)

	// assert
	assert.Len(t, all, 3)
	assert.Equal(t, active.ID, all[0].ID, "oldest borrow date comes first")

	assert.Len(t, activeOnly, 2)
	for _, borrowing := range activeOnly {
		assert.True(t, borrowing.IsActive())
	}

	assert.Len(t, userAOnly, 2)
	for _, borrowing := range userAOnly {
		assert.Equal(t, userA, borrowing.UserID)
	}
}

func Test_LendingStore_ListBooks_OrderedByTitle(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewLendingStore()

	require.NoError(t, store.AddBook(ctx, lending.BuildBook(uuid.New(), "Zen", "A", lending.CoverSoft, "1.00", 1)))
	require.NoError(t, store.AddBook(ctx, lending.BuildBook(uuid.New(), "Antifragile", "B", lending.CoverHard, "2.00", 1)))
	require.NoError(t, store.AddBook(ctx, lending.BuildBook(uuid.New(), "Mastery", "C", lending.CoverSoft, "1.25", 1)))

	// act
	books, err := store.ListBooks(ctx)

	// assert
	assert.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "Antifragile", books[0].Title)
	assert.Equal(t, "Mastery", books[1].Title)
	assert.Equal(t, "Zen", books[2].Title)
}

func Test_LendingStore_CreateBorrowing_ConcurrentRequestsForLastCopy(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewLendingStore()
	book := addBookWithCopies(t, store, 1)

	const attempts = 16
	results := make(chan error, attempts)

	// act
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CreateBorrowing(ctx, uuid.New(), book.ID, fakeClock(), fakeClock().AddDate(0, 0, 14))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	// assert
	successes := 0
	insufficient := 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			assert.ErrorIs(t, err, lending.ErrInsufficientInventory)
			insufficient++
		}
	}

	assert.Equal(t, 1, successes, "exactly one request may win the last copy")
	assert.Equal(t, attempts-1, insufficient)

	stored, getErr := store.GetBook(ctx, book.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, 0, stored.AvailableCopies, "inventory must never go negative")
}
