package returnbook_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhive/lending-service-go/features/command/returnbook"
	"github.com/bookhive/lending-service-go/lending"
	"github.com/bookhive/lending-service-go/lending/memoryengine"
)

func fakeClock() time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
}

func setupOpenBorrowing(t *testing.T) (*memoryengine.LendingStore, lending.Borrowing) {
	t.Helper()

	ctx := context.Background()
	store := memoryengine.NewLendingStore()

	book := lending.BuildBook(uuid.New(), "Release It!", "Michael Nygard", lending.CoverSoft, "1.00", 2)
	require.NoError(t, store.AddBook(ctx, book))

	borrowing, err := store.CreateBorrowing(ctx, uuid.New(), book.ID, fakeClock(), fakeClock().AddDate(0, 0, 14))
	require.NoError(t, err)

	return store, borrowing
}

func Test_CommandHandler_Handle_Success(t *testing.T) {
	// setup
	ctx := context.Background()
	store, borrowing := setupOpenBorrowing(t)
	handler := returnbook.NewCommandHandler(store)

	returnedAt := fakeClock().AddDate(0, 0, 7)
	command := returnbook.BuildCommand(borrowing.ID, &returnedAt, fakeClock().AddDate(0, 0, 9))

	// act
	closed, err := handler.Handle(ctx, command)

	// assert
	assert.NoError(t, err)
	assert.False(t, closed.IsActive())
	assert.Equal(t, returnedAt, *closed.ReturnedAt, "an explicit return date wins over the clock")
}

func Test_CommandHandler_Handle_DefaultsReturnDateToNow(t *testing.T) {
	// setup
	ctx := context.Background()
	store, borrowing := setupOpenBorrowing(t)
	handler := returnbook.NewCommandHandler(store)

	now := fakeClock().AddDate(0, 0, 5)
	command := returnbook.BuildCommand(borrowing.ID, nil, now)

	// act
	closed, err := handler.Handle(ctx, command)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, now, *closed.ReturnedAt)
}

func Test_CommandHandler_Handle_Error_AlreadyReturned(t *testing.T) {
	// setup
	ctx := context.Background()
	store, borrowing := setupOpenBorrowing(t)
	handler := returnbook.NewCommandHandler(store)

	command := returnbook.BuildCommand(borrowing.ID, nil, fakeClock().AddDate(0, 0, 5))

	_, err := handler.Handle(ctx, command)
	require.NoError(t, err)

	// act
	_, err = handler.Handle(ctx, command)

	// assert
	assert.ErrorIs(t, err, lending.ErrAlreadyReturned)
}

func Test_CommandHandler_Handle_Error_BorrowingNotFound(t *testing.T) {
	// setup
	store := memoryengine.NewLendingStore()
	handler := returnbook.NewCommandHandler(store)

	command := returnbook.BuildCommand(uuid.New(), nil, fakeClock())

	// act
	_, err := handler.Handle(context.Background(), command)

	// assert
	assert.ErrorIs(t, err, lending.ErrBorrowingNotFound)
}
