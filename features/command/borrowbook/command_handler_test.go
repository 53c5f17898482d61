package borrowbook_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhive/lending-service-go/features/command/borrowbook"
	"github.com/bookhive/lending-service-go/lending"
	"github.com/bookhive/lending-service-go/lending/memoryengine"
	"github.com/bookhive/lending-service-go/shared/shell"
)

const notificationWaitTimeout = time.Second

// capturingNotifier records every published notification on a channel so tests
// can wait for the fire-and-forget goroutine.
type capturingNotifier struct {
	published chan lending.BorrowingCreated
	failWith  error
}

func newCapturingNotifier() *capturingNotifier {
	return &capturingNotifier{published: make(chan lending.BorrowingCreated, 1)}
}

func (n *capturingNotifier) PublishBorrowingCreated(_ context.Context, notification lending.BorrowingCreated) error {
	n.published <- notification
	return n.failWith
}

// flakyStore fails with a transaction conflict a fixed number of times before
// delegating to the real store.
type flakyStore struct {
	*memoryengine.LendingStore
	conflictsLeft int
}

func (s *flakyStore) CreateBorrowing(
	ctx context.Context,
	userID uuid.UUID,
	bookID uuid.UUID,
	borrowedAt time.Time,
	dueAt time.Time,
) (lending.Borrowing, error) {
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		return lending.Borrowing{}, lending.ErrTransactionConflict
	}

	return s.LendingStore.CreateBorrowing(ctx, userID, bookID, borrowedAt, dueAt)
}

func fakeClock() time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
}

func setupStoreWithBook(t *testing.T) (*memoryengine.LendingStore, lending.Book) {
	t.Helper()

	store := memoryengine.NewLendingStore()
	book := lending.BuildBook(uuid.New(), "Accelerate", "Nicole Forsgren", lending.CoverSoft, "1.00", 3)
	require.NoError(t, store.AddBook(context.Background(), book))

	return store, book
}

func Test_CommandHandler_Handle_Success(t *testing.T) {
	// setup
	ctx := context.Background()
	store, book := setupStoreWithBook(t)
	notifier := newCapturingNotifier()
	handler := borrowbook.NewCommandHandler(store, notifier)

	userID := uuid.New()
	command := borrowbook.BuildCommand(userID, book.ID, fakeClock().AddDate(0, 0, 14), fakeClock())

	// act
	borrowing, err := handler.Handle(ctx, command)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, userID, borrowing.UserID)
	assert.Equal(t, book.ID, borrowing.BookID)
	assert.True(t, borrowing.IsActive())

	stored, getErr := store.GetBook(ctx, book.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, 2, stored.AvailableCopies)

	select {
	case notification := <-notifier.published:
		assert.Equal(t, borrowing.ID, notification.BorrowingID)
		assert.Equal(t, "Accelerate", notification.BookTitle)
	case <-time.After(notificationWaitTimeout):
		t.Fatal("expected a borrowing-created notification")
	}
}

func Test_CommandHandler_Handle_Error_NoNotificationPublished(t *testing.T) {
	// setup
	ctx := context.Background()
	store, book := setupStoreWithBook(t)
	notifier := newCapturingNotifier()
	handler := borrowbook.NewCommandHandler(store, notifier)

	userID := uuid.New()
	command := borrowbook.BuildCommand(userID, book.ID, fakeClock().AddDate(0, 0, 14), fakeClock())

	_, err := handler.Handle(ctx, command)
	require.NoError(t, err)
	<-notifier.published

	// act: the same user borrowing the same book again is rejected
	_, err = handler.Handle(ctx, command)

	// assert
	assert.ErrorIs(t, err, lending.ErrDuplicateActiveBorrowing)

	select {
	case <-notifier.published:
		t.Fatal("a failed command must not publish a notification")
	case <-time.After(50 * time.Millisecond):
		// expected
	}
}

func Test_CommandHandler_Handle_RetriesTransactionConflicts(t *testing.T) {
	// setup
	ctx := context.Background()
	store, book := setupStoreWithBook(t)
	flaky := &flakyStore{LendingStore: store, conflictsLeft: 2}
	notifier := newCapturingNotifier()
	handler := borrowbook.NewCommandHandler(flaky, notifier,
		borrowbook.WithRetryOptions(shell.WithBaseDelay(time.Millisecond)))

	command := borrowbook.BuildCommand(uuid.New(), book.ID, fakeClock().AddDate(0, 0, 14), fakeClock())

	// act
	borrowing, err := handler.Handle(ctx, command)

	// assert
	assert.NoError(t, err, "transient conflicts must be retried away")
	assert.True(t, borrowing.IsActive())
	assert.Equal(t, 0, flaky.conflictsLeft)
}

func Test_CommandHandler_Handle_ConflictsExhaustRetries(t *testing.T) {
	// setup
	ctx := context.Background()
	store, book := setupStoreWithBook(t)
	flaky := &flakyStore{LendingStore: store, conflictsLeft: 10}
	handler := borrowbook.NewCommandHandler(flaky, nil,
		borrowbook.WithRetryOptions(shell.WithMaxAttempts(2), shell.WithBaseDelay(time.Millisecond)))

	command := borrowbook.BuildCommand(uuid.New(), book.ID, fakeClock().AddDate(0, 0, 14), fakeClock())

	// act
	_, err := handler.Handle(ctx, command)

	// assert
	assert.ErrorIs(t, err, lending.ErrTransactionConflict)
}

func Test_CommandHandler_Handle_NotificationFailureDoesNotAffectOutcome(t *testing.T) {
	// setup
	ctx := context.Background()
	store, book := setupStoreWithBook(t)
	notifier := newCapturingNotifier()
	notifier.failWith = assert.AnError
	handler := borrowbook.NewCommandHandler(store, notifier)

	command := borrowbook.BuildCommand(uuid.New(), book.ID, fakeClock().AddDate(0, 0, 14), fakeClock())

	// act
	borrowing, err := handler.Handle(ctx, command)

	// assert
	assert.NoError(t, err, "sink failures are swallowed")
	assert.True(t, borrowing.IsActive())
	<-notifier.published
}
