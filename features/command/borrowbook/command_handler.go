package borrowbook

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bookhive/lending-service-go/lending"
	"github.com/bookhive/lending-service-go/shared/shell"
)

const (
	logMsgNotificationFailed = "failed to publish borrowing-created notification"
	logMsgBookTitleLookup    = "failed to look up book title for notification"
	logAttrError             = "error"
	logAttrBorrowingID       = "borrowing_id"
)

// LendingStore defines the interface needed by the CommandHandler for storage operations.
type LendingStore interface {
	CreateBorrowing(
		ctx context.Context,
		userID uuid.UUID,
		bookID uuid.UUID,
		borrowedAt time.Time,
		dueAt time.Time,
	) (lending.Borrowing, error)
	GetBook(ctx context.Context, bookID uuid.UUID) (lending.Book, error)
}

// Notifier is the fire-and-forget notification sink informed of each created
// borrowing. Its failures must never affect the command outcome.
type Notifier interface {
	PublishBorrowingCreated(ctx context.Context, notification lending.BorrowingCreated) error
}

// Logger receives warnings about swallowed notification failures.
type Logger interface {
	Warn(msg string, args ...any)
}

// CommandHandler orchestrates the borrow-book workflow: create the borrowing
// (the engine reserves the copy in the same transaction), retry transient
// conflicts with exponential backoff, and publish the notification after the
// transaction has committed.
type CommandHandler struct {
	store        LendingStore
	notifier     Notifier
	logger       Logger
	retryOptions []shell.RetryOption
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithRetryOptions sets a custom retry configuration for the handler.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(h *CommandHandler) {
		h.retryOptions = opts
	}
}

// WithLogger sets the logger used for swallowed notification failures.
func WithLogger(logger Logger) Option {
	return func(h *CommandHandler) {
		h.logger = logger
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(store LendingStore, notifier Notifier, opts ...Option) CommandHandler {
	handler := CommandHandler{
		store:    store,
		notifier: notifier,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle executes the borrow-book workflow and returns the created borrowing.
//
// Resilience: lending.ErrTransactionConflict is retried with exponential
// backoff up to a small bound; all domain errors (insufficient inventory,
// duplicate active borrowing, unknown book, invalid due date) fail fast.
func (h CommandHandler) Handle(ctx context.Context, command Command) (lending.Borrowing, error) {
	var borrowing lending.Borrowing

	err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var createErr error
		borrowing, createErr = h.store.CreateBorrowing(
			retryCtx, command.UserID, command.BookID, command.OccurredAt, command.DueAt)

		return createErr
	}, h.retryOptions...)

	if err != nil {
		return lending.Borrowing{}, err
	}

	h.publishNotification(ctx, borrowing)

	return borrowing, nil
}

// publishNotification informs the sink about the committed borrowing.
// It runs in its own goroutine with a context that survives request
// cancellation; failures are logged and swallowed.
func (h CommandHandler) publishNotification(ctx context.Context, borrowing lending.Borrowing) {
	if h.notifier == nil {
		return
	}

	bookTitle := ""
	if book, lookupErr := h.store.GetBook(ctx, borrowing.BookID); lookupErr == nil {
		bookTitle = book.Title
	} else {
		h.logWarn(logMsgBookTitleLookup, logAttrError, lookupErr.Error(), logAttrBorrowingID, borrowing.ID.String())
	}

	notification := lending.BuildBorrowingCreated(borrowing, bookTitle)
	notifyCtx := context.WithoutCancel(ctx)

	go func() {
		if publishErr := h.notifier.PublishBorrowingCreated(notifyCtx, notification); publishErr != nil {
			h.logWarn(logMsgNotificationFailed, logAttrError, publishErr.Error(), logAttrBorrowingID, borrowing.ID.String())
		}
	}()
}

func (h CommandHandler) logWarn(msg string, args ...any) {
	if h.logger != nil {
		h.logger.Warn(msg, args...)
	}
}
