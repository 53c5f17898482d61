// Package returnbook implements the return-book use case: close an open
// borrowing and release the reserved copy back to the pool.
package returnbook

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bookhive/lending-service-go/lending"
	"github.com/bookhive/lending-service-go/shared/shell"
)

// LendingStore defines the interface needed by the CommandHandler for storage operations.
type LendingStore interface {
	CloseBorrowing(ctx context.Context, borrowingID uuid.UUID, returnedAt time.Time) (lending.Borrowing, error)
}

// CommandHandler orchestrates the return-book workflow with bounded retry on
// transaction conflicts. Retrying is safe: a close that already took effect
// yields lending.ErrAlreadyReturned on the next attempt.
type CommandHandler struct {
	store        LendingStore
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

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(store LendingStore, opts ...Option) CommandHandler {
	handler := CommandHandler{
		store: store,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle executes the return-book workflow and returns the closed borrowing.
func (h CommandHandler) Handle(ctx context.Context, command Command) (lending.Borrowing, error) {
	var borrowing lending.Borrowing

	err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var closeErr error
		borrowing, closeErr = h.store.CloseBorrowing(retryCtx, command.BorrowingID, command.ReturnedAt)

		return closeErr
	}, h.retryOptions...)

	if err != nil {
		return lending.Borrowing{}, err
	}

	return borrowing, nil
}
