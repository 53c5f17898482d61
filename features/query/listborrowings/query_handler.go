// Package listborrowings implements the read-only borrowing listing with the
// admin-versus-self privilege restriction applied at query-construction time.
package listborrowings

import (
	"context"

	"github.com/bookhive/lending-service-go/lending"
)

// LendingStore defines the interface needed by the QueryHandler for storage operations.
type LendingStore interface {
	ListBorrowings(ctx context.Context, query lending.BorrowingQuery) ([]lending.Borrowing, error)
}

// QueryHandler lists borrowings for a caller. The only logic it owns is the
// privilege restriction; snapshot consistency comes from the store.
type QueryHandler struct {
	store LendingStore
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(store LendingStore) QueryHandler {
	return QueryHandler{store: store}
}

// Handle applies the privilege policy and executes the listing.
func (h QueryHandler) Handle(ctx context.Context, query Query) ([]lending.Borrowing, error) {
	storeQuery := lending.RestrictQuery(
		lending.BorrowingQuery{
			UserID:     query.UserID,
			ActiveOnly: query.ActiveOnly,
		},
		query.Caller,
	)

	return h.store.ListBorrowings(ctx, storeQuery)
}
