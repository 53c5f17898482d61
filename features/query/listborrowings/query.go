package listborrowings

import (
	"github.com/google/uuid"

	"github.com/bookhive/lending-service-go/lending"
)

// Query describes a borrowing listing on behalf of a caller.
// UserID is the requested filter; for non-admin callers it is overridden by
// the privilege policy before the store is consulted.
type Query struct {
	Caller     lending.Caller
	ActiveOnly bool
	UserID     *uuid.UUID
}

// BuildQuery creates a new Query for the given caller and filters.
func BuildQuery(caller lending.Caller, activeOnly bool, userID *uuid.UUID) Query {
	return Query{
		Caller:     caller,
		ActiveOnly: activeOnly,
		UserID:     userID,
	}
}
