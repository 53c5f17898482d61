package lending

import (
	"github.com/google/uuid"
)

// Caller identifies the principal a request is executed for. Identity is
// supplied by an external provider; the UserID is opaque to this service.
type Caller struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// BorrowingQuery describes the read-only borrowing listing.
// A nil UserID means "all users" - only admins may keep it nil.
type BorrowingQuery struct {
	UserID     *uuid.UUID
	ActiveOnly bool
}

// RestrictQuery applies the privilege policy to a borrowing query:
// admins may filter by arbitrary user (or none), everyone else is always
// restricted to their own borrowings regardless of the requested filter.
//
// This is a pure policy function applied at query-construction time,
// independent of the storage engine.
func RestrictQuery(query BorrowingQuery, caller Caller) BorrowingQuery {
	if caller.IsAdmin {
		return query
	}

	own := caller.UserID
	query.UserID = &own

	return query
}
