package borrowbook

import (
	"time"

	"github.com/google/uuid"
)

const commandType = "BorrowBook"

// Command represents the intent of a user to borrow one copy of a book until
// the given due date.
type Command struct {
	UserID     uuid.UUID
	BookID     uuid.UUID
	DueAt      time.Time
	OccurredAt time.Time
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
// OccurredAt becomes the borrow date of the created borrowing.
func BuildCommand(userID uuid.UUID, bookID uuid.UUID, dueAt time.Time, occurredAt time.Time) Command {
	return Command{
		UserID:     userID,
		BookID:     bookID,
		DueAt:      dueAt,
		OccurredAt: occurredAt,
	}
}
