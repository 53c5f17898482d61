package returnbook

import (
	"time"

	"github.com/google/uuid"
)

const commandType = "ReturnBook"

// Command represents the intent to return a borrowed book copy.
// ReturnedAt is the date recorded on the borrowing; BuildCommand defaults it
// to the current date when the caller supplies none.
type Command struct {
	BorrowingID uuid.UUID
	ReturnedAt  time.Time
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command. A nil returnedAt falls back to now,
// matching the behavior of a return desk that stamps today's date.
func BuildCommand(borrowingID uuid.UUID, returnedAt *time.Time, now time.Time) Command {
	command := Command{
		BorrowingID: borrowingID,
		ReturnedAt:  now,
	}

	if returnedAt != nil {
		command.ReturnedAt = *returnedAt
	}

	return command
}
