package lending

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BorrowingCreated is the payload published to the notification sink after a
// borrowing has been committed. Publication is best-effort and happens outside
// the transaction boundary; sink failures never affect the borrowing outcome.
type BorrowingCreated struct {
	BorrowingID uuid.UUID `json:"borrowingId"`
	UserID      uuid.UUID `json:"userId"`
	BookID      uuid.UUID `json:"bookId"`
	BookTitle   string    `json:"bookTitle"`
	BorrowedAt  time.Time `json:"borrowedAt"`
	DueAt       time.Time `json:"dueAt"`
}

// BuildBorrowingCreated creates the notification payload for a committed borrowing.
func BuildBorrowingCreated(borrowing Borrowing, bookTitle string) BorrowingCreated {
	return BorrowingCreated{
		BorrowingID: borrowing.ID,
		UserID:      borrowing.UserID,
		BookID:      borrowing.BookID,
		BookTitle:   bookTitle,
		BorrowedAt:  borrowing.BorrowedAt,
		DueAt:       borrowing.DueAt,
	}
}

// Message renders the human-readable notification text.
func (n BorrowingCreated) Message() string {
	return fmt.Sprintf(
		"New borrowing:\nUser: %s\nBook: %s\nExpected return date: %s\nBorrow date: %s",
		n.UserID,
		n.BookTitle,
		n.DueAt.Format(time.DateOnly),
		n.BorrowedAt.Format(time.DateOnly),
	)
}
