package lending

import (
	"github.com/google/uuid"
)

// CoverTypeString is the cover variant of a book, one of CoverSoft or CoverHard.
type CoverTypeString = string

const (
	CoverSoft CoverTypeString = "Soft"
	CoverHard CoverTypeString = "Hard"
)

// Book is a catalog entry with a finite pool of interchangeable copies.
// TotalCopies is fixed by catalog management; AvailableCopies is mutated
// exclusively by the storage engine while reserving and releasing copies.
type Book struct {
	ID              uuid.UUID
	Title           string
	Author          string
	CoverType       CoverTypeString
	DailyFee        string
	TotalCopies     int
	AvailableCopies int
}

// BuildBook creates a new Book with all copies available.
func BuildBook(id uuid.UUID, title string, author string, coverType CoverTypeString, dailyFee string, totalCopies int) Book {
	return Book{
		ID:              id,
		Title:           title,
		Author:          author,
		CoverType:       coverType,
		DailyFee:        dailyFee,
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
	}
}

// Validate checks the copy-count invariant: 0 <= AvailableCopies <= TotalCopies.
func (b Book) Validate() error {
	if b.TotalCopies < 0 || b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
		return ErrInvalidBookCopies
	}

	return nil
}
