package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/bookhive/lending-service-go/features/command/borrowbook"
	"github.com/bookhive/lending-service-go/features/command/returnbook"
	"github.com/bookhive/lending-service-go/features/query/listborrowings"
	"github.com/bookhive/lending-service-go/lending"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type errorResponse struct {
	Detail string `json:"detail"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type createBorrowingRequest struct {
	UserID             string `json:"userId"`
	BookID             string `json:"bookId"`
	ExpectedReturnDate string `json:"expectedReturnDate"`
}

type returnBorrowingRequest struct {
	ActualReturnDate string `json:"actualReturnDate"`
}

type borrowingView struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"userId"`
	BookID             string  `json:"bookId"`
	BorrowDate         string  `json:"borrowDate"`
	ExpectedReturnDate string  `json:"expectedReturnDate"`
	ActualReturnDate   *string `json:"actualReturnDate"`
}

type addBookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	CoverType   string `json:"coverType"`
	DailyFee    string `json:"dailyFee"`
	TotalCopies int    `json:"totalCopies"`
}

type bookView struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	CoverType       string `json:"coverType"`
	DailyFee        string `json:"dailyFee"`
	TotalCopies     int    `json:"totalCopies"`
	AvailableCopies int    `json:"availableCopies"`
}

func (s *Server) handleCreateBorrowing(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "caller identity missing"})
		return
	}

	var request createBorrowingRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&request); decodeErr != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "malformed request body"})
		return
	}

	bookID, bookIDErr := uuid.Parse(request.BookID)
	if bookIDErr != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "bookId must be a valid uuid"})
		return
	}

	dueAt, dueAtErr := time.Parse(time.DateOnly, request.ExpectedReturnDate)
	if dueAtErr != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "expectedReturnDate must be a date (YYYY-MM-DD)"})
		return
	}

	// Borrowing on behalf of another user is an admin capability.
	userID := caller.UserID
	if request.UserID != "" {
		requested, userIDErr := uuid.Parse(request.UserID)
		if userIDErr != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "userId must be a valid uuid"})
			return
		}

		if requested != caller.UserID && !caller.IsAdmin {
			writeJSON(w, http.StatusForbidden, errorResponse{Detail: "only admins may borrow on behalf of another user"})
			return
		}

		userID = requested
	}

	command := borrowbook.BuildCommand(userID, bookID, dueAt, today())

	borrowing, err := s.borrowHandler.Handle(r.Context(), command)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, borrowingViewFrom(borrowing))
}

func (s *Server) handleReturnBorrowing(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "caller identity missing"})
		return
	}

	borrowingID, idErr := uuid.Parse(r.PathValue("id"))
	if idErr != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: lending.ErrBorrowingNotFound.Error()})
		return
	}

	borrowing, lookupErr := s.store.GetBorrowing(r.Context(), borrowingID)
	if lookupErr != nil {
		s.writeDomainError(w, r, lookupErr)
		return
	}

	// Returning is owner-or-admin only; as with reads, another user's
	// borrowing looks identical to a missing one.
	if !caller.IsAdmin && borrowing.UserID != caller.UserID {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: lending.ErrBorrowingNotFound.Error()})
		return
	}

	var request returnBorrowingRequest
	if r.ContentLength != 0 {
		if decodeErr := json.NewDecoder(r.Body).Decode(&request); decodeErr != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "malformed request body"})
			return
		}
	}

	var returnedAt *time.Time
	if request.ActualReturnDate != "" {
		parsed, parseErr := time.Parse(time.DateOnly, request.ActualReturnDate)
		if parseErr != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "actualReturnDate must be a date (YYYY-MM-DD)"})
			return
		}

		returnedAt = &parsed
	}

	command := returnbook.BuildCommand(borrowingID, returnedAt, today())

	closed, err := s.returnHandler.Handle(r.Context(), command)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	bookTitle := ""
	if book, lookupErr := s.store.GetBook(r.Context(), closed.BookID); lookupErr == nil {
		bookTitle = book.Title
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("The book: `%s` was returned.", bookTitle),
	})
}

func (s *Server) handleListBorrowings(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "caller identity missing"})
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"

	var userFilter *uuid.UUID
	if rawUserID := r.URL.Query().Get("userId"); rawUserID != "" {
		parsed, parseErr := uuid.Parse(rawUserID)
		if parseErr != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "userId must be a valid uuid"})
			return
		}

		userFilter = &parsed
	}

	query := listborrowings.BuildQuery(caller, activeOnly, userFilter)

	borrowings, err := s.listHandler.Handle(r.Context(), query)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	views := make([]borrowingView, 0, len(borrowings))
	for _, borrowing := range borrowings {
		views = append(views, borrowingViewFrom(borrowing))
	}

	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetBorrowing(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "caller identity missing"})
		return
	}

	borrowingID, idErr := uuid.Parse(r.PathValue("id"))
	if idErr != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: lending.ErrBorrowingNotFound.Error()})
		return
	}

	borrowing, err := s.store.GetBorrowing(r.Context(), borrowingID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	// Non-admins can only see their own borrowings; an existence probe on
	// another user's borrowing looks identical to a missing one.
	if !caller.IsAdmin && borrowing.UserID != caller.UserID {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: lending.ErrBorrowingNotFound.Error()})
		return
	}

	writeJSON(w, http.StatusOK, borrowingViewFrom(borrowing))
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "caller identity missing"})
		return
	}

	if !caller.IsAdmin {
		writeJSON(w, http.StatusForbidden, errorResponse{Detail: "only admins may manage the catalog"})
		return
	}

	var request addBookRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&request); decodeErr != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "malformed request body"})
		return
	}

	book := lending.BuildBook(
		uuid.New(), request.Title, request.Author, request.CoverType, request.DailyFee, request.TotalCopies)

	if err := s.store.AddBook(r.Context(), book); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookViewFrom(book))
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.store.ListBooks(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	views := make([]bookView, 0, len(books))
	for _, book := range books {
		views = append(views, bookViewFrom(book))
	}

	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	bookID, idErr := uuid.Parse(r.PathValue("id"))
	if idErr != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: lending.ErrBookNotFound.Error()})
		return
	}

	book, err := s.store.GetBook(r.Context(), bookID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, bookViewFrom(book))
}

func borrowingViewFrom(borrowing lending.Borrowing) borrowingView {
	view := borrowingView{
		ID:                 borrowing.ID.String(),
		UserID:             borrowing.UserID.String(),
		BookID:             borrowing.BookID.String(),
		BorrowDate:         borrowing.BorrowedAt.Format(time.DateOnly),
		ExpectedReturnDate: borrowing.DueAt.Format(time.DateOnly),
	}

	if borrowing.ReturnedAt != nil {
		returned := borrowing.ReturnedAt.Format(time.DateOnly)
		view.ActualReturnDate = &returned
	}

	return view
}

func bookViewFrom(book lending.Book) bookView {
	return bookView{
		ID:              book.ID.String(),
		Title:           book.Title,
		Author:          book.Author,
		CoverType:       book.CoverType,
		DailyFee:        book.DailyFee,
		TotalCopies:     book.TotalCopies,
		AvailableCopies: book.AvailableCopies,
	}
}

// today returns the current date truncated to day precision in UTC,
// matching the date columns the store keeps.
func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
