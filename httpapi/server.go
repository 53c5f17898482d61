// Package httpapi exposes the lending core over HTTP. The transport is
// deliberately thin: requests are decoded, caller identity is taken from the
// gateway-supplied headers, and every domain error maps onto one specific
// status code. All business rules live behind the feature handlers.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/bookhive/lending-service-go/features/command/borrowbook"
	"github.com/bookhive/lending-service-go/features/command/returnbook"
	"github.com/bookhive/lending-service-go/features/query/listborrowings"
	"github.com/bookhive/lending-service-go/lending"
)

const (
	headerUserID   = "X-User-Id"
	headerUserRole = "X-User-Role"
	roleAdmin      = "admin"
)

// LendingStore defines the storage interface needed by the HTTP server for
// the catalog surface and single-borrowing reads. The write paths go through
// the feature handlers instead.
type LendingStore interface {
	AddBook(ctx context.Context, book lending.Book) error
	GetBook(ctx context.Context, bookID uuid.UUID) (lending.Book, error)
	ListBooks(ctx context.Context) ([]lending.Book, error)
	GetBorrowing(ctx context.Context, borrowingID uuid.UUID) (lending.Borrowing, error)
}

// Server wires the feature handlers and the catalog surface into an http.Handler.
type Server struct {
	store         LendingStore
	borrowHandler borrowbook.CommandHandler
	returnHandler returnbook.CommandHandler
	listHandler   listborrowings.QueryHandler
	logger        *slog.Logger
}

// NewServer creates a new Server.
func NewServer(
	store LendingStore,
	borrowHandler borrowbook.CommandHandler,
	returnHandler returnbook.CommandHandler,
	listHandler listborrowings.QueryHandler,
	logger *slog.Logger,
) *Server {
	return &Server{
		store:         store,
		borrowHandler: borrowHandler,
		returnHandler: returnHandler,
		listHandler:   listHandler,
		logger:        logger,
	}
}

// Router returns the http.Handler with all routes registered.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /borrowings", s.handleCreateBorrowing)
	mux.HandleFunc("GET /borrowings", s.handleListBorrowings)
	mux.HandleFunc("GET /borrowings/{id}", s.handleGetBorrowing)
	mux.HandleFunc("POST /borrowings/{id}/return", s.handleReturnBorrowing)

	mux.HandleFunc("POST /books", s.handleAddBook)
	mux.HandleFunc("GET /books", s.handleListBooks)
	mux.HandleFunc("GET /books/{id}", s.handleGetBook)

	return mux
}

// callerFromRequest extracts the caller identity set by the fronting gateway.
// Authentication itself is external; this service trusts the headers.
func (s *Server) callerFromRequest(r *http.Request) (lending.Caller, bool) {
	userID, err := uuid.Parse(r.Header.Get(headerUserID))
	if err != nil {
		return lending.Caller{}, false
	}

	return lending.Caller{
		UserID:  userID,
		IsAdmin: r.Header.Get(headerUserRole) == roleAdmin,
	}, true
}

// statusCodeFor maps the error taxonomy onto HTTP status codes.
// Transaction conflicts reach this point only after the handler's internal
// retries are exhausted; they stay retryable for the client, hence 503.
func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, lending.ErrBookNotFound),
		errors.Is(err, lending.ErrBorrowingNotFound):
		return http.StatusNotFound

	case errors.Is(err, lending.ErrDuplicateActiveBorrowing):
		return http.StatusConflict

	case errors.Is(err, lending.ErrInsufficientInventory),
		errors.Is(err, lending.ErrAlreadyReturned),
		errors.Is(err, lending.ErrInvalidDueDate),
		errors.Is(err, lending.ErrInvalidReturnDate),
		errors.Is(err, lending.ErrInvalidBookCopies):
		return http.StatusBadRequest

	case errors.Is(err, lending.ErrTransactionConflict):
		return http.StatusServiceUnavailable

	default:
		// Includes lending.ErrConsistencyViolation, which is a server-side bug.
		return http.StatusInternalServerError
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusCodeFor(err)

	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"error", err.Error(), "method", r.Method, "path", r.URL.Path)
	}

	writeJSON(w, status, errorResponse{Detail: err.Error()})
}
