package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/bookhive/lending-service-go/lending"
	"github.com/bookhive/lending-service-go/lending/postgresengine/internal/adapters"
)

const (
	defaultBooksTableName      = "books"
	defaultBorrowingsTableName = "borrowings"

	logMsgBuildQueryFailed       = "failed to build sql query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgDBExecFailed           = "database execution failed"
	logMsgBeginTxFailed          = "failed to begin transaction"
	logMsgCommitFailed           = "failed to commit transaction"
	logMsgRollbackFailed         = "failed to roll back transaction"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgRowsAffectedFailed     = "failed to get rows affected count"
	logMsgConsistencyViolation   = "inventory consistency violation detected"
	logMsgBorrowingCreated       = "borrowing created"
	logMsgBorrowingClosed        = "borrowing closed"
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "lending store operation: "
	logAttrError                 = "error"
	logAttrQuery                 = "query"
	logAttrBookID                = "book_id"
	logAttrUserID                = "user_id"
	logAttrBorrowingID           = "borrowing_id"
	logAttrDurationMS            = "duration_ms"
	logActionReserve             = "reserve copy"
	logActionRelease             = "release copy"
	logActionInsertBorrowing     = "insert borrowing"
	logActionSelectBorrowing     = "select borrowing"
	logActionMarkReturned        = "mark borrowing returned"
	logActionListBorrowings      = "list borrowings"
	logActionInsertBook          = "insert book"
	logActionSelectBook          = "select book"
	logActionListBooks           = "list books"
	metricOperationDuration      = "lendingstore_operation_duration"
	metricInsufficientInventory  = "lendingstore_insufficient_inventory_total"
	metricDuplicateBorrowings    = "lendingstore_duplicate_active_borrowings_total"
	metricTransactionConflicts   = "lendingstore_transaction_conflicts_total"
	metricConsistencyViolations  = "lendingstore_consistency_violations_total"
	metricLabelOperation         = "operation"
	operationCreateBorrowing     = "create_borrowing"
	operationCloseBorrowing      = "close_borrowing"
	colID                        = "id"
	colTitle                     = "title"
	colAuthor                    = "author"
	colCoverType                 = "cover_type"
	colDailyFee                  = "daily_fee"
	colTotalCopies               = "total_copies"
	colAvailableCopies           = "available_copies"
	colUserID                    = "user_id"
	colBookID                    = "book_id"
	colBorrowedAt                = "borrowed_at"
	colDueAt                     = "due_at"
	colReturnedAt                = "returned_at"
	castDailyFeeText             = "daily_fee::text"
	exprReserveAvailableCopies   = "available_copies - 1"
	exprReleaseAvailableCopies   = "available_copies + 1"
	dialectPostgres              = "postgres"
)

type sqlQueryString = string

// LendingStore owns the book inventory counters and the borrowing records on
// PostgreSQL. It implements both halves of the lending core:
//
// The inventory ledger: reserving and releasing single copies with an atomic
// conditional update, so available_copies can never go negative and never
// exceeds total_copies, even under concurrent requests for the same book.
//
// The borrowing registry: creating a borrowing in the same transaction as the
// reservation, closing it in the same transaction as the release, and relying
// on a partial unique index for the one-active-borrowing-per-(user, book) rule.
type LendingStore struct {
	db                  adapters.DBAdapter
	booksTableName      string
	borrowingsTableName string
	logger              Logger
	contextualLogger    ContextualLogger
	metricsCollector    MetricsCollector
}

// NewLendingStoreFromPGXPool creates a new LendingStore using a pgx pool with optional configuration.
func NewLendingStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (LendingStore, error) {
	if db == nil {
		return LendingStore{}, lending.ErrNilDatabaseConnection
	}

	return newLendingStore(adapters.NewPGXAdapter(db), options...)
}

// NewLendingStoreFromSQLDB creates a new LendingStore using a sql.DB with optional configuration.
func NewLendingStoreFromSQLDB(db *sql.DB, options ...Option) (LendingStore, error) {
	if db == nil {
		return LendingStore{}, lending.ErrNilDatabaseConnection
	}

	return newLendingStore(adapters.NewSQLAdapter(db), options...)
}

// NewLendingStoreFromSQLX creates a new LendingStore using a sqlx.DB with optional configuration.
func NewLendingStoreFromSQLX(db *sqlx.DB, options ...Option) (LendingStore, error) {
	if db == nil {
		return LendingStore{}, lending.ErrNilDatabaseConnection
	}

	return newLendingStore(adapters.NewSQLXAdapter(db), options...)
}

func newLendingStore(db adapters.DBAdapter, options ...Option) (LendingStore, error) {
	store := LendingStore{
		db:                  db,
		booksTableName:      defaultBooksTableName,
		borrowingsTableName: defaultBorrowingsTableName,
	}

	for _, option := range options {
		if err := option(&store); err != nil {
			return LendingStore{}, err
		}
	}

	return store, nil
}

/*** catalog support ***/

// AddBook stores a new catalog entry with all copies available.
func (s LendingStore) AddBook(ctx context.Context, book lending.Book) error {
	if err := book.Validate(); err != nil {
		return err
	}

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(s.booksTableName).
		Rows(goqu.Record{
			colID:              book.ID.String(),
			colTitle:           book.Title,
			colAuthor:          book.Author,
			colCoverType:       book.CoverType,
			colDailyFee:        book.DailyFee,
			colTotalCopies:     book.TotalCopies,
			colAvailableCopies: book.AvailableCopies,
		})

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return toSQLErr
	}

	if _, err := s.execWithTiming(ctx, s.db.Exec, sqlQuery, logActionInsertBook); err != nil {
		return err
	}

	return nil
}

// GetBook retrieves a single catalog entry.
func (s LendingStore) GetBook(ctx context.Context, bookID uuid.UUID) (lending.Book, error) {
	selectStmt := s.buildSelectBooks().Where(goqu.C(colID).Eq(bookID.String()))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return lending.Book{}, toSQLErr
	}

	books, err := s.queryBooks(ctx, s.db.Query, sqlQuery, logActionSelectBook)
	if err != nil {
		return lending.Book{}, err
	}

	if len(books) == 0 {
		return lending.Book{}, lending.ErrBookNotFound
	}

	return books[0], nil
}

// ListBooks retrieves all catalog entries ordered by title.
func (s LendingStore) ListBooks(ctx context.Context) ([]lending.Book, error) {
	selectStmt := s.buildSelectBooks().Order(goqu.I(colTitle).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return nil, toSQLErr
	}

	return s.queryBooks(ctx, s.db.Query, sqlQuery, logActionListBooks)
}

/*** borrowing lifecycle ***/

// CreateBorrowing reserves one copy of the book and records a new open
// borrowing, both inside a single transaction. When no copy is available the
// call fails with lending.ErrInsufficientInventory; when the user already
// holds an active borrowing for this book the partial unique index rejects the
// insert, the reservation rolls back with it, and the call fails with
// lending.ErrDuplicateActiveBorrowing. Storage contention surfaces as the
// retryable lending.ErrTransactionConflict.
func (s LendingStore) CreateBorrowing(
	ctx context.Context,
	userID uuid.UUID,
	bookID uuid.UUID,
	borrowedAt time.Time,
	dueAt time.Time,
) (lending.Borrowing, error) {

	var empty lending.Borrowing

	borrowing, buildErr := lending.BuildBorrowing(uuid.New(), userID, bookID, borrowedAt, dueAt)
	if buildErr != nil {
		return empty, buildErr
	}

	start := time.Now()

	tx, beginErr := s.db.BeginTx(ctx)
	if beginErr != nil {
		s.logError(ctx, logMsgBeginTxFailed, logAttrError, beginErr.Error())
		return empty, s.classifyTxError(beginErr)
	}
	defer s.rollbackQuietly(ctx, tx)

	if err := s.reserveCopy(ctx, tx, bookID); err != nil {
		return empty, err
	}

	if err := s.insertBorrowing(ctx, tx, borrowing); err != nil {
		return empty, err
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		s.logError(ctx, logMsgCommitFailed, logAttrError, commitErr.Error())
		return empty, s.classifyTxError(commitErr)
	}

	s.recordOperationDuration(operationCreateBorrowing, time.Since(start))
	s.logInfo(ctx, logMsgOperation+logMsgBorrowingCreated,
		logAttrBorrowingID, borrowing.ID.String(),
		logAttrUserID, userID.String(),
		logAttrBookID, bookID.String(),
		logAttrDurationMS, s.durationToMilliseconds(time.Since(start)))

	return borrowing, nil
}

// CloseBorrowing sets the return date on an open borrowing and releases the
// reserved copy back to the pool, both inside a single transaction. Closing an
// already-closed borrowing fails with lending.ErrAlreadyReturned and has no
// side effects. A release that would push available_copies above total_copies
// is a fatal lending.ErrConsistencyViolation and is never silently repaired.
func (s LendingStore) CloseBorrowing(
	ctx context.Context,
	borrowingID uuid.UUID,
	returnedAt time.Time,
) (lending.Borrowing, error) {

	var empty lending.Borrowing

	start := time.Now()

	tx, beginErr := s.db.BeginTx(ctx)
	if beginErr != nil {
		s.logError(ctx, logMsgBeginTxFailed, logAttrError, beginErr.Error())
		return empty, s.classifyTxError(beginErr)
	}
	defer s.rollbackQuietly(ctx, tx)

	borrowing, lockErr := s.selectBorrowingForUpdate(ctx, tx, borrowingID)
	if lockErr != nil {
		return empty, lockErr
	}

	closed, closeErr := borrowing.Close(returnedAt)
	if closeErr != nil {
		return empty, closeErr
	}

	if err := s.markBorrowingReturned(ctx, tx, closed); err != nil {
		return empty, err
	}

	if err := s.releaseCopy(ctx, tx, closed.BookID, closed.ID); err != nil {
		return empty, err
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		s.logError(ctx, logMsgCommitFailed, logAttrError, commitErr.Error())
		return empty, s.classifyTxError(commitErr)
	}

	s.recordOperationDuration(operationCloseBorrowing, time.Since(start))
	s.logInfo(ctx, logMsgOperation+logMsgBorrowingClosed,
		logAttrBorrowingID, closed.ID.String(),
		logAttrBookID, closed.BookID.String(),
		logAttrDurationMS, s.durationToMilliseconds(time.Since(start)))

	return closed, nil
}

// GetBorrowing retrieves a single borrowing.
func (s LendingStore) GetBorrowing(ctx context.Context, borrowingID uuid.UUID) (lending.Borrowing, error) {
	selectStmt := s.buildSelectBorrowings().Where(goqu.C(colID).Eq(borrowingID.String()))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return lending.Borrowing{}, toSQLErr
	}

	borrowings, err := s.queryBorrowings(ctx, s.db.Query, sqlQuery, logActionSelectBorrowing)
	if err != nil {
		return lending.Borrowing{}, err
	}

	if len(borrowings) == 0 {
		return lending.Borrowing{}, lending.ErrBorrowingNotFound
	}

	return borrowings[0], nil
}

// ListBorrowings retrieves borrowings matching the query, oldest first.
// The privilege restriction of lending.RestrictQuery is expected to have been
// applied by the caller; the store executes the query as given.
func (s LendingStore) ListBorrowings(ctx context.Context, query lending.BorrowingQuery) ([]lending.Borrowing, error) {
	selectStmt := s.buildSelectBorrowings().Order(goqu.I(colBorrowedAt).Asc(), goqu.I(colID).Asc())

	if query.UserID != nil {
		selectStmt = selectStmt.Where(goqu.C(colUserID).Eq(query.UserID.String()))
	}

	if query.ActiveOnly {
		selectStmt = selectStmt.Where(goqu.C(colReturnedAt).IsNull())
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return nil, toSQLErr
	}

	return s.queryBorrowings(ctx, s.db.Query, sqlQuery, logActionListBorrowings)
}

/*** inventory ledger internals ***/

// reserveCopy atomically decrements available_copies, guarded so it can never
// go below zero. Concurrent reservations of the last copy serialize on the row
// lock; the loser re-evaluates the predicate and affects zero rows.
func (s LendingStore) reserveCopy(ctx context.Context, tx adapters.DBTx, bookID uuid.UUID) error {
	updateStmt := goqu.Dialect(dialectPostgres).
		Update(s.booksTableName).
		Set(goqu.Record{colAvailableCopies: goqu.L(exprReserveAvailableCopies)}).
		Where(
			goqu.C(colID).Eq(bookID.String()),
			goqu.C(colAvailableCopies).Gt(0),
		)

	rowsAffected, err := s.execUpdate(ctx, tx, updateStmt, logActionReserve)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		exists, existsErr := s.bookExists(ctx, tx, bookID)
		if existsErr != nil {
			return existsErr
		}

		if !exists {
			return lending.ErrBookNotFound
		}

		s.incrementCounter(metricInsufficientInventory, map[string]string{metricLabelOperation: operationCreateBorrowing})

		return lending.ErrInsufficientInventory
	}

	return nil
}

// releaseCopy atomically increments available_copies, guarded so it can never
// exceed total_copies. Zero affected rows means the book row is gone or the
// pool is already full while an open borrowing existed - both indicate an
// upstream bug and are surfaced as a fatal consistency violation.
func (s LendingStore) releaseCopy(ctx context.Context, tx adapters.DBTx, bookID uuid.UUID, borrowingID uuid.UUID) error {
	updateStmt := goqu.Dialect(dialectPostgres).
		Update(s.booksTableName).
		Set(goqu.Record{colAvailableCopies: goqu.L(exprReleaseAvailableCopies)}).
		Where(
			goqu.C(colID).Eq(bookID.String()),
			goqu.C(colAvailableCopies).Lt(goqu.I(colTotalCopies)),
		)

	rowsAffected, err := s.execUpdate(ctx, tx, updateStmt, logActionRelease)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		s.incrementCounter(metricConsistencyViolations, map[string]string{metricLabelOperation: operationCloseBorrowing})
		s.logError(ctx, logMsgConsistencyViolation,
			logAttrBookID, bookID.String(),
			logAttrBorrowingID, borrowingID.String())

		return lending.ErrConsistencyViolation
	}

	return nil
}

func (s LendingStore) bookExists(ctx context.Context, tx adapters.DBTx, bookID uuid.UUID) (bool, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(s.booksTableName).
		Select(goqu.V(1)).
		Where(goqu.C(colID).Eq(bookID.String()))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return false, toSQLErr
	}

	rows, queryErr := tx.Query(ctx, sqlQuery)
	if queryErr != nil {
		s.logError(ctx, logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		return false, s.classifyTxError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	return rows.Next(), nil
}

/*** borrowing registry internals ***/

func (s LendingStore) insertBorrowing(ctx context.Context, tx adapters.DBTx, borrowing lending.Borrowing) error {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(s.borrowingsTableName).
		Rows(goqu.Record{
			colID:         borrowing.ID.String(),
			colUserID:     borrowing.UserID.String(),
			colBookID:     borrowing.BookID.String(),
			colBorrowedAt: borrowing.BorrowedAt.Format(time.DateOnly),
			colDueAt:      borrowing.DueAt.Format(time.DateOnly),
		})

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return toSQLErr
	}

	if _, err := s.execWithTiming(ctx, tx.Exec, sqlQuery, logActionInsertBorrowing); err != nil {
		if adapters.IsUniqueViolation(err) {
			s.incrementCounter(metricDuplicateBorrowings, map[string]string{metricLabelOperation: operationCreateBorrowing})
			return lending.ErrDuplicateActiveBorrowing
		}

		return err
	}

	return nil
}

func (s LendingStore) markBorrowingReturned(ctx context.Context, tx adapters.DBTx, borrowing lending.Borrowing) error {
	updateStmt := goqu.Dialect(dialectPostgres).
		Update(s.borrowingsTableName).
		Set(goqu.Record{colReturnedAt: borrowing.ReturnedAt.Format(time.DateOnly)}).
		Where(goqu.C(colID).Eq(borrowing.ID.String()))

	rowsAffected, err := s.execUpdate(ctx, tx, updateStmt, logActionMarkReturned)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// The row was locked a moment ago, so it cannot be gone.
		s.incrementCounter(metricConsistencyViolations, map[string]string{metricLabelOperation: operationCloseBorrowing})
		s.logError(ctx, logMsgConsistencyViolation, logAttrBorrowingID, borrowing.ID.String())

		return lending.ErrConsistencyViolation
	}

	return nil
}

func (s LendingStore) selectBorrowingForUpdate(ctx context.Context, tx adapters.DBTx, borrowingID uuid.UUID) (lending.Borrowing, error) {
	var empty lending.Borrowing

	selectStmt := s.buildSelectBorrowings().
		Where(goqu.C(colID).Eq(borrowingID.String())).
		ForUpdate(exp.Wait)

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return empty, toSQLErr
	}

	borrowings, err := s.queryBorrowings(ctx, tx.Query, sqlQuery, logActionSelectBorrowing)
	if err != nil {
		return empty, err
	}

	if len(borrowings) == 0 {
		return empty, lending.ErrBorrowingNotFound
	}

	return borrowings[0], nil
}

/*** query plumbing ***/

type queryFunc = func(ctx context.Context, query string) (adapters.DBRows, error)
type execFunc = func(ctx context.Context, query string) (adapters.DBResult, error)

func (s LendingStore) buildSelectBooks() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(s.booksTableName).
		Select(
			goqu.C(colID),
			goqu.C(colTitle),
			goqu.C(colAuthor),
			goqu.C(colCoverType),
			goqu.L(castDailyFeeText),
			goqu.C(colTotalCopies),
			goqu.C(colAvailableCopies),
		)
}

func (s LendingStore) buildSelectBorrowings() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(s.borrowingsTableName).
		Select(
			goqu.C(colID),
			goqu.C(colUserID),
			goqu.C(colBookID),
			goqu.C(colBorrowedAt),
			goqu.C(colDueAt),
			goqu.C(colReturnedAt),
		)
}

func (s LendingStore) queryBooks(ctx context.Context, query queryFunc, sqlQuery sqlQueryString, action string) ([]lending.Book, error) {
	start := time.Now()
	rows, queryErr := query(ctx, sqlQuery)
	s.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if queryErr != nil {
		s.logError(ctx, logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		return nil, s.classifyTxError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	books := make([]lending.Book, 0)

	for rows.Next() {
		var idStr string
		var book lending.Book

		if scanErr := rows.Scan(
			&idStr, &book.Title, &book.Author, &book.CoverType,
			&book.DailyFee, &book.TotalCopies, &book.AvailableCopies,
		); scanErr != nil {
			s.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
			return nil, scanErr
		}

		id, parseErr := uuid.Parse(idStr)
		if parseErr != nil {
			s.logError(ctx, logMsgScanRowFailed, logAttrError, parseErr.Error())
			return nil, parseErr
		}
		book.ID = id

		books = append(books, book)
	}

	return books, nil
}

func (s LendingStore) queryBorrowings(ctx context.Context, query queryFunc, sqlQuery sqlQueryString, action string) ([]lending.Borrowing, error) {
	start := time.Now()
	rows, queryErr := query(ctx, sqlQuery)
	s.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if queryErr != nil {
		s.logError(ctx, logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		return nil, s.classifyTxError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	borrowings := make([]lending.Borrowing, 0)

	for rows.Next() {
		borrowing, scanErr := s.scanBorrowing(rows)
		if scanErr != nil {
			s.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
			return nil, scanErr
		}

		borrowings = append(borrowings, borrowing)
	}

	return borrowings, nil
}

func (s LendingStore) scanBorrowing(rows adapters.DBRows) (lending.Borrowing, error) {
	var empty lending.Borrowing
	var idStr, userIDStr, bookIDStr string
	var borrowedAt, dueAt time.Time
	var returnedAt sql.NullTime

	if err := rows.Scan(&idStr, &userIDStr, &bookIDStr, &borrowedAt, &dueAt, &returnedAt); err != nil {
		return empty, err
	}

	id, idErr := uuid.Parse(idStr)
	if idErr != nil {
		return empty, idErr
	}

	userID, userErr := uuid.Parse(userIDStr)
	if userErr != nil {
		return empty, userErr
	}

	bookID, bookErr := uuid.Parse(bookIDStr)
	if bookErr != nil {
		return empty, bookErr
	}

	borrowing := lending.Borrowing{
		ID:         id,
		UserID:     userID,
		BookID:     bookID,
		BorrowedAt: borrowedAt,
		DueAt:      dueAt,
	}

	if returnedAt.Valid {
		returned := returnedAt.Time
		borrowing.ReturnedAt = &returned
	}

	return borrowing, nil
}

func (s LendingStore) execUpdate(ctx context.Context, tx adapters.DBTx, updateStmt *goqu.UpdateDataset, action string) (int64, error) {
	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return 0, toSQLErr
	}

	return s.execWithTiming(ctx, tx.Exec, sqlQuery, action)
}

func (s LendingStore) execWithTiming(ctx context.Context, execute execFunc, sqlQuery sqlQueryString, action string) (int64, error) {
	start := time.Now()
	result, execErr := execute(ctx, sqlQuery)
	s.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if execErr != nil {
		s.logError(ctx, logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, sqlQuery)
		return 0, s.classifyTxError(execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		s.logError(ctx, logMsgRowsAffectedFailed, logAttrError, rowsAffectedErr.Error())
		return 0, rowsAffectedErr
	}

	return rowsAffected, nil
}

// classifyTxError maps driver-level contention onto the retryable
// lending.ErrTransactionConflict, preserving the driver error for diagnosis.
// Unique violations are classified where the insert happens, not here.
func (s LendingStore) classifyTxError(err error) error {
	if adapters.IsSerializationConflict(err) {
		s.incrementCounter(metricTransactionConflicts, nil)
		return errors.Join(lending.ErrTransactionConflict, err)
	}

	return err
}

func (s LendingStore) rollbackQuietly(ctx context.Context, tx adapters.DBTx) {
	if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
		s.logWarn(ctx, logMsgRollbackFailed, logAttrError, rollbackErr.Error())
	}
}

func (s LendingStore) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		s.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

/*** observability plumbing ***/

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (s LendingStore) logQueryWithDuration(ctx context.Context, sqlQuery sqlQueryString, action string, duration time.Duration) {
	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action,
			logAttrDurationMS, s.durationToMilliseconds(duration), logAttrQuery, sqlQuery)
		return
	}

	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action,
			logAttrDurationMS, s.durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

func (s LendingStore) logInfo(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, msg, args...)
		return
	}

	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s LendingStore) logWarn(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}

	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s LendingStore) logError(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, msg, args...)
		return
	}

	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}

func (s LendingStore) recordOperationDuration(operation string, duration time.Duration) {
	if s.metricsCollector != nil {
		s.metricsCollector.RecordDuration(metricOperationDuration, duration, map[string]string{metricLabelOperation: operation})
	}
}

func (s LendingStore) incrementCounter(metric string, labels map[string]string) {
	if s.metricsCollector != nil {
		s.metricsCollector.IncrementCounter(metric, labels)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (s LendingStore) durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
