// Package postgresengine provides the PostgreSQL implementation of the
// lending core: the inventory ledger (atomic reserve/release of single book
// copies) and the borrowing registry (create/close with the reservation and
// the record change in one transaction).
//
// The engine runs on a pgx pool, a database/sql DB, or an sqlx DB - pick the
// matching constructor. Correctness under concurrency is delegated entirely to
// PostgreSQL: conditional updates with row locks keep available_copies inside
// [0, total_copies], and a partial unique index enforces at most one active
// borrowing per (user, book). Nothing is checked-then-written in application
// code.
//
// Contention (serialization failures, deadlocks) surfaces as the retryable
// lending.ErrTransactionConflict; callers are expected to retry with a small
// bound (see shared/shell.RetryWithExponentialBackoff).
package postgresengine
