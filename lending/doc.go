// Package lending contains the core domain types of the lending service:
// books with a finite pool of interchangeable copies, borrowings of single
// copies with a bounded lifetime, the error taxonomy shared by all storage
// engines, and the pure query-restriction policy applied for non-admin callers.
//
// The package is storage-free on purpose. The invariants it states
// (available copies never negative and never above the total, at most one
// active borrowing per user and book) are enforced by the storage engines
// in lending/postgresengine and lending/memoryengine.
package lending
