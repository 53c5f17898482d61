// Package borrowbook implements the borrow-book use case: reserve one copy of
// a book and open a borrowing for the calling user, with bounded retry on
// transaction conflicts and a best-effort notification after the borrowing
// has been committed.
package borrowbook
