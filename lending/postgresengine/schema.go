package postgresengine

import (
	"fmt"
)

// Schema returns the DDL for the lending store tables.
//
// The partial unique index on (user_id, book_id) WHERE returned_at IS NULL is
// what enforces the one-active-borrowing-per-user-and-book rule at the storage
// layer; an application-level check-then-insert could not survive concurrent
// requests from multiple processes.
func Schema(booksTableName string, borrowingsTableName string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id uuid PRIMARY KEY,
	title text NOT NULL,
	author text NOT NULL,
	cover_type text NOT NULL,
	daily_fee numeric(10,2) NOT NULL DEFAULT 0,
	total_copies integer NOT NULL CHECK (total_copies >= 0),
	available_copies integer NOT NULL CHECK (available_copies >= 0 AND available_copies <= total_copies)
);

CREATE TABLE IF NOT EXISTS %[2]s (
	id uuid PRIMARY KEY,
	user_id uuid NOT NULL,
	book_id uuid NOT NULL REFERENCES %[1]s (id),
	borrowed_at date NOT NULL,
	due_at date NOT NULL CHECK (due_at > borrowed_at),
	returned_at date
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_%[2]s_one_active
	ON %[2]s (user_id, book_id) WHERE returned_at IS NULL;

CREATE INDEX IF NOT EXISTS idx_%[2]s_user_id ON %[2]s (user_id);
CREATE INDEX IF NOT EXISTS idx_%[2]s_book_id ON %[2]s (book_id);
`, booksTableName, borrowingsTableName)
}

// DefaultSchema returns the DDL for the default table names.
func DefaultSchema() string {
	return Schema(defaultBooksTableName, defaultBorrowingsTableName)
}
