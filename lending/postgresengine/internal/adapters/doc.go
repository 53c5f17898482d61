// Package adapters contains thin database adapters that allow the lending
// store to run on a pgx pool, a database/sql DB, or an sqlx DB behind one
// interface. All engine SQL is fully interpolated before it reaches an
// adapter, so the interface only deals in plain query strings.
package adapters
