// Package memoryengine provides an in-memory implementation of the lending
// store with the same semantics as lending/postgresengine: atomic
// reserve/release, the one-active-borrowing rule, and the same error taxonomy.
// A single mutex stands in for the database's transaction and locking
// facilities. It backs handler and API tests and local development; it is not
// meant for production use.
package memoryengine
