// Package shell contains infrastructure shared by the use-case handlers:
// bounded retry with exponential backoff for transient storage contention.
package shell
