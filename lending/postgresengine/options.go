package postgresengine

import (
	"context"
	"time"

	"github.com/bookhive/lending-service-go/lending"
)

// Logger interface for SQL query logging, operational reporting, warnings, and errors.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger interface for context-aware logging with automatic trace
// correlation. Implementations can integrate with any logging backend that
// supports context-based correlation (see lending/oteladapters).
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector interface for collecting lending store performance and
// operational metrics.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// Option defines a functional option for configuring a LendingStore.
type Option func(*LendingStore) error

// WithBooksTableName sets the table name for book rows.
func WithBooksTableName(tableName string) Option {
	return func(s *LendingStore) error {
		if tableName == "" {
			return lending.ErrEmptyTableName
		}

		s.booksTableName = tableName

		return nil
	}
}

// WithBorrowingsTableName sets the table name for borrowing rows.
func WithBorrowingsTableName(tableName string) Option {
	return func(s *LendingStore) error {
		if tableName == "" {
			return lending.ErrEmptyTableName
		}

		s.borrowingsTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the LendingStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: Operation outcomes, durations, conflicts (production-safe)
// Warn level: Non-critical issues like rollback failures
// Error level: Critical failures, including consistency violations.
func WithLogger(logger Logger) Option {
	return func(s *LendingStore) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the LendingStore.
// When both a Logger and a ContextualLogger are configured, the contextual
// logger takes precedence so log records carry trace correlation.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(s *LendingStore) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the LendingStore.
// The collector will receive operation durations and counters for
// inventory conflicts, duplicate borrowings, and transaction conflicts.
func WithMetrics(collector MetricsCollector) Option {
	return func(s *LendingStore) error {
		s.metricsCollector = collector
		return nil
	}
}
