package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookhive/lending-service-go/lending"
)

// LogNotifier writes borrowing-created notifications to the log. It is the
// default sink when Telegram is not configured, so local setups behave like
// production minus the chat message.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs instead of delivering.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// PublishBorrowingCreated logs the notification at info level.
func (n *LogNotifier) PublishBorrowingCreated(ctx context.Context, notification lending.BorrowingCreated) error {
	n.logger.InfoContext(ctx, "borrowing created",
		"borrowing_id", notification.BorrowingID.String(),
		"user_id", notification.UserID.String(),
		"book_id", notification.BookID.String(),
		"book_title", notification.BookTitle,
		"due_at", notification.DueAt.Format(time.DateOnly),
	)

	return nil
}
