// Package notifications contains the fire-and-forget sinks informed of new
// borrowings. Delivery is best-effort: any retry or queueing policy belongs to
// the sink side, never to the lending core.
package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/bookhive/lending-service-go/lending"
)

const (
	defaultTelegramAPIBaseURL = "https://api.telegram.org"
	defaultRequestTimeout     = 10 * time.Second
	sendMessagePathFmt        = "%s/bot%s/sendMessage"
	contentTypeJSON           = "application/json"
)

var (
	// ErrMissingBotToken is returned when a TelegramNotifier is created without a bot token.
	ErrMissingBotToken = errors.New("telegram bot token must not be empty")

	// ErrMissingChatID is returned when a TelegramNotifier is created without a chat id.
	ErrMissingChatID = errors.New("telegram chat id must not be empty")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TelegramNotifier publishes borrowing-created notifications as messages to a
// Telegram chat through the Bot API, mirroring what a librarian would post by
// hand: who borrowed which book and until when.
type TelegramNotifier struct {
	httpClient *http.Client
	baseURL    string
	botToken   string
	chatID     string
}

// TelegramOption defines a functional option for configuring a TelegramNotifier.
type TelegramOption func(*TelegramNotifier)

// WithHTTPClient sets a custom HTTP client, e.g. with instrumentation.
func WithHTTPClient(client *http.Client) TelegramOption {
	return func(n *TelegramNotifier) {
		n.httpClient = client
	}
}

// WithBaseURL overrides the Telegram API base URL, used by tests.
func WithBaseURL(baseURL string) TelegramOption {
	return func(n *TelegramNotifier) {
		n.baseURL = baseURL
	}
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(botToken string, chatID string, options ...TelegramOption) (*TelegramNotifier, error) {
	if botToken == "" {
		return nil, ErrMissingBotToken
	}

	if chatID == "" {
		return nil, ErrMissingChatID
	}

	notifier := &TelegramNotifier{
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		baseURL:    defaultTelegramAPIBaseURL,
		botToken:   botToken,
		chatID:     chatID,
	}

	for _, option := range options {
		option(notifier)
	}

	return notifier, nil
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// PublishBorrowingCreated sends the notification message to the configured chat.
func (n *TelegramNotifier) PublishBorrowingCreated(ctx context.Context, notification lending.BorrowingCreated) error {
	payload, marshalErr := json.Marshal(sendMessageRequest{
		ChatID: n.chatID,
		Text:   notification.Message(),
	})
	if marshalErr != nil {
		return marshalErr
	}

	url := fmt.Sprintf(sendMessagePathFmt, n.baseURL, n.botToken)

	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if requestErr != nil {
		return requestErr
	}
	request.Header.Set("Content-Type", contentTypeJSON)

	response, sendErr := n.httpClient.Do(request)
	if sendErr != nil {
		return sendErr
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram sendMessage returned status %d", response.StatusCode)
	}

	return nil
}
