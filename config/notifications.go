package config

import (
	"os"
)

const (
	envBotToken = "BOT_TOKEN"
	envChatID   = "CHAT_ID"
)

// TelegramConfig holds the notification sink credentials.
// Telegram is optional; when unconfigured the service logs notifications instead.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramFromEnv reads the Telegram credentials from the environment.
func TelegramFromEnv() TelegramConfig {
	return TelegramConfig{
		BotToken: os.Getenv(envBotToken),
		ChatID:   os.Getenv(envChatID),
	}
}

// IsConfigured reports whether both credentials are present.
func (c TelegramConfig) IsConfigured() bool {
	return c.BotToken != "" && c.ChatID != ""
}
