package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers a text message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// TelegramClient sends replies through the Bot API.
type TelegramClient struct {
	api *tgbotapi.BotAPI
}

// NewTelegramClient builds a client for baseURL (https://api.telegram.org in
// production). It makes no network call; the token is checked on first send.
func NewTelegramClient(baseURL, token string) *TelegramClient {
	api := &tgbotapi.BotAPI{
		Token:  token,
		Client: &http.Client{Timeout: 10 * time.Second},
		Buffer: 100,
	}
	api.SetAPIEndpoint(strings.TrimRight(baseURL, "/") + "/bot%s/%s")
	return &TelegramClient{api: api}
}

func (c *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram: sendMessage: %w", err)
	}
	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram: sendMessage: %w", err)
	}
	return nil
}
