package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const telegramAPIBase = "https://api.telegram.org"

// Notifier delivers a text message to a Telegram chat.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// TelegramClient is a minimal Bot API client for outgoing messages.
type TelegramClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *zap.Logger
}

func NewTelegramClient(token string, log *zap.Logger) *TelegramClient {
	return &TelegramClient{
		baseURL: telegramAPIBase,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// WithBaseURL points the client at another Bot API server.
func (c *TelegramClient) WithBaseURL(u string) *TelegramClient {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (c *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	if c.token == "" {
		c.log.Debug("telegram token not set, message dropped", zap.Int64("chat_id", chatID))
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("telegram sendMessage failed", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	var tr telegramResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &tr)
	if resp.StatusCode != http.StatusOK || !tr.OK {
		c.log.Warn("telegram sendMessage rejected", zap.Int("status", resp.StatusCode), zap.String("description", tr.Description))
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, tr.Description)
	}
	return nil
}
