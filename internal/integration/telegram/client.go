package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fitclub/billing/internal/config"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/logger"
	"github.com/hashicorp/go-retryablehttp"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultBaseURL = "https://api.telegram.org"
	ParseModeHTML  = "HTML"
)

// Client posts messages to the operations chat
type Client interface {
	IsEnabled() bool
	SendMessage(ctx context.Context, text string) error
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

type client struct {
	enabled    bool
	baseURL    string
	token      string
	chatID     string
	httpClient *retryablehttp.Client
	logger     *logger.Logger
}

func NewClient(cfg *config.Configuration, log *logger.Logger) Client {
	tg := cfg.Telegram

	baseURL := tg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = tg.RetryMax
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.Logger = log.GetRetryableHTTPLogger()
	if tg.Timeout > 0 {
		httpClient.HTTPClient.Timeout = tg.Timeout
	}

	enabled := tg.Enabled && tg.BotToken != "" && tg.ChatID != ""
	if tg.Enabled && !enabled {
		log.Warnw("telegram notifications enabled without bot token or chat id, disabling")
	}

	return &client{
		enabled:    enabled,
		baseURL:    baseURL,
		token:      tg.BotToken,
		chatID:     tg.ChatID,
		httpClient: httpClient,
		logger:     log,
	}
}

func (c *client) IsEnabled() bool {
	return c.enabled
}

func (c *client) SendMessage(ctx context.Context, text string) error {
	if !c.enabled {
		c.logger.Debugw("telegram client is disabled, skipping message")
		return nil
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    c.chatID,
		Text:      text,
		ParseMode: ParseModeHTML,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode telegram message").
			Mark(ierr.ErrInternal)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to build telegram request").
			Mark(ierr.ErrInternal)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Telegram is unavailable").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to read telegram response").
			Mark(ierr.ErrHTTPClient)
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil || !out.OK {
		return ierr.NewErrorf("telegram sendMessage failed with status %d", resp.StatusCode).
			WithHint("Telegram rejected the message").
			WithReportableDetails(map[string]any{
				"status_code": resp.StatusCode,
				"error_code":  out.ErrorCode,
				"description": out.Description,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	return nil
}
