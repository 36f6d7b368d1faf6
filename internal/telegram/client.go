// internal/telegram/client.go
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	apperrors "gitsync-standup/internal/errors"
	"gitsync-standup/internal/model"
	"gitsync-standup/internal/observability"
)

const (
	telegramBaseURL = "https://api.telegram.org"
	retryDelay      = 1 * time.Second
)

// Client posts messages to the Telegram Bot API. Transient failures
// (network errors, 5xx, 429) are retried once with backoff; other 4xx
// responses are permanent and never retried.
type Client struct {
	botToken string
	baseURL  string
	http     *http.Client
	logger   *slog.Logger

	retryDelay time.Duration
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func NewClient(botToken string, logger *slog.Logger) *Client {
	return &Client{
		botToken:   botToken,
		baseURL:    telegramBaseURL,
		http:       &http.Client{},
		logger:     logger,
		retryDelay: retryDelay,
	}
}

// WithBaseURL points the client at a different endpoint. Used by tests.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = url
	return c
}

// SendReport formats a standup report for Telegram and delivers it to
// the team's group. A permanent failure returns ErrDeliveryPermanent;
// the caller logs it and keeps the persisted record either way.
func (c *Client) SendReport(ctx context.Context, report model.StandupReport, event model.PushEvent, team model.Team, loc *time.Location) error {
	return c.SendMessage(ctx, team.ID, FormatReport(report, event, loc))
}

// SendMessage delivers one HTML-formatted message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID, html string) error {
	err := c.post(ctx, chatID, html)
	if err == nil {
		observability.DeliverySucceeded()
		return nil
	}
	if isPermanent(err) {
		observability.DeliveryPermanent()
		return fmt.Errorf("%w: %v", apperrors.ErrDeliveryPermanent, err)
	}

	// One retry for transient failures, then give up.
	observability.DeliveryTransient()
	c.logger.Warn("Transient delivery failure, retrying once", "chat_id", chatID, "error", err)
	select {
	case <-time.After(c.retryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	err = c.post(ctx, chatID, html)
	if err == nil {
		observability.DeliverySucceeded()
		return nil
	}
	if isPermanent(err) {
		observability.DeliveryPermanent()
		return fmt.Errorf("%w: %v", apperrors.ErrDeliveryPermanent, err)
	}
	observability.DeliveryTransient()
	return err
}

// statusError carries the HTTP status for failure classification.
type statusError struct {
	status int
	detail string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("telegram returned %d: %s", e.status, e.detail)
}

func isPermanent(err error) bool {
	se, ok := err.(*statusError)
	if !ok {
		return false // network-level errors are transient
	}
	return se.status >= 400 && se.status < 500 && se.status != http.StatusTooManyRequests
}

func (c *Client) post(ctx context.Context, chatID, html string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  html,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting to telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var parsed apiResponse
	_ = json.NewDecoder(resp.Body).Decode(&parsed)
	return &statusError{status: resp.StatusCode, detail: parsed.Description}
}
