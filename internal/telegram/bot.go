package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hamdam-bot/hamdam/internal/notify"
)

// Bot is a minimal Bot API client. It satisfies notify.Notifier.
type Bot struct {
	apiURL string
	http   *http.Client
}

var _ notify.Notifier = (*Bot)(nil)

func NewBot(apiBase, token string) *Bot {
	return &Bot{
		apiURL: fmt.Sprintf("%s/bot%s", apiBase, token),
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (b *Bot) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	if !out.OK {
		return fmt.Errorf("telegram %s: %s", method, out.Description)
	}
	return nil
}

func (b *Bot) SendText(ctx context.Context, userID int64, text string, opts *notify.SendOpts) error {
	payload := map[string]any{
		"chat_id":    userID,
		"text":       text,
		"parse_mode": parseMode(opts),
	}
	if opts != nil && opts.Keyboard != nil {
		payload["reply_markup"] = opts.Keyboard
	}
	return b.call(ctx, "sendMessage", payload)
}

func (b *Bot) SendPhoto(ctx context.Context, userID int64, photoRef, caption string, opts *notify.SendOpts) error {
	payload := map[string]any{
		"chat_id":    userID,
		"photo":      photoRef,
		"caption":    caption,
		"parse_mode": parseMode(opts),
	}
	if opts != nil && opts.Keyboard != nil {
		payload["reply_markup"] = opts.Keyboard
	}
	return b.call(ctx, "sendPhoto", payload)
}

func (b *Bot) AnswerCallback(ctx context.Context, queryID, text string, alert bool) error {
	payload := map[string]any{
		"callback_query_id": queryID,
	}
	if text != "" {
		payload["text"] = text
	}
	if alert {
		payload["show_alert"] = true
	}
	return b.call(ctx, "answerCallbackQuery", payload)
}

// SetWebhook points Telegram at url and drops any backlog.
func (b *Bot) SetWebhook(ctx context.Context, url string) error {
	return b.call(ctx, "setWebhook", map[string]any{
		"url":                  url,
		"drop_pending_updates": true,
	})
}

func (b *Bot) DeleteWebhook(ctx context.Context) error {
	return b.call(ctx, "deleteWebhook", map[string]any{
		"drop_pending_updates": true,
	})
}

func parseMode(opts *notify.SendOpts) string {
	if opts != nil && opts.ParseMode != "" {
		return opts.ParseMode
	}
	return "HTML"
}
