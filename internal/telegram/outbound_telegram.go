package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	// maxMessageLen is Telegram's limit for one sendMessage call, in characters.
	maxMessageLen = 4096
	pollTimeout   = 30 * time.Second
)

type TelegramOutbound struct {
	baseURL string
	token   string
	client  *http.Client
	polling *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

func NewTelegramOutbound(baseURL, token string, perSecond float64, logger *log.Logger) *TelegramOutbound {
	return &TelegramOutbound{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		polling: &http.Client{Timeout: pollTimeout + 10*time.Second},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:  logger,
	}
}

// SendText delivers text to the user's private chat, split into several
// messages when it exceeds Telegram's length limit.
func (c *TelegramOutbound) SendText(ctx context.Context, userKey string, text string) error {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		if err := c.call(ctx, c.client, "sendMessage", map[string]any{
			"chat_id": userKey,
			"text":    chunk,
		}, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *TelegramOutbound) SendTyping(ctx context.Context, userKey string) error {
	return c.call(ctx, c.client, "sendChatAction", map[string]any{
		"chat_id": userKey,
		"action":  "typing",
	}, nil)
}

// GetUpdates long-polls for updates after offset.
func (c *TelegramOutbound) GetUpdates(ctx context.Context, offset int) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, c.polling, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         int(pollTimeout.Seconds()),
		"allowed_updates": []string{"message"},
	}, &updates)
	return updates, err
}

// SetWebhook registers url with Telegram; secret is echoed back in the
// X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (c *TelegramOutbound) SetWebhook(ctx context.Context, url, secret string) error {
	body := map[string]any{
		"url":             url,
		"allowed_updates": []string{"message"},
	}
	if secret != "" {
		body["secret_token"] = secret
	}
	return c.call(ctx, c.client, "setWebhook", body, nil)
}

// DeleteWebhook switches the bot back to getUpdates delivery.
func (c *TelegramOutbound) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, c.client, "deleteWebhook", map[string]any{}, nil)
}

// call POSTs body to a Bot API method and decodes the result into out (if
// non-nil).
func (c *TelegramOutbound) call(ctx context.Context, client *http.Client, method string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/bot"+c.token+"/"+method,
		bytes.NewReader(b),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram %s: read body: %w", method, err)
	}

	var decoded apiResponse[json.RawMessage]
	if err := json.Unmarshal(respBody, &decoded); err != nil || !decoded.OK {
		c.logger.Error("telegram api error", "method", method, "status", resp.Status, "body", string(respBody))
		return fmt.Errorf("telegram %s: %s %s", method, resp.Status, decoded.Description)
	}

	if out != nil {
		return json.Unmarshal(decoded.Result, out)
	}
	return nil
}

func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if chunk := strings.TrimRight(cur.String(), "\n"); chunk != "" {
			chunks = append(chunks, chunk)
		}
		cur.Reset()
		curLen = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen+n > limit {
			flush()
		}
		for n > limit {
			// A single line longer than the limit is cut by runes.
			runes := []rune(line)
			chunks = append(chunks, string(runes[:limit]))
			line = string(runes[limit:])
			n -= limit
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return chunks
}
