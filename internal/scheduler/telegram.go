package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/notexe/proofpal/internal/reminder"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramSender sends messages via Telegram Bot API.
type TelegramSender struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
}

// TelegramOption configures a TelegramSender.
type TelegramOption func(*TelegramSender)

// WithAPIBase points the sender at another Bot API host.
func WithAPIBase(base string) TelegramOption {
	return func(t *TelegramSender) { t.apiBase = strings.TrimRight(base, "/") }
}

// WithRate limits outgoing messages per second. Zero or less disables the
// limit.
func WithRate(perSecond float64) TelegramOption {
	return func(t *TelegramSender) {
		if perSecond <= 0 {
			t.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		t.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) TelegramOption {
	return func(t *TelegramSender) { t.client = c }
}

// NewTelegramSender creates a new Telegram sender. After five consecutive
// failures it stops calling the API for a minute.
func NewTelegramSender(botToken, chatID string, opts ...TelegramOption) *TelegramSender {
	t := &TelegramSender{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultTelegramAPI,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "telegram",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return t
}

type telegramSendRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (t *TelegramSender) Name() string { return "telegram" }

// Notify sends ev as an HTML message with a bold headline.
func (t *TelegramSender) Notify(ctx context.Context, ev reminder.Event) error {
	text := fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(ev.Title()), html.EscapeString(ev.Message))
	return t.SendMessage(ctx, text)
}

// SendMessage sends a message to the configured chat.
func (t *TelegramSender) SendMessage(ctx context.Context, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit: %w", err)
	}

	_, err := t.breaker.Execute(func() (interface{}, error) {
		return nil, t.send(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("telegram unavailable: %w", err)
	}
	return err
}

func (t *TelegramSender) send(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload := telegramSendRequest{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read telegram response: %w", err)
	}

	var tgResp telegramResponse
	if err := json.Unmarshal(respBody, &tgResp); err != nil {
		return fmt.Errorf("failed to parse telegram response (status %d): %w", resp.StatusCode, err)
	}

	if !tgResp.OK {
		return fmt.Errorf("telegram API error: %s", tgResp.Description)
	}

	return nil
}
