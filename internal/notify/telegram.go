package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram posts messages to a single chat through the Bot API. Calls run
// through a circuit breaker so a dead endpoint stops consuming tick time.
type Telegram struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	baseURL    string
	token      string
	chatID     string
}

type TelegramConfig struct {
	Token   string
	ChatID  string
	BaseURL string // override for tests; defaults to api.telegram.org
	Timeout time.Duration
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	base := cfg.BaseURL
	if base == "" {
		base = telegramAPIBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Telegram{
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "telegram",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		baseURL: base,
		token:   cfg.Token,
		chatID:  cfg.ChatID,
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	_, err := t.breaker.Execute(func() (any, error) {
		return nil, t.post(ctx, text)
	})
	return err
}

func (t *Telegram) post(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram send: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

var _ Notifier = (*Telegram)(nil)
