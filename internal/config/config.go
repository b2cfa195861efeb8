// Package config loads process configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joshsymonds/inboxpilot/internal/category"
)

type Config struct {
	// Gmail
	GmailctlDir string

	// Polling loop
	PollInterval time.Duration
	Lookback     time.Duration
	MaxResults   int
	UnreadOnly   bool
	AutoStart    bool
	RPS          int

	// OpenAI
	OpenAIAPIKey string
	OpenAIModel  string

	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Control surface
	HTTPAddr string

	// Analytics
	AnalyticsPath string

	// Notification triggers; empty means the default set
	Notify category.NotifySet
}

// Load reads .env if present, then the environment. Only the OpenAI key is
// mandatory; Telegram and the HTTP surface degrade to disabled when unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		GmailctlDir:   getEnv("INBOXPILOT_GMAILCTL_DIR", os.ExpandEnv("$HOME/.gmailctl")),
		PollInterval:  getDuration("INBOXPILOT_POLL_INTERVAL", 5*time.Minute),
		Lookback:      getDuration("INBOXPILOT_LOOKBACK", 24*time.Hour),
		MaxResults:    getInt("INBOXPILOT_MAX_RESULTS", 10),
		UnreadOnly:    getBool("INBOXPILOT_UNREAD_ONLY", true),
		AutoStart:     getBool("INBOXPILOT_AUTOSTART", false),
		RPS:           getInt("INBOXPILOT_RPS", 4),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("INBOXPILOT_LLM_MODEL", ""),
		TelegramToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		HTTPAddr:      getEnv("INBOXPILOT_HTTP_ADDR", ":8080"),
		AnalyticsPath: getEnv("INBOXPILOT_ANALYTICS_DB", "analytics.db"),
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	if raw := getEnv("TELEGRAM_CHAT_ID", ""); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	notify, err := parseNotifySet(getEnv("INBOXPILOT_NOTIFY_CATEGORIES", ""))
	if err != nil {
		return nil, err
	}
	cfg.Notify = notify

	return cfg, nil
}

// TelegramEnabled reports whether notifications and the command bot run.
func (c *Config) TelegramEnabled() bool { return c.TelegramToken != "" }

// parseNotifySet maps a comma-separated override onto the closed category
// set; unknown names are configuration errors, not silent drops.
func parseNotifySet(raw string) (category.NotifySet, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var cats []category.Category
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cat, ok := category.Parse(part)
		if !ok {
			return nil, fmt.Errorf("unknown notify category %q", part)
		}
		cats = append(cats, cat)
	}
	return category.NewNotifySet(cats...), nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
