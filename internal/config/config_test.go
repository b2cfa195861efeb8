package config

import (
	"testing"
	"time"

	"github.com/joshsymonds/inboxpilot/internal/category"
)

func TestParseNotifySet(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []category.Category
		wantNil bool
		wantErr bool
	}{
		{name: "empty-means-default", input: "", wantNil: true},
		{name: "single", input: "offer", want: []category.Category{category.Offer}},
		{
			name:  "multiple-with-spaces",
			input: " interview_request , offer ",
			want:  []category.Category{category.InterviewRequest, category.Offer},
		},
		{name: "unknown-category", input: "interview_request,bogus", wantErr: true},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseNotifySet(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantNil {
				if got != nil {
					t.Fatalf("expected nil set, got %v", got)
				}
				return
			}
			if len(got) != len(tc.want) {
				t.Fatalf("set size: got %d want %d", len(got), len(tc.want))
			}
			for _, c := range tc.want {
				if !got.Contains(c) {
					t.Fatalf("expected %s in set", c)
				}
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PollInterval != 5*time.Minute {
		t.Fatalf("poll interval default: got %v", cfg.PollInterval)
	}
	if cfg.Lookback != 24*time.Hour {
		t.Fatalf("lookback default: got %v", cfg.Lookback)
	}
	if cfg.MaxResults != 10 {
		t.Fatalf("max results default: got %d", cfg.MaxResults)
	}
	if !cfg.UnreadOnly {
		t.Fatal("unread-only should default to true")
	}
	if cfg.TelegramEnabled() {
		t.Fatal("telegram should be disabled without a token")
	}
}

func TestLoadRequiresOpenAIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without OPENAI_API_KEY")
	}
}

func TestLoadTelegramValidation(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when token is set without a chat id")
	}

	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error on malformed chat id")
	}

	t.Setenv("TELEGRAM_CHAT_ID", "12345")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.TelegramEnabled() || cfg.TelegramChatID != 12345 {
		t.Fatalf("unexpected telegram config: %+v", cfg)
	}
}
