package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joshsymonds/inboxpilot/internal/agent"
	"github.com/joshsymonds/inboxpilot/internal/analytics"
	"github.com/joshsymonds/inboxpilot/internal/classify"
	"github.com/joshsymonds/inboxpilot/internal/config"
	"github.com/joshsymonds/inboxpilot/internal/notify"
	"github.com/joshsymonds/inboxpilot/internal/rate"
	"github.com/joshsymonds/inboxpilot/internal/runtime"
)

type triageConfig struct {
	lookback   time.Duration
	maxResults int
	unreadOnly bool
	noNotify   bool
}

func main() {
	cfg := parseTriageFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("inboxpilot-triage failed", "error", err)
		os.Exit(1)
	}
}

func parseTriageFlags() triageConfig {
	lookback := flag.Duration("lookback", 24*time.Hour, "triage messages newer than this window")
	maxResults := flag.Int("max", 10, "maximum messages per pass")
	unreadOnly := flag.Bool("unread-only", true, "only triage unread messages")
	noNotify := flag.Bool("no-notify", false, "skip chat notifications")
	flag.Parse()

	return triageConfig{
		lookback:   *lookback,
		maxResults: *maxResults,
		unreadOnly: *unreadOnly,
		noNotify:   *noNotify,
	}
}

// run performs a single triage pass and prints the per-category tally.
func run(cfg triageConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	env, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := runtime.DefaultLogger()

	client, err := runtime.NewGmailClient(ctx, env.GmailctlDir, runtime.ScopeModify)
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}

	classifier := classify.NewOpenAI(classify.Config{APIKey: env.OpenAIAPIKey, Model: env.OpenAIModel})

	var notifier notify.Notifier
	if env.TelegramEnabled() && !cfg.noNotify {
		notifier = notify.NewTelegram(notify.TelegramConfig{
			Token:  env.TelegramToken,
			ChatID: fmt.Sprintf("%d", env.TelegramChatID),
		})
	}

	store, err := analytics.Open(env.AnalyticsPath)
	if err != nil {
		return fmt.Errorf("open analytics store: %w", err)
	}
	defer store.Close()

	bucket := rate.PerSecond(env.RPS)
	defer bucket.Stop()

	svc := agent.NewService(client, classifier, notifier, logger)
	svc.Recorder = store
	svc.Limiter = bucket
	svc.Start()

	svc.Tick(ctx, agent.Spec{
		Lookback:   cfg.lookback,
		MaxResults: cfg.maxResults,
		UnreadOnly: cfg.unreadOnly,
		Notify:     env.Notify,
	})

	st := svc.Status()
	if st.LastError != "" {
		return fmt.Errorf("triage pass failed: %s", st.LastError)
	}
	total := 0
	for cat, n := range st.CountsByCategory {
		fmt.Printf("%-22s %d\n", cat, n)
		total += n
	}
	fmt.Printf("%-22s %d\n", "total", total)
	return nil
}
