package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/joshsymonds/inboxpilot/internal/agent"
	"github.com/joshsymonds/inboxpilot/internal/analytics"
	"github.com/joshsymonds/inboxpilot/internal/botctl"
	"github.com/joshsymonds/inboxpilot/internal/classify"
	"github.com/joshsymonds/inboxpilot/internal/config"
	"github.com/joshsymonds/inboxpilot/internal/control"
	"github.com/joshsymonds/inboxpilot/internal/notify"
	"github.com/joshsymonds/inboxpilot/internal/rate"
	"github.com/joshsymonds/inboxpilot/internal/report"
	"github.com/joshsymonds/inboxpilot/internal/runtime"
)

func main() {
	if err := run(); err != nil {
		runtime.DefaultLogger().Error("inboxpilot-agent failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := runtime.DefaultLogger()

	client, err := runtime.NewGmailClient(ctx, cfg.GmailctlDir, runtime.ScopeSend)
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}

	classifier := classify.NewOpenAI(classify.Config{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel})

	var notifier notify.Notifier
	if cfg.TelegramEnabled() {
		notifier = notify.NewTelegram(notify.TelegramConfig{
			Token:  cfg.TelegramToken,
			ChatID: fmt.Sprintf("%d", cfg.TelegramChatID),
		})
	}

	store, err := analytics.Open(cfg.AnalyticsPath)
	if err != nil {
		return fmt.Errorf("open analytics store: %w", err)
	}
	defer store.Close()
	engine := report.NewEngine(store)

	bucket := rate.PerSecond(cfg.RPS)
	defer bucket.Stop()

	svc := agent.NewService(client, classifier, notifier, logger)
	svc.Recorder = store
	svc.Limiter = bucket
	if cfg.AutoStart {
		svc.Start()
	}

	spec := agent.Spec{
		Interval:   cfg.PollInterval,
		Lookback:   cfg.Lookback,
		MaxResults: cfg.MaxResults,
		UnreadOnly: cfg.UnreadOnly,
		Notify:     cfg.Notify,
	}

	// the original throttled mutating control calls to 5/minute
	httpGate := rate.NewTokenBucket(12*time.Second, 5)
	defer httpGate.Stop()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	control.NewHandler(svc, engine, httpGate, logger).Register(app)

	errCh := make(chan error, 3)
	go func() {
		logger.Info("control surface listening", "addr", cfg.HTTPAddr)
		errCh <- app.Listen(cfg.HTTPAddr)
	}()
	go func() {
		errCh <- svc.Run(ctx, spec)
	}()
	if cfg.TelegramEnabled() {
		bot := botctl.New(botctl.Config{Token: cfg.TelegramToken, ChatID: cfg.TelegramChatID}, svc, engine, logger)
		bot.EnableReplies(client, classifier, store)
		go func() {
			errCh <- bot.Run(ctx)
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			_ = app.Shutdown()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	logger.Info("inboxpilot-agent stopped")
	return nil
}
