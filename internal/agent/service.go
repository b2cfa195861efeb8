// Package agent drives the poll-classify-label-notify loop.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joshsymonds/inboxpilot/internal/category"
	"github.com/joshsymonds/inboxpilot/internal/classify"
	gc "github.com/joshsymonds/inboxpilot/internal/gmail"
	"github.com/joshsymonds/inboxpilot/internal/notify"
	"github.com/joshsymonds/inboxpilot/internal/rate"
)

// Recorder persists classification outcomes. Satisfied by *analytics.Store.
type Recorder interface {
	Record(ctx context.Context, msg gc.Message, cat category.Category, important bool) error
}

// Spec fixes the per-tick fetch window and the notification trigger set.
type Spec struct {
	Interval   time.Duration
	Lookback   time.Duration
	MaxResults int
	UnreadOnly bool
	Notify     category.NotifySet
}

// Service owns the polling loop. One Run per Service; Start, Stop and
// Status may be called concurrently from the control surfaces.
type Service struct {
	Client     gc.Client
	Classifier classify.Classifier
	Notifier   notify.Notifier
	Recorder   Recorder
	Limiter    rate.Limiter
	Logger     *slog.Logger
	Clock      func() time.Time

	st state
	// label name -> id, resolved once per name; only the loop touches it
	labelIDs map[string]gc.LabelID
}

// NewService constructs a Service with sane defaults.
func NewService(client gc.Client, classifier classify.Classifier, notifier notify.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{
		Client:     client,
		Classifier: classifier,
		Notifier:   notifier,
		Logger:     logger,
		Clock:      time.Now,
		labelIDs:   map[string]gc.LabelID{},
	}
}

// Start resumes ticking. Idempotent; reports whether the call changed state.
func (s *Service) Start() bool { return s.st.start() }

// Stop pauses ticking at the next tick boundary. Idempotent; reports
// whether the call changed state.
func (s *Service) Stop() bool { return s.st.stop() }

// Status returns a snapshot safe to use concurrently with the loop.
func (s *Service) Status() State { return s.st.snapshot() }

// Run blocks until ctx is done, executing one tick per interval while the
// agent is started. The first tick fires immediately.
func (s *Service) Run(ctx context.Context, spec Spec) error {
	interval := spec.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	if s.st.running() {
		s.Tick(ctx, spec)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.st.running() {
				continue
			}
			s.Tick(ctx, spec)
		}
	}
}

// Tick runs one poll-classify-label-notify pass. A fetch failure aborts the
// pass; every per-message failure degrades and continues.
func (s *Service) Tick(ctx context.Context, spec Spec) {
	if err := s.wait(ctx); err != nil {
		return
	}

	msgs, err := s.Client.ListRecent(ctx, gc.ListOptions{
		Lookback:   spec.Lookback,
		MaxResults: spec.MaxResults,
		UnreadOnly: spec.UnreadOnly,
	})
	if err != nil {
		s.st.markError(err)
		s.Logger.Error("fetch failed, retrying next tick", "error", err)
		return
	}
	s.st.markPoll(s.Clock())

	if len(msgs) == 0 {
		s.Logger.Info("no messages to triage")
		return
	}
	s.Logger.Info("triaging messages", "count", len(msgs))

	notifySet := spec.Notify
	if notifySet == nil {
		notifySet = category.DefaultNotifySet()
	}

	for _, msg := range msgs {
		s.process(ctx, msg, notifySet)
	}
}

func (s *Service) process(ctx context.Context, msg gc.Message, notifySet category.NotifySet) {
	cat, err := s.Classifier.Classify(ctx, msg)
	if err != nil {
		cat = category.Uncategorized
		s.Logger.Warn("classification failed", "id", msg.ID, "error", err)
	}
	important := notifySet.Contains(cat)

	labeled := true
	if err := s.applyLabel(ctx, msg.ID, category.Label(cat)); err != nil {
		labeled = false
		s.Logger.Error("label apply failed", "id", msg.ID, "label", category.Label(cat), "error", err)
	} else {
		s.Logger.Info("labeled", "subject", clip(msg.Subject, 50), "label", category.Label(cat))
	}

	// a message we could not label is not worth paging about
	if labeled && important && s.Notifier != nil {
		if err := s.Notifier.Send(ctx, notificationText(msg)); err != nil {
			s.Logger.Warn("notification failed", "id", msg.ID, "error", err)
		}
	}

	if s.Recorder != nil {
		if err := s.Recorder.Record(ctx, msg, cat, important); err != nil {
			s.Logger.Warn("analytics record failed", "id", msg.ID, "error", err)
		}
	}

	s.st.count(cat)
}

func (s *Service) applyLabel(ctx context.Context, id gc.MessageID, name string) error {
	lid, ok := s.labelIDs[name]
	if !ok {
		if err := s.wait(ctx); err != nil {
			return err
		}
		var err error
		lid, err = s.Client.EnsureLabel(ctx, name)
		if err != nil {
			return fmt.Errorf("ensure label %q: %w", name, err)
		}
		s.labelIDs[name] = lid
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.Client.ApplyLabel(ctx, id, lid)
}

func (s *Service) wait(ctx context.Context) error {
	if s.Limiter == nil {
		return nil
	}
	return s.Limiter.Wait(ctx)
}

func notificationText(msg gc.Message) string {
	return fmt.Sprintf("📧 *Important Email*\n\n*Subject:* %s\n*From:* %s\n*Snippet:* %s",
		msg.Subject, msg.Sender, clip(msg.Snippet, 200))
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
