// Package botctl runs the Telegram command bot that remote-controls the
// agent loop.
package botctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joshsymonds/inboxpilot/internal/agent"
	"github.com/joshsymonds/inboxpilot/internal/analytics"
	"github.com/joshsymonds/inboxpilot/internal/gmail"
	"github.com/joshsymonds/inboxpilot/internal/report"
)

const telegramAPIBase = "https://api.telegram.org"

// Agent is the slice of the agent service the bot drives.
type Agent interface {
	Start() bool
	Stop() bool
	Status() agent.State
}

// Reporter answers /report. Nil disables the command.
type Reporter interface {
	Summary(ctx context.Context, days int) (report.Report, error)
}

// Mailer sends a threaded reply through the mailbox.
type Mailer interface {
	SendReply(ctx context.Context, r gmail.Reply) (gmail.MessageID, error)
}

// Drafter generates a reply body from the original email and instructions.
type Drafter interface {
	DraftReply(ctx context.Context, emailContent, instructions string) (string, error)
}

// Lookup resolves a recorded message by ID.
type Lookup interface {
	Find(ctx context.Context, id string) (analytics.Entry, error)
}

// Bot long-polls getUpdates and maps /start, /stop, /status, /report and
// /help onto the agent. Only the configured chat may issue commands.
type Bot struct {
	httpClient *http.Client
	baseURL    string
	token      string
	chatID     int64
	agent      Agent
	reporter   Reporter
	mailer     Mailer
	drafter    Drafter
	lookup     Lookup
	logger     *slog.Logger

	// PollTimeout is the getUpdates long-poll window.
	PollTimeout time.Duration

	offset int64
}

type Config struct {
	Token   string
	ChatID  int64
	BaseURL string // override for tests; defaults to api.telegram.org
}

func New(cfg Config, a Agent, r Reporter, logger *slog.Logger) *Bot {
	base := cfg.BaseURL
	if base == "" {
		base = telegramAPIBase
	}
	return &Bot{
		httpClient:  &http.Client{Timeout: 40 * time.Second},
		baseURL:     base,
		token:       cfg.Token,
		chatID:      cfg.ChatID,
		agent:       a,
		reporter:    r,
		logger:      logger,
		PollTimeout: 30 * time.Second,
	}
}

type incomingMessage struct {
	Chat struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Text string `json:"text"`
}

type update struct {
	UpdateID int64            `json:"update_id"`
	Message  *incomingMessage `json:"message"`
}

type updatesResponse struct {
	OK     bool     `json:"ok"`
	Result []update `json:"result"`
}

// Run polls for commands until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("telegram bot listening", "chat_id", b.chatID)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		updates, err := b.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			b.offset = u.UpdateID + 1
			b.handle(ctx, u)
		}
	}
}

func (b *Bot) getUpdates(ctx context.Context) ([]update, error) {
	q := url.Values{}
	q.Set("offset", strconv.FormatInt(b.offset, 10))
	q.Set("timeout", strconv.Itoa(int(b.PollTimeout/time.Second)))
	u := fmt.Sprintf("%s/bot%s/getUpdates?%s", b.baseURL, b.token, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("getUpdates: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var parsed updatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("getUpdates: decode: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("getUpdates: api returned ok=false")
	}
	return parsed.Result, nil
}

func (b *Bot) handle(ctx context.Context, u update) {
	if u.Message == nil {
		return
	}
	chat := u.Message.Chat.ID
	cmd := command(u.Message.Text)
	if cmd == "" {
		return
	}
	if chat != b.chatID {
		b.logger.Warn("unauthorized chat", "chat_id", chat, "command", cmd)
		b.reply(ctx, chat, "⛔ Unauthorized access")
		return
	}

	switch cmd {
	case "/start":
		if b.agent.Start() {
			b.reply(ctx, chat, "✅ Agent started. Monitoring your inbox; important mail will be forwarded here.")
		} else {
			b.reply(ctx, chat, "Agent is already running.")
		}
	case "/stop":
		if b.agent.Stop() {
			b.reply(ctx, chat, "🛑 Agent stopping after the current cycle.")
		} else {
			b.reply(ctx, chat, "Agent is not running.")
		}
	case "/status":
		b.reply(ctx, chat, formatStatus(b.agent.Status()))
	case "/report":
		b.sendReport(ctx, chat)
	case "/reply":
		b.sendReply(ctx, chat, u.Message.Text)
	case "/help":
		b.reply(ctx, chat, helpText)
	default:
		b.reply(ctx, chat, "Unknown command. "+helpText)
	}
}

const helpText = "Commands:\n/start - start the agent\n/stop - stop the agent\n/status - agent status\n/report - triage statistics\n/reply <message-id> [instructions] - draft and send a reply\n/help - this message"

// EnableReplies turns on the /reply command. All three collaborators are
// required: the store resolves the message, the drafter writes the body,
// the mailer sends it on the original thread.
func (b *Bot) EnableReplies(m Mailer, d Drafter, l Lookup) {
	b.mailer = m
	b.drafter = d
	b.lookup = l
}

func (b *Bot) sendReply(ctx context.Context, chat int64, text string) {
	if b.mailer == nil || b.drafter == nil || b.lookup == nil {
		b.reply(ctx, chat, "Replies are not configured.")
		return
	}
	fields := strings.Fields(text)
	if len(fields) < 2 {
		b.reply(ctx, chat, "Usage: /reply <message-id> [instructions]")
		return
	}
	id := fields[1]
	instructions := strings.Join(fields[2:], " ")

	entry, err := b.lookup.Find(ctx, id)
	if err != nil {
		b.logger.Warn("reply lookup failed", "id", id, "error", err)
		b.reply(ctx, chat, "I don't have a record of that message.")
		return
	}

	content := fmt.Sprintf("From: %s\nSubject: %s\n\n%s", entry.Sender, entry.Subject, entry.Snippet)
	body, err := b.drafter.DraftReply(ctx, content, instructions)
	if err != nil {
		b.logger.Error("reply draft failed", "id", id, "error", err)
		b.reply(ctx, chat, "Drafting the reply failed.")
		return
	}

	sent, err := b.mailer.SendReply(ctx, gmail.Reply{
		Thread: gmail.ThreadID(entry.ThreadID),
		To:     entry.Sender,
		Body:   body,
	})
	if err != nil {
		b.logger.Error("reply send failed", "id", id, "error", err)
		b.reply(ctx, chat, "Sending the reply failed.")
		return
	}
	b.reply(ctx, chat, fmt.Sprintf("↩️ Reply sent to %s (message %s):\n\n%s", entry.Sender, sent, body))
}

func (b *Bot) sendReport(ctx context.Context, chat int64) {
	if b.reporter == nil {
		b.reply(ctx, chat, "Analytics store is not configured.")
		return
	}
	rep, err := b.reporter.Summary(ctx, 30)
	if err != nil {
		b.logger.Error("report failed", "error", err)
		b.reply(ctx, chat, "Report generation failed.")
		return
	}
	b.reply(ctx, chat, report.FormatText(rep))
}

func formatStatus(st agent.State) string {
	emoji := "🔴"
	text := "Stopped"
	if st.Running {
		emoji = "🟢"
		text = "Running"
	}
	last := "never"
	if !st.LastPollAt.IsZero() {
		last = st.LastPollAt.UTC().Format("2006-01-02 15:04:05")
	}
	out := fmt.Sprintf("%s Agent status: %s\nLast poll: %s", emoji, text, last)
	if st.LastError != "" {
		out += "\nLast error: " + st.LastError
	}
	return out
}

// command extracts the leading slash command, dropping any @botname suffix.
func command(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0]
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd
}

func (b *Bot) reply(ctx context.Context, chat int64, text string) {
	payload, err := json.Marshal(map[string]any{
		"chat_id": chat,
		"text":    text,
	})
	if err != nil {
		return
	}
	u := fmt.Sprintf("%s/bot%s/sendMessage", b.baseURL, b.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(string(payload)))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.logger.Warn("telegram reply failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b.logger.Warn("telegram reply rejected", "status", resp.StatusCode)
	}
}
