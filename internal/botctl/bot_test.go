package botctl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joshsymonds/inboxpilot/internal/agent"
	"github.com/joshsymonds/inboxpilot/internal/analytics"
	"github.com/joshsymonds/inboxpilot/internal/category"
	"github.com/joshsymonds/inboxpilot/internal/gmail"
	"github.com/joshsymonds/inboxpilot/internal/report"
)

const authorizedChat int64 = 42

type fakeAgent struct {
	running bool
}

func (f *fakeAgent) Start() bool {
	if f.running {
		return false
	}
	f.running = true
	return true
}

func (f *fakeAgent) Stop() bool {
	if !f.running {
		return false
	}
	f.running = false
	return true
}

func (f *fakeAgent) Status() agent.State {
	return agent.State{Running: f.running}
}

type fakeReporter struct{ err error }

func (f *fakeReporter) Summary(ctx context.Context, days int) (report.Report, error) {
	if f.err != nil {
		return report.Report{}, f.err
	}
	return report.Report{WindowDays: days, Total: 9}, nil
}

// telegramStub records sendMessage calls and optionally serves scripted
// getUpdates batches.
type telegramStub struct {
	mu      sync.Mutex
	sent    []sentMessage
	updates []string // JSON bodies served in order, then empty results
	srv     *httptest.Server
}

type sentMessage struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func newTelegramStub(t *testing.T, updates ...string) *telegramStub {
	t.Helper()
	stub := &telegramStub{updates: updates}
	stub.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var msg sentMessage
			if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
				t.Errorf("decode sendMessage: %v", err)
			}
			stub.mu.Lock()
			stub.sent = append(stub.sent, msg)
			stub.mu.Unlock()
			w.Write([]byte(`{"ok":true}`))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			stub.mu.Lock()
			body := `{"ok":true,"result":[]}`
			if len(stub.updates) > 0 {
				body = stub.updates[0]
				stub.updates = stub.updates[1:]
			}
			stub.mu.Unlock()
			w.Write([]byte(body))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(stub.srv.Close)
	return stub
}

func (s *telegramStub) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

func newTestBot(stub *telegramStub, a Agent, r Reporter) *Bot {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := New(Config{Token: "tok", ChatID: authorizedChat, BaseURL: stub.srv.URL}, a, r, logger)
	b.PollTimeout = 0
	return b
}

func msgUpdate(chat int64, text string) update {
	msg := &incomingMessage{Text: text}
	msg.Chat.ID = chat
	return update{Message: msg}
}

func TestStartStopCommands(t *testing.T) {
	stub := newTelegramStub(t)
	fa := &fakeAgent{}
	b := newTestBot(stub, fa, &fakeReporter{})
	ctx := context.Background()

	b.handle(ctx, msgUpdate(authorizedChat, "/start"))
	if !fa.running {
		t.Fatal("expected agent running after /start")
	}
	b.handle(ctx, msgUpdate(authorizedChat, "/start"))
	b.handle(ctx, msgUpdate(authorizedChat, "/stop"))
	if fa.running {
		t.Fatal("expected agent stopped after /stop")
	}

	msgs := stub.messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 replies, got %d", len(msgs))
	}
	if !strings.Contains(msgs[1].Text, "already running") {
		t.Fatalf("second /start should report already running, got %q", msgs[1].Text)
	}
}

func TestUnauthorizedChatRejected(t *testing.T) {
	stub := newTelegramStub(t)
	fa := &fakeAgent{}
	b := newTestBot(stub, fa, &fakeReporter{})

	b.handle(context.Background(), msgUpdate(999, "/start"))

	if fa.running {
		t.Fatal("unauthorized chat must not start the agent")
	}
	msgs := stub.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Unauthorized") {
		t.Fatalf("expected unauthorized reply, got %+v", msgs)
	}
	if msgs[0].ChatID != 999 {
		t.Fatalf("reply should go to the requesting chat, got %d", msgs[0].ChatID)
	}
}

func TestStatusCommand(t *testing.T) {
	stub := newTelegramStub(t)
	fa := &fakeAgent{running: true}
	b := newTestBot(stub, fa, &fakeReporter{})

	b.handle(context.Background(), msgUpdate(authorizedChat, "/status"))

	msgs := stub.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Running") {
		t.Fatalf("expected running status, got %+v", msgs)
	}
}

func TestReportCommand(t *testing.T) {
	stub := newTelegramStub(t)
	b := newTestBot(stub, &fakeAgent{}, &fakeReporter{})

	b.handle(context.Background(), msgUpdate(authorizedChat, "/report"))

	msgs := stub.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Total: 9") {
		t.Fatalf("expected report text, got %+v", msgs)
	}
}

func TestReportCommandFailure(t *testing.T) {
	stub := newTelegramStub(t)
	b := newTestBot(stub, &fakeAgent{}, &fakeReporter{err: errors.New("db gone")})

	b.handle(context.Background(), msgUpdate(authorizedChat, "/report"))

	msgs := stub.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "failed") {
		t.Fatalf("expected failure reply, got %+v", msgs)
	}
}

type fakeMailer struct {
	sent []gmail.Reply
	err  error
}

func (f *fakeMailer) SendReply(ctx context.Context, r gmail.Reply) (gmail.MessageID, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, r)
	return "sent-1", nil
}

type fakeDrafter struct{ body string }

func (f *fakeDrafter) DraftReply(ctx context.Context, emailContent, instructions string) (string, error) {
	return f.body, nil
}

type fakeLookup struct{ entries map[string]analytics.Entry }

func (f *fakeLookup) Find(ctx context.Context, id string) (analytics.Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return analytics.Entry{}, errors.New("not found")
	}
	return e, nil
}

func TestReplyCommand(t *testing.T) {
	stub := newTelegramStub(t)
	b := newTestBot(stub, &fakeAgent{}, &fakeReporter{})
	mailer := &fakeMailer{}
	lookup := &fakeLookup{entries: map[string]analytics.Entry{
		"m1": {
			ID:       "m1",
			Sender:   "hr@acme.com",
			Subject:  "Interview",
			ThreadID: "t1",
			Category: category.InterviewRequest,
		},
	}}
	b.EnableReplies(mailer, &fakeDrafter{body: "Tuesday works."}, lookup)

	b.handle(context.Background(), msgUpdate(authorizedChat, "/reply m1 accept tuesday"))

	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 reply sent, got %d", len(mailer.sent))
	}
	sent := mailer.sent[0]
	if sent.To != "hr@acme.com" || sent.Thread != "t1" || sent.Body != "Tuesday works." {
		t.Fatalf("unexpected reply: %+v", sent)
	}
	msgs := stub.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Reply sent") {
		t.Fatalf("expected confirmation, got %+v", msgs)
	}
}

func TestReplyCommandUnknownMessage(t *testing.T) {
	stub := newTelegramStub(t)
	b := newTestBot(stub, &fakeAgent{}, &fakeReporter{})
	b.EnableReplies(&fakeMailer{}, &fakeDrafter{}, &fakeLookup{})

	b.handle(context.Background(), msgUpdate(authorizedChat, "/reply nope"))

	msgs := stub.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "record") {
		t.Fatalf("expected lookup failure reply, got %+v", msgs)
	}
}

func TestRunConsumesUpdates(t *testing.T) {
	batch := `{"ok":true,"result":[{"update_id":7,"message":{"chat":{"id":42},"text":"/start"}}]}`
	stub := newTelegramStub(t, batch)
	fa := &fakeAgent{}
	b := newTestBot(stub, fa, &fakeReporter{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = b.Run(ctx)

	if !fa.running {
		t.Fatal("expected /start from getUpdates to start the agent")
	}
	if b.offset != 8 {
		t.Fatalf("expected offset advanced to 8, got %d", b.offset)
	}
}

func TestCommandParsing(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "/start", want: "/start"},
		{in: "/status@inboxpilot_bot", want: "/status"},
		{in: "  /stop now", want: "/stop"},
		{in: "hello", want: ""},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := command(tt.in); got != tt.want {
			t.Fatalf("command(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
