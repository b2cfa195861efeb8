package runtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	gc "github.com/joshsymonds/inboxpilot/internal/gmail"
)

// googleClient adapts *gmail.Service to the triage client interface.
type googleClient struct{ svc *gmail.Service }

func NewGoogleAPIClient(svc *gmail.Service) gc.Client { return &googleClient{svc} }

func (g *googleClient) ListRecent(ctx context.Context, opts gc.ListOptions) ([]gc.Message, error) {
	parts := []string{fmt.Sprintf("newer_than:%dh", windowHours(opts.Lookback))}
	if opts.UnreadOnly {
		parts = append(parts, "is:unread")
	}
	max := opts.MaxResults
	if max <= 0 {
		max = 50
	}
	call := g.svc.Users.Messages.List("me").
		LabelIds("INBOX").
		Q(strings.Join(parts, " ")).
		MaxResults(int64(max))
	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	msgs := make([]gc.Message, 0, len(res.Messages))
	for _, m := range res.Messages {
		msg, err := g.getMessage(ctx, gc.MessageID(m.Id))
		if err != nil {
			return nil, fmt.Errorf("get message %s: %w", m.Id, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (g *googleClient) getMessage(ctx context.Context, id gc.MessageID) (gc.Message, error) {
	m, err := g.svc.Users.Messages.Get("me", string(id)).
		Format("metadata").
		MetadataHeaders("From", "Subject").
		Context(ctx).Do()
	if err != nil {
		return gc.Message{}, err
	}
	out := gc.Message{
		ID:         id,
		Thread:     gc.ThreadID(m.ThreadId),
		Snippet:    m.Snippet,
		ReceivedAt: time.UnixMilli(m.InternalDate).UTC(),
	}
	for _, h := range m.Payload.Headers {
		switch h.Name {
		case "From":
			out.Sender = h.Value
		case "Subject":
			out.Subject = h.Value
		}
	}
	return out, nil
}

func (g *googleClient) ApplyLabel(ctx context.Context, id gc.MessageID, label gc.LabelID) error {
	req := &gmail.ModifyMessageRequest{AddLabelIds: []string{string(label)}}
	_, err := g.svc.Users.Messages.Modify("me", string(id), req).Context(ctx).Do()
	return err
}

func (g *googleClient) ListLabels(ctx context.Context) (map[string]gc.LabelID, map[gc.LabelID]string, error) {
	lr, err := g.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, nil, err
	}
	byName := map[string]gc.LabelID{}
	byID := map[gc.LabelID]string{}
	for _, l := range lr.Labels {
		byName[l.Name] = gc.LabelID(l.Id)
		byID[gc.LabelID(l.Id)] = l.Name
	}
	return byName, byID, nil
}

func (g *googleClient) EnsureLabel(ctx context.Context, name string) (gc.LabelID, error) {
	byName, _, err := g.ListLabels(ctx)
	if err != nil {
		return "", err
	}
	if id, ok := byName[name]; ok {
		return id, nil
	}
	created, err := g.svc.Users.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create label %q: %w", name, err)
	}
	return gc.LabelID(created.Id), nil
}

func (g *googleClient) LabelStats(ctx context.Context) ([]gc.LabelStat, error) {
	lr, err := g.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	var stats []gc.LabelStat
	for _, l := range lr.Labels {
		if l.Type != "user" {
			continue
		}
		detail, err := g.svc.Users.Labels.Get("me", l.Id).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("label detail %q: %w", l.Name, err)
		}
		stats = append(stats, gc.LabelStat{Name: l.Name, Total: int(detail.MessagesTotal)})
	}
	return stats, nil
}

func (g *googleClient) SendReply(ctx context.Context, r gc.Reply) (gc.MessageID, error) {
	// Gmail threads the reply via ThreadId; explicit References headers are
	// not required for grouping.
	raw := fmt.Sprintf("To: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s", r.To, r.Body)
	msg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(raw)),
		ThreadId: string(r.Thread),
	}
	sent, err := g.svc.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return gc.MessageID(sent.Id), nil
}

func windowHours(d time.Duration) int {
	h := int(d / time.Hour)
	if h < 1 {
		h = 1
	}
	return h
}
