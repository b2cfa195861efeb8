package gmail

import "context"

// Client is the narrow Gmail surface required by inboxpilot.
type Client interface {
	ListRecent(ctx context.Context, opts ListOptions) ([]Message, error)
	ApplyLabel(ctx context.Context, id MessageID, label LabelID) error
	ListLabels(ctx context.Context) (map[string]LabelID, map[LabelID]string, error)
	EnsureLabel(ctx context.Context, name string) (LabelID, error)
	LabelStats(ctx context.Context) ([]LabelStat, error)
	SendReply(ctx context.Context, r Reply) (MessageID, error)
}
