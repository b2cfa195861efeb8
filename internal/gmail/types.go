package gmail

import "time"

type MessageID string
type ThreadID string
type LabelID string

// Message is one fetched inbox message, immutable once returned by the
// client. It carries only the fields triage needs.
type Message struct {
	ID         MessageID
	Thread     ThreadID
	Subject    string
	Sender     string
	Snippet    string
	ReceivedAt time.Time
}

// ListOptions narrows which messages a fetch returns.
type ListOptions struct {
	Lookback   time.Duration // only messages newer than this window
	MaxResults int
	UnreadOnly bool
}

// Label is mailbox label metadata.
type Label struct {
	ID   LabelID
	Name string
}

// LabelStat pairs a user label with its total message count.
type LabelStat struct {
	Name  string
	Total int
}

// Reply is an outbound threaded reply.
type Reply struct {
	Thread ThreadID
	To     string
	Body   string
}
