// Package notify delivers triage notifications to a chat channel.
package notify

import "context"

// Notifier sends a fire-and-forget text notification. Errors are reported
// for logging; callers never fail a tick on them.
type Notifier interface {
	Send(ctx context.Context, text string) error
}
