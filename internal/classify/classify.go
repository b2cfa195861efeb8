// Package classify assigns one closed-set category to a message via an LLM
// completion endpoint.
package classify

import (
	"context"

	"github.com/joshsymonds/inboxpilot/internal/category"
	"github.com/joshsymonds/inboxpilot/internal/gmail"
)

// Classifier produces exactly one category per message. Implementations
// return an error only for transport or endpoint failures; a response that
// names no known category degrades to Uncategorized without error.
type Classifier interface {
	Classify(ctx context.Context, msg gmail.Message) (category.Category, error)
}
