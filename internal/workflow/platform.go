package workflow

import (
	"context"

	"github.com/slack-go/slack"
)

// Message is a renderable chat message: fallback text plus Block Kit blocks.
type Message struct {
	Text   string
	Blocks []slack.Block
}

// MessageRef addresses a posted message.
type MessageRef struct {
	ChannelID string
	Timestamp string
}

// Platform is the chat platform as seen by the workflow. Every call returns
// an explicit result; callers log failures and carry on.
type Platform interface {
	// OpenView renders a modal for the given trigger.
	OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error

	// PostMessage sends a message to a user (delivered as a DM).
	PostMessage(ctx context.Context, recipientID string, msg Message) (MessageRef, error)

	// UpdateMessage rewrites the message at ref in place.
	UpdateMessage(ctx context.Context, ref MessageRef, msg Message) error
}

// Ledger records the first decision applied to a decision surface.
//
// Claim stores status under key if nothing is recorded yet and reports
// claimed=true. Otherwise it returns the status recorded earlier and
// claimed=false.
type Ledger interface {
	Claim(ctx context.Context, key, status string) (recorded string, claimed bool, err error)
}
