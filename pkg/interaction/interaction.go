// Package interaction defines the platform-agnostic contract between channels
// and the router: one Interaction per inbound callback (slash command, modal
// submission, or button activation).
package interaction

import "time"

// Kind discriminates the inbound callback type.
type Kind string

// Supported interaction kinds.
const (
	// KindCommand is a slash command invocation.
	KindCommand Kind = "command"
	// KindViewSubmission is a modal submission.
	KindViewSubmission Kind = "view_submission"
	// KindBlockAction is the activation of an interactive element.
	KindBlockAction Kind = "block_action"
)

// Key identifies a handler in the dispatch table: the kind plus the
// command name, view callback ID, or action ID.
type Key struct {
	Kind Kind
	ID   string
}

// String renders the key as "kind:id".
func (k Key) String() string {
	return string(k.Kind) + ":" + k.ID
}

// Interaction is a single normalized inbound callback.
type Interaction struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`

	// Channel is the module ID that received the callback (e.g. "channel.slack").
	Channel string `json:"channel"`

	// UserID is the invoking, submitting, or acting user.
	UserID string `json:"user_id"`

	// TriggerID authorizes one modal render. Commands and block actions carry it.
	TriggerID string `json:"trigger_id,omitempty"`

	// Values holds submitted modal values keyed by block ID, then action ID.
	Values map[string]map[string]string `json:"values,omitempty"`

	// Value is the opaque value attached to an activated element.
	Value string `json:"value,omitempty"`

	// ChannelID and MessageTS address the message that carried the element.
	ChannelID string `json:"channel_id,omitempty"`
	MessageTS string `json:"message_ts,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}

// Key returns the dispatch key for this interaction.
func (i Interaction) Key() Key {
	return Key{Kind: i.Kind, ID: i.ID}
}

// Field returns the submitted value for blockID/actionID, or "" if absent.
func (i Interaction) Field(blockID, actionID string) string {
	block, ok := i.Values[blockID]
	if !ok {
		return ""
	}
	return block[actionID]
}

// HasMessage reports whether the interaction carries message coordinates.
func (i Interaction) HasMessage() bool {
	return i.ChannelID != "" && i.MessageTS != ""
}
