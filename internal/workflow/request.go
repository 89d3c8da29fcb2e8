package workflow

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Identifiers shared by the modal, the approver message, and the dispatch table.
const (
	CallbackID = "approval_modal"

	ApproverBlockID  = "approver_block"
	ApproverActionID = "approver_select"
	RequestBlockID   = "request_block"
	RequestActionID  = "request_input"

	DecisionBlockID = "approval_actions"
	ActionApprove   = "approve_request"
	ActionReject    = "reject_request"
)

// MaxRequestTextLength caps the request text in characters. An accepted
// character encodes to at most two token characters, so a full-length
// request plus a requester ID of up to MaxRequesterIDLength and a signature
// stays within MaxTokenLength.
const MaxRequestTextLength = 900

// MaxRequesterIDLength bounds the requester ID carried in a token. Slack
// user IDs are short runs of ASCII letters and digits.
const MaxRequesterIDLength = 64

// Status is the disposition of an approval request.
type Status string

// The only three statuses. Approved and Rejected are terminal.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus converts a stored status string back into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("workflow: unknown status %q", s)
	}
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Label is the human-readable form used in rendered messages.
func (s Status) Label() string {
	switch s {
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	default:
		return "Pending"
	}
}

// Transition returns to if the state machine allows s → to.
// Only Pending → Approved and Pending → Rejected are defined.
func (s Status) Transition(to Status) (Status, error) {
	if s != StatusPending || !to.IsTerminal() {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return to, nil
}

// StatusForAction maps a decision action ID to its terminal status.
func StatusForAction(actionID string) (Status, error) {
	switch actionID {
	case ActionApprove:
		return StatusApproved, nil
	case ActionReject:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
	}
}

// Request is an approval request. It is never stored: it exists as the
// token on the decision buttons and as the rendered message body.
type Request struct {
	RequesterID string
	ApproverID  string
	Text        string
	Status      Status
}

// NewRequest builds a pending request from a submission. The text is kept
// byte-for-byte. Blank, over-long or non-UTF-8 text is rejected, as are
// control characters other than tab, newline and carriage return.
func NewRequest(requesterID, approverID, text string) (Request, error) {
	switch {
	case requesterID == "":
		return Request{}, fmt.Errorf("%w: missing requester", ErrInvalidSubmission)
	case len(requesterID) > MaxRequesterIDLength || strings.IndexFunc(requesterID, notAlnum) >= 0:
		return Request{}, fmt.Errorf("%w: malformed requester id %q", ErrInvalidSubmission, requesterID)
	case approverID == "":
		return Request{}, fmt.Errorf("%w: missing approver", ErrInvalidSubmission)
	case strings.TrimSpace(text) == "":
		return Request{}, fmt.Errorf("%w: empty request text", ErrInvalidSubmission)
	case !utf8.ValidString(text):
		return Request{}, fmt.Errorf("%w: request text is not valid UTF-8", ErrInvalidSubmission)
	case utf8.RuneCountInString(text) > MaxRequestTextLength:
		return Request{}, fmt.Errorf("%w: request text longer than %d characters", ErrInvalidSubmission, MaxRequestTextLength)
	case strings.IndexFunc(text, isControl) >= 0:
		return Request{}, fmt.Errorf("%w: control character in request text", ErrInvalidSubmission)
	}
	return Request{
		RequesterID: requesterID,
		ApproverID:  approverID,
		Text:        text,
		Status:      StatusPending,
	}, nil
}

func notAlnum(r rune) bool {
	return (r < '0' || r > '9') && (r < 'A' || r > 'Z') && (r < 'a' || r > 'z')
}

func isControl(r rune) bool {
	return r < 0x20 && r != '\t' && r != '\n' && r != '\r'
}

// Decide applies the decision bound to actionID.
func (r Request) Decide(actionID string) (Request, error) {
	to, err := StatusForAction(actionID)
	if err != nil {
		return r, err
	}
	next, err := r.Status.Transition(to)
	if err != nil {
		return r, err
	}
	r.Status = next
	return r, nil
}

// Token projects the request onto the fields carried by the decision buttons.
func (r Request) Token() Token {
	return Token{RequesterID: r.RequesterID, RequestText: r.Text}
}
