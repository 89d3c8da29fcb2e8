package workflow

import (
	"strings"

	"github.com/slack-go/slack"
)

// mrkdwnEscaper escapes the three characters Slack reserves for control
// sequences. Everything else in request text renders verbatim.
var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

func section(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(mrkdwn(text), nil, nil)
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

func requestSection(text string) *slack.SectionBlock {
	return section("*Request:*\n" + mrkdwnEscaper.Replace(text))
}

// RequestModal is the intake surface: one required user picker and one
// required multi-line text input.
func RequestModal() slack.ModalViewRequest {
	approver := slack.NewOptionsSelectBlockElement(slack.OptTypeUser, plain("Select an approver"), ApproverActionID)

	details := slack.NewPlainTextInputBlockElement(plain("What needs approval?"), RequestActionID)
	details.Multiline = true
	details.MaxLength = MaxRequestTextLength

	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: CallbackID,
		Title:      plain("Request Approval"),
		Submit:     plain("Submit"),
		Close:      plain("Cancel"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewInputBlock(ApproverBlockID, plain("Approver"), nil, approver),
			slack.NewInputBlock(RequestBlockID, plain("Request Details"), nil, details),
		}},
	}
}

// ApproverMessage is the interactive message sent to the approver. Both
// buttons carry the same token.
func ApproverMessage(req Request, token string) Message {
	header := "You have a new approval request from " + mention(req.RequesterID) + ":"

	approve := slack.NewButtonBlockElement(ActionApprove, token, plain("Approve")).WithStyle(slack.StylePrimary)
	reject := slack.NewButtonBlockElement(ActionReject, token, plain("Reject")).WithStyle(slack.StyleDanger)

	return Message{
		Text: header,
		Blocks: []slack.Block{
			section(header),
			requestSection(req.Text),
			slack.NewActionBlock(DecisionBlockID, approve, reject),
		},
	}
}

// RequesterConfirmation tells the requester who received the request.
func RequesterConfirmation(req Request) Message {
	header := "Your approval request has been sent to " + mention(req.ApproverID) + "."
	return Message{
		Text: header,
		Blocks: []slack.Block{
			section(header),
			requestSection(req.Text),
		},
	}
}

// ResolvedMessage replaces the approver's interactive message once decided:
// the buttons are gone and a status marker takes their place.
func ResolvedMessage(req Request) Message {
	verb := "approved"
	if req.Status == StatusRejected {
		verb = "rejected"
	}
	header := "You " + verb + " a request from " + mention(req.RequesterID)

	return Message{
		Text: header,
		Blocks: []slack.Block{
			section(header),
			requestSection(req.Text),
			slack.NewContextBlock("", mrkdwn(statusMarker(req.Status))),
		},
	}
}

// OutcomeNotification tells the requester what the approver decided.
func OutcomeNotification(req Request) Message {
	var text string
	switch req.Status {
	case StatusRejected:
		text = "Your request has been rejected by " + mention(req.ApproverID) + "."
	default:
		text = "Your request has been approved by " + mention(req.ApproverID) + "!"
	}

	return Message{
		Text: text,
		Blocks: []slack.Block{
			section(statusEmoji(req.Status) + " " + text),
			requestSection(req.Text),
		},
	}
}

func statusEmoji(s Status) string {
	if s == StatusRejected {
		return ":x:"
	}
	return ":white_check_mark:"
}

func statusMarker(s Status) string {
	return statusEmoji(s) + " " + s.Label()
}
