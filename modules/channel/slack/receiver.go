package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/slack-go/slack"

	"github.com/flemzord/slackapprove/internal/gateway"
	"github.com/flemzord/slackapprove/pkg/interaction"
)

// NewVerifier returns a gateway verifier that checks Slack's v0 request
// signature and rejects timestamps more than five minutes old.
func NewVerifier(signingSecret string) gateway.Verifier {
	return gateway.VerifierFunc(func(headers http.Header, body []byte) error {
		sv, err := slack.NewSecretsVerifier(headers, signingSecret)
		if err != nil {
			return fmt.Errorf("slack: request signature: %w", err)
		}
		if _, err := sv.Write(body); err != nil {
			return fmt.Errorf("slack: request signature: %w", err)
		}
		if err := sv.Ensure(); err != nil {
			return errors.New("slack: request signature mismatch")
		}
		return nil
	})
}

// WebhookReceiver turns verified Slack HTTP callbacks into interactions.
// It implements gateway.WebhookHandler.
type WebhookReceiver struct {
	inbox       func(interaction.Interaction) error
	logger      *slog.Logger
	channelName string
}

// Interface guard.
var _ gateway.WebhookHandler = (*WebhookReceiver)(nil)

// NewWebhookReceiver creates a new WebhookReceiver.
func NewWebhookReceiver(inbox func(interaction.Interaction) error, logger *slog.Logger, channelName string) *WebhookReceiver {
	return &WebhookReceiver{
		inbox:       inbox,
		logger:      logger,
		channelName: channelName,
	}
}

// HandleWebhook parses a form-encoded slash command or interaction payload
// and hands it to the router without waiting for any work. It returns an
// error only for bodies it cannot parse; routing failures are logged and
// still acknowledged.
func (w *WebhookReceiver) HandleWebhook(_ context.Context, _ string, body []byte, _ http.Header) error {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return fmt.Errorf("slack: invalid form body: %w", err)
	}

	var in interaction.Interaction
	switch {
	case form.Has("payload"):
		in, err = convertPayload([]byte(form.Get("payload")), w.channelName)
	case form.Has("command"):
		in, err = convertCommand(commandFromForm(form), w.channelName)
	default:
		return errors.New("slack: body carries neither command nor payload")
	}
	if errors.Is(err, errIgnored) {
		w.logger.Debug("slack callback acknowledged without routing", "reason", err)
		return nil
	}
	if err != nil {
		return err
	}

	deliver(w.inbox, in, w.logger)
	return nil
}

// deliver submits in and logs a failure. The callback is acknowledged
// either way.
func deliver(inbox func(interaction.Interaction) error, in interaction.Interaction, logger *slog.Logger) {
	if err := inbox(in); err != nil {
		logger.Warn("interaction not routed",
			"interaction", in.Key().String(),
			"user", in.UserID,
			"error", err,
		)
	}
}
