package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/slackapprove/internal/channel"
	"github.com/flemzord/slackapprove/internal/core"
	"github.com/flemzord/slackapprove/internal/gateway"
	"github.com/flemzord/slackapprove/internal/telemetry"
	"github.com/flemzord/slackapprove/internal/workflow"
	"github.com/flemzord/slackapprove/pkg/interaction"
)

const authTimeout = 10 * time.Second

func init() {
	core.RegisterModule(&Slack{})
}

// Compile-time interface guards.
var (
	_ channel.Channel   = (*Slack)(nil)
	_ core.Configurable = (*Slack)(nil)
	_ core.Provisioner  = (*Slack)(nil)
	_ core.Validator    = (*Slack)(nil)
	_ core.Starter      = (*Slack)(nil)
	_ core.Stopper      = (*Slack)(nil)
)

// Slack implements the Slack channel.
type Slack struct {
	config Config
	client *Client
	codec  *workflow.Codec
	logger *slog.Logger
	inbox  func(interaction.Interaction) error
	appCtx *core.AppContext

	// Set during Start() depending on mode.
	socket *SocketReceiver
}

// ModuleInfo implements core.Module.
func (s *Slack) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel.slack",
		New: func() core.Module { return &Slack{} },
	}
}

// Configure implements core.Configurable.
func (s *Slack) Configure(node *yaml.Node) error {
	if err := node.Decode(&s.config); err != nil {
		return fmt.Errorf("slack: decode config: %w", err)
	}
	s.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (s *Slack) Provision(ctx *core.AppContext) error {
	s.appCtx = ctx
	s.logger = ctx.Logger

	metrics, _ := core.ServiceAs[*telemetry.Metrics](ctx, telemetry.ServiceName)
	s.client = NewClient(s.config.BotToken, ClientOptions{
		APIURL:   s.config.APIURL,
		AppToken: s.config.AppToken,
		Rate:     s.config.RatePerSecond,
		Burst:    s.config.Burst,
		Debug:    s.config.Debug,
		Metrics:  metrics,
		Logger:   s.logger,
	})
	s.codec = workflow.NewCodec([]byte(s.config.TokenKey))
	return nil
}

// Validate implements core.Validator.
func (s *Slack) Validate() error {
	return s.config.validate()
}

// Start implements core.Starter. It checks the bot token, then starts
// receiving in the configured mode.
func (s *Slack) Start() error {
	if s.inbox == nil {
		return fmt.Errorf("slack: %w, call SetInbox before Start", channel.ErrNoInbox)
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()
	auth, err := s.client.AuthTest(ctx)
	if err != nil {
		return fmt.Errorf("slack: auth.test failed (check bot_token): %w", err)
	}
	s.logger.Info("slack bot authenticated",
		"team", auth.Team,
		"user", auth.User,
		"bot_id", auth.BotID,
		"signed_tokens", s.codec.Signed(),
	)

	channelName := string(s.ModuleInfo().ID)

	switch s.config.Mode {
	case ModeHTTP:
		if err := s.registerWebhook(channelName); err != nil {
			return err
		}
		s.logger.Info("slack http receiver registered",
			"path", "/webhooks/"+s.config.Source,
			"command", s.config.Command,
		)

	case ModeSocket:
		s.socket = NewSocketReceiver(s.client, s.inbox, s.logger, channelName)
		s.socket.Start()
		s.logger.Info("slack socket mode started", "command", s.config.Command)
	}

	return nil
}

// registerWebhook resolves the gateway webhook dispatcher from the service
// registry and registers a signed receiver under the configured source.
func (s *Slack) registerWebhook(channelName string) error {
	dispatcher, ok := core.ServiceAs[*gateway.WebhookDispatcher](s.appCtx, gateway.ServiceDispatcher)
	if !ok {
		return errors.New("slack: " + gateway.ServiceDispatcher + " service not found (is the gateway.http module loaded?)")
	}
	receiver := NewWebhookReceiver(s.inbox, s.logger, channelName)
	dispatcher.Register(s.config.Source, receiver, NewVerifier(s.config.SigningSecret))
	return nil
}

// Stop implements core.Stopper.
func (s *Slack) Stop(_ context.Context) error {
	s.logger.Info("slack channel stopping")
	if s.socket != nil {
		s.socket.Stop()
	}
	return nil
}

// SetInbox implements channel.Channel.
func (s *Slack) SetInbox(fn func(in interaction.Interaction) error) {
	s.inbox = fn
}

// Platform implements channel.Channel.
func (s *Slack) Platform() workflow.Platform {
	return s.client
}

// Codec returns the decision token codec, keyed by token_key when set.
func (s *Slack) Codec() *workflow.Codec {
	return s.codec
}

// Command returns the slash command that opens the request modal.
func (s *Slack) Command() string {
	return s.config.Command
}
