package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/flemzord/slackapprove/internal/security"
	"github.com/flemzord/slackapprove/pkg/interaction"
)

const (
	minReconnectBackoff = time.Second
	maxReconnectBackoff = time.Minute
	ackTimeout          = 5 * time.Second
)

// errDisconnect is returned by a session that Slack asked to close.
var errDisconnect = errors.New("slack: socket mode disconnect requested")

// socketOpener obtains a fresh Socket Mode websocket URL.
type socketOpener interface {
	OpenSocket(ctx context.Context) (string, error)
}

// SocketReceiver receives callbacks over a Socket Mode websocket. Every
// envelope is acknowledged before its payload is routed.
type SocketReceiver struct {
	opener      socketOpener
	inbox       func(interaction.Interaction) error
	logger      *slog.Logger
	channelName string

	minBackoff time.Duration
	maxBackoff time.Duration

	started  atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewSocketReceiver creates a new SocketReceiver.
func NewSocketReceiver(opener socketOpener, inbox func(interaction.Interaction) error, logger *slog.Logger, channelName string) *SocketReceiver {
	return &SocketReceiver{
		opener:      opener,
		inbox:       inbox,
		logger:      logger,
		channelName: channelName,
		minBackoff:  minReconnectBackoff,
		maxBackoff:  maxReconnectBackoff,
		done:        make(chan struct{}),
	}
}

// Start launches the connection loop in a goroutine.
func (s *SocketReceiver) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.loop(ctx)
}

// Stop closes the connection and waits for the loop to exit. It is safe to
// call Stop multiple times, or without Start.
func (s *SocketReceiver) Stop() {
	if !s.started.Load() {
		return
	}
	s.stopOnce.Do(func() { s.cancel() })
	<-s.done
}

// loop keeps one session open until Stop, reconnecting with a capped
// exponential backoff. A requested disconnect reconnects at once.
func (s *SocketReceiver) loop(ctx context.Context) {
	defer close(s.done)

	backoff := s.minBackoff
	for {
		hello, err := s.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if hello {
			backoff = s.minBackoff
		}
		if errors.Is(err, errDisconnect) {
			s.logger.Info("socket mode reconnecting", "reason", err)
			continue
		}

		s.logger.Warn("socket mode connection lost", "error", err, "retry_in", backoff)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		backoff = min(backoff*2, s.maxBackoff)
	}
}

// session runs one websocket connection. It reports whether the server
// greeted the connection with hello.
func (s *SocketReceiver) session(ctx context.Context) (bool, error) {
	wsURL, err := s.opener.OpenSocket(ctx)
	if err != nil {
		return false, err
	}

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return false, fmt.Errorf("slack: socket dial: %w", err)
	}
	defer func() { _ = conn.CloseNow() }()
	conn.SetReadLimit(security.DefaultMaxPayloadSize)

	hello := false
	for {
		var req socketmode.Request
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			return hello, fmt.Errorf("slack: socket read: %w", err)
		}

		switch req.Type {
		case socketmode.RequestTypeHello:
			hello = true
			s.logger.Info("socket mode connected", "connections", req.NumConnections)
			continue
		case socketmode.RequestTypeDisconnect:
			_ = conn.Close(websocket.StatusNormalClosure, "disconnect requested")
			return hello, fmt.Errorf("%w: %s", errDisconnect, req.Reason)
		}

		if req.EnvelopeID != "" {
			if err := s.ack(ctx, conn, req.EnvelopeID); err != nil {
				return hello, err
			}
		}
		s.handle(&req)
	}
}

func (s *SocketReceiver) ack(ctx context.Context, conn *websocket.Conn, envelopeID string) error {
	ctx, cancel := context.WithTimeout(ctx, ackTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, socketmode.Response{EnvelopeID: envelopeID}); err != nil {
		return fmt.Errorf("slack: socket ack %s: %w", envelopeID, err)
	}
	return nil
}

// socketCommand is the slash command payload of a Socket Mode envelope.
// slack.SlashCommand's own decoder fails when is_enterprise_install is
// absent, so only the fields the workflow reads are decoded here.
type socketCommand struct {
	Command     string `json:"command"`
	Text        string `json:"text"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	TeamID      string `json:"team_id"`
	ChannelID   string `json:"channel_id"`
	TriggerID   string `json:"trigger_id"`
	ResponseURL string `json:"response_url"`
	APIAppID    string `json:"api_app_id"`
}

func (c socketCommand) slashCommand() slack.SlashCommand {
	return slack.SlashCommand{
		Command:     c.Command,
		Text:        c.Text,
		UserID:      c.UserID,
		UserName:    c.UserName,
		TeamID:      c.TeamID,
		ChannelID:   c.ChannelID,
		TriggerID:   c.TriggerID,
		ResponseURL: c.ResponseURL,
		APIAppID:    c.APIAppID,
	}
}

// handle converts an acknowledged envelope and routes it.
func (s *SocketReceiver) handle(req *socketmode.Request) {
	var (
		in  interaction.Interaction
		err error
	)
	switch req.Type {
	case socketmode.RequestTypeSlashCommands:
		var cmd socketCommand
		if err = json.Unmarshal(req.Payload, &cmd); err == nil {
			in, err = convertCommand(cmd.slashCommand(), s.channelName)
		}
	case socketmode.RequestTypeInteractive:
		in, err = convertPayload(req.Payload, s.channelName)
	default:
		s.logger.Debug("socket mode envelope ignored", "type", req.Type)
		return
	}

	switch {
	case errors.Is(err, errIgnored):
		s.logger.Debug("slack callback acknowledged without routing", "reason", err)
	case err != nil:
		s.logger.Warn("socket mode envelope rejected", "type", req.Type, "envelope", req.EnvelopeID, "error", err)
	default:
		deliver(s.inbox, in, s.logger)
	}
}
