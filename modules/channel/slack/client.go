package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/flemzord/slackapprove/internal/telemetry"
	"github.com/flemzord/slackapprove/internal/workflow"
)

const (
	maxRetries    = 3
	maxRetryAfter = 30 * time.Second
	httpTimeout   = 30 * time.Second
)

// Web API method names, used for metrics and spans.
const (
	methodViewsOpen   = "views.open"
	methodPostMessage = "chat.postMessage"
	methodUpdate      = "chat.update"
	methodAuthTest    = "auth.test"
)

// Client implements workflow.Platform over the Slack Web API.
type Client struct {
	api     *slack.Client
	limiter *rate.Limiter
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// Interface guard.
var _ workflow.Platform = (*Client)(nil)

// ClientOptions configures a Client. Zero values get defaults.
type ClientOptions struct {
	APIURL   string
	AppToken string
	Rate     float64
	Burst    int
	Debug    bool

	HTTPClient *http.Client
	Metrics    *telemetry.Metrics
	Tracer     trace.Tracer
	Logger     *slog.Logger
}

// NewClient creates a Web API client authenticated with the bot token.
func NewClient(botToken string, o ClientOptions) *Client {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: httpTimeout}
	}
	if o.Metrics == nil {
		o.Metrics = telemetry.NewMetrics(nil)
	}
	if o.Tracer == nil {
		o.Tracer = telemetry.Tracer(nil)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	limit := rate.Inf
	if o.Rate > 0 {
		limit = rate.Limit(o.Rate)
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}

	opts := []slack.Option{
		slack.OptionHTTPClient(o.HTTPClient),
		slack.OptionLog(slog.NewLogLogger(o.Logger.Handler(), slog.LevelDebug)),
		slack.OptionDebug(o.Debug),
	}
	if o.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(o.APIURL))
	}
	if o.AppToken != "" {
		opts = append(opts, slack.OptionAppLevelToken(o.AppToken))
	}

	return &Client{
		api:     slack.New(botToken, opts...),
		limiter: rate.NewLimiter(limit, o.Burst),
		metrics: o.Metrics,
		tracer:  o.Tracer,
		logger:  o.Logger,
	}
}

// OpenView implements workflow.Platform.
func (c *Client) OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error {
	return c.call(ctx, methodViewsOpen, func(ctx context.Context) error {
		_, err := c.api.OpenViewContext(ctx, triggerID, view)
		return err
	})
}

// PostMessage implements workflow.Platform. Posting to a user ID delivers
// the message in the bot's DM with that user.
func (c *Client) PostMessage(ctx context.Context, recipientID string, msg workflow.Message) (workflow.MessageRef, error) {
	var ref workflow.MessageRef
	err := c.call(ctx, methodPostMessage, func(ctx context.Context) error {
		channelID, ts, err := c.api.PostMessageContext(ctx, recipientID, msgOptions(msg)...)
		ref = workflow.MessageRef{ChannelID: channelID, Timestamp: ts}
		return err
	})
	return ref, err
}

// UpdateMessage implements workflow.Platform.
func (c *Client) UpdateMessage(ctx context.Context, ref workflow.MessageRef, msg workflow.Message) error {
	return c.call(ctx, methodUpdate, func(ctx context.Context) error {
		_, _, _, err := c.api.UpdateMessageContext(ctx, ref.ChannelID, ref.Timestamp, msgOptions(msg)...)
		return err
	})
}

// AuthTest checks the bot token and returns the bot identity.
func (c *Client) AuthTest(ctx context.Context) (*slack.AuthTestResponse, error) {
	var resp *slack.AuthTestResponse
	err := c.call(ctx, methodAuthTest, func(ctx context.Context) error {
		var err error
		resp, err = c.api.AuthTestContext(ctx)
		return err
	})
	return resp, err
}

// OpenSocket requests a Socket Mode websocket URL with the app-level token.
func (c *Client) OpenSocket(ctx context.Context) (string, error) {
	_, wsURL, err := c.api.StartSocketModeContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack: apps.connections.open: %w", err)
	}
	return wsURL, nil
}

func msgOptions(msg workflow.Message) []slack.MsgOption {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if len(msg.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(msg.Blocks...))
	}
	return opts
}

// call runs fn under the outbound rate limit with a client span, and retries
// when Slack answers 429 with Retry-After.
func (c *Client) call(ctx context.Context, method string, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "slack "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("slack.method", method)),
	)

	var err error
	for attempt := range maxRetries {
		if err = c.limiter.Wait(ctx); err != nil {
			break
		}
		err = fn(ctx)

		var rle *slack.RateLimitedError
		if !errors.As(err, &rle) || attempt == maxRetries-1 {
			break
		}

		wait := min(rle.RetryAfter, maxRetryAfter)
		c.logger.Warn("slack rate limited, retrying", "method", method, "retry_after", wait, "attempt", attempt+1)
		span.AddEvent("rate_limited", trace.WithAttributes(attribute.Int64("retry_after_ms", wait.Milliseconds())))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
		case <-timer.C:
			continue
		}
		break
	}

	c.metrics.PlatformCalls.WithLabelValues(method, telemetry.Result(err)).Inc()
	telemetry.EndSpan(span, err)
	if err != nil {
		return fmt.Errorf("slack: %s: %w", method, err)
	}
	return nil
}
