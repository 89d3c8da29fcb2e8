package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/slackapprove/internal/channel"
	"github.com/flemzord/slackapprove/internal/config"
	"github.com/flemzord/slackapprove/internal/core"
	"github.com/flemzord/slackapprove/internal/ledger"
	"github.com/flemzord/slackapprove/internal/router"
	"github.com/flemzord/slackapprove/internal/security"
	"github.com/flemzord/slackapprove/internal/telemetry"
	"github.com/flemzord/slackapprove/internal/workflow"
	"github.com/flemzord/slackapprove/pkg/interaction"
)

// DefaultCommand is the slash command routed when the channel does not name one.
const DefaultCommand = "/approval-test"

// approvalChannel is a channel that also knows its slash command and token
// codec. channel.slack satisfies it.
type approvalChannel interface {
	channel.Channel
	Command() string
	Codec() *workflow.Codec
}

// routerModule wraps a *router.Router to satisfy core.Module, core.Starter,
// and core.Stopper, so the router participates in the App lifecycle.
type routerModule struct {
	router *router.Router
	ctx    context.Context
}

func (m *routerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "router"}
}

func (m *routerModule) Start() error {
	m.router.Start(m.ctx)
	return nil
}

func (m *routerModule) Stop(ctx context.Context) error {
	m.router.Stop(ctx)
	return nil
}

// Workflow bundles the three stages a dispatch table routes to.
type Workflow struct {
	Intake   *workflow.Intake
	Encoder  *workflow.Encoder
	Resolver *workflow.Resolver
}

// NewWorkflow builds the stages over platform. A nil ledger disables the
// first-decision-wins guard.
func NewWorkflow(platform workflow.Platform, codec *workflow.Codec, l workflow.Ledger, logger *slog.Logger) Workflow {
	var opts []workflow.ResolverOption
	if l != nil {
		opts = append(opts, workflow.WithLedger(l))
	}
	return Workflow{
		Intake:   workflow.NewIntake(platform, logger),
		Encoder:  workflow.NewEncoder(platform, codec, logger),
		Resolver: workflow.NewResolver(platform, codec, logger, opts...),
	}
}

// NewTable maps every interaction the workflow reacts to onto its stage.
// Selecting an approver in the open modal also fires a block action; it is
// registered as a no-op so it is acknowledged and counted instead of
// reported as unrouted.
func NewTable(command string, w Workflow) *router.Table {
	if command == "" {
		command = DefaultCommand
	}
	t := router.NewTable()
	t.MustRegister(interaction.KindCommand, command, openModal(w.Intake))
	t.MustRegister(interaction.KindViewSubmission, workflow.CallbackID, dispatchRequest(w.Encoder))
	t.MustRegister(interaction.KindBlockAction, workflow.ActionApprove, resolveDecision(w.Resolver))
	t.MustRegister(interaction.KindBlockAction, workflow.ActionReject, resolveDecision(w.Resolver))
	t.MustRegister(interaction.KindBlockAction, workflow.ApproverActionID, ignore)
	return t
}

func openModal(intake *workflow.Intake) router.Handler {
	return func(ctx context.Context, in interaction.Interaction) error {
		return intake.Open(ctx, workflow.Trigger{
			TriggerID: in.TriggerID,
			UserID:    in.UserID,
			ChannelID: in.ChannelID,
		})
	}
}

func dispatchRequest(enc *workflow.Encoder) router.Handler {
	return func(ctx context.Context, in interaction.Interaction) error {
		res, err := enc.Submit(ctx, workflow.Submission{
			RequesterID: in.UserID,
			ApproverID:  in.Field(workflow.ApproverBlockID, workflow.ApproverActionID),
			Text:        in.Field(workflow.RequestBlockID, workflow.RequestActionID),
		})
		if err != nil {
			return err
		}
		return errors.Join(res.ApproverErr, res.RequesterErr)
	}
}

func resolveDecision(res *workflow.Resolver) router.Handler {
	return func(ctx context.Context, in interaction.Interaction) error {
		r, err := res.Resolve(ctx, workflow.Activation{
			ActionID:  in.ID,
			Value:     in.Value,
			ActorID:   in.UserID,
			ChannelID: in.ChannelID,
			MessageTS: in.MessageTS,
		})
		if err != nil {
			return err
		}
		return errors.Join(r.RewriteErr, r.NotifyErr)
	}
}

func ignore(context.Context, interaction.Interaction) error { return nil }

// wireRouter builds the workflow over the loaded channel, creates the
// Router, points the channel's inbox at it, and appends it to the app
// lifecycle. Must be called after LoadModules and before Start.
func wireRouter(app *core.App, appCtx *core.AppContext, cfg config.RouterConfig, logger *slog.Logger) (*router.Router, error) {
	mod, ok := app.Module(config.ChannelModule)
	if !ok {
		return nil, fmt.Errorf("router: module %s not loaded", config.ChannelModule)
	}
	ch, ok := mod.(approvalChannel)
	if !ok {
		return nil, fmt.Errorf("router: module %s is not an approval channel", config.ChannelModule)
	}

	// The ledger module, when configured, registered itself during Provision.
	var l workflow.Ledger
	if svc, ok := core.ServiceAs[workflow.Ledger](appCtx, ledger.ServiceName); ok {
		l = svc
		logger.Info("router: decision ledger enabled")
	}

	metrics, _ := core.ServiceAs[*telemetry.Metrics](appCtx, telemetry.ServiceName)

	w := NewWorkflow(ch.Platform(), ch.Codec(), l, logger)
	r, err := router.NewRouter(router.Config{
		WorkerCount: cfg.Workers,
		InboxSize:   cfg.InboxSize,
		Timeout:     cfg.Timeout,
		Table:       NewTable(ch.Command(), w),
		Logger:      logger,
		Metrics:     metrics,
		Limiter:     security.NewRateLimiter(cfg.RateLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	ch.SetInbox(r.Submit)

	app.AppendModule("router", &routerModule{
		router: r,
		ctx:    context.Background(),
	})
	appCtx.RegisterService(router.ServiceName, r)

	logger.Info("router: wired", "channel", config.ChannelModule, "command", ch.Command())
	return r, nil
}
