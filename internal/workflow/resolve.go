package workflow

import (
	"context"
	"log/slog"
)

// Activation is a decision button press.
type Activation struct {
	ActionID  string
	Value     string
	ActorID   string
	ChannelID string
	MessageTS string
}

// Resolution reports what a decision did. Duplicate and Conflict are only
// ever set when a ledger is configured.
type Resolution struct {
	Request    Request
	Rewritten  bool
	RewriteErr error
	Notified   bool
	NotifyErr  error

	// Duplicate: the same decision was already applied to this message.
	// The message and the requester are updated again.
	Duplicate bool
	// Conflict: a different decision was already applied; Request carries
	// the recorded outcome, not the one requested.
	Conflict bool
}

// Resolver applies a decision to the message carrying the buttons.
type Resolver struct {
	platform Platform
	codec    *Codec
	ledger   Ledger
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLedger enables the first-decision-wins guard.
func WithLedger(l Ledger) ResolverOption {
	return func(r *Resolver) { r.ledger = l }
}

// NewResolver creates a Resolver. A nil codec uses unsigned tokens.
func NewResolver(platform Platform, codec *Codec, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	if codec == nil {
		codec = NewCodec(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		platform: platform,
		codec:    codec,
		logger:   logger.With("component", "resolve"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve decodes the token on a, applies the decision, rewrites the
// message in place and notifies the requester. It returns an error, with
// no side effects, for an unknown action, a malformed token, or missing
// message coordinates. Rewrite and notification failures are independent
// and reported in the Resolution.
func (r *Resolver) Resolve(ctx context.Context, a Activation) (Resolution, error) {
	if _, err := StatusForAction(a.ActionID); err != nil {
		r.logger.Warn("ignoring activation", "action", a.ActionID, "error", err)
		return Resolution{}, err
	}

	tok, err := r.codec.Decode(a.Value)
	if err != nil {
		r.logger.Warn("rejecting activation with malformed token",
			"action", a.ActionID,
			"actor", a.ActorID,
			"value_len", len(a.Value),
			"error", err,
		)
		return Resolution{}, err
	}

	if a.ChannelID == "" || a.MessageTS == "" {
		r.logger.Warn("rejecting activation without message coordinates", "action", a.ActionID, "actor", a.ActorID)
		return Resolution{}, ErrMissingMessage
	}

	pending := Request{
		RequesterID: tok.RequesterID,
		ApproverID:  a.ActorID,
		Text:        tok.RequestText,
		Status:      StatusPending,
	}
	req, err := pending.Decide(a.ActionID)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{Request: req}
	if r.ledger != nil {
		res = r.claim(ctx, a, req)
	}

	ref := MessageRef{ChannelID: a.ChannelID, Timestamp: a.MessageTS}
	if err := r.platform.UpdateMessage(ctx, ref, ResolvedMessage(res.Request)); err != nil {
		res.RewriteErr = err
		r.logger.Error("failed to rewrite decision message",
			"channel", a.ChannelID,
			"ts", a.MessageTS,
			"error", err,
		)
	} else {
		res.Rewritten = true
	}

	if res.Conflict {
		r.logger.Info("conflicting decision ignored",
			"requester", req.RequesterID,
			"approver", req.ApproverID,
			"recorded", res.Request.Status,
			"requested", req.Status,
		)
		return res, nil
	}

	if _, err := r.platform.PostMessage(ctx, req.RequesterID, OutcomeNotification(req)); err != nil {
		res.NotifyErr = err
		r.logger.Error("failed to notify requester",
			"requester", req.RequesterID,
			"error", err,
		)
	} else {
		res.Notified = true
	}

	r.logger.Info("approval request resolved",
		"requester", req.RequesterID,
		"approver", req.ApproverID,
		"status", req.Status,
		"repeat", res.Duplicate,
	)
	return res, nil
}

// claim consults the ledger. Any ledger failure falls back to applying the
// decision as if the ledger were absent.
func (r *Resolver) claim(ctx context.Context, a Activation, req Request) Resolution {
	key := Fingerprint(a.Value, a.ChannelID, a.MessageTS)
	recorded, claimed, err := r.ledger.Claim(ctx, key, string(req.Status))
	if err != nil {
		r.logger.Warn("decision ledger unavailable, applying decision", "error", err)
		return Resolution{Request: req}
	}
	if claimed {
		return Resolution{Request: req}
	}

	status, err := ParseStatus(recorded)
	if err != nil || !status.IsTerminal() {
		r.logger.Warn("decision ledger returned unusable status, applying decision", "recorded", recorded)
		return Resolution{Request: req}
	}

	prior := req
	prior.Status = status
	if status == req.Status {
		return Resolution{Request: prior, Duplicate: true}
	}
	return Resolution{Request: prior, Conflict: true}
}
