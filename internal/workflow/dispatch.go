package workflow

import (
	"context"
	"fmt"
	"log/slog"
)

// Submission is a completed request modal.
type Submission struct {
	RequesterID string
	ApproverID  string
	Text        string
}

// DispatchResult reports the two outbound effects of a submission. The
// effects are independent: either may fail without affecting the other.
type DispatchResult struct {
	Request         Request
	Token           string
	ApproverMessage MessageRef
	ApproverErr     error
	RequesterErr    error
}

// Delivered reports whether the approver received the decision message.
func (r DispatchResult) Delivered() bool {
	return r.ApproverErr == nil
}

// Encoder turns a submission into an approver message carrying the
// decision token, plus a confirmation to the requester.
type Encoder struct {
	platform Platform
	codec    *Codec
	logger   *slog.Logger
}

// NewEncoder creates an Encoder. A nil codec uses unsigned tokens.
func NewEncoder(platform Platform, codec *Codec, logger *slog.Logger) *Encoder {
	if codec == nil {
		codec = NewCodec(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{
		platform: platform,
		codec:    codec,
		logger:   logger.With("component", "dispatch"),
	}
}

// Submit validates s, encodes the token, and sends both messages. The error
// is non-nil only when nothing was sent: an invalid submission or a token
// that cannot be encoded. Per-message failures are reported in the result.
func (e *Encoder) Submit(ctx context.Context, s Submission) (DispatchResult, error) {
	req, err := NewRequest(s.RequesterID, s.ApproverID, s.Text)
	if err != nil {
		return DispatchResult{}, err
	}

	token, err := e.codec.Encode(req.Token())
	if err != nil {
		return DispatchResult{Request: req}, fmt.Errorf("dispatch: %w", err)
	}

	res := DispatchResult{Request: req, Token: token}

	ref, err := e.platform.PostMessage(ctx, req.ApproverID, ApproverMessage(req, token))
	if err != nil {
		res.ApproverErr = err
		e.logger.Error("failed to deliver approval request",
			"requester", req.RequesterID,
			"approver", req.ApproverID,
			"text_len", len(req.Text),
			"error", err,
		)
	} else {
		res.ApproverMessage = ref
	}

	if _, err := e.platform.PostMessage(ctx, req.RequesterID, RequesterConfirmation(req)); err != nil {
		res.RequesterErr = err
		e.logger.Error("failed to confirm approval request",
			"requester", req.RequesterID,
			"error", err,
		)
	}

	e.logger.Info("approval request dispatched",
		"requester", req.RequesterID,
		"approver", req.ApproverID,
		"delivered", res.Delivered(),
	)
	return res, nil
}
