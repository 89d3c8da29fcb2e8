package workflow

import (
	"context"
	"log/slog"
)

// Trigger is a slash-command invocation.
type Trigger struct {
	TriggerID string
	UserID    string
	ChannelID string
}

// Intake opens the request modal in response to the slash command.
type Intake struct {
	platform Platform
	logger   *slog.Logger
}

// NewIntake creates an Intake.
func NewIntake(platform Platform, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{
		platform: platform,
		logger:   logger.With("component", "intake"),
	}
}

// Open renders the request modal for t. It holds no state: the modal is
// identified only by its callback ID.
func (i *Intake) Open(ctx context.Context, t Trigger) error {
	if t.TriggerID == "" {
		return ErrMissingTrigger
	}
	if err := i.platform.OpenView(ctx, t.TriggerID, RequestModal()); err != nil {
		i.logger.Error("failed to open request modal", "user", t.UserID, "error", err)
		return err
	}
	i.logger.Debug("request modal opened", "user", t.UserID)
	return nil
}
