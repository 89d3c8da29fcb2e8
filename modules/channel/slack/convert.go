package slack

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/slack-go/slack"

	"github.com/flemzord/slackapprove/internal/security"
	"github.com/flemzord/slackapprove/pkg/interaction"
)

// errIgnored marks a callback that is acknowledged but carries nothing to
// route (message shortcuts, view_closed, select menus without a handler).
var errIgnored = errors.New("slack: callback ignored")

// commandFromForm reads a slash command from its form-encoded HTTP body.
func commandFromForm(form url.Values) slack.SlashCommand {
	return slack.SlashCommand{
		Command:   form.Get("command"),
		UserID:    form.Get("user_id"),
		ChannelID: form.Get("channel_id"),
		TriggerID: form.Get("trigger_id"),
		TeamID:    form.Get("team_id"),
	}
}

// convertCommand normalizes a slash command into an interaction.
func convertCommand(cmd slack.SlashCommand, channelName string) (interaction.Interaction, error) {
	if cmd.Command == "" {
		return interaction.Interaction{}, errors.New("slack: slash command without command name")
	}
	return interaction.Interaction{
		Kind:       interaction.KindCommand,
		ID:         cmd.Command,
		Channel:    channelName,
		UserID:     cmd.UserID,
		TriggerID:  cmd.TriggerID,
		ChannelID:  cmd.ChannelID,
		ReceivedAt: time.Now(),
	}, nil
}

// convertPayload validates and decodes an interaction callback payload.
func convertPayload(payload []byte, channelName string) (interaction.Interaction, error) {
	if err := security.ValidatePayload(payload, 0, 0); err != nil {
		return interaction.Interaction{}, fmt.Errorf("slack: interaction payload: %w", err)
	}
	var cb slack.InteractionCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return interaction.Interaction{}, fmt.Errorf("slack: decode interaction payload: %w", err)
	}
	return convertCallback(&cb, channelName)
}

// convertCallback maps a decoded interaction callback onto an interaction.
// Only view submissions and block actions are routed.
func convertCallback(cb *slack.InteractionCallback, channelName string) (interaction.Interaction, error) {
	in := interaction.Interaction{
		Channel:    channelName,
		UserID:     cb.User.ID,
		TriggerID:  cb.TriggerID,
		ReceivedAt: time.Now(),
	}

	switch cb.Type {
	case slack.InteractionTypeViewSubmission:
		in.Kind = interaction.KindViewSubmission
		in.ID = cb.View.CallbackID
		if cb.View.State != nil {
			in.Values = flattenState(cb.View.State.Values)
		}
		return in, nil

	case slack.InteractionTypeBlockActions:
		if len(cb.ActionCallback.BlockActions) == 0 {
			return interaction.Interaction{}, fmt.Errorf("%w: block_actions without actions", errIgnored)
		}
		// Slack delivers one activated element per callback.
		action := cb.ActionCallback.BlockActions[0]
		in.Kind = interaction.KindBlockAction
		in.ID = action.ActionID
		in.Value = actionValue(action)
		in.ChannelID = cb.Container.ChannelID
		in.MessageTS = cb.Container.MessageTs
		if in.ChannelID == "" {
			in.ChannelID = cb.Channel.ID
		}
		if in.MessageTS == "" {
			in.MessageTS = cb.Message.Timestamp
		}
		return in, nil
	}

	return interaction.Interaction{}, fmt.Errorf("%w: type %q", errIgnored, cb.Type)
}

// flattenState reduces modal state to block ID -> action ID -> value.
func flattenState(state map[string]map[string]slack.BlockAction) map[string]map[string]string {
	out := make(map[string]map[string]string, len(state))
	for blockID, actions := range state {
		vals := make(map[string]string, len(actions))
		for actionID, a := range actions {
			vals[actionID] = actionValue(&a)
		}
		out[blockID] = vals
	}
	return out
}

// actionValue picks the value of whichever element type produced a.
func actionValue(a *slack.BlockAction) string {
	switch {
	case a.Value != "":
		return a.Value
	case a.SelectedUser != "":
		return a.SelectedUser
	case a.SelectedConversation != "":
		return a.SelectedConversation
	case a.SelectedChannel != "":
		return a.SelectedChannel
	default:
		return a.SelectedOption.Value
	}
}
