package channel

import (
	"errors"
	"testing"

	"github.com/flemzord/slackapprove/internal/workflow/workflowtest"
	"github.com/flemzord/slackapprove/pkg/interaction"
)

func TestMockChannel_ModuleInfo(t *testing.T) {
	t.Parallel()

	ch := NewMockChannel("slack", &workflowtest.MockPlatform{})
	info := ch.ModuleInfo()

	if string(info.ID) != "channel.slack" {
		t.Errorf("ModuleID = %q, want %q", info.ID, "channel.slack")
	}
	if info.New == nil || info.New() == nil {
		t.Fatal("New() should return a module")
	}
}

func TestMockChannel_SimulateWithoutInbox(t *testing.T) {
	t.Parallel()

	ch := NewMockChannel("slack", nil)
	if err := ch.Simulate(interaction.Interaction{}); !errors.Is(err, ErrNoInbox) {
		t.Errorf("Simulate() error = %v, want %v", err, ErrNoInbox)
	}
}

func TestMockChannel_Simulate(t *testing.T) {
	t.Parallel()

	platform := &workflowtest.MockPlatform{}
	ch := NewMockChannel("slack", platform)

	var got interaction.Interaction
	ch.SetInbox(func(in interaction.Interaction) error {
		got = in
		return nil
	})

	if err := ch.Simulate(interaction.Interaction{Kind: interaction.KindCommand, ID: "/approval-test"}); err != nil {
		t.Fatalf("Simulate() error: %v", err)
	}
	if got.Channel != "channel.slack" {
		t.Errorf("Channel = %q, want channel.slack", got.Channel)
	}
	if ch.Platform() != platform {
		t.Error("Platform() should return the configured platform")
	}
}

func TestMockChannel_InboxError(t *testing.T) {
	t.Parallel()

	boom := errors.New("inbox full")
	ch := NewMockChannel("slack", nil)
	ch.SetInbox(func(interaction.Interaction) error { return boom })

	if err := ch.Simulate(interaction.Interaction{}); !errors.Is(err, boom) {
		t.Errorf("Simulate() error = %v, want %v", err, boom)
	}
}
