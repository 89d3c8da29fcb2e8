// Package channel defines the bridge between a chat platform and the router.
package channel

import (
	"github.com/flemzord/slackapprove/internal/core"
	"github.com/flemzord/slackapprove/internal/workflow"
	"github.com/flemzord/slackapprove/pkg/interaction"
)

// Channel is the bridge between a chat platform and the router.
//
// A channel acknowledges inbound callbacks, normalizes them into
// interactions, and pushes them to the router via the inbox callback. It
// also exposes the outbound side of the platform to the workflow.
type Channel interface {
	core.Module

	// SetInbox gives the channel a function to push interactions to the
	// router. It is called during wiring, before Start().
	SetInbox(fn func(in interaction.Interaction) error)

	// Platform returns the outbound client. It is valid after Provision.
	Platform() workflow.Platform
}
