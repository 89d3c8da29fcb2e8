package channel

import (
	"sync"

	"github.com/flemzord/slackapprove/internal/core"
	"github.com/flemzord/slackapprove/internal/workflow"
	"github.com/flemzord/slackapprove/pkg/interaction"
)

// MockChannel is a test double that implements Channel. Simulate pushes an
// interaction through the inbox set by the wiring code.
type MockChannel struct {
	name     string
	platform workflow.Platform

	mu    sync.Mutex
	inbox func(in interaction.Interaction) error
}

// Compile-time interface guards.
var _ Channel = (*MockChannel)(nil)

// NewMockChannel creates a MockChannel named "channel.<name>" backed by
// platform.
func NewMockChannel(name string, platform workflow.Platform) *MockChannel {
	return &MockChannel{name: name, platform: platform}
}

// ModuleInfo implements core.Module.
func (m *MockChannel) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID: core.ModuleID("channel." + m.name),
		New: func() core.Module {
			return NewMockChannel(m.name, m.platform)
		},
	}
}

// SetInbox stores the inbox callback provided by the wiring code.
func (m *MockChannel) SetInbox(fn func(in interaction.Interaction) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = fn
}

// Platform implements Channel.
func (m *MockChannel) Platform() workflow.Platform {
	return m.platform
}

// Simulate delivers in to the inbox, stamping the channel name.
func (m *MockChannel) Simulate(in interaction.Interaction) error {
	m.mu.Lock()
	fn := m.inbox
	m.mu.Unlock()

	if fn == nil {
		return ErrNoInbox
	}
	if in.Channel == "" {
		in.Channel = string(m.ModuleInfo().ID)
	}
	return fn(in)
}
