// Package workflowtest provides test doubles for the workflow package.
package workflowtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/slack-go/slack"

	"github.com/flemzord/slackapprove/internal/workflow"
)

// View records one OpenView call.
type View struct {
	TriggerID string
	View      slack.ModalViewRequest
}

// Post records one PostMessage call.
type Post struct {
	RecipientID string
	Message     workflow.Message
}

// Update records one UpdateMessage call.
type Update struct {
	Ref     workflow.MessageRef
	Message workflow.Message
}

// MockPlatform records every call. Set the Err fields to make calls fail;
// failed calls are still recorded. All methods are safe for concurrent use.
type MockPlatform struct {
	OpenViewErr error
	// PostErr maps a recipient ID to the error returned for posts to it.
	PostErr   map[string]error
	UpdateErr error

	mu      sync.Mutex
	views   []View
	posts   []Post
	updates []Update
}

// Interface guard.
var _ workflow.Platform = (*MockPlatform)(nil)

// OpenView implements workflow.Platform.
func (m *MockPlatform) OpenView(_ context.Context, triggerID string, view slack.ModalViewRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, View{TriggerID: triggerID, View: view})
	return m.OpenViewErr
}

// PostMessage implements workflow.Platform. Successful posts land in a
// channel named "D"+recipientID with sequential timestamps.
func (m *MockPlatform) PostMessage(_ context.Context, recipientID string, msg workflow.Message) (workflow.MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, Post{RecipientID: recipientID, Message: msg})
	if err := m.PostErr[recipientID]; err != nil {
		return workflow.MessageRef{}, err
	}
	return workflow.MessageRef{
		ChannelID: "D" + recipientID,
		Timestamp: fmt.Sprintf("1700000000.%06d", len(m.posts)),
	}, nil
}

// UpdateMessage implements workflow.Platform.
func (m *MockPlatform) UpdateMessage(_ context.Context, ref workflow.MessageRef, msg workflow.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, Update{Ref: ref, Message: msg})
	return m.UpdateErr
}

// Views returns a copy of the recorded OpenView calls.
func (m *MockPlatform) Views() []View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]View(nil), m.views...)
}

// Posts returns a copy of the recorded PostMessage calls.
func (m *MockPlatform) Posts() []Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Post(nil), m.posts...)
}

// Updates returns a copy of the recorded UpdateMessage calls.
func (m *MockPlatform) Updates() []Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Update(nil), m.updates...)
}

// PostsTo returns the recorded posts addressed to recipientID.
func (m *MockPlatform) PostsTo(recipientID string) []Post {
	var out []Post
	for _, p := range m.Posts() {
		if p.RecipientID == recipientID {
			out = append(out, p)
		}
	}
	return out
}

// MockLedger is an in-memory workflow.Ledger. Set ClaimFunc to override.
type MockLedger struct {
	ClaimFunc func(ctx context.Context, key, status string) (string, bool, error)

	mu      sync.Mutex
	records map[string]string
	calls   int
}

// Interface guard.
var _ workflow.Ledger = (*MockLedger)(nil)

// Claim implements workflow.Ledger.
func (m *MockLedger) Claim(ctx context.Context, key, status string) (string, bool, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, key, status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[string]string)
	}
	if prev, ok := m.records[key]; ok {
		return prev, false, nil
	}
	m.records[key] = status
	return status, true, nil
}

// CallCount returns the number of Claim calls.
func (m *MockLedger) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Texts returns the text of every section and context element in msg, in
// block order.
func Texts(msg workflow.Message) []string {
	var out []string
	for _, b := range msg.Blocks {
		switch b := b.(type) {
		case *slack.SectionBlock:
			if b.Text != nil {
				out = append(out, b.Text.Text)
			}
		case *slack.ContextBlock:
			for _, el := range b.ContextElements.Elements {
				if t, ok := el.(*slack.TextBlockObject); ok {
					out = append(out, t.Text)
				}
			}
		}
	}
	return out
}

// Buttons returns every button in msg's action blocks.
func Buttons(msg workflow.Message) []*slack.ButtonBlockElement {
	var out []*slack.ButtonBlockElement
	for _, b := range msg.Blocks {
		ab, ok := b.(*slack.ActionBlock)
		if !ok || ab.Elements == nil {
			continue
		}
		for _, el := range ab.Elements.ElementSet {
			if btn, ok := el.(*slack.ButtonBlockElement); ok {
				out = append(out, btn)
			}
		}
	}
	return out
}
