package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven"
)

var _ driven.Notifier = (*MockNotifier)(nil)

// MockNotifier records sent messages
type MockNotifier struct {
	mu   sync.Mutex
	sent []*domain.Message

	// SendFn overrides the default recording behaviour (optional)
	SendFn func(msg *domain.Message) error
}

// NewMockNotifier creates a new MockNotifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Send(ctx context.Context, msg *domain.Message) error {
	if m.SendFn != nil {
		if err := m.SendFn(msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns every message delivered so far
func (m *MockNotifier) Sent() []*domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Message(nil), m.sent...)
}
